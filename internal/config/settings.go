package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding command-line settings,
// e.g. PROVISIONER_DRY_RUN=true or PROVISIONER_APPS_DIR=/opt/apps.
const EnvPrefix = "PROVISIONER"

// Settings are the per-invocation options, as opposed to the plan itself.
type Settings struct {
	ConfigPath     string
	StatePath      string
	AppsDir        string
	Shell          string
	Debug          bool
	DryRun         bool
	NoSudo         bool
	CommandTimeout time.Duration
}

// LoadSettings resolves settings from the given flags, letting PROVISIONER_* environment
// variables fill in anything not set on the command line.
func LoadSettings(flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return Settings{}, fmt.Errorf("failed to bind flags: %w", err)
	}

	return Settings{
		ConfigPath:     v.GetString("config"),
		StatePath:      v.GetString("state"),
		AppsDir:        v.GetString("apps-dir"),
		Shell:          v.GetString("shell"),
		Debug:          v.GetBool("debug"),
		DryRun:         v.GetBool("dry-run"),
		NoSudo:         v.GetBool("no-sudo"),
		CommandTimeout: v.GetDuration("command-timeout"),
	}, nil
}
