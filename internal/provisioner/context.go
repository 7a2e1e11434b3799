package provisioner

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"host-provisioner/internal/logger"
)

// RunContext is the environment a run resolves once at start. Every stage uses
// these absolute paths instead of the process working directory.
type RunContext struct {
	User          string
	HomeDir       string
	AppsDir       string
	Shell         string // from $SHELL
	ShellOverride string // from --shell; wins over the plan and $SHELL
	InvocationDir string
}

// lookupUser is replaced in tests.
var lookupUser = user.Lookup

// ResolveRunContext resolves the target user, home and apps directory. Under sudo the
// invoking user ($SUDO_USER) is provisioned rather than root. appsDir may be absolute or
// relative to the home directory.
func ResolveRunContext(appsDir, shellOverride string) (RunContext, error) {
	u, err := targetUser()
	if err != nil {
		return RunContext{}, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return RunContext{}, fmt.Errorf("failed to get current directory: %w", err)
	}

	rc := RunContext{
		User:          u.Username,
		HomeDir:       u.HomeDir,
		AppsDir:       ResolvePath(u.HomeDir, appsDir),
		Shell:         os.Getenv("SHELL"),
		ShellOverride: shellOverride,
		InvocationDir: cwd,
	}
	logger.Debug("Resolved run context: user=%s home=%s apps=%s shell=%s", rc.User, rc.HomeDir, rc.AppsDir, rc.Shell)
	return rc, nil
}

func targetUser() (*user.User, error) {
	for _, env := range []string{"SUDO_USER", "USER"} {
		name := os.Getenv(env)
		if name == "" {
			continue
		}
		u, err := lookupUser(name)
		if err == nil {
			return u, nil
		}
		logger.Debug("Unable to look up user %s from $%s: %v", name, env, err)
	}

	u, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return u, nil
}

// ResolvePath makes p absolute: "~/x" and relative paths are taken from home.
func ResolvePath(home, p string) string {
	switch {
	case p == "~":
		return home
	case strings.HasPrefix(p, "~/"):
		return filepath.Join(home, p[2:])
	case filepath.IsAbs(p):
		return filepath.Clean(p)
	default:
		return filepath.Join(home, p)
	}
}
