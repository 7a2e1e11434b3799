package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultPlan []byte

// Recognized values for Repository.Kind.
const (
	KindGit  = "git"
	KindFile = "file"
)

// Default returns the built-in provisioning plan.
func Default() Config {
	cfg, err := parse(defaultPlan, "defaults.yaml")
	if err != nil {
		// The embedded plan is part of the binary; failing here is a build defect.
		panic("invalid embedded plan: " + err.Error())
	}
	return cfg
}

// LoadConfig reads a plan file. An empty path selects the built-in plan.
func LoadConfig(configFile string) (Config, error) {
	if configFile == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(configFile)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read %s: %w", configFile, err)
	}
	return parse(raw, configFile)
}

func parse(raw []byte, name string) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	if cfg.AppsDir == "" {
		cfg.AppsDir = "Desktop/apps"
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid plan %s: %w", name, err)
	}
	return cfg, nil
}

// Validate reports every structural problem in the plan at once.
func (c Config) Validate() error {
	var errs []error
	for i, r := range c.Repositories {
		if strings.TrimSpace(r.URL) == "" {
			errs = append(errs, fmt.Errorf("repositories[%d]: url is required", i))
		}
		switch r.Kind {
		case "", KindGit, KindFile:
		default:
			errs = append(errs, fmt.Errorf("repositories[%d]: unknown kind %q", i, r.Kind))
		}
		if r.SetupRequired && len(r.Setup) == 0 {
			errs = append(errs, fmt.Errorf("repositories[%d]: setup_required without setup commands", i))
		}
	}
	for i, p := range c.Packages {
		if strings.TrimSpace(p) == "" || strings.ContainsAny(p, " \t") {
			errs = append(errs, fmt.Errorf("packages[%d]: invalid package name %q", i, p))
		}
	}
	for i, a := range c.Aliases.Entries {
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("aliases.entries[%d]: name is required", i))
		}
	}
	for i, d := range c.Dotfiles {
		if d.Path == "" || d.Content == "" {
			errs = append(errs, fmt.Errorf("dotfiles[%d]: path and content are required", i))
		}
	}
	return errors.Join(errs...)
}

// Expand substitutes ${USER}, ${HOME} and ${APPS_DIR} in the text fields that end up in
// the user's files. Setup lines are left alone; the shell expands those itself.
func (c Config) Expand(user, home, appsDir string) Config {
	r := strings.NewReplacer("${USER}", user, "${HOME}", home, "${APPS_DIR}", appsDir)

	out := c
	out.AppsDir = r.Replace(c.AppsDir)
	out.Aliases.RawConfigs = make([]string, len(c.Aliases.RawConfigs))
	for i, raw := range c.Aliases.RawConfigs {
		out.Aliases.RawConfigs[i] = r.Replace(raw)
	}
	out.Aliases.Entries = make([]Alias, len(c.Aliases.Entries))
	for i, a := range c.Aliases.Entries {
		out.Aliases.Entries[i] = Alias{Name: a.Name, Value: r.Replace(a.Value)}
	}
	out.Dotfiles = make([]Dotfile, len(c.Dotfiles))
	for i, d := range c.Dotfiles {
		out.Dotfiles[i] = Dotfile{Path: r.Replace(d.Path), Content: r.Replace(d.Content)}
	}
	return out
}
