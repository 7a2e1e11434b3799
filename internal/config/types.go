package config

import "fmt"

// Repository describes one external repository or file to fetch into the apps directory.
// - URL: Locator of the repository or raw file.
// - Kind: Optional explicit locator type ("git" or "file"). Inferred from the URL when empty.
// - SetupRequired/Setup: Shell lines run after acquisition, in order.
// - Extract: Unpack a downloaded archive into the apps directory.
type Repository struct {
	URL           string   `yaml:"url"`
	Kind          string   `yaml:"kind,omitempty"`
	SetupRequired bool     `yaml:"setup_required,omitempty"`
	Setup         []string `yaml:"setup,omitempty"`
	Extract       bool     `yaml:"extract,omitempty"`
}

// Aliases holds shell-specific alias definitions.
// - Shell: Shell type (e.g., zsh, bash). Detected from $SHELL when empty.
// - RawConfigs: Literal lines such as comment headers.
// - Entries: List of aliases to apply.
type Aliases struct {
	Shell      string   `yaml:"shell,omitempty"`
	RawConfigs []string `yaml:"raw_configs,omitempty"`
	Entries    []Alias  `yaml:"entries,omitempty"`
}

// Alias defines a single shell alias (e.g., lsa = ls -la).
type Alias struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Line renders the alias the way it is written into the rc file.
func (a Alias) Line() string {
	return fmt.Sprintf("alias %s=\"%s\"", a.Name, a.Value)
}

// Lines returns every rc line the aliases section asks for, raw configs first.
func (a Aliases) Lines() []string {
	lines := make([]string, 0, len(a.RawConfigs)+len(a.Entries))
	lines = append(lines, a.RawConfigs...)
	for _, e := range a.Entries {
		lines = append(lines, e.Line())
	}
	return lines
}

// Dotfile is a snippet that must be present in a file.
// Relative paths are resolved against the home directory.
type Dotfile struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
}

// Config is the provisioning plan.
type Config struct {
	AppsDir      string       `yaml:"apps_dir"`
	Repositories []Repository `yaml:"repositories"`
	Packages     []string     `yaml:"packages"`
	Aliases      Aliases      `yaml:"aliases"`
	Dotfiles     []Dotfile    `yaml:"dotfiles"`
}
