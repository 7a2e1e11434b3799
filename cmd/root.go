package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"host-provisioner/internal/config"
	"host-provisioner/internal/logger"
)

// settings holds the resolved flags and PROVISIONER_* environment variables.
// It is filled in before any subcommand runs.
var settings config.Settings

// rootCmd is the base command for the CLI tool `provisioner`.
var rootCmd = &cobra.Command{
	Use:   "provisioner",
	Short: "Workstation provisioning tool",
	Long: `provisioner brings a Debian-family workstation to a known state: it updates the
system, fetches tool repositories into an apps directory, installs packages and
adds shell aliases and dotfile snippets. Every step is safe to re-run.`,
	SilenceUsage:  true,
	SilenceErrors: true,

	// PersistentPreRunE runs before any subcommand: flags and environment are resolved
	// once and the logger is set up from them.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.LoadSettings(cmd.Flags())
		if err != nil {
			return err
		}
		settings = s
		logger.Init(settings.Debug)
		logger.Debug("Settings: %+v", settings)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.Bool("debug", false, "Enable debug logging")
	flags.StringP("config", "c", "", "Path to a plan file (default: built-in plan)")
	flags.String("state", "", "Path to the run state file (default: ~/"+defaultStatePath+" of the provisioned user)")
	flags.String("apps-dir", "", "Apps directory, absolute or relative to home (overrides the plan)")
	flags.String("shell", "", "Shell whose rc file receives aliases (overrides $SHELL)")
	flags.Bool("dry-run", false, "Log commands and file changes without applying them")
	flags.Bool("no-sudo", false, "Never prefix package manager commands with sudo")
	flags.Duration("command-timeout", 0, "Timeout for each external command (0 disables)")
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the running command; any error is
// logged and the process exits with status 1.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Critical("%v", err)
		stop()
		os.Exit(1)
	}
}
