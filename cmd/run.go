package cmd

import (
	"github.com/spf13/cobra"

	"host-provisioner/internal/config"
	"host-provisioner/internal/logger"
	"host-provisioner/internal/pkgmgr"
	"host-provisioner/internal/provisioner"
	"host-provisioner/internal/state"
	"host-provisioner/internal/system"
)

// runCmd runs the whole pipeline: update, apps directory, repositories, packages,
// aliases and dotfiles.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Provision the workstation (update, repositories, packages, aliases, dotfiles)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, provisioner.Stages...)
	},
}

// stageCmd builds a subcommand of run limited to the given stages.
func stageCmd(use, short string, stages ...provisioner.Stage) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStages(cmd, stages...)
		},
	}
}

// defaultStatePath is where the state file lives, relative to the provisioned user's home.
const defaultStatePath = ".config/provisioner/state.json"

// resolveRun loads the plan and resolves the run context from the current settings.
func resolveRun() (config.Config, provisioner.RunContext, error) {
	cfg, err := config.LoadConfig(settings.ConfigPath)
	if err != nil {
		return config.Config{}, provisioner.RunContext{}, err
	}

	appsDir := cfg.AppsDir
	if settings.AppsDir != "" {
		appsDir = settings.AppsDir
	}
	rc, err := provisioner.ResolveRunContext(appsDir, settings.Shell)
	if err != nil {
		return config.Config{}, provisioner.RunContext{}, err
	}
	return cfg, rc, nil
}

// statePath returns --state when given, otherwise the default under the target user's home.
func statePath(rc provisioner.RunContext) string {
	if settings.StatePath != "" {
		return settings.StatePath
	}
	return provisioner.ResolvePath(rc.HomeDir, defaultStatePath)
}

// newProvisioner wires the executor and package manager selected by the current settings.
func newProvisioner(cfg config.Config, rc provisioner.RunContext, st *state.State) *provisioner.Provisioner {
	var exec system.Executor = system.NewOSExecutor(settings.CommandTimeout)
	var opts []provisioner.Option
	if settings.DryRun {
		exec = system.DryRunExecutor{}
		opts = append(opts, provisioner.WithDryRun())
	}
	sudo := !settings.NoSudo && pkgmgr.NeedsSudo()
	pkgs := pkgmgr.NewApt(exec, sudo)

	return provisioner.New(cfg, rc, exec, pkgs, st, opts...)
}

func runStages(cmd *cobra.Command, stages ...provisioner.Stage) error {
	cfg, rc, err := resolveRun()
	if err != nil {
		return err
	}
	path := statePath(rc)
	st := state.LoadState(path)

	runErr := newProvisioner(cfg, rc, st).RunStages(cmd.Context(), stages...)

	// The state is a report of what happened, so it is written even when the run failed.
	if settings.DryRun {
		logger.Info("[dry-run] state file %s left untouched", path)
	} else if err := state.SaveState(path, st); err != nil {
		logger.Error("Unable to save the state file: %v", err)
		if runErr == nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("Provisioning finished.")
	return nil
}

func init() {
	runCmd.AddCommand(
		stageCmd("update", "Only refresh the package index and upgrade packages", provisioner.StageUpdate),
		stageCmd("repos", "Only fetch repositories into the apps directory and run their setup",
			provisioner.StageDirectory, provisioner.StageRepositories),
		stageCmd("packages", "Only install packages", provisioner.StagePackages),
		stageCmd("aliases", "Only add shell aliases", provisioner.StageAliases),
		stageCmd("dotfiles", "Only write dotfile snippets", provisioner.StageDotfiles),
	)
	rootCmd.AddCommand(runCmd)
}
