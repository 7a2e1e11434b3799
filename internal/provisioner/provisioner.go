// Package provisioner runs the provisioning pipeline: system update, apps directory,
// repository acquisition and setup, package installation, aliases and dotfiles.
//
// Stages run in order and the first fatal error stops the run; nothing already done is
// rolled back. Only setup-line failures and an unknown or unset shell are tolerated.
package provisioner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"host-provisioner/internal/config"
	"host-provisioner/internal/installer"
	"host-provisioner/internal/logger"
	"host-provisioner/internal/pkgmgr"
	"host-provisioner/internal/rcfile"
	"host-provisioner/internal/state"
	"host-provisioner/internal/system"
)

// Stage names one step of the pipeline.
type Stage string

const (
	StageUpdate       Stage = "update"
	StageDirectory    Stage = "directory"
	StageRepositories Stage = "repositories"
	StagePackages     Stage = "packages"
	StageAliases      Stage = "aliases"
	StageDotfiles     Stage = "dotfiles"
)

// Stages is the full pipeline in execution order.
var Stages = []Stage{StageUpdate, StageDirectory, StageRepositories, StagePackages, StageAliases, StageDotfiles}

// StageError is a fatal error that stopped the run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Option customizes a Provisioner.
type Option func(*Provisioner)

// WithDryRun makes filesystem stages report what they would change without writing.
// Commands are still handed to the Executor, which is expected to be a DryRunExecutor.
func WithDryRun() Option {
	return func(p *Provisioner) { p.dryRun = true }
}

// WithOutput sets where setup-line builtins such as echo write.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(p *Provisioner) { p.stdout, p.stderr = stdout, stderr }
}

// Provisioner executes a plan against a RunContext.
type Provisioner struct {
	cfg     config.Config
	rc      RunContext
	exec    system.Executor
	pkgs    pkgmgr.Manager
	fetcher *installer.Fetcher
	st      *state.State

	dryRun bool
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

// New creates a Provisioner. Placeholders in cfg are expanded against rc.
func New(cfg config.Config, rc RunContext, exec system.Executor, pkgs pkgmgr.Manager, st *state.State, opts ...Option) *Provisioner {
	if st == nil {
		st = state.New()
	}
	p := &Provisioner{
		cfg:     cfg.Expand(rc.User, rc.HomeDir, rc.AppsDir),
		rc:      rc,
		exec:    exec,
		pkgs:    pkgs,
		fetcher: installer.NewFetcher(exec),
		st:      st,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.fetcher.DryRun = p.dryRun
	return p
}

// Plan returns the expanded plan the provisioner runs.
func (p *Provisioner) Plan() config.Config { return p.cfg }

// Run executes every stage in order.
func (p *Provisioner) Run(ctx context.Context) error {
	return p.RunStages(ctx, Stages...)
}

// RunStages executes the given stages in order, stopping at the first fatal error.
// The outcome is recorded in the state's LastRun.
func (p *Provisioner) RunStages(ctx context.Context, stages ...Stage) error {
	p.st.LastRun = state.RunState{StartedAt: p.now()}
	defer func() { p.st.LastRun.FinishedAt = p.now() }()

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return p.fail(stage, err)
		}
		logger.Debug("Starting stage %s", stage)
		if err := p.runStage(ctx, stage); err != nil {
			return p.fail(stage, err)
		}
		p.st.LastRun.CompletedStages = append(p.st.LastRun.CompletedStages, string(stage))
	}
	return nil
}

func (p *Provisioner) fail(stage Stage, err error) error {
	p.st.LastRun.FailedStage = string(stage)
	p.st.LastRun.Error = err.Error()
	return &StageError{Stage: stage, Err: err}
}

func (p *Provisioner) runStage(ctx context.Context, stage Stage) error {
	switch stage {
	case StageUpdate:
		return p.SystemUpdate(ctx)
	case StageDirectory:
		return p.PrepareAppsDir()
	case StageRepositories:
		return p.AcquireRepositories(ctx)
	case StagePackages:
		return p.InstallPackages(ctx)
	case StageAliases:
		return p.InjectAliases()
	case StageDotfiles:
		return p.InjectDotfiles()
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
}

// SystemUpdate refreshes the package index and upgrades installed packages.
func (p *Provisioner) SystemUpdate(ctx context.Context) error {
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"index update", p.pkgs.Update},
		{"upgrade", p.pkgs.Upgrade},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			logger.Error("Unable to run the package %s: %v", step.name, err)
			return fmt.Errorf("package %s: %w", step.name, err)
		}
		logger.Info("Finished: package %s", step.name)
	}
	return nil
}

// PrepareAppsDir makes sure the apps directory exists, creating missing parents.
func (p *Provisioner) PrepareAppsDir() error {
	dir := p.rc.AppsDir
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		logger.Debug("Apps directory %s already exists", dir)
		return nil
	case err == nil:
		return fmt.Errorf("%s exists and is not a directory", dir)
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to inspect %s: %w", dir, err)
	}

	if p.dryRun {
		logger.Info("[dry-run] would create %s", dir)
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Critical("Unable to create %s: %v", dir, err)
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	logger.Info("Created %s directory.", dir)
	return nil
}

// AcquireRepositories fetches every repository not already present in the apps directory
// and runs its setup lines.
func (p *Provisioner) AcquireRepositories(ctx context.Context) error {
	for _, repo := range p.cfg.Repositories {
		if err := p.acquire(ctx, repo); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) acquire(ctx context.Context, repo config.Repository) error {
	logger.Debug("Processing repository %+v", repo)

	name, err := installer.LocalName(repo.URL)
	if err != nil {
		logger.Error("Unable to clone the repository: %s", repo.URL)
		return err
	}
	dest := filepath.Join(p.rc.AppsDir, name)

	if _, err := os.Lstat(dest); err == nil {
		logger.Info("Repository already exists: %s", repo.URL)
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to inspect %s: %w", dest, err)
	}

	kind, err := installer.Classify(repo.URL, repo.Kind)
	if err != nil {
		logger.Error("Unable to clone the repository: %s", repo.URL)
		return err
	}

	if err := p.fetcher.Fetch(ctx, kind, repo.URL, p.rc.AppsDir, name); err != nil {
		logger.Critical("Unable to download the file: %s", repo.URL)
		return err
	}

	if repo.Extract && kind == installer.KindFile && installer.IsArchive(name) {
		if err := p.extract(dest); err != nil {
			logger.Critical("Unable to extract the archive: %s", dest)
			// A leftover archive would mark the entry as present on the next run.
			if rmErr := os.Remove(dest); rmErr != nil {
				logger.Warn("Unable to remove the archive %s: %v", dest, rmErr)
			}
			return err
		}
	}

	if !p.dryRun {
		p.st.RecordRepository(name, state.RepositoryState{
			URL:        repo.URL,
			Kind:       string(kind),
			Path:       dest,
			AcquiredAt: p.now(),
		})
	}

	if repo.SetupRequired {
		if err := p.runSetup(ctx, repo); err != nil {
			return err
		}
	}

	logger.Info("Successfully downloaded and configured: %s", repo.URL)
	return nil
}

func (p *Provisioner) extract(archive string) error {
	if p.dryRun {
		logger.Info("[dry-run] would extract %s into %s", archive, p.rc.AppsDir)
		return nil
	}
	top, err := installer.ExtractArchive(archive, p.rc.AppsDir)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", archive, err)
	}
	logger.Info("Extracted %s to %s", filepath.Base(archive), top)
	return nil
}

// runSetup runs the setup lines of repo from the apps directory. Line failures are
// logged and recorded, never fatal; only cancellation stops the sequence.
func (p *Provisioner) runSetup(ctx context.Context, repo config.Repository) error {
	if p.dryRun {
		for _, line := range repo.Setup {
			logger.Info("[dry-run] setup in %s: %s", p.rc.AppsDir, line)
		}
		return nil
	}

	runner := installer.NewSetupRunner(p.exec, p.stdout, p.stderr)
	failures, err := runner.Run(ctx, p.rc.AppsDir, repo.Setup)
	for _, f := range failures {
		p.st.LastRun.SetupFailures = append(p.st.LastRun.SetupFailures,
			fmt.Sprintf("%s: %s: %v", repo.URL, f.Line, f.Err))
	}
	if len(failures) > 0 {
		logger.Warn("%d of %d setup commands failed for %s", len(failures), len(repo.Setup), repo.URL)
	}
	return err
}

// InstallPackages installs packages one at a time, stopping at the first failure.
func (p *Provisioner) InstallPackages(ctx context.Context) error {
	total := len(p.cfg.Packages)
	for i, pkg := range p.cfg.Packages {
		if err := p.pkgs.Install(ctx, pkg); err != nil {
			logger.Error("Unable to install the application: %s", pkg)
			return fmt.Errorf("install %s (%d of %d): %w", pkg, i+1, total, err)
		}
		logger.Info("Successfully installed the application: %s", pkg)
		if !p.dryRun {
			p.st.RecordPackage(pkg, p.now())
		}
	}
	return nil
}

// InjectAliases appends missing alias lines to the rc file of the active shell.
// An unknown or unset shell skips the stage without failing the run.
func (p *Provisioner) InjectAliases() error {
	shell := p.rc.ShellOverride
	if shell == "" {
		shell = p.cfg.Aliases.Shell
	}
	if shell == "" {
		shell = p.rc.Shell
	}
	logger.Debug("Detected shell: %q", shell)

	rcName, err := rcfile.FileFor(shell)
	switch {
	case errors.Is(err, rcfile.ErrShellUnset):
		logger.Warn("Unable to determine the shell in use.")
		return nil
	case err != nil:
		logger.Error("The shell used is not supported: %s", shell)
		return nil
	}

	path := filepath.Join(p.rc.HomeDir, rcName)
	lines := p.cfg.Aliases.Lines()

	if p.dryRun {
		missing, err := rcfile.Missing(path, lines)
		for _, line := range missing {
			logger.Info("[dry-run] would add to %s: %s", rcName, line)
		}
		return err
	}

	added, err := rcfile.AppendMissing(path, lines)
	if err != nil {
		return err
	}
	if added > 0 {
		logger.Info("Aliases added to the %s file.", rcName)
	}
	return nil
}

// InjectDotfiles makes every dotfile contain its snippet.
func (p *Provisioner) InjectDotfiles() error {
	for _, d := range p.cfg.Dotfiles {
		path := ResolvePath(p.rc.HomeDir, d.Path)

		if p.dryRun {
			outcome, err := rcfile.Check(path, d.Content)
			if err != nil {
				return err
			}
			if outcome == rcfile.Present {
				logger.Info("Configuration already exists in the file: %s", path)
			} else {
				logger.Info("[dry-run] would update %s (%s)", path, outcome)
			}
			continue
		}

		outcome, err := rcfile.EnsureSnippet(path, d.Content)
		if err != nil {
			return err
		}
		if outcome == rcfile.Present {
			logger.Info("Configuration already exists in the file: %s", path)
			continue
		}
		logger.Info("Successfully wrote the configuration file: %s (%s)", path, outcome)
	}
	return nil
}
