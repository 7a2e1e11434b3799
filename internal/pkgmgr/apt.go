// Package pkgmgr wraps the platform package manager.
package pkgmgr

import (
	"context"
	"os"

	"host-provisioner/internal/logger"
	"host-provisioner/internal/system"
)

// Manager refreshes, upgrades and installs system packages.
type Manager interface {
	Update(ctx context.Context) error
	Upgrade(ctx context.Context) error
	Install(ctx context.Context, pkg string) error
}

// aptEnv keeps apt and dpkg from prompting.
var aptEnv = []string{"DEBIAN_FRONTEND=noninteractive"}

// Apt drives apt-get through an Executor.
type Apt struct {
	exec system.Executor
	sudo bool
}

// NewApt returns an apt-get manager. When sudo is true commands are prefixed with sudo.
func NewApt(exec system.Executor, sudo bool) *Apt {
	return &Apt{exec: exec, sudo: sudo}
}

// NeedsSudo reports whether privileged commands must go through sudo.
func NeedsSudo() bool {
	return os.Geteuid() != 0
}

// Update refreshes the package index.
func (a *Apt) Update(ctx context.Context) error {
	return a.run(ctx, "update", "-y")
}

// Upgrade upgrades all installed packages.
func (a *Apt) Upgrade(ctx context.Context) error {
	return a.run(ctx, "upgrade", "-y")
}

// Install installs a single package non-interactively.
func (a *Apt) Install(ctx context.Context, pkg string) error {
	return a.run(ctx, "install", "-y", pkg)
}

func (a *Apt) run(ctx context.Context, args ...string) error {
	cmd := a.Command(args...)
	logger.Info("Executing the command: %s", cmd)
	return a.exec.Run(ctx, cmd)
}

// Command builds the apt-get invocation for args.
// sudo resets the environment, so the variables are passed as sudo arguments instead.
func (a *Apt) Command(args ...string) system.Command {
	if !a.sudo {
		return system.Command{Name: "apt-get", Args: args, Env: aptEnv}
	}
	sudoArgs := append(append([]string{}, aptEnv...), "apt-get")
	return system.Command{Name: "sudo", Args: append(sudoArgs, args...)}
}
