package system

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/kballard/go-shellquote"

	"host-provisioner/internal/logger"
)

// ErrCommandFailed wraps every failed external command.
var ErrCommandFailed = errors.New("command failed")

// Command is one external process invocation. Dir is always explicit; nothing
// in this program changes the process working directory.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env is appended to the inherited environment, or replaces it when ExactEnv is set.
	Env      []string
	ExactEnv bool
}

// String renders the command as a shell-quoted line for logs.
func (c Command) String() string {
	return shellquote.Join(append([]string{c.Name}, c.Args...)...)
}

// Executor runs external commands.
type Executor interface {
	Run(ctx context.Context, cmd Command) error
}

// OSExecutor runs commands as real child processes attached to the terminal.
type OSExecutor struct {
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Timeout time.Duration // zero means no limit
}

// NewOSExecutor creates an executor wired to the process standard streams.
func NewOSExecutor(timeout time.Duration) *OSExecutor {
	return &OSExecutor{
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Timeout: timeout,
	}
}

// Run starts the command and waits for it to finish.
func (e *OSExecutor) Run(ctx context.Context, c Command) error {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	switch {
	case c.ExactEnv:
		cmd.Env = c.Env
	case len(c.Env) > 0:
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	logger.Debug("Running command: %s (dir=%s)", c, c.Dir)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCommandFailed, c, err)
	}
	return nil
}

// DryRunExecutor logs commands instead of running them.
type DryRunExecutor struct{}

// Run logs the command and reports success.
func (DryRunExecutor) Run(_ context.Context, c Command) error {
	if c.Dir != "" {
		logger.Info("[dry-run] %s (in %s)", c, c.Dir)
	} else {
		logger.Info("[dry-run] %s", c)
	}
	return nil
}

// ExitCode extracts the process exit status from an error returned by Run.
// It returns 0 for nil and -1 when the failure was not a process exit.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
