package installer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"host-provisioner/internal/logger"
	"host-provisioner/internal/system"
)

// SetupRunner runs a repository's post-acquisition setup lines through an embedded
// POSIX shell. Builtins such as cd only move the interpreter's directory; every
// external command is handed to the Executor with that directory made explicit.
type SetupRunner struct {
	exec   system.Executor
	stdout io.Writer
	stderr io.Writer
}

// NewSetupRunner creates a runner dispatching external commands to exec.
func NewSetupRunner(exec system.Executor, stdout, stderr io.Writer) *SetupRunner {
	return &SetupRunner{exec: exec, stdout: stdout, stderr: stderr}
}

// SetupFailure describes one setup line that did not succeed.
type SetupFailure struct {
	Line string
	Err  error
}

// Run executes lines in order starting in dir. A failing line is logged and the
// sequence continues; all failures are returned for reporting. The interpreter's
// directory is discarded afterwards, so every call starts again from dir.
func (s *SetupRunner) Run(ctx context.Context, dir string, lines []string) ([]SetupFailure, error) {
	runner, err := interp.New(
		interp.Dir(dir),
		interp.StdIO(nil, s.stdout, s.stderr),
		interp.ExecHandlers(s.execHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create setup interpreter in %s: %w", dir, err)
	}

	parser := syntax.NewParser()
	var failures []SetupFailure
	for _, line := range lines {
		logger.Info("Executing the setup command: %s", line)

		prog, err := parser.Parse(strings.NewReader(line), "setup")
		if err != nil {
			logger.Error("Unable to parse the setup command %q: %v", line, err)
			failures = append(failures, SetupFailure{Line: line, Err: err})
			continue
		}
		if err := runner.Run(ctx, prog); err != nil {
			if ctx.Err() != nil {
				return failures, ctx.Err()
			}
			logger.Error("Unable to run the setup command %q: %v", line, err)
			failures = append(failures, SetupFailure{Line: line, Err: err})
			continue
		}
		logger.Info("Successfully ran the command: %s", line)
	}
	return failures, nil
}

// execHandler hands external commands to the Executor with the interpreter's directory
// and exported variables, including inline assignments such as FOO=bar cmd. Failures
// are reported to the interpreter as exit statuses so the next line still runs.
func (s *SetupRunner) execHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		hc := interp.HandlerCtx(ctx)
		cmd := system.Command{
			Name:     args[0],
			Args:     args[1:],
			Dir:      hc.Dir,
			Env:      exportedEnv(hc.Env),
			ExactEnv: true,
		}
		if err := s.exec.Run(ctx, cmd); err != nil {
			logger.Debug("Setup command %s failed: %v", cmd, err)
			code := system.ExitCode(err)
			if code <= 0 || code > 255 {
				code = 1
			}
			return interp.NewExitStatus(uint8(code))
		}
		return nil
	}
}

// exportedEnv renders the interpreter's exported string variables as KEY=value pairs.
func exportedEnv(env expand.Environ) []string {
	var pairs []string
	env.Each(func(name string, vr expand.Variable) bool {
		if vr.Exported && vr.IsSet() && vr.Kind == expand.String {
			pairs = append(pairs, name+"="+vr.Str)
		}
		return true
	})
	return pairs
}
