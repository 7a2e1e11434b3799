// Package systemtest provides a fake system.Executor for tests.
package systemtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"host-provisioner/internal/system"
)

// Recorder records every command and simulates the side effects of git clone and
// curl downloads so idempotence checks see the artifacts on the next run.
type Recorder struct {
	mu       sync.Mutex
	Commands []system.Command

	// Fail, when set, decides whether a command fails.
	Fail func(system.Command) bool
}

// Run records c and reports a failure if Fail says so.
func (r *Recorder) Run(_ context.Context, c system.Command) error {
	r.mu.Lock()
	r.Commands = append(r.Commands, c)
	r.mu.Unlock()

	if r.Fail != nil && r.Fail(c) {
		return fmt.Errorf("%w: %s: exit status 1", system.ErrCommandFailed, c)
	}
	return simulate(c)
}

// Lines returns the recorded commands rendered as strings.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Commands))
	for i, c := range r.Commands {
		out[i] = c.String()
	}
	return out
}

// Reset forgets recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.Commands = nil
	r.mu.Unlock()
}

func simulate(c system.Command) error {
	switch c.Name {
	case "git":
		// git clone <url> <name>
		if len(c.Args) == 3 && c.Args[0] == "clone" {
			return os.MkdirAll(filepath.Join(c.Dir, c.Args[2]), 0o755)
		}
	case "curl":
		for i, a := range c.Args {
			if a == "-o" && i+1 < len(c.Args) {
				return os.WriteFile(filepath.Join(c.Dir, c.Args[i+1]), []byte("downloaded\n"), 0o644)
			}
		}
	}
	return nil
}
