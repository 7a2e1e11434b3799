package state

import (
	"encoding/json" // For JSON encoding and decoding of the state file
	"fmt"
	"os" // For file system operations like reading and writing files
	"path/filepath"
	"time"

	"host-provisioner/internal/logger"
)

// RepositoryState records a repository or file acquired by a run.
type RepositoryState struct {
	URL        string    `json:"url"`
	Kind       string    `json:"kind"`
	Path       string    `json:"path"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// PackageState records a package installed by a run.
type PackageState struct {
	InstalledAt time.Time `json:"installed_at"`
}

// RunState summarizes the most recent run.
type RunState struct {
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	CompletedStages []string  `json:"completed_stages"`
	FailedStage     string    `json:"failed_stage,omitempty"`
	Error           string    `json:"error,omitempty"`
	SetupFailures   []string  `json:"setup_failures,omitempty"`
}

// Succeeded reports whether the run finished without a fatal error.
func (r RunState) Succeeded() bool {
	return r.FailedStage == "" && r.Error == "" && !r.FinishedAt.IsZero()
}

// State is a report of what provisioning runs did. Stages never consult it to make
// decisions; idempotence comes from checking the filesystem.
type State struct {
	Repositories map[string]RepositoryState `json:"repositories"` // Keyed by local name
	Packages     map[string]PackageState    `json:"packages"`     // Keyed by package name
	LastRun      RunState                   `json:"last_run"`
}

// New returns an empty state with initialized maps.
func New() *State {
	return &State{
		Repositories: make(map[string]RepositoryState),
		Packages:     make(map[string]PackageState),
	}
}

// RecordRepository stores an acquired repository.
func (s *State) RecordRepository(name string, rs RepositoryState) {
	s.Repositories[name] = rs
}

// RecordPackage stores an installed package.
func (s *State) RecordPackage(name string, at time.Time) {
	s.Packages[name] = PackageState{InstalledAt: at}
}

// LoadState loads the saved state from a JSON file at the given path.
// A missing or unreadable file yields an empty state.
func LoadState(path string) *State {
	file, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read state file %s: %v", path, err)
		}
		return New()
	}

	st := New()
	if err := json.Unmarshal(file, st); err != nil {
		logger.Warn("Ignoring corrupt state file %s: %v", path, err)
		return New()
	}

	// JSON null leaves the maps nil.
	if st.Repositories == nil {
		st.Repositories = make(map[string]RepositoryState)
	}
	if st.Packages == nil {
		st.Packages = make(map[string]PackageState)
	}
	return st
}

// SaveState writes the state as indented JSON.
func SaveState(path string, st *State) error {
	file, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	logger.Debug("Writing state to %s", path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create state directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, file, 0o644); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", path, err)
	}
	return nil
}
