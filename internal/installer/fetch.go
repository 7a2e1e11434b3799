package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"host-provisioner/internal/logger"
	"host-provisioner/internal/system"
)

// partialSuffix marks a download that has not completed yet.
const partialSuffix = ".part"

// Fetcher acquires repositories and raw files through an Executor.
type Fetcher struct {
	exec system.Executor

	// DryRun skips moving finished downloads into place, since nothing was written.
	DryRun bool
}

// NewFetcher creates a fetcher that shells out to git and curl.
func NewFetcher(exec system.Executor) *Fetcher {
	return &Fetcher{exec: exec}
}

// Fetch acquires locator into destDir/name using the method kind selects.
func (f *Fetcher) Fetch(ctx context.Context, kind Kind, locator, destDir, name string) error {
	switch kind {
	case KindGit:
		return f.Clone(ctx, locator, destDir, name)
	case KindFile:
		return f.Download(ctx, locator, destDir, name)
	default:
		return fmt.Errorf("%w: unsupported kind %q", ErrUnknownLocator, kind)
	}
}

// Clone runs git clone into destDir/name.
func (f *Fetcher) Clone(ctx context.Context, locator, destDir, name string) error {
	cmd := system.Command{Name: "git", Args: []string{"clone", locator, name}, Dir: destDir}
	logger.Debug("Cloning %s into %s", locator, destDir)
	if err := f.exec.Run(ctx, cmd); err != nil {
		return fmt.Errorf("git clone %s failed: %w", locator, err)
	}
	return nil
}

// Download fetches a single file into destDir/name. -f makes HTTP errors a non-zero exit.
// The file is written under a temporary name and only renamed once curl succeeds, so an
// interrupted download never looks like a finished one.
func (f *Fetcher) Download(ctx context.Context, locator, destDir, name string) error {
	partial := name + partialSuffix
	cmd := system.Command{Name: "curl", Args: []string{"-fsSL", locator, "-o", partial}, Dir: destDir}
	logger.Debug("Downloading %s into %s", locator, destDir)
	if err := f.exec.Run(ctx, cmd); err != nil {
		if rmErr := os.Remove(filepath.Join(destDir, partial)); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			logger.Warn("Unable to remove the partial download %s: %v", partial, rmErr)
		}
		return fmt.Errorf("download of %s failed: %w", locator, err)
	}
	if f.DryRun {
		return nil
	}
	if err := os.Rename(filepath.Join(destDir, partial), filepath.Join(destDir, name)); err != nil {
		return fmt.Errorf("failed to move download of %s into place: %w", locator, err)
	}
	return nil
}
