// Package rcfile makes shell rc files and dotfiles contain given text exactly once.
package rcfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"host-provisioner/internal/logger"
)

var (
	// ErrShellUnset means no shell was configured and $SHELL is empty.
	ErrShellUnset = errors.New("unable to determine the shell in use")
	// ErrUnsupportedShell means the shell has no known rc file.
	ErrUnsupportedShell = errors.New("the shell used is not supported")
)

// shellrcMap maps supported shells to the file their aliases belong in.
var shellrcMap = map[string]string{
	"zsh":  ".zshrc",
	"bash": ".bash_aliases",
}

// ShellName reduces a shell path such as /usr/bin/zsh to a supported shell name.
func ShellName(shell string) (string, error) {
	if strings.TrimSpace(shell) == "" {
		return "", ErrShellUnset
	}
	base := filepath.Base(shell)
	for name := range shellrcMap {
		if strings.Contains(base, name) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedShell, shell)
}

// FileFor returns the rc file name for a shell name or path.
func FileFor(shell string) (string, error) {
	name, err := ShellName(shell)
	if err != nil {
		return "", err
	}
	return shellrcMap[name], nil
}

// Missing returns the lines AppendMissing would add to path, without writing.
// Presence is a literal substring check against the file content, so a line already
// present anywhere in the file counts, and a line repeated in lines is only added once.
func Missing(path string, lines []string) ([]string, error) {
	content, err := readOptional(path)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, line := range lines {
		if line == "" {
			continue
		}
		if strings.Contains(content, line) {
			logger.Info("Alias already exists in %s: %s", filepath.Base(path), line)
			continue
		}
		missing = append(missing, line)
		content += "\n" + line
	}
	return missing, nil
}

// AppendMissing appends each missing line to path, each preceded by a newline, and
// returns how many were added. A missing file is created.
func AppendMissing(path string, lines []string) (int, error) {
	missing, err := Missing(path, lines)
	if err != nil || len(missing) == 0 {
		return 0, err
	}

	var appended strings.Builder
	for _, line := range missing {
		logger.Debug("Appending line to %s: %s", path, line)
		appended.WriteString("\n" + line)
	}
	if err := appendString(path, appended.String()); err != nil {
		return 0, err
	}
	return len(missing), nil
}

// Outcome is what EnsureSnippet did.
type Outcome int

const (
	Present Outcome = iota
	Appended
	Created
)

func (o Outcome) String() string {
	switch o {
	case Appended:
		return "appended"
	case Created:
		return "created"
	default:
		return "present"
	}
}

// Check reports what EnsureSnippet would do to path, without writing.
func Check(path, snippet string) (Outcome, error) {
	outcome, _, err := check(path, snippet)
	return outcome, err
}

// check also returns the content the decision was made on.
func check(path, snippet string) (Outcome, string, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Created, "", nil
	case err != nil:
		return 0, "", fmt.Errorf("failed to read %s: %w", path, err)
	case strings.Contains(string(data), snippet):
		return Present, string(data), nil
	default:
		return Appended, string(data), nil
	}
}

// EnsureSnippet makes path contain snippet. An existing file that already contains it
// is left byte-identical; otherwise the snippet is appended, on its own line when the
// file does not end with a newline. A missing file is created with exactly the snippet.
func EnsureSnippet(path, snippet string) (Outcome, error) {
	outcome, content, err := check(path, snippet)
	if err != nil {
		return 0, err
	}

	switch outcome {
	case Created:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return 0, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		if err := os.WriteFile(path, []byte(snippet), 0o644); err != nil {
			return 0, fmt.Errorf("failed to write %s: %w", path, err)
		}
	case Appended:
		text := snippet
		if content != "" && !strings.HasSuffix(content, "\n") {
			text = "\n" + snippet
		}
		if err := appendString(path, text); err != nil {
			return 0, err
		}
	}
	return outcome, nil
}

func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func appendString(path, text string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("unable to open file %s for appending: %w", path, err)
	}
	if _, err := file.WriteString(text); err != nil {
		file.Close()
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return file.Close()
}
