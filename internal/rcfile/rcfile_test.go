package rcfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileFor(t *testing.T) {
	tests := []struct {
		shell   string
		want    string
		wantErr error
	}{
		{shell: "/usr/bin/zsh", want: ".zshrc"},
		{shell: "/bin/bash", want: ".bash_aliases"},
		{shell: "zsh", want: ".zshrc"},
		{shell: "/usr/bin/fish", wantErr: ErrUnsupportedShell},
		{shell: "", wantErr: ErrShellUnset},
	}
	for _, tt := range tests {
		got, err := FileFor(tt.shell)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("FileFor(%q): expected %v, got %v", tt.shell, tt.wantErr, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("FileFor(%q) = %q, %v; want %q", tt.shell, got, err, tt.want)
		}
	}
}

func TestAppendMissingIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".zshrc")
	if err := os.WriteFile(path, []byte("export PATH=$PATH:~/bin\nalias lsa=\"ls -la\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	lines := []string{"# Additional aliases for extra packages", `alias lsa="ls -la"`, `alias gs="git status"`}

	added, err := AppendMissing(path, lines)
	if err != nil {
		t.Fatalf("AppendMissing: %v", err)
	}
	if added != 2 {
		t.Errorf("expected 2 lines added, got %d", added)
	}

	first, _ := os.ReadFile(path)
	want := "export PATH=$PATH:~/bin\nalias lsa=\"ls -la\"\n" +
		"\n# Additional aliases for extra packages\nalias gs=\"git status\""
	if string(first) != want {
		t.Errorf("unexpected content:\n%q\nwant:\n%q", first, want)
	}

	added, err = AppendMissing(path, lines)
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 {
		t.Errorf("expected no lines added on rerun, got %d", added)
	}
	second, _ := os.ReadFile(path)
	if string(second) != string(first) {
		t.Error("rerun modified the file")
	}
}

func TestAppendMissingDeduplicatesWithinOneCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".bash_aliases")
	added, err := AppendMissing(path, []string{`alias a="b"`, `alias a="b"`})
	if err != nil {
		t.Fatal(err)
	}
	if added != 1 {
		t.Errorf("expected a repeated line to be added once, got %d", added)
	}
	data, _ := os.ReadFile(path)
	if strings.Count(string(data), `alias a="b"`) != 1 {
		t.Errorf("unexpected content %q", data)
	}
}

func TestEnsureSnippet(t *testing.T) {
	const snippet = "source /home/kali/Desktop/apps/pwndbg/gdbinit.py"
	dir := t.TempDir()

	t.Run("creates missing file with exactly the snippet", func(t *testing.T) {
		path := filepath.Join(dir, "new", ".gdbinit")
		outcome, err := EnsureSnippet(path, snippet)
		if err != nil || outcome != Created {
			t.Fatalf("expected Created, got %v, %v", outcome, err)
		}
		data, _ := os.ReadFile(path)
		if string(data) != snippet {
			t.Errorf("expected exactly the snippet, got %q", data)
		}
	})

	t.Run("leaves file with snippet byte-identical", func(t *testing.T) {
		path := filepath.Join(dir, "present")
		original := "set disassembly-flavor intel\n" + snippet + "\n"
		if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
			t.Fatal(err)
		}
		outcome, err := EnsureSnippet(path, snippet)
		if err != nil || outcome != Present {
			t.Fatalf("expected Present, got %v, %v", outcome, err)
		}
		data, _ := os.ReadFile(path)
		if string(data) != original {
			t.Errorf("file changed: %q", data)
		}
	})

	t.Run("appends on its own line", func(t *testing.T) {
		path := filepath.Join(dir, "append")
		if err := os.WriteFile(path, []byte("set pagination off"), 0o644); err != nil {
			t.Fatal(err)
		}
		outcome, err := EnsureSnippet(path, snippet)
		if err != nil || outcome != Appended {
			t.Fatalf("expected Appended, got %v, %v", outcome, err)
		}
		data, _ := os.ReadFile(path)
		if string(data) != "set pagination off\n"+snippet {
			t.Errorf("unexpected content %q", data)
		}
	})
	t.Run("no separator after a trailing newline or in an empty file", func(t *testing.T) {
		for name, initial := range map[string]string{
			"trailing": "set pagination off\n",
			"empty":    "",
		} {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
				t.Fatal(err)
			}
			outcome, err := EnsureSnippet(path, snippet)
			if err != nil || outcome != Appended {
				t.Fatalf("%s: expected Appended, got %v, %v", name, outcome, err)
			}
			data, _ := os.ReadFile(path)
			if string(data) != initial+snippet {
				t.Errorf("%s: unexpected content %q", name, data)
			}
		}
	})
}
