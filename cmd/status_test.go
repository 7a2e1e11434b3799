package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"host-provisioner/internal/state"
)

func TestPrintStatus(t *testing.T) {
	color.NoColor = true

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	st := state.New()
	st.RecordRepository("pwndbg", state.RepositoryState{URL: "https://github.com/pwndbg/pwndbg", Kind: "git", Path: "/home/u/Desktop/apps/pwndbg", AcquiredAt: at})
	st.RecordPackage("gdb", at)
	st.RecordPackage("checksec", at)
	st.LastRun = state.RunState{StartedAt: at, FinishedAt: at, FailedStage: "packages", Error: "install ghidra (4 of 11): exit status 100"}

	var buf bytes.Buffer
	printStatus(&buf, st)
	out := buf.String()

	for _, want := range []string{"failed in stage packages", "pwndbg", "/home/u/Desktop/apps/pwndbg", "2024-05-01T10:00:00Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "checksec") > strings.Index(out, "gdb") {
		t.Errorf("packages not sorted:\n%s", out)
	}
}

func TestPrintStatusNeverRun(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	printStatus(&buf, state.New())
	if !strings.Contains(buf.String(), "never") {
		t.Errorf("expected never-run message, got:\n%s", buf.String())
	}
}
