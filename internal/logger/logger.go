package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color" // Import the fatih/color package for colored console output
)

// Every line is written as "[timestamp] [LEVEL] message". Only the level tag is colored,
// so the timestamp and message stay readable on any terminal theme.

// timeFormat mirrors the classic "asctime" layout used by most provisioning scripts.
const timeFormat = "2006-01-02 15:04:05"

var (
	mu  sync.Mutex
	out io.Writer = color.Output

	// now is swapped by tests to get stable timestamps.
	now = time.Now

	infoTag     = color.New(color.FgBlue).SprintFunc()
	warnTag     = color.New(color.FgYellow).SprintFunc()
	errorTag    = color.New(color.FgRed).SprintFunc()
	criticalTag = color.New(color.FgRed, color.Bold).SprintFunc()
	debugTag    = color.New(color.FgCyan).SprintFunc()
)

// Debug logs debug messages if enabled, otherwise is a no-op.
// It is reassigned by Init.
var Debug = func(format string, a ...any) {}

// Info logs progress and success messages.
func Info(format string, a ...any) { write(infoTag("INFO"), format, a...) }

// Warn logs conditions that are skipped but worth noticing.
func Warn(format string, a ...any) { write(warnTag("WARNING"), format, a...) }

// Error logs failures. The caller decides whether the run continues.
func Error(format string, a ...any) { write(errorTag("ERROR"), format, a...) }

// Critical logs failures that abort the run.
func Critical(format string, a ...any) { write(criticalTag("CRITICAL"), format, a...) }

// Init enables or disables debug logging.
func Init(enableDebug bool) {
	if enableDebug {
		Debug = func(format string, a ...any) { write(debugTag("DEBUG"), format, a...) }
	} else {
		Debug = func(format string, a ...any) {}
	}
}

// SetOutput redirects all log output and returns a function restoring the previous writer.
func SetOutput(w io.Writer) (restore func()) {
	mu.Lock()
	prev := out
	out = w
	mu.Unlock()
	return func() {
		mu.Lock()
		out = prev
		mu.Unlock()
	}
}

func write(tag, format string, a ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, a...), "\n")
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "[%s] [%s] %s\n", now().Format(timeFormat), tag, msg)
}
