package cmd

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"host-provisioner/internal/provisioner"
	"host-provisioner/internal/state"
)

// statusCmd reports what previous runs recorded in the state file.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what previous runs acquired and how the last run ended",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := provisioner.ResolveRunContext("", settings.Shell)
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), state.LoadState(statePath(rc)))
		return nil
	},
}

func printStatus(w io.Writer, st *state.State) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	run := st.LastRun
	fmt.Fprintln(w, bold("Last run"))
	switch {
	case run.StartedAt.IsZero():
		fmt.Fprintln(w, "  never")
	case run.Succeeded():
		fmt.Fprintf(w, "  %s at %s\n", green("succeeded"), run.FinishedAt.Format(time.RFC3339))
	default:
		fmt.Fprintf(w, "  %s in stage %s: %s\n", red("failed"), run.FailedStage, run.Error)
	}
	for _, f := range run.SetupFailures {
		fmt.Fprintf(w, "  setup failure: %s\n", f)
	}

	fmt.Fprintln(w, bold("Repositories"))
	for _, name := range sortedKeys(st.Repositories) {
		r := st.Repositories[name]
		fmt.Fprintf(w, "  %-20s %-4s %s\n", name, r.Kind, r.Path)
	}

	fmt.Fprintln(w, bold("Packages"))
	for _, name := range sortedKeys(st.Packages) {
		fmt.Fprintf(w, "  %-20s %s\n", name, st.Packages[name].InstalledAt.Format(time.RFC3339))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
