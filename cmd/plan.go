package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// planCmd prints the plan with ${USER}, ${HOME} and ${APPS_DIR} expanded, without running anything.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the resolved provisioning plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, rc, err := resolveRun()
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(newProvisioner(cfg, rc, nil).Plan())
		if err != nil {
			return fmt.Errorf("failed to render plan: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}
