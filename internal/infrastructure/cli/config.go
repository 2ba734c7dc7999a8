package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/halcyon-dev/flowpilot/internal/app"
)

func newConfigCommand(container *app.Container) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect FlowPilot configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, container)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show full configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, container)
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer container.Close()
			if _, err := container.ConfigLoader.Load(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration valid")
			return nil
		},
	}

	configCmd.AddCommand(showCmd, validateCmd)
	return configCmd
}

func runConfigShow(cmd *cobra.Command, container *app.Container) error {
	defer container.Close()
	data, err := yaml.Marshal(container.Config)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
