package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halcyon-dev/flowpilot/internal/app"
)

func newPolicyCommand(container *app.Container) *cobra.Command {
	policyCmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect or reload the script security policy",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer container.Close()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Policy file: %s (version %d)\n", container.Policy.Path(), container.Policy.Version())
			fmt.Fprintf(out, "Allowed modules: %s\n", strings.Join(container.Policy.AllowedModules(), ", "))
			return nil
		},
	}

	reloadCmd := &cobra.Command{
		Use:   "reload",
		Short: "Reload the policy file from disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer container.Close()
			if err := container.Policy.Reload(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Policy reloaded from %s\n", container.Policy.Path())
			return nil
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check <script-file>",
		Short: "Screen a script file against the policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer container.Close()
			data, err := readFile(args[0])
			if err != nil {
				return err
			}
			if reason := container.Policy.Screen(string(data)); reason != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "BLOCKED: %s\n", reason)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}

	policyCmd.AddCommand(showCmd, reloadCmd, checkCmd)
	return policyCmd
}
