package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halcyon-dev/flowpilot/internal/app"
	"github.com/halcyon-dev/flowpilot/internal/registry"
)

func newSimulateCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "simulate",
		Short: "Seed demo activity and run one detection cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			defer container.Close()

			registry.SeedDemoActivity(container.Registry)
			stats := container.Registry.Stats()
			fmt.Fprintf(out, "Seeded %d actions.\n", stats.TotalActions)

			s, err := container.Orchestrator.DetectCycle(cmd.Context())
			if err != nil {
				return err
			}
			if s == nil {
				fmt.Fprintln(out, "No pattern detected.")
				return nil
			}
			fmt.Fprintf(out, "Suggestion %s created (%s confidence):\n%s\n",
				shortID(s.ID), s.Confidence, s.PatternDescription)
			return container.Orchestrator.Flush()
		},
	}
}
