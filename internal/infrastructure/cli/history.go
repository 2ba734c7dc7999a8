package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/halcyon-dev/flowpilot/internal/app"
)

func newHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect executions, suggestions and time saved",
	}

	var limit int
	executionsCmd := &cobra.Command{
		Use:   "executions",
		Short: "List recent script executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer container.Close()
			records, err := container.Store.Executions(limit)
			if err != nil {
				return err
			}
			for _, rec := range records {
				status := "failed"
				if rec.Success {
					status = "ok"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s | #%d | %-6s | attempts=%d | %s\n",
					rec.Timestamp.Format(time.RFC3339), rec.ExecutionID, status,
					len(rec.Attempts), firstLine(rec.UserExplanation))
			}
			return nil
		},
	}
	executionsCmd.Flags().IntVar(&limit, "limit", 20, "Max entries to show")

	suggestionsCmd := &cobra.Command{
		Use:   "suggestions",
		Short: "List persisted suggestions",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer container.Close()
			suggestions, err := container.Store.LoadSuggestions()
			if err != nil {
				return err
			}
			for _, s := range suggestions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s | %-9s | %s\n",
					shortID(s.ID), s.Status, firstLine(s.PatternDescription))
			}
			return nil
		},
	}

	timeSavedCmd := &cobra.Command{
		Use:   "time-saved",
		Short: "Show accumulated time saved",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer container.Close()
			total, err := container.Store.TotalTimeSaved()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total time saved: %s\n", (time.Duration(total) * time.Second).String())
			return nil
		},
	}

	var kind string
	summariesCmd := &cobra.Command{
		Use:   "summaries",
		Short: "List activity summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer container.Close()
			summaries, err := container.Store.Summaries(kind, limit)
			if err != nil {
				return err
			}
			for _, sm := range summaries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s | %-10s | %s\n",
					sm.Timestamp.Format(time.RFC3339), sm.Kind, sm.Text)
			}
			return nil
		},
	}
	summariesCmd.Flags().StringVar(&kind, "kind", "", "Filter by kind (minute|ten_minute)")
	summariesCmd.Flags().IntVar(&limit, "limit", 20, "Max entries to show")

	historyCmd.AddCommand(executionsCmd, suggestionsCmd, timeSavedCmd, summariesCmd)
	return historyCmd
}
