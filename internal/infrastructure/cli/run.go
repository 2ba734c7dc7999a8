package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/halcyon-dev/flowpilot/internal/app"
	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/registry"
)

func newRunCommand(container *app.Container) *cobra.Command {
	var seedDemo bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the assistant and control suggestions interactively",
		Long: `Starts the detection workers and reads commands from stdin:

  status              show tracked suggestions and total time saved
  accept <id>         accept a pending suggestion
  reject <id>         reject a suggestion
  explain <id> <text> explain the pattern; generates the script
  refine <id> <text>  request changes to the generated script
  go <id>             confirm and execute the script
  mute <duration>     pause suggestions (e.g. 30m); "mute off" resumes
  quit                flush and exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if seedDemo {
				registry.SeedDemoActivity(container.Registry)
				fmt.Fprintln(out, "Seeded demo activity into the action log.")
			}

			container.Workers.Start(ctx)
			// Defers run LIFO: the workers' final flush must complete
			// before the store closes.
			defer container.Close()
			defer container.Workers.Stop()

			fmt.Fprintln(out, "FlowPilot running. Type 'help' for commands.")
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "quit" || line == "exit" {
					break
				}
				handleCommand(ctx, out, container, line)
			}
			return scanner.Err()
		},
	}
	cmd.Flags().BoolVar(&seedDemo, "seed-demo", false, "Seed the action log with demo activity")
	return cmd
}

func handleCommand(ctx context.Context, out io.Writer, container *app.Container, line string) {
	fields := strings.Fields(line)
	verb := fields[0]
	rest := fields[1:]

	switch verb {
	case "help":
		fmt.Fprintln(out, "Commands: status, accept <id>, reject <id>, explain <id> <text>, refine <id> <text>, go <id>, mute <duration>, quit")
	case "status":
		printStatus(out, container)
	case "accept":
		if len(rest) < 1 {
			fmt.Fprintln(out, "usage: accept <id>")
			return
		}
		s, err := container.Orchestrator.Accept(resolveID(container, rest[0]))
		report(out, s, err)
	case "reject":
		if len(rest) < 1 {
			fmt.Fprintln(out, "usage: reject <id>")
			return
		}
		s, err := container.Orchestrator.Reject(resolveID(container, rest[0]))
		report(out, s, err)
	case "explain":
		if len(rest) < 2 {
			fmt.Fprintln(out, "usage: explain <id> <text>")
			return
		}
		s, err := container.Orchestrator.Explain(ctx, resolveID(container, rest[0]), strings.Join(rest[1:], " "))
		report(out, s, err)
		if err == nil {
			fmt.Fprintf(out, "Summary: %s\n", s.ScriptSummary)
		}
	case "refine":
		if len(rest) < 2 {
			fmt.Fprintln(out, "usage: refine <id> <text>")
			return
		}
		s, err := container.Orchestrator.Refine(ctx, resolveID(container, rest[0]), strings.Join(rest[1:], " "))
		report(out, s, err)
		if err == nil {
			fmt.Fprintf(out, "Summary: %s\n", s.ScriptSummary)
		}
	case "go":
		if len(rest) < 1 {
			fmt.Fprintln(out, "usage: go <id>")
			return
		}
		s, err := container.Orchestrator.ConfirmAndExecute(ctx, resolveID(container, rest[0]))
		report(out, s, err)
	case "mute":
		if len(rest) < 1 {
			fmt.Fprintln(out, "usage: mute <duration> | mute off")
			return
		}
		if rest[0] == "off" {
			container.Orchestrator.Mute(0)
			fmt.Fprintln(out, "Suggestions resumed.")
			return
		}
		d, err := time.ParseDuration(rest[0])
		if err != nil {
			fmt.Fprintf(out, "bad duration: %v\n", err)
			return
		}
		until := container.Orchestrator.Mute(d)
		fmt.Fprintf(out, "Suggestions muted until %s\n", until.Format(time.Kitchen))
	default:
		fmt.Fprintf(out, "unknown command %q, try 'help'\n", verb)
	}
}

func printStatus(out io.Writer, container *app.Container) {
	suggestions := container.Orchestrator.Pending()
	if len(suggestions) == 0 {
		fmt.Fprintln(out, "No suggestions yet.")
	}
	for _, s := range suggestions {
		fmt.Fprintf(out, "%s | %-9s | %s | %s\n",
			shortID(s.ID), s.Status, s.Confidence, firstLine(s.PatternDescription))
		if s.Status == domain.StatusCompleted || s.Status == domain.StatusFailed {
			fmt.Fprintf(out, "         time saved: %ds\n", s.TimeSavedSeconds)
		}
	}
	fmt.Fprintf(out, "Total time saved: %ds\n", container.Orchestrator.TotalTimeSaved())
}

func report(out io.Writer, s *domain.PendingSuggestion, err error) {
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "%s -> %s\n", shortID(s.ID), s.Status)
}

// resolveID expands a short ID prefix to the full suggestion ID when the
// prefix is unambiguous.
func resolveID(container *app.Container, prefix string) string {
	match := prefix
	count := 0
	for _, s := range container.Orchestrator.Pending() {
		if strings.HasPrefix(s.ID, prefix) {
			match = s.ID
			count++
		}
	}
	if count == 1 {
		return match
	}
	return prefix
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80] + "..."
	}
	return s
}
