package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/ports"
)

// defaultMinTenMinuteInput is the smallest number of minute summaries a
// ten-minute condensation requires when the configuration leaves it unset.
const defaultMinTenMinuteInput = 5

// LongTermSummarizer condenses raw actions into hierarchical
// natural-language summaries: 1-2 sentences per minute, 4-5 sentences per
// trailing ten minutes. The summaries are informational only; they never
// feed back into pattern detection or the state machine.
type LongTermSummarizer struct {
	oracle    ports.Oracle
	log       ports.Logger
	minTenMin int
}

// NewLongTermSummarizer builds a summarizer. minMinuteSummaries is the
// ten-minute tier's input floor (default 5 when zero).
func NewLongTermSummarizer(oracle ports.Oracle, log ports.Logger, minMinuteSummaries int) *LongTermSummarizer {
	if minMinuteSummaries <= 0 {
		minMinuteSummaries = defaultMinTenMinuteInput
	}
	return &LongTermSummarizer{oracle: oracle, log: log, minTenMin: minMinuteSummaries}
}

// MinuteSummary summarizes one minute of activity in 1-2 sentences.
// Returns "" when the window is empty.
func (s *LongTermSummarizer) MinuteSummary(ctx context.Context, actions []domain.UserAction) (string, error) {
	if len(actions) == 0 {
		return "", nil
	}
	summary, err := s.oracle.Prompt(ctx, minuteSummaryPrompt(actions))
	if err != nil {
		return "", fmt.Errorf("minute summary: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

// TenMinuteSummary condenses the trailing minute summaries into 4-5
// sentences. Fewer summaries than the configured floor yield "".
func (s *LongTermSummarizer) TenMinuteSummary(ctx context.Context, minuteSummaries []string) (string, error) {
	if len(minuteSummaries) < s.minTenMin {
		return "", nil
	}
	summary, err := s.oracle.Prompt(ctx, tenMinuteSummaryPrompt(minuteSummaries))
	if err != nil {
		return "", fmt.Errorf("ten-minute summary: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

func minuteSummaryPrompt(actions []domain.UserAction) string {
	var b strings.Builder
	b.WriteString(`You are an activity summarizer. Your job is to create a VERY BRIEF summary of what the user did in the last minute.

RULES:
- Output ONLY 1-2 sentences, no more
- Be specific: mention file names, application names, or actions taken
- Use past tense (e.g., 'User opened Chrome', 'User edited 3 files')
- Focus on meaningful actions, ignore trivial ones
- If no meaningful actions, say 'User was idle' or 'User was browsing'

Recent user actions from the last minute:
`)

	groups := map[domain.ActionType][]domain.UserAction{}
	var order []domain.ActionType
	for _, a := range actions {
		if _, seen := groups[a.Type]; !seen {
			order = append(order, a.Type)
		}
		groups[a.Type] = append(groups[a.Type], a)
	}

	for _, t := range order {
		group := groups[t]
		fmt.Fprintf(&b, "\n%s (%d actions):\n", strings.ToUpper(string(t)), len(group))
		// Cap at 5 per group to keep the prompt bounded.
		if len(group) > 5 {
			group = group[:5]
		}
		for _, a := range group {
			switch t {
			case domain.ActionFileOperation:
				fmt.Fprintf(&b, "  - %s: %s\n", a.DetailString("event_type"), a.DetailString("src_path"))
			case domain.ActionAppSwitch:
				fmt.Fprintf(&b, "  - Opened %s\n", a.DetailString("app_name"))
			case domain.ActionKeyboardShortcut:
				fmt.Fprintf(&b, "  - Pressed %s\n", a.DetailString("shortcut"))
			default:
				fmt.Fprintf(&b, "  - %s\n", a.DetailString("description"))
			}
		}
	}

	b.WriteString("\n\nSummarize in 1-2 sentences:")
	return b.String()
}

func tenMinuteSummaryPrompt(minuteSummaries []string) string {
	var b strings.Builder
	b.WriteString(`You are an activity summarizer. Your job is to create a CONCISE summary of what the user did over the last 10 minutes.

RULES:
- Output EXACTLY 4-5 sentences, no more
- Identify patterns and workflows (e.g., 'User was working on a Python project')
- Mention the most important activities
- Use past tense
- Group similar activities together

Here are summaries of 1-minute intervals:
`)
	for i, summary := range minuteSummaries {
		fmt.Fprintf(&b, "\nMinute %d: %s", i+1, summary)
	}
	b.WriteString("\n\nCreate a 4-5 sentence summary of the entire 10-minute period:")
	return b.String()
}
