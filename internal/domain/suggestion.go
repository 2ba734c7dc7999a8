package domain

import "time"

// SuggestionStatus is the lifecycle state of a PendingSuggestion.
//
// Transitions:
//
//	pending -> accepted -> explained -> executing -> completed | failed
//	pending | accepted | explained -> rejected
//
// The explained state self-loops through refinement.
type SuggestionStatus string

const (
	StatusPending   SuggestionStatus = "pending"
	StatusAccepted  SuggestionStatus = "accepted"
	StatusExplained SuggestionStatus = "explained"
	StatusExecuting SuggestionStatus = "executing"
	StatusCompleted SuggestionStatus = "completed"
	StatusFailed    SuggestionStatus = "failed"
	StatusRejected  SuggestionStatus = "rejected"
)

// Active reports whether the suggestion occupies the global busy gate:
// exactly one suggestion may be accepted or explained at any time.
func (s SuggestionStatus) Active() bool {
	return s == StatusAccepted || s == StatusExplained
}

// Rejectable reports whether the suggestion may still move to rejected.
func (s SuggestionStatus) Rejectable() bool {
	return s == StatusPending || s == StatusAccepted || s == StatusExplained
}

// Confidence grades a pattern detection.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// PendingSuggestion tracks a detected pattern from proposal through user
// confirmation to script execution and time-saved accounting.
type PendingSuggestion struct {
	ID                 string            `json:"suggestion_id"`
	Timestamp          time.Time         `json:"timestamp"`
	PatternDescription string            `json:"pattern_description"`
	Confidence         Confidence        `json:"confidence"`
	Actions            []UserAction      `json:"actions"`
	PatternHash        string            `json:"pattern_hash"`
	Status             SuggestionStatus  `json:"status"`
	UserExplanation    string            `json:"user_explanation,omitempty"`
	GeneratedScript    string            `json:"generated_script,omitempty"`
	ScriptSummary      string            `json:"script_summary,omitempty"`
	RefinementHistory  []string          `json:"refinement_history,omitempty"`
	ExecutionResult    *ExecutionRecord  `json:"execution_result,omitempty"`
	TimeSavedSeconds   int               `json:"time_saved_seconds,omitempty"`
	TimeEstimation     *TimeEstimate     `json:"time_estimation_details,omitempty"`
}

// FileOps returns the file-operation actions in the suggestion's window,
// in order, for use in generation prompts.
func (s *PendingSuggestion) FileOps() []FileOp {
	var ops []FileOp
	for _, a := range s.Actions {
		if op, ok := FileOpFromAction(a); ok {
			ops = append(ops, op)
		}
	}
	return ops
}
