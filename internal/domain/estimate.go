package domain

import "time"

// MaxTimeSavedSeconds is the hard conservative ceiling applied to every
// estimate, regardless of what the heuristic or the oracle claim.
const MaxTimeSavedSeconds = 180

// TimeEstimate is the blended heuristic + oracle estimate of manual work
// avoided by one completed automation.
type TimeEstimate struct {
	EstimatedSeconds int            `json:"estimated_time_saved_seconds"`
	Confidence       float64        `json:"confidence_level"`
	Breakdown        map[string]int `json:"breakdown"`
	Reasoning        string         `json:"ai_reasoning,omitempty"`
	OperationTypes   []string       `json:"operation_types"`
	ComplexityScore  int            `json:"complexity_score"`
	Timestamp        time.Time      `json:"timestamp"`
}
