package oracle

import (
	"context"

	"github.com/halcyon-dev/flowpilot/internal/ports"
)

// DisabledResponse is what a not-configured oracle answers to every prompt.
// It intentionally contains no detection or generation markers, so every
// pipeline downstream of it degrades to "nothing found".
const DisabledResponse = "LLM oracle is not configured"

// Disabled is the no-op oracle used when no model is configured. It never
// errors; callers see a fixed placeholder instead.
type Disabled struct{}

// NewDisabled builds the sentinel.
func NewDisabled() *Disabled {
	return &Disabled{}
}

// Prompt implements ports.Oracle.
func (*Disabled) Prompt(context.Context, string) (string, error) {
	return DisabledResponse, nil
}

var _ ports.Oracle = (*Disabled)(nil)
