package oracle

import (
	"context"

	"github.com/halcyon-dev/flowpilot/internal/ports"
)

// Logging decorates an oracle with interaction persistence: every prompt
// and its response (or error) is written to the store for later review.
// Persistence failures never fail the call.
type Logging struct {
	next  ports.Oracle
	agent string
	store ports.Store
	log   ports.Logger
}

// NewLogging wraps next, tagging interactions with the agent name.
func NewLogging(next ports.Oracle, agent string, store ports.Store, log ports.Logger) *Logging {
	return &Logging{next: next, agent: agent, store: store, log: log}
}

// Prompt implements ports.Oracle.
func (l *Logging) Prompt(ctx context.Context, text string) (string, error) {
	resp, err := l.next.Prompt(ctx, text)

	logged := resp
	if err != nil {
		logged = "ERROR: " + err.Error()
	}
	if l.store != nil {
		if logErr := l.store.LogInteraction(l.agent, text, logged); logErr != nil {
			l.log.Debug("log interaction failed", map[string]interface{}{
				"agent": l.agent,
				"error": logErr.Error(),
			})
		}
	}
	return resp, err
}

var _ ports.Oracle = (*Logging)(nil)
