// Package ports defines the interfaces between the flowpilot core and its
// external collaborators.
//
// Following the Ports and Adapters pattern, the orchestrator, detectors,
// executor and estimator depend only on these abstractions; concrete
// implementations live in the infrastructure layer.
package ports

import (
	"context"
	"time"

	"github.com/halcyon-dev/flowpilot/internal/domain"
)

// Oracle is the opaque prompt -> text LLM service. Implementations must not
// panic; a not-configured oracle returns a fixed placeholder string instead
// of calling out. Call sites own the fail-open/fail-closed policy for
// malformed responses.
type Oracle interface {
	Prompt(ctx context.Context, text string) (string, error)
}

// ConfigProvider loads the latest configuration from persistent storage.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// PackageInstaller installs one third-party package for the script
// interpreter. Treated as an external, possibly slow, possibly-failing
// dependency.
type PackageInstaller interface {
	Install(ctx context.Context, pkg string) error
}

// ScriptRunner launches the interpreter against a script file with captured
// stdio, exit code and an enforced wall-clock timeout.
type ScriptRunner interface {
	Run(ctx context.Context, scriptPath string, timeout time.Duration) (domain.RunResult, error)
}

// Store is the persistence collaborator. No core invariant depends on it
// succeeding: callers log and continue on every error.
type Store interface {
	SaveSuggestions(suggestions []*domain.PendingSuggestion) error
	LoadSuggestions() ([]*domain.PendingSuggestion, error)
	SaveExecution(record domain.ExecutionRecord) error
	Executions(limit int) ([]domain.ExecutionRecord, error)
	AddTimeSaved(suggestionID string, seconds int, at time.Time) error
	TotalTimeSaved() (int, error)
	SaveSummary(summary domain.ActivitySummary) error
	Summaries(kind string, limit int) ([]domain.ActivitySummary, error)
	LogInteraction(agent, prompt, response string) error
	Close() error
}

// Logger provides structured logging for the application layer.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
