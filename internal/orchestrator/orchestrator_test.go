package orchestrator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/halcyon-dev/flowpilot/internal/detect"
	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/estimate"
	"github.com/halcyon-dev/flowpilot/internal/pkg/logger"
	"github.com/halcyon-dev/flowpilot/internal/registry"
	"github.com/halcyon-dev/flowpilot/internal/sandbox"
	"github.com/halcyon-dev/flowpilot/internal/scripts"
)

type queueOracle struct {
	responses []string
	prompts   []string
}

func (q *queueOracle) Prompt(_ context.Context, text string) (string, error) {
	q.prompts = append(q.prompts, text)
	if len(q.responses) == 0 {
		return "", nil
	}
	resp := q.responses[0]
	if len(q.responses) > 1 {
		q.responses = q.responses[1:]
	}
	return resp, nil
}

type okRunner struct {
	result domain.RunResult
}

func (r *okRunner) Run(context.Context, string, time.Duration) (domain.RunResult, error) {
	return r.result, nil
}

type noopInstaller struct{}

func (noopInstaller) Install(context.Context, string) error { return nil }

type fixture struct {
	orch        *Orchestrator
	reg         *registry.Registry
	detectO     *queueOracle
	generatorO  *queueOracle
	clock       time.Time
}

func newFixture(t *testing.T, runResult domain.RunResult) *fixture {
	t.Helper()
	log := logger.NewStd(false)

	f := &fixture{
		reg:        registry.New(0),
		detectO:    &queueOracle{},
		generatorO: &queueOracle{responses: []string{"print('automation')", "This script automates the renames."}},
		clock:      time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	}

	detector := detect.NewShortTermDetector(f.detectO, log, time.Nanosecond)
	generator := scripts.NewGenerator(f.generatorO, log)

	policy, err := sandbox.LoadPolicy(filepath.Join(t.TempDir(), "policy.yaml"))
	require.NoError(t, err)
	executor := sandbox.NewExecutor(policy, noopInstaller{}, &okRunner{result: runResult}, nil, log, 1, time.Second)

	estimator := estimate.New(&queueOracle{responses: []string{
		`{"estimated_minutes": 1, "confidence": 0.9, "reasoning": "moves"}`,
	}}, log)

	settings := domain.DetectionSettings{
		WindowSeconds:             30,
		MinActions:                3,
		MaxWindowActions:          50,
		SuggestionCooldownSeconds: 60,
		IgnoreTTLHours:            24,
	}
	f.orch = New(f.reg, nil, detector, generator, executor, estimator, nil, log, settings)
	f.orch.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) seedWindow() {
	details := []map[string]any{
		{"event_type": "renamed", "src_path": "/home/user/Downloads/IMG_001.jpg", "file_extension": ".jpg"},
		{"event_type": "renamed", "src_path": "/home/user/Downloads/IMG_002.jpg", "file_extension": ".jpg"},
		{"event_type": "renamed", "src_path": "/home/user/Downloads/IMG_003.jpg", "file_extension": ".jpg"},
	}
	for _, d := range details {
		f.reg.Register(domain.ActionFileOperation, d, "monitor", nil)
	}
}

func (f *fixture) detect(t *testing.T) *domain.PendingSuggestion {
	t.Helper()
	f.detectO.responses = append(f.detectO.responses,
		"The user is renaming photos in Downloads with a fixed scheme. PATTERN_DETECTED")
	s, err := f.orch.DetectCycle(context.Background())
	require.NoError(t, err)
	return s
}

func TestLifecycleFromDetectionToCompleted(t *testing.T) {
	f := newFixture(t, domain.RunResult{Stdout: "done", ExitCode: 0})
	f.seedWindow()
	ctx := context.Background()

	s := f.detect(t)
	require.NotNil(t, s)
	require.Equal(t, domain.StatusPending, s.Status)
	require.NotEmpty(t, s.PatternHash)

	s, err := f.orch.Accept(s.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAccepted, s.Status)

	s, err = f.orch.Explain(ctx, s.ID, "I am renaming vacation photos")
	require.NoError(t, err)
	require.Equal(t, domain.StatusExplained, s.Status)
	require.Equal(t, "print('automation')", s.GeneratedScript)
	require.Equal(t, "This script automates the renames.", s.ScriptSummary)

	s, err = f.orch.ConfirmAndExecute(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusExecuting, s.Status)

	f.orch.WaitExecutions()
	s, err = f.orch.Get(s.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, s.Status)
	require.NotNil(t, s.ExecutionResult)
	require.True(t, s.ExecutionResult.Success)
	require.NotNil(t, s.TimeEstimation)
	require.Greater(t, s.TimeSavedSeconds, 0)
	require.Equal(t, s.TimeSavedSeconds, f.orch.TotalTimeSaved())
}

func TestFailedExecutionSkipsTimeSavedAccounting(t *testing.T) {
	f := newFixture(t, domain.RunResult{Stderr: "Traceback: boom", ExitCode: 1})
	f.seedWindow()
	ctx := context.Background()

	s := f.detect(t)
	require.NotNil(t, s)
	_, err := f.orch.Accept(s.ID)
	require.NoError(t, err)
	_, err = f.orch.Explain(ctx, s.ID, "renaming photos")
	require.NoError(t, err)
	_, err = f.orch.ConfirmAndExecute(ctx, s.ID)
	require.NoError(t, err)

	f.orch.WaitExecutions()
	s, err = f.orch.Get(s.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFailed, s.Status)
	require.NotNil(t, s.ExecutionResult)
	require.False(t, s.ExecutionResult.Success)

	// Failed runs keep final_error only: no estimate, no accounting.
	require.Nil(t, s.TimeEstimation)
	require.Zero(t, s.TimeSavedSeconds)
	require.Zero(t, f.orch.TotalTimeSaved())
}

func TestBusyGateBlocksNewSuggestions(t *testing.T) {
	f := newFixture(t, domain.RunResult{ExitCode: 0})
	f.seedWindow()

	s := f.detect(t)
	require.NotNil(t, s)
	_, err := f.orch.Accept(s.ID)
	require.NoError(t, err)

	f.clock = f.clock.Add(5 * time.Minute) // past the cooldown, busy gate must still hold
	prompts := len(f.detectO.prompts)
	got := f.detect(t)
	require.Nil(t, got)
	require.Len(t, f.detectO.prompts, prompts, "blocked cycle must not consult the oracle")
}

func TestSuggestionCooldownBetweenCreations(t *testing.T) {
	f := newFixture(t, domain.RunResult{ExitCode: 0})
	f.seedWindow()

	s := f.detect(t)
	require.NotNil(t, s)
	_, err := f.orch.Reject(s.ID)
	require.NoError(t, err)

	// Different activity so the rejected fingerprint does not apply.
	f.reg.Register(domain.ActionFileOperation, map[string]any{
		"event_type": "created", "src_path": "/home/user/Documents/report.docx", "file_extension": ".docx",
	}, "monitor", nil)

	f.clock = f.clock.Add(10 * time.Second)
	require.Nil(t, f.detect(t), "within cooldown")

	f.clock = f.clock.Add(2 * time.Minute)
	require.NotNil(t, f.detect(t), "after cooldown")
}

func TestRejectSuppressesPatternUntilTTLExpires(t *testing.T) {
	f := newFixture(t, domain.RunResult{ExitCode: 0})
	f.seedWindow()

	s := f.detect(t)
	require.NotNil(t, s)
	_, err := f.orch.Reject(s.ID)
	require.NoError(t, err)

	f.clock = f.clock.Add(2 * time.Minute) // cooldown passed, suppression has not
	require.Nil(t, f.detect(t))

	f.clock = f.clock.Add(25 * time.Hour)
	require.NotNil(t, f.detect(t), "suppression expires with the TTL")
}

func TestMuteBlocksCreationUntilCleared(t *testing.T) {
	f := newFixture(t, domain.RunResult{ExitCode: 0})
	f.seedWindow()

	f.orch.Mute(30 * time.Minute)
	require.True(t, f.orch.Muted())
	require.Nil(t, f.detect(t))

	f.orch.Mute(0)
	require.False(t, f.orch.Muted())
	require.NotNil(t, f.detect(t))
}

func TestExplainRequiresText(t *testing.T) {
	f := newFixture(t, domain.RunResult{ExitCode: 0})
	f.seedWindow()

	s := f.detect(t)
	require.NotNil(t, s)
	_, err := f.orch.Accept(s.ID)
	require.NoError(t, err)

	_, err = f.orch.Explain(context.Background(), s.ID, "   ")
	require.ErrorIs(t, err, domain.ErrExplanationRequired)
}

func TestInvalidTransitionsAreRejected(t *testing.T) {
	f := newFixture(t, domain.RunResult{ExitCode: 0})
	f.seedWindow()
	ctx := context.Background()

	s := f.detect(t)
	require.NotNil(t, s)

	// pending cannot be explained or executed
	_, err := f.orch.Explain(ctx, s.ID, "explanation")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.orch.ConfirmAndExecute(ctx, s.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.orch.Accept(s.ID)
	require.NoError(t, err)
	_, err = f.orch.Accept(s.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.orch.Get("no-such-id")
	require.ErrorIs(t, err, domain.ErrSuggestionNotFound)
}

func TestRefineLoopsInExplainedState(t *testing.T) {
	f := newFixture(t, domain.RunResult{ExitCode: 0})
	f.seedWindow()
	ctx := context.Background()

	s := f.detect(t)
	require.NotNil(t, s)
	_, err := f.orch.Accept(s.ID)
	require.NoError(t, err)
	_, err = f.orch.Explain(ctx, s.ID, "renaming photos")
	require.NoError(t, err)

	f.generatorO.responses = []string{"print('automation v2')", "Updated summary."}
	s, err = f.orch.Refine(ctx, s.ID, "only rename .jpg files")
	require.NoError(t, err)
	require.Equal(t, domain.StatusExplained, s.Status)
	require.Equal(t, "print('automation v2')", s.GeneratedScript)
	require.Equal(t, []string{"only rename .jpg files"}, s.RefinementHistory)
}

func TestRejectAfterCompletionFails(t *testing.T) {
	f := newFixture(t, domain.RunResult{ExitCode: 0})
	f.seedWindow()
	ctx := context.Background()

	s := f.detect(t)
	require.NotNil(t, s)
	_, err := f.orch.Accept(s.ID)
	require.NoError(t, err)
	_, err = f.orch.Explain(ctx, s.ID, "renaming photos")
	require.NoError(t, err)
	_, err = f.orch.ConfirmAndExecute(ctx, s.ID)
	require.NoError(t, err)
	f.orch.WaitExecutions()

	_, err = f.orch.Reject(s.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}
