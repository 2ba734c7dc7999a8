package sandbox

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/pkg/logger"
)

type stubRunner struct {
	results []domain.RunResult
	calls   int
}

func (r *stubRunner) Run(_ context.Context, _ string, _ time.Duration) (domain.RunResult, error) {
	r.calls++
	if len(r.results) == 0 {
		return domain.RunResult{}, nil
	}
	result := r.results[0]
	if len(r.results) > 1 {
		r.results = r.results[1:]
	}
	return result, nil
}

type stubInstaller struct {
	failFor map[string]error
	calls   []string
}

func (i *stubInstaller) Install(_ context.Context, pkg string) error {
	i.calls = append(i.calls, pkg)
	if err, ok := i.failFor[pkg]; ok {
		return err
	}
	return nil
}

func testExecutor(t *testing.T, runner *stubRunner, installer *stubInstaller) *Executor {
	t.Helper()
	policy, err := LoadPolicy(filepath.Join(t.TempDir(), "policy.yaml"))
	require.NoError(t, err)
	if installer == nil {
		installer = &stubInstaller{}
	}
	return NewExecutor(policy, installer, runner, nil, logger.NewStd(false), 3, time.Second)
}

func TestExecuteSuccessTakesOneAttempt(t *testing.T) {
	runner := &stubRunner{results: []domain.RunResult{{Stdout: "hi\n", ExitCode: 0}}}
	e := testExecutor(t, runner, nil)

	record := e.ExecuteAutomation(context.Background(), "print('hi')", "say hi")
	require.True(t, record.Success)
	require.Len(t, record.Attempts, 1)
	require.Equal(t, "hi\n", record.FinalOutput)
	require.Equal(t, 1, runner.calls)
}

func TestBlockedScriptGetsZeroAttempts(t *testing.T) {
	runner := &stubRunner{}
	e := testExecutor(t, runner, nil)

	record := e.ExecuteAutomation(context.Background(), "import subprocess\nsubprocess.run(['ls'])", "list files")
	require.False(t, record.Success)
	require.Empty(t, record.Attempts)
	require.Equal(t, domain.ErrScriptBlocked.Error(), record.FinalError)
	require.Zero(t, runner.calls)
}

func TestRetriesExhaustAtBudget(t *testing.T) {
	runner := &stubRunner{results: []domain.RunResult{{Stderr: "Traceback: boom", ExitCode: 1}}}
	e := testExecutor(t, runner, nil)

	record := e.ExecuteAutomation(context.Background(), "raise Exception('boom')", "fail")
	require.False(t, record.Success)
	require.Len(t, record.Attempts, 3)
	require.Equal(t, "Traceback: boom", record.FinalError)
	require.Equal(t, 3, runner.calls)
}

func TestSucceedsOnRetry(t *testing.T) {
	runner := &stubRunner{results: []domain.RunResult{
		{Stderr: "flaky", ExitCode: 1},
		{Stdout: "ok", ExitCode: 0},
	}}
	e := testExecutor(t, runner, nil)

	record := e.ExecuteAutomation(context.Background(), "print('ok')", "flaky run")
	require.True(t, record.Success)
	require.Len(t, record.Attempts, 2)
	require.False(t, record.Attempts[0].Success)
	require.True(t, record.Attempts[1].Success)
}

func TestTimeoutReportedPerAttempt(t *testing.T) {
	runner := &stubRunner{results: []domain.RunResult{{TimedOut: true, ExitCode: -1}}}
	e := testExecutor(t, runner, nil)

	record := e.ExecuteAutomation(context.Background(), "while True: pass", "spin")
	require.False(t, record.Success)
	require.Len(t, record.Attempts, 3)
	require.Equal(t, "Script execution timed out after 1 seconds", record.Attempts[0].Error)
	require.Equal(t, -1, record.Attempts[0].ReturnCode)
}

func TestInstallFailureAbortsBeforeAttempts(t *testing.T) {
	runner := &stubRunner{}
	installer := &stubInstaller{failFor: map[string]error{"pandas": errors.New("no network")}}
	e := testExecutor(t, runner, installer)

	record := e.ExecuteAutomation(context.Background(), "import pandas\nprint(1)", "crunch data")
	require.False(t, record.Success)
	require.Empty(t, record.Attempts)
	require.Contains(t, record.FinalError, "Failed to install required libraries")
	require.NotNil(t, record.LibraryInstall)
	require.False(t, record.LibraryInstall.Success)
	require.Zero(t, runner.calls)
}

func TestInstallRunsForThirdPartyImportsOnly(t *testing.T) {
	runner := &stubRunner{results: []domain.RunResult{{ExitCode: 0}}}
	installer := &stubInstaller{}
	e := testExecutor(t, runner, installer)

	record := e.ExecuteAutomation(context.Background(), "import os\nfrom PIL import Image\n", "convert image")
	require.True(t, record.Success)
	require.Equal(t, []string{"Pillow"}, installer.calls)
	require.NotNil(t, record.LibraryInstall)
	require.Equal(t, []string{"Pillow"}, record.LibraryInstall.Installed)
}

func TestExecutionIDsAreSequential(t *testing.T) {
	runner := &stubRunner{results: []domain.RunResult{{ExitCode: 0}}}
	e := testExecutor(t, runner, nil)

	first := e.ExecuteAutomation(context.Background(), "print(1)", "one")
	second := e.ExecuteAutomation(context.Background(), "print(2)", "two")
	require.Equal(t, 1, first.ExecutionID)
	require.Equal(t, 2, second.ExecutionID)

	history := e.History()
	require.Len(t, history, 2)

	got, ok := e.ByID(2)
	require.True(t, ok)
	require.Equal(t, "two", got.UserExplanation)

	e.ClearHistory()
	require.Empty(t, e.History())
}
