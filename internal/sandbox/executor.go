package sandbox

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/ports"
)

// Executor runs automation scripts through the full pipeline: security
// screen, dependency install, retrying subprocess execution, and history
// recording. One ExecutionRecord is produced per invocation, immutable
// once returned.
type Executor struct {
	policy        *Policy
	installer     ports.PackageInstaller
	runner        ports.ScriptRunner
	store         ports.Store
	log           ports.Logger
	maxRetries    int
	scriptTimeout time.Duration

	mu      sync.Mutex
	seq     int
	history []domain.ExecutionRecord
	now     func() time.Time
}

// NewExecutor builds an executor. maxRetries defaults to 3 when zero;
// scriptTimeout defaults to 60s. store may be nil for ad-hoc use.
func NewExecutor(policy *Policy, installer ports.PackageInstaller, runner ports.ScriptRunner, store ports.Store, log ports.Logger, maxRetries int, scriptTimeout time.Duration) *Executor {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if scriptTimeout <= 0 {
		scriptTimeout = 60 * time.Second
	}
	return &Executor{
		policy:        policy,
		installer:     installer,
		runner:        runner,
		store:         store,
		log:           log,
		maxRetries:    maxRetries,
		scriptTimeout: scriptTimeout,
		now:           time.Now,
	}
}

// ExecuteAutomation screens, prepares and runs the script, retrying
// identically on failure up to the retry budget. The returned record is
// also appended to the in-memory history and persisted best-effort.
func (e *Executor) ExecuteAutomation(ctx context.Context, script, userExplanation string) domain.ExecutionRecord {
	record := domain.ExecutionRecord{
		ExecutionID:     e.nextID(),
		UserExplanation: userExplanation,
		Script:          script,
		Timestamp:       e.now(),
	}

	e.log.Info("starting execution", map[string]interface{}{
		"execution_id": record.ExecutionID,
		"explanation":  userExplanation,
	})

	// Security screen fails closed: blocked scripts get zero attempts.
	if reason := e.policy.Screen(script); reason != "" {
		record.FinalError = domain.ErrScriptBlocked.Error()
		e.log.Warn("script blocked by security policy", map[string]interface{}{
			"execution_id": record.ExecutionID,
			"reason":       reason,
		})
		return e.finish(record)
	}

	if packages := RequiredPackages(script); len(packages) > 0 {
		install := e.installPackages(ctx, packages)
		record.LibraryInstall = &install
		if !install.Success {
			record.FinalError = fmt.Sprintf("Failed to install required libraries: %s", installErrorSummary(install))
			return e.finish(record)
		}
	}

	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		result := e.executeOnce(ctx, script, attempt)
		record.Attempts = append(record.Attempts, result)

		if result.Success {
			record.Success = true
			record.FinalOutput = result.Output
			record.FinalError = result.Error
			e.cleanupScriptFile(result.ScriptFilePath)
			break
		}

		// Keep the temp file for diagnostics only on the final failure.
		if attempt < e.maxRetries {
			e.cleanupScriptFile(result.ScriptFilePath)
			e.log.Debug("attempt failed, retrying", map[string]interface{}{
				"execution_id": record.ExecutionID,
				"attempt":      attempt,
			})
			continue
		}
		record.FinalError = result.Error
		if record.FinalError == "" {
			record.FinalError = "Unknown error"
		}
	}

	return e.finish(record)
}

func (e *Executor) executeOnce(ctx context.Context, script string, attempt int) domain.AttemptResult {
	result := domain.AttemptResult{Attempt: attempt, ReturnCode: -1}

	file, err := os.CreateTemp("", "flowpilot-*.py")
	if err != nil {
		result.Error = fmt.Sprintf("create script file: %v", err)
		return result
	}
	path := file.Name()
	result.ScriptFilePath = path
	if _, err := file.WriteString(script); err != nil {
		file.Close()
		result.Error = fmt.Sprintf("write script file: %v", err)
		return result
	}
	if err := file.Close(); err != nil {
		result.Error = fmt.Sprintf("close script file: %v", err)
		return result
	}

	run, err := e.runner.Run(ctx, path, e.scriptTimeout)
	result.Output = run.Stdout
	result.ReturnCode = run.ExitCode
	result.ExecutionTime = run.Duration

	switch {
	case run.TimedOut:
		result.ReturnCode = -1
		result.ExecutionTime = e.scriptTimeout
		result.Error = fmt.Sprintf("Script execution timed out after %d seconds", int(e.scriptTimeout.Seconds()))
	case err != nil && run.Stderr == "":
		result.Error = err.Error()
	case run.ExitCode != 0:
		result.Error = run.Stderr
	default:
		result.Success = true
	}
	return result
}

func (e *Executor) installPackages(ctx context.Context, packages []string) domain.LibraryInstallation {
	install := domain.LibraryInstallation{Success: true}
	for _, pkg := range packages {
		if err := e.installer.Install(ctx, pkg); err != nil {
			install.Success = false
			install.Failed = append(install.Failed, domain.LibraryInstallFailure{
				Library: pkg,
				Error:   err.Error(),
			})
			e.log.Warn("library install failed", map[string]interface{}{
				"library": pkg,
				"error":   err.Error(),
			})
			continue
		}
		install.Installed = append(install.Installed, pkg)
	}
	return install
}

func (e *Executor) finish(record domain.ExecutionRecord) domain.ExecutionRecord {
	e.mu.Lock()
	e.history = append(e.history, record)
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.SaveExecution(record); err != nil {
			e.log.Warn("persist execution failed", map[string]interface{}{
				"execution_id": record.ExecutionID,
				"error":        err.Error(),
			})
		}
	}
	e.log.Info("execution complete", map[string]interface{}{
		"execution_id": record.ExecutionID,
		"success":      record.Success,
		"attempts":     len(record.Attempts),
	})
	return record
}

func (e *Executor) cleanupScriptFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		e.log.Debug("cleanup script file failed", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

func (e *Executor) nextID() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	return e.seq
}

// History returns a copy of the in-memory execution history.
func (e *Executor) History() []domain.ExecutionRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.ExecutionRecord, len(e.history))
	copy(out, e.history)
	return out
}

// ByID returns the record with the given sequential ID, or false.
func (e *Executor) ByID(id int) (domain.ExecutionRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rec := range e.history {
		if rec.ExecutionID == id {
			return rec, true
		}
	}
	return domain.ExecutionRecord{}, false
}

// ClearHistory drops the in-memory history.
func (e *Executor) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
}

func installErrorSummary(install domain.LibraryInstallation) string {
	if len(install.Failed) == 0 {
		return "unknown"
	}
	return fmt.Sprintf("%s: %s", install.Failed[0].Library, install.Failed[0].Error)
}
