// Package orchestrator owns the suggestion lifecycle: one mutex-guarded
// coordinator moves suggestions from detection through user confirmation
// to execution and time-saved accounting, enforcing the busy gate, the
// suggestion cooldown, mute windows and fingerprint suppression.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/halcyon-dev/flowpilot/internal/detect"
	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/estimate"
	"github.com/halcyon-dev/flowpilot/internal/ports"
	"github.com/halcyon-dev/flowpilot/internal/registry"
	"github.com/halcyon-dev/flowpilot/internal/sandbox"
	"github.com/halcyon-dev/flowpilot/internal/scripts"
)

// Orchestrator coordinates detection results and user decisions. All state
// transitions happen under one mutex; the oracle and the interpreter are
// never called while it is held.
type Orchestrator struct {
	reg       *registry.Registry
	pipeline  *detect.Pipeline
	detector  *detect.ShortTermDetector
	generator *scripts.Generator
	executor  *sandbox.Executor
	estimator *estimate.Estimator
	store     ports.Store
	log       ports.Logger
	settings  domain.DetectionSettings
	now       func() time.Time

	mu             sync.Mutex
	seq            int // suggestion sequence, part of the stable ID
	suggestions    map[string]*domain.PendingSuggestion
	order          []string             // suggestion IDs in creation order
	ignored        map[string]time.Time // pattern hash -> suppression expiry
	muteUntil      time.Time
	lastSuggestion time.Time
	totalSaved     int

	execWG sync.WaitGroup
}

// New wires an orchestrator. Prior suggestions and the accumulated
// time-saved total are restored from the store; suggestions interrupted
// mid-execution come back as failed.
func New(reg *registry.Registry, pipeline *detect.Pipeline, detector *detect.ShortTermDetector, generator *scripts.Generator, executor *sandbox.Executor, estimator *estimate.Estimator, store ports.Store, log ports.Logger, settings domain.DetectionSettings) *Orchestrator {
	o := &Orchestrator{
		reg:         reg,
		pipeline:    pipeline,
		detector:    detector,
		generator:   generator,
		executor:    executor,
		estimator:   estimator,
		store:       store,
		log:         log,
		settings:    settings,
		now:         time.Now,
		suggestions: map[string]*domain.PendingSuggestion{},
		ignored:     map[string]time.Time{},
	}
	o.restore()
	return o
}

func (o *Orchestrator) restore() {
	if o.store == nil {
		return
	}
	saved, err := o.store.LoadSuggestions()
	if err != nil {
		o.log.Warn("restore suggestions failed", map[string]interface{}{"error": err.Error()})
		return
	}
	for _, s := range saved {
		if s.Status == domain.StatusExecuting {
			s.Status = domain.StatusFailed
		}
		o.suggestions[s.ID] = s
		o.order = append(o.order, s.ID)
		if s.PatternHash != "" {
			o.ignored[s.PatternHash] = s.Timestamp.Add(o.ignoreTTL())
		}
	}
	o.seq = len(saved)
	if total, err := o.store.TotalTimeSaved(); err == nil {
		o.totalSaved = total
	}
	if len(saved) > 0 {
		o.log.Info("restored suggestions", map[string]interface{}{"count": len(saved)})
	}
}

// DetectCycle runs one detection pass over the trailing action window and
// creates a pending suggestion when a pattern is found and no throttle
// applies. File-operation windows go through the filter/analyze/spot
// pipeline first; mixed windows fall back to the short-term detector.
// Returns the new suggestion, or nil.
func (o *Orchestrator) DetectCycle(ctx context.Context) (*domain.PendingSuggestion, error) {
	window := o.reg.Recent(o.window())
	if limit := o.maxWindowActions(); len(window) > limit {
		window = window[len(window)-limit:]
	}
	if len(window) < o.minActions() {
		return nil, nil
	}

	if s, err := o.fileOpCycle(ctx, window); s != nil || err != nil {
		return s, err
	}

	hash := detect.Fingerprint(window)
	if reason := o.creationBlocked(hash); reason != "" {
		o.log.Debug("suggestion creation blocked", map[string]interface{}{"reason": reason})
		return nil, nil
	}

	detection, err := o.detector.Detect(ctx, window)
	if err != nil {
		return nil, err
	}
	if detection == nil {
		return nil, nil
	}
	return o.createSuggestion(detection.Description, detection.Confidence, window, hash), nil
}

// fileOpCycle runs the spot pipeline over the file operations in the
// window. A nil, nil return means the short-term fallback should run.
func (o *Orchestrator) fileOpCycle(ctx context.Context, window []domain.UserAction) (*domain.PendingSuggestion, error) {
	if o.pipeline == nil {
		return nil, nil
	}
	var fileActions []domain.UserAction
	var ops []domain.FileOp
	for _, a := range window {
		if op, ok := domain.FileOpFromAction(a); ok {
			fileActions = append(fileActions, a)
			ops = append(ops, op)
		}
	}
	if len(ops) < o.minActions() {
		return nil, nil
	}

	hash := detect.Fingerprint(fileActions)
	if reason := o.creationBlocked(hash); reason != "" {
		o.log.Debug("suggestion creation blocked", map[string]interface{}{"reason": reason})
		return nil, nil
	}

	result, err := o.pipeline.Detect(ctx, ops)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return o.createSuggestion(result.Description, domain.ConfidenceHigh, fileActions, hash), nil
}

func (o *Orchestrator) createSuggestion(description string, confidence domain.Confidence, actions []domain.UserAction, hash string) *domain.PendingSuggestion {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Re-check under the lock: the oracle call ran unlocked.
	if reason := o.creationBlockedLocked(hash); reason != "" {
		o.log.Debug("suggestion discarded post-detection", map[string]interface{}{"reason": reason})
		return nil
	}

	o.seq++
	created := o.now()
	s := &domain.PendingSuggestion{
		ID:                 fmt.Sprintf("sg-%04d-%d", o.seq, created.Unix()),
		Timestamp:          created,
		PatternDescription: description,
		Confidence:         confidence,
		Actions:            actions,
		PatternHash:        hash,
		Status:             domain.StatusPending,
	}
	o.suggestions[s.ID] = s
	o.order = append(o.order, s.ID)
	o.lastSuggestion = created
	if hash != "" {
		// The fingerprint is suppressed from the moment it becomes a
		// suggestion, not only on rejection.
		o.ignored[hash] = created.Add(o.ignoreTTL())
	}

	o.log.Info("suggestion created", map[string]interface{}{
		"suggestion_id": s.ID,
		"pattern_hash":  hash,
		"confidence":    string(s.Confidence),
	})
	return o.copyOf(s)
}

func (o *Orchestrator) creationBlocked(hash string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.creationBlockedLocked(hash)
}

func (o *Orchestrator) creationBlockedLocked(hash string) string {
	now := o.now()
	if now.Before(o.muteUntil) {
		return "muted"
	}
	for _, s := range o.suggestions {
		if s.Status.Active() {
			return "another suggestion in progress"
		}
	}
	if !o.lastSuggestion.IsZero() && now.Sub(o.lastSuggestion) < o.suggestionCooldown() {
		return "suggestion cooldown"
	}
	if expiry, ok := o.ignored[hash]; ok {
		if now.Before(expiry) {
			return "pattern suppressed"
		}
		delete(o.ignored, hash)
	}
	return ""
}

// Accept moves a pending suggestion to accepted, claiming the busy gate.
func (o *Orchestrator) Accept(id string) (*domain.PendingSuggestion, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.suggestions[id]
	if !ok {
		return nil, domain.ErrSuggestionNotFound
	}
	if s.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: cannot accept suggestion in status %q", domain.ErrInvalidTransition, s.Status)
	}
	for _, other := range o.suggestions {
		if other.ID != id && other.Status.Active() {
			return nil, fmt.Errorf("%w: another suggestion is in progress", domain.ErrInvalidTransition)
		}
	}
	s.Status = domain.StatusAccepted
	o.log.Info("suggestion accepted", map[string]interface{}{"suggestion_id": id})
	return o.copyOf(s), nil
}

// Reject moves a rejectable suggestion to rejected and refreshes its
// fingerprint suppression for a full ignore TTL.
func (o *Orchestrator) Reject(id string) (*domain.PendingSuggestion, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.suggestions[id]
	if !ok {
		return nil, domain.ErrSuggestionNotFound
	}
	if !s.Status.Rejectable() {
		return nil, fmt.Errorf("%w: cannot reject suggestion in status %q", domain.ErrInvalidTransition, s.Status)
	}
	s.Status = domain.StatusRejected
	if s.PatternHash != "" {
		o.ignored[s.PatternHash] = o.now().Add(o.ignoreTTL())
	}
	o.log.Info("suggestion rejected", map[string]interface{}{
		"suggestion_id": id,
		"pattern_hash":  s.PatternHash,
	})
	return o.copyOf(s), nil
}

// Explain records the user's explanation of the pattern, generates the
// automation script and its plain-language summary, and moves the
// suggestion to explained.
func (o *Orchestrator) Explain(ctx context.Context, id, explanation string) (*domain.PendingSuggestion, error) {
	if strings.TrimSpace(explanation) == "" {
		return nil, domain.ErrExplanationRequired
	}

	o.mu.Lock()
	s, ok := o.suggestions[id]
	if !ok {
		o.mu.Unlock()
		return nil, domain.ErrSuggestionNotFound
	}
	if s.Status != domain.StatusAccepted {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot explain suggestion in status %q", domain.ErrInvalidTransition, s.Status)
	}
	description := explainedDescription(s.PatternDescription, explanation)
	ops := s.FileOps()
	o.mu.Unlock()

	script, err := o.generator.CreateScript(ctx, description, ops)
	if err != nil {
		return nil, err
	}
	summary := o.generator.Summarize(ctx, script)

	o.mu.Lock()
	defer o.mu.Unlock()
	if s.Status != domain.StatusAccepted {
		return nil, fmt.Errorf("%w: suggestion changed during generation", domain.ErrInvalidTransition)
	}
	s.UserExplanation = explanation
	s.GeneratedScript = script
	s.ScriptSummary = summary
	s.Status = domain.StatusExplained
	o.log.Info("script generated", map[string]interface{}{
		"suggestion_id": id,
		"script_bytes":  len(script),
	})
	return o.copyOf(s), nil
}

// Refine regenerates the script of an explained suggestion with the new
// refinement request appended, folding in the previous execution error when
// one exists. The suggestion stays explained.
func (o *Orchestrator) Refine(ctx context.Context, id, refinement string) (*domain.PendingSuggestion, error) {
	if strings.TrimSpace(refinement) == "" {
		return nil, domain.ErrExplanationRequired
	}

	o.mu.Lock()
	s, ok := o.suggestions[id]
	if !ok {
		o.mu.Unlock()
		return nil, domain.ErrSuggestionNotFound
	}
	if s.Status != domain.StatusExplained {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot refine suggestion in status %q", domain.ErrInvalidTransition, s.Status)
	}
	description := explainedDescription(s.PatternDescription, s.UserExplanation)
	ops := s.FileOps()
	refinements := append(append([]string{}, s.RefinementHistory...), refinement)
	previousError := ""
	if s.ExecutionResult != nil && !s.ExecutionResult.Success {
		previousError = s.ExecutionResult.FinalError
	}
	o.mu.Unlock()

	script, err := o.generator.RefineScript(ctx, description, ops, refinements, previousError)
	if err != nil {
		return nil, err
	}
	summary := o.generator.Summarize(ctx, script)

	o.mu.Lock()
	defer o.mu.Unlock()
	if s.Status != domain.StatusExplained {
		return nil, fmt.Errorf("%w: suggestion changed during refinement", domain.ErrInvalidTransition)
	}
	s.RefinementHistory = append(s.RefinementHistory, refinement)
	s.GeneratedScript = script
	s.ScriptSummary = summary
	o.log.Info("script refined", map[string]interface{}{
		"suggestion_id": id,
		"refinements":   len(s.RefinementHistory),
	})
	return o.copyOf(s), nil
}

// ConfirmAndExecute moves an explained suggestion to executing and runs the
// script in the background. The final status (completed or failed) and the
// execution record land on the suggestion when the run finishes; poll Get
// to observe them. Only completed runs are estimated and counted toward
// the time-saved total; failures keep final_error and nothing else.
func (o *Orchestrator) ConfirmAndExecute(ctx context.Context, id string) (*domain.PendingSuggestion, error) {
	o.mu.Lock()
	s, ok := o.suggestions[id]
	if !ok {
		o.mu.Unlock()
		return nil, domain.ErrSuggestionNotFound
	}
	if s.Status != domain.StatusExplained {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot execute suggestion in status %q", domain.ErrInvalidTransition, s.Status)
	}
	if strings.TrimSpace(s.GeneratedScript) == "" {
		o.mu.Unlock()
		return nil, domain.ErrNoScript
	}
	s.Status = domain.StatusExecuting
	script, explanation := s.GeneratedScript, s.UserExplanation
	snapshot := o.copyOf(s)
	o.mu.Unlock()

	o.execWG.Add(1)
	go func() {
		defer o.execWG.Done()
		record := o.executor.ExecuteAutomation(ctx, script, explanation)
		var est *domain.TimeEstimate
		if record.Success {
			e := o.estimator.Estimate(ctx, script, explanation, record)
			est = &e
		}
		o.finishExecution(id, record, est)
	}()
	return snapshot, nil
}

func (o *Orchestrator) finishExecution(id string, record domain.ExecutionRecord, est *domain.TimeEstimate) {
	o.mu.Lock()
	s, ok := o.suggestions[id]
	if !ok {
		o.mu.Unlock()
		return
	}
	s.ExecutionResult = &record
	saved := 0
	if record.Success {
		s.Status = domain.StatusCompleted
		if est != nil {
			s.TimeEstimation = est
			s.TimeSavedSeconds = est.EstimatedSeconds
			saved = est.EstimatedSeconds
			o.totalSaved += saved
		}
	} else {
		s.Status = domain.StatusFailed
	}
	at := o.now()
	o.mu.Unlock()

	if saved > 0 && o.store != nil {
		if err := o.store.AddTimeSaved(id, saved, at); err != nil {
			o.log.Warn("record time saved failed", map[string]interface{}{
				"suggestion_id": id,
				"error":         err.Error(),
			})
		}
	}
	o.log.Info("execution finished", map[string]interface{}{
		"suggestion_id":      id,
		"success":            record.Success,
		"time_saved_seconds": saved,
	})
}

// Mute suppresses suggestion creation for the given duration. A zero or
// negative duration clears the mute.
func (o *Orchestrator) Mute(d time.Duration) time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	if d <= 0 {
		o.muteUntil = time.Time{}
	} else {
		o.muteUntil = o.now().Add(d)
	}
	return o.muteUntil
}

// Muted reports whether suggestion creation is currently muted.
func (o *Orchestrator) Muted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now().Before(o.muteUntil)
}

// Get returns a copy of the suggestion with the given ID.
func (o *Orchestrator) Get(id string) (*domain.PendingSuggestion, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.suggestions[id]
	if !ok {
		return nil, domain.ErrSuggestionNotFound
	}
	return o.copyOf(s), nil
}

// Pending returns copies of every tracked suggestion in creation order.
func (o *Orchestrator) Pending() []*domain.PendingSuggestion {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*domain.PendingSuggestion, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.copyOf(o.suggestions[id]))
	}
	return out
}

// TotalTimeSaved returns the accumulated time-saved seconds, restored
// total included.
func (o *Orchestrator) TotalTimeSaved() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.totalSaved
}

// Flush persists the current suggestion set. Called periodically by the
// persistence worker and once at shutdown.
func (o *Orchestrator) Flush() error {
	if o.store == nil {
		return nil
	}
	o.mu.Lock()
	snapshot := make([]*domain.PendingSuggestion, 0, len(o.order))
	for _, id := range o.order {
		snapshot = append(snapshot, o.copyOf(o.suggestions[id]))
	}
	o.mu.Unlock()
	return o.store.SaveSuggestions(snapshot)
}

// WaitExecutions blocks until all in-flight background executions finish.
func (o *Orchestrator) WaitExecutions() {
	o.execWG.Wait()
}

// copyOf returns a detached copy so callers never alias guarded state.
// Callers must hold o.mu.
func (o *Orchestrator) copyOf(s *domain.PendingSuggestion) *domain.PendingSuggestion {
	c := *s
	c.Actions = append([]domain.UserAction{}, s.Actions...)
	c.RefinementHistory = append([]string{}, s.RefinementHistory...)
	if s.ExecutionResult != nil {
		rec := *s.ExecutionResult
		c.ExecutionResult = &rec
	}
	if s.TimeEstimation != nil {
		est := *s.TimeEstimation
		c.TimeEstimation = &est
	}
	return &c
}

func explainedDescription(pattern, explanation string) string {
	return fmt.Sprintf("%s\n\nUser's explanation of what they were doing:\n%s", pattern, explanation)
}

func (o *Orchestrator) window() time.Duration {
	if o.settings.WindowSeconds > 0 {
		return o.settings.Window()
	}
	return 30 * time.Second
}

func (o *Orchestrator) minActions() int {
	if o.settings.MinActions > 0 {
		return o.settings.MinActions
	}
	return 3
}

func (o *Orchestrator) maxWindowActions() int {
	if o.settings.MaxWindowActions > 0 {
		return o.settings.MaxWindowActions
	}
	return 50
}

func (o *Orchestrator) suggestionCooldown() time.Duration {
	if o.settings.SuggestionCooldownSeconds > 0 {
		return o.settings.SuggestionCooldown()
	}
	return 60 * time.Second
}

func (o *Orchestrator) ignoreTTL() time.Duration {
	if o.settings.IgnoreTTLHours > 0 {
		return o.settings.IgnoreTTL()
	}
	return 24 * time.Hour
}
