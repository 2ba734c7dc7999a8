package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/halcyon-dev/flowpilot/internal/detect"
	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/ports"
	"github.com/halcyon-dev/flowpilot/internal/registry"
)

// Worker cadences when the configuration leaves them unset.
const (
	defaultDetectInterval    = 5 * time.Second
	defaultMinuteInterval    = time.Minute
	defaultTenMinuteInterval = 10 * time.Minute
	defaultFlushInterval     = 30 * time.Second
)

// errorBackoff is applied after a failed worker cycle so a broken oracle
// or store does not get hammered in a tight loop.
const errorBackoff = 10 * time.Second

// Workers supervises the periodic goroutines: the detection cycle, the
// two summary tiers and the persistence flush. All of them stop when the
// supplied context is cancelled; Stop then waits for them to drain.
type Workers struct {
	orch       *Orchestrator
	reg        *registry.Registry
	summarizer *detect.LongTermSummarizer
	store      ports.Store
	log        ports.Logger

	detectInterval    time.Duration
	minuteInterval    time.Duration
	tenMinuteInterval time.Duration
	flushInterval     time.Duration
	summariesEnabled  bool

	mu              sync.Mutex
	minuteSummaries []string

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewWorkers builds the worker supervisor from the configuration.
func NewWorkers(orch *Orchestrator, reg *registry.Registry, summarizer *detect.LongTermSummarizer, store ports.Store, log ports.Logger, cfg domain.Config) *Workers {
	w := &Workers{
		orch:              orch,
		reg:               reg,
		summarizer:        summarizer,
		store:             store,
		log:               log,
		detectInterval:    defaultDetectInterval,
		minuteInterval:    defaultMinuteInterval,
		tenMinuteInterval: defaultTenMinuteInterval,
		flushInterval:     defaultFlushInterval,
		summariesEnabled:  cfg.Summaries.Enabled,
	}
	if cfg.Summaries.MinuteIntervalSeconds > 0 {
		w.minuteInterval = time.Duration(cfg.Summaries.MinuteIntervalSeconds) * time.Second
	}
	if cfg.Summaries.TenMinIntervalSeconds > 0 {
		w.tenMinuteInterval = time.Duration(cfg.Summaries.TenMinIntervalSeconds) * time.Second
	}
	if cfg.Persistence.FlushSeconds > 0 {
		w.flushInterval = cfg.Persistence.FlushInterval()
	}
	return w
}

// Start launches the workers. Call Stop to shut them down.
func (w *Workers) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.run(ctx, "detect", w.detectInterval, w.detectCycle)
	w.run(ctx, "flush", w.flushInterval, w.flushCycle)
	if w.summariesEnabled {
		w.run(ctx, "minute-summary", w.minuteInterval, w.minuteCycle)
		w.run(ctx, "ten-minute-summary", w.tenMinuteInterval, w.tenMinuteCycle)
	}
	w.log.Info("workers started", map[string]interface{}{
		"summaries": w.summariesEnabled,
	})
}

// Stop cancels the workers, waits for them, drains in-flight executions
// and performs a final flush.
func (w *Workers) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.orch.WaitExecutions()
	if err := w.orch.Flush(); err != nil {
		w.log.Warn("final flush failed", map[string]interface{}{"error": err.Error()})
	}
	w.log.Info("workers stopped", nil)
}

// run drives one worker loop. A failed cycle is logged and followed by a
// backoff instead of crashing the loop.
func (w *Workers) run(ctx context.Context, name string, interval time.Duration, cycle func(context.Context) error) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cycle(ctx); err != nil {
					w.log.Warn("worker cycle failed", map[string]interface{}{
						"worker": name,
						"error":  err.Error(),
					})
					select {
					case <-ctx.Done():
						return
					case <-time.After(errorBackoff):
					}
				}
			}
		}
	}()
}

func (w *Workers) detectCycle(ctx context.Context) error {
	_, err := w.orch.DetectCycle(ctx)
	return err
}

func (w *Workers) flushCycle(context.Context) error {
	return w.orch.Flush()
}

func (w *Workers) minuteCycle(ctx context.Context) error {
	actions := w.reg.Recent(w.minuteInterval)
	summary, err := w.summarizer.MinuteSummary(ctx, actions)
	if err != nil {
		return err
	}
	if summary == "" {
		return nil
	}

	w.mu.Lock()
	w.minuteSummaries = append(w.minuteSummaries, summary)
	w.mu.Unlock()

	w.saveSummary("minute", summary)
	return nil
}

func (w *Workers) tenMinuteCycle(ctx context.Context) error {
	w.mu.Lock()
	batch := w.minuteSummaries
	w.mu.Unlock()

	summary, err := w.summarizer.TenMinuteSummary(ctx, batch)
	if err != nil {
		return err
	}
	if summary == "" {
		return nil
	}

	// The consumed minute summaries are cleared; newer ones registered
	// during the oracle call are kept for the next tier run.
	w.mu.Lock()
	w.minuteSummaries = w.minuteSummaries[len(batch):]
	w.mu.Unlock()

	w.saveSummary("ten_minute", summary)
	return nil
}

func (w *Workers) saveSummary(kind, text string) {
	if w.store == nil {
		return
	}
	err := w.store.SaveSummary(domain.ActivitySummary{
		Kind:      kind,
		Timestamp: time.Now(),
		Text:      text,
	})
	if err != nil {
		w.log.Warn("persist summary failed", map[string]interface{}{
			"kind":  kind,
			"error": err.Error(),
		})
	}
}
