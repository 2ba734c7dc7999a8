// Package app wires the application's dependency graph.
package app

import (
	"context"

	"github.com/halcyon-dev/flowpilot/internal/detect"
	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/estimate"
	"github.com/halcyon-dev/flowpilot/internal/infrastructure/config"
	"github.com/halcyon-dev/flowpilot/internal/infrastructure/oracle"
	"github.com/halcyon-dev/flowpilot/internal/infrastructure/persistence"
	"github.com/halcyon-dev/flowpilot/internal/infrastructure/pyenv"
	"github.com/halcyon-dev/flowpilot/internal/orchestrator"
	"github.com/halcyon-dev/flowpilot/internal/pkg/logger"
	"github.com/halcyon-dev/flowpilot/internal/ports"
	"github.com/halcyon-dev/flowpilot/internal/registry"
	"github.com/halcyon-dev/flowpilot/internal/sandbox"
	"github.com/halcyon-dev/flowpilot/internal/scripts"
)

// Container holds the wired application services.
type Container struct {
	Config       domain.Config
	ConfigLoader *config.FileLoader
	Logger       ports.Logger
	Store        ports.Store
	Registry     *registry.Registry
	Policy       *sandbox.Policy
	Executor     *sandbox.Executor
	Orchestrator *orchestrator.Orchestrator
	Workers      *orchestrator.Workers
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, verbose bool) (*Container, error) {
	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.NewStd(verbose)

	store, err := persistence.NewSQLiteStore(cfg.Persistence.Path)
	if err != nil {
		return nil, err
	}

	factory := oracle.NewFactory()
	baseOracle, err := factory.ForSettings(cfg.Oracle)
	if err != nil {
		return nil, err
	}
	detectOracle := oracle.NewLogging(baseOracle, "pattern_detector", store, log)
	scriptOracle := oracle.NewLogging(baseOracle, "script_generator", store, log)
	summaryOracle := oracle.NewLogging(baseOracle, "summarizer", store, log)
	estimateOracle := oracle.NewLogging(baseOracle, "time_estimator", store, log)

	reg := registry.New(cfg.Registry.Capacity)
	pipeline := detect.NewPipeline(detectOracle, log)
	detector := detect.NewShortTermDetector(detectOracle, log, cfg.Detection.DetectorCooldown())
	generator := scripts.NewGenerator(scriptOracle, log)
	summarizer := detect.NewLongTermSummarizer(summaryOracle, log, cfg.Summaries.MinMinuteSummaries)
	estimator := estimate.New(estimateOracle, log)

	policy, err := sandbox.LoadPolicy(cfg.Executor.PolicyFile)
	if err != nil {
		return nil, err
	}
	runner := pyenv.NewRunner(cfg.Executor.Interpreter)
	installer := pyenv.NewInstaller(cfg.Executor.Interpreter, cfg.Executor.InstallTimeout())
	executor := sandbox.NewExecutor(policy, installer, runner, store, log, cfg.Executor.MaxRetries, cfg.Executor.ScriptTimeout())

	orch := orchestrator.New(reg, pipeline, detector, generator, executor, estimator, store, log, cfg.Detection)
	workers := orchestrator.NewWorkers(orch, reg, summarizer, store, log, cfg)

	return &Container{
		Config:       cfg,
		ConfigLoader: cfgLoader,
		Logger:       log,
		Store:        store,
		Registry:     reg,
		Policy:       policy,
		Executor:     executor,
		Orchestrator: orch,
		Workers:      workers,
	}, nil
}

// Close releases the container's resources.
func (c *Container) Close() error {
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
