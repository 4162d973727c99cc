package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/fanout"
	"github.com/magpie-engine/magpie/internal/metrics"
	"github.com/magpie-engine/magpie/internal/plugin"
)

// ContentSourcesAction is the lifecycle action that drives content sources.
// On start it binds the pipeline executor to the task executor and starts
// every registered source concurrently; on stop it stops them in reverse
// registration order. Source failures are isolated per source.
type ContentSourcesAction struct {
	mu       sync.Mutex
	started  []startedSource
	executor *Executor
}

type startedSource struct {
	source plugin.ContentSource
	host   plugin.SourceHost
}

// NewContentSourcesAction returns the action; register it as a lifecycle
// action alongside the content plugins it will drive.
func NewContentSourcesAction() *ContentSourcesAction {
	return &ContentSourcesAction{}
}

// ConfigurationID identifies the action for state partitioning and logs.
func (a *ContentSourcesAction) ConfigurationID() string { return "pipeline.sources" }

// OnStart wires the pipeline and starts every content source.
func (a *ContentSourcesAction) OnStart(ctx context.Context, h plugin.LifecycleHost) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	deps := DepsFromHost(h)
	a.executor = NewExecutor(deps)
	if deps.Tasks != nil {
		deps.Tasks.Bind(a.executor.Handle)
	}

	sources := deps.Registry.ContentSources()

	// Each goroutine writes only its own slot, keeping the started list in
	// registration order so OnStop can reverse it deterministically.
	results := make([]*startedSource, len(sources))
	failed := fanout.Run(ctx, deps.Logger, "source_start", len(sources),
		func(i int) string { return sources[i].ConfigurationID() },
		func(ctx context.Context, i int) error {
			sh := a.executor.SourceHost(sources[i].ConfigurationID())
			if err := sources[i].StartSource(ctx, sh); err != nil {
				metrics.ObservePluginFailure(string(plugin.PointContentSource))
				return err
			}
			results[i] = &startedSource{source: sources[i], host: sh}
			return nil
		})
	started := make([]startedSource, 0, len(sources))
	for _, s := range results {
		if s != nil {
			started = append(started, *s)
		}
	}
	a.started = started

	h.Logger().Info("content sources started",
		zap.Int("started", len(started)),
		zap.Int("failed", failed),
	)
	return nil
}

// OnStop stops the sources that started, most recent first.
func (a *ContentSourcesAction) OnStop(ctx context.Context, h plugin.LifecycleHost) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	started := a.started
	a.started = nil
	for i, j := 0, len(started)-1; i < j; i, j = i+1, j-1 {
		started[i], started[j] = started[j], started[i]
	}
	failed := fanout.Run(ctx, h.Logger(), "source_stop", len(started),
		func(i int) string { return started[i].source.ConfigurationID() },
		func(ctx context.Context, i int) error {
			return started[i].source.StopSource(ctx, started[i].host)
		})
	if failed > 0 {
		h.Logger().Warn("content sources failed to stop", zap.Int("failed", failed))
	}
	return nil
}
