// Package pipeline implements the discover, fetch, extract, store flow on
// top of the task-execution abstraction. The Executor here is the task
// handler both execution models share: the immediate executor calls it
// inline, the queue worker calls it from a separate process.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/cache"
	"github.com/magpie-engine/magpie/internal/config"
	"github.com/magpie-engine/magpie/internal/host"
	"github.com/magpie-engine/magpie/internal/metadata"
	"github.com/magpie-engine/magpie/internal/metrics"
	"github.com/magpie-engine/magpie/internal/plugin"
	"github.com/magpie-engine/magpie/internal/state"
	"github.com/magpie-engine/magpie/internal/store"
	"github.com/magpie-engine/magpie/internal/task"
)

// Deps is everything the pipeline needs to run a task end to end.
type Deps struct {
	Logger   *zap.Logger
	Config   *config.Config
	Registry *plugin.Registry
	States   state.Store
	Cache    cache.Cache
	Data     store.DataStore
	Tasks    task.Executor // nil disables scheduling, tasks still execute
}

// DepsFromHost pulls pipeline dependencies out of a lifecycle host.
func DepsFromHost(h plugin.LifecycleHost) Deps {
	return Deps{
		Logger:   h.Logger(),
		Config:   h.Config(),
		Registry: h.Registry(),
		States:   h.StateStore(),
		Cache:    h.Cache(),
		Data:     h.DataStore(),
		Tasks:    h.Tasks(),
	}
}

// Executor dispatches pipeline tasks to the matching fetcher or extractor.
type Executor struct {
	deps Deps
}

// NewExecutor builds a pipeline executor over the given dependencies.
func NewExecutor(deps Deps) *Executor {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Executor{deps: deps}
}

// Handle executes one task. Fetch tasks go to the first registered fetcher
// whose CanFetch accepts the URL; extract tasks to the first extractor
// whose CanExtract accepts the URL and mime type. Selection predicates are
// trusted plugin code and are not isolated; a panic there is a programming
// error.
func (e *Executor) Handle(ctx context.Context, t task.Task) error {
	switch t.Kind {
	case task.KindFetch:
		return e.handleFetch(ctx, t)
	case task.KindExtract:
		return e.handleExtract(ctx, t)
	default:
		return fmt.Errorf("unknown task kind %q", t.Kind)
	}
}

func (e *Executor) handleFetch(ctx context.Context, t task.Task) error {
	for _, f := range e.deps.Registry.ContentFetchers() {
		identity := plugin.Identity(f)
		h := e.fetcherHost(identity)
		if !f.CanFetch(h, t.URL) {
			continue
		}
		if err := f.Fetch(ctx, h, t.URL, t.Metadata); err != nil {
			metrics.ObserveFetch(identity, "error")
			return fmt.Errorf("fetch %s with %s: %w", t.URL, identity, err)
		}
		metrics.ObserveFetch(identity, "ok")
		return nil
	}
	return fmt.Errorf("no fetcher accepts %s", t.URL)
}

func (e *Executor) handleExtract(ctx context.Context, t task.Task) error {
	for _, x := range e.deps.Registry.ContentExtractors() {
		if !x.CanExtract(t.URL, t.Metadata.MimeType) {
			continue
		}
		identity := plugin.Identity(x)
		h := e.extractorHost(identity)
		if err := x.Extract(ctx, h, t.Content, t.Metadata); err != nil {
			metrics.ObserveExtract(identity, "error")
			return fmt.Errorf("extract %s with %s: %w", t.URL, identity, err)
		}
		metrics.ObserveExtract(identity, "ok")
		metrics.ObserveStored(t.Metadata.MimeType)
		return nil
	}
	return fmt.Errorf("no extractor accepts %s (mime %q)", t.URL, t.Metadata.MimeType)
}

// ScheduleFetch enqueues a fetch task for the URL, stamping the metadata
// into the scheduled state. It returns the task id, or "" with a warning
// when no task executor is configured.
func (e *Executor) ScheduleFetch(ctx context.Context, url string, md metadata.Metadata) (string, error) {
	if e.deps.Tasks == nil {
		e.deps.Logger.Warn("fetch not scheduled, no task executor", zap.String("url", url))
		return "", nil
	}
	t := task.Task{
		Kind:     task.KindFetch,
		URL:      url,
		Metadata: md.Copy(metadata.ProcessingState(metadata.StateFetchScheduled)),
	}
	id, err := e.deps.Tasks.Schedule(ctx, t)
	if err != nil {
		return "", fmt.Errorf("schedule fetch for %s: %w", url, err)
	}
	metrics.ObserveTaskScheduled(string(task.KindFetch), "default")
	return id, nil
}

// ScheduleExtract enqueues an extract task carrying the fetched bytes.
func (e *Executor) ScheduleExtract(ctx context.Context, content []byte, md metadata.Metadata) (string, error) {
	if e.deps.Tasks == nil {
		e.deps.Logger.Warn("extract not scheduled, no task executor",
			zap.String("source_url", md.SourceURL))
		return "", nil
	}
	t := task.Task{
		Kind:     task.KindExtract,
		URL:      md.SourceURL,
		Content:  content,
		Metadata: md.Copy(metadata.ProcessingState(metadata.StateExtractScheduled)),
	}
	id, err := e.deps.Tasks.Schedule(ctx, t)
	if err != nil {
		return "", fmt.Errorf("schedule extract for %s: %w", md.SourceURL, err)
	}
	metrics.ObserveTaskScheduled(string(task.KindExtract), "default")
	return id, nil
}

func (e *Executor) hostOptions(identity string) host.Options {
	return host.Options{
		Identity: identity,
		Logger:   e.deps.Logger,
		Config:   e.deps.Config,
		States:   e.deps.States,
	}
}

func (e *Executor) fetcherHost(identity string) plugin.FetcherHost {
	return host.NewFetcherHost(e.hostOptions(identity), e)
}

func (e *Executor) extractorHost(identity string) plugin.ExtractorHost {
	return host.NewExtractorHost(e.hostOptions(identity), e.deps.Cache, e.deps.Data)
}

// SourceHost builds the host a content source runs against.
func (e *Executor) SourceHost(identity string) plugin.SourceHost {
	return host.NewSourceHost(e.hostOptions(identity), e)
}
