// Package host builds the concrete capability surfaces handed to plugins.
// A host is constructed per plugin per invocation; its identity is fixed at
// construction and prefixes every state-store access, so plugins can never
// read or clobber each other's entries.
package host

import (
	"context"

	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/cache"
	"github.com/magpie-engine/magpie/internal/config"
	"github.com/magpie-engine/magpie/internal/metadata"
	"github.com/magpie-engine/magpie/internal/plugin"
	"github.com/magpie-engine/magpie/internal/state"
	"github.com/magpie-engine/magpie/internal/store"
	"github.com/magpie-engine/magpie/internal/task"
)

// Scheduler hands pipeline work onward. The pipeline's executor implements
// it; hosts only carry it.
type Scheduler interface {
	ScheduleFetch(ctx context.Context, url string, md metadata.Metadata) (string, error)
	ScheduleExtract(ctx context.Context, content []byte, md metadata.Metadata) (string, error)
}

// Options carries everything common to all host flavors.
type Options struct {
	Identity string
	Logger   *zap.Logger
	Config   *config.Config
	States   state.Store
}

type base struct {
	identity string
	logger   *zap.Logger
	cfg      *config.Config
	states   *partitionedState
}

func newBase(o Options) base {
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{
		identity: o.Identity,
		logger:   logger.With(zap.String("plugin", o.Identity)),
		cfg:      o.Config,
		states:   &partitionedState{partition: o.Identity, store: o.States},
	}
}

func (b base) Identity() string       { return b.identity }
func (b base) Logger() *zap.Logger    { return b.logger }
func (b base) Config() *config.Config { return b.cfg }
func (b base) State() plugin.State    { return b.states }

// partitionedState scopes a shared state.Store to one plugin's partition.
type partitionedState struct {
	partition string
	store     state.Store
}

func (p *partitionedState) Put(ctx context.Context, key, value string, version int) error {
	return p.store.Put(ctx, p.partition, key, value, version)
}

func (p *partitionedState) Get(ctx context.Context, key string) (state.Entry, bool, error) {
	return p.store.Get(ctx, p.partition, key)
}

func (p *partitionedState) Versioned(ctx context.Context, olderThan int) ([]state.Entry, error) {
	return p.store.Versioned(ctx, p.partition, olderThan)
}

func (p *partitionedState) KeysWithValue(ctx context.Context, value string) ([]string, error) {
	return p.store.KeysWithValue(ctx, p.partition, value)
}

func (p *partitionedState) Purge(ctx context.Context) error {
	return p.store.Purge(ctx, p.partition)
}

type sourceHost struct {
	base
	scheduler Scheduler
}

// NewSourceHost builds the host for a content source. A nil scheduler is
// valid and means fetch scheduling is unavailable.
func NewSourceHost(o Options, scheduler Scheduler) plugin.SourceHost {
	return &sourceHost{base: newBase(o), scheduler: scheduler}
}

func (h *sourceHost) ScheduleFetch(ctx context.Context, url string, md metadata.Metadata) (string, error) {
	if h.scheduler == nil {
		h.logger.Warn("fetch not scheduled, no task execution provider configured",
			zap.String("url", url))
		return "", nil
	}
	return h.scheduler.ScheduleFetch(ctx, url, md)
}

type fetcherHost struct {
	base
	scheduler Scheduler
}

// NewFetcherHost builds the host for a content fetcher.
func NewFetcherHost(o Options, scheduler Scheduler) plugin.FetcherHost {
	return &fetcherHost{base: newBase(o), scheduler: scheduler}
}

func (h *fetcherHost) ExtractFile(ctx context.Context, content []byte, md metadata.Metadata) (string, error) {
	if h.scheduler == nil {
		h.logger.Warn("extraction not scheduled, no task execution provider configured",
			zap.String("source_url", md.SourceURL))
		return "", nil
	}
	return h.scheduler.ScheduleExtract(ctx, content, md)
}

type extractorHost struct {
	base
	cache cache.Cache
	data  store.DataStore
}

// NewExtractorHost builds the host for a content extractor.
func NewExtractorHost(o Options, c cache.Cache, data store.DataStore) plugin.ExtractorHost {
	return &extractorHost{base: newBase(o), cache: c, data: data}
}

func (h *extractorHost) Cache() cache.Cache         { return h.cache }
func (h *extractorHost) DataStore() store.DataStore { return h.data }

type lifecycleHost struct {
	base
	registry *plugin.Registry
	cache    cache.Cache
	states   state.Store
	data     store.DataStore
	tasks    task.Executor
}

// LifecycleOptions extends Options with the full singleton set for
// lifecycle and reset actions.
type LifecycleOptions struct {
	Options
	Registry *plugin.Registry
	Cache    cache.Cache
	Data     store.DataStore
	Tasks    task.Executor
}

// NewLifecycleHost builds the host for lifecycle and reset actions.
func NewLifecycleHost(o LifecycleOptions) plugin.LifecycleHost {
	return &lifecycleHost{
		base:     newBase(o.Options),
		registry: o.Registry,
		cache:    o.Cache,
		states:   o.States,
		data:     o.Data,
		tasks:    o.Tasks,
	}
}

func (h *lifecycleHost) Registry() *plugin.Registry { return h.registry }
func (h *lifecycleHost) Cache() cache.Cache         { return h.cache }
func (h *lifecycleHost) StateStore() state.Store    { return h.states }
func (h *lifecycleHost) DataStore() store.DataStore { return h.data }
func (h *lifecycleHost) Tasks() task.Executor       { return h.tasks }
