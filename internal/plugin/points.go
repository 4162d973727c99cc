// Package plugin defines the engine's extension points, the named
// capability contracts independently-authored plugins implement, and the
// registry that validates and stores registrations. Capability checks are
// explicit interface assertions made once at registration time; a rejected
// registration is logged and reported, never fatal, so one bad plugin cannot
// block discovery of the rest.
package plugin

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/cache"
	"github.com/magpie-engine/magpie/internal/config"
	"github.com/magpie-engine/magpie/internal/metadata"
	"github.com/magpie-engine/magpie/internal/state"
	"github.com/magpie-engine/magpie/internal/store"
	"github.com/magpie-engine/magpie/internal/task"
)

// ExtensionPoint names one capability contract.
type ExtensionPoint string

// The engine's extension points.
const (
	PointConfigurationProvider ExtensionPoint = "configuration-provider"
	PointCacheProvider         ExtensionPoint = "cache-provider"
	PointStateStoreProvider    ExtensionPoint = "state-store-provider"
	PointDataStoreProvider     ExtensionPoint = "data-store-provider"
	PointTaskExecutionProvider ExtensionPoint = "task-execution-provider"
	PointContentSource         ExtensionPoint = "content-source"
	PointContentFetcher        ExtensionPoint = "content-fetcher"
	PointContentExtractor      ExtensionPoint = "content-extractor"
	PointLifecycleAction       ExtensionPoint = "lifecycle-action"
	PointResetAction           ExtensionPoint = "reset-action"
	PointCommandRegistrar      ExtensionPoint = "command-registrar"
)

// Points lists every extension point, in the order RegisterAll probes them.
func Points() []ExtensionPoint {
	return []ExtensionPoint{
		PointConfigurationProvider,
		PointCacheProvider,
		PointStateStoreProvider,
		PointDataStoreProvider,
		PointTaskExecutionProvider,
		PointContentSource,
		PointContentFetcher,
		PointContentExtractor,
		PointLifecycleAction,
		PointResetAction,
		PointCommandRegistrar,
	}
}

// ConfigurationProvider contributes a default configuration document to the
// layered merge.
type ConfigurationProvider interface {
	ConfigurationID() string
	DefaultConfiguration() map[string]any
}

// CacheProvider creates the cache singleton for a deployment profile.
type CacheProvider interface {
	ProviderID() string
	CreateCache(cfg *config.Config) (cache.Cache, error)
}

// StateStoreProvider creates the state-store singleton.
type StateStoreProvider interface {
	ProviderID() string
	CreateStateStore(ctx context.Context, cfg *config.Config) (state.Store, error)
}

// DataStoreProvider creates the data-store singleton.
type DataStoreProvider interface {
	ProviderID() string
	CreateDataStore(ctx context.Context, cfg *config.Config) (store.DataStore, error)
}

// TaskExecutionProvider creates the task executor. This provider kind is
// optional: with none registered the engine runs without pipeline
// scheduling.
type TaskExecutionProvider interface {
	ProviderID() string
	CreateExecutor(ctx context.Context, cfg *config.Config) (task.Executor, error)
}

// State is the partitioned state facade a host hands its plugin. Every call
// is namespaced by the owning plugin's identity; the same entry key used by
// two different plugins never collides.
type State interface {
	Put(ctx context.Context, key, value string, version int) error
	Get(ctx context.Context, key string) (state.Entry, bool, error)
	Versioned(ctx context.Context, olderThan int) ([]state.Entry, error)
	KeysWithValue(ctx context.Context, value string) ([]string, error)
	Purge(ctx context.Context) error
}

// Host is the capability surface every plugin receives at invocation time.
// Identity is fixed when the host is constructed, never inferred from the
// call chain.
type Host interface {
	Identity() string
	Logger() *zap.Logger
	Config() *config.Config
	State() State
}

// SourceHost extends Host with fetch scheduling. ScheduleFetch is
// fire-and-forget from the source's perspective; it returns an opaque task
// id, or "" when no task-execution provider is configured.
type SourceHost interface {
	Host
	ScheduleFetch(ctx context.Context, url string, md metadata.Metadata) (string, error)
}

// FetcherHost extends Host with extraction scheduling for fetched bytes.
type FetcherHost interface {
	Host
	ExtractFile(ctx context.Context, content []byte, md metadata.Metadata) (string, error)
}

// ExtractorHost extends Host with the singletons an extractor may touch:
// the cache and the terminal data store.
type ExtractorHost interface {
	Host
	Cache() cache.Cache
	DataStore() store.DataStore
}

// LifecycleHost is handed to lifecycle and reset actions; it exposes the
// full singleton set.
type LifecycleHost interface {
	Host
	Registry() *Registry
	Cache() cache.Cache
	StateStore() state.Store
	DataStore() store.DataStore
	Tasks() task.Executor // nil when no task-execution provider is configured
}

// DiscoveredItem is one (url, metadata) pair produced by a content source.
type DiscoveredItem struct {
	URL      string
	Metadata metadata.Metadata
}

// ContentSource enumerates content to ingest. DiscoverContent is a one-shot
// enumeration re-run at each lifecycle start, not a live stream.
type ContentSource interface {
	ConfigurationID() string
	DiscoverContent(ctx context.Context, h SourceHost) ([]DiscoveredItem, error)
	StartSource(ctx context.Context, h SourceHost) error
	StopSource(ctx context.Context, h SourceHost) error
}

// ContentFetcher retrieves raw bytes for a URL. Selection is first-match by
// registration order over CanFetch; a broken predicate is a programming
// error and fails loudly at selection time.
type ContentFetcher interface {
	CanFetch(h FetcherHost, url string) bool
	Fetch(ctx context.Context, h FetcherHost, url string, md metadata.Metadata) error
}

// ContentExtractor derives text and refined metadata from fetched bytes and
// stores the result. PreferredMimeTypes is advisory metadata only; dispatch
// is first-match over CanExtract.
type ContentExtractor interface {
	CanExtract(url, mimeType string) bool
	PreferredMimeTypes() []string
	Extract(ctx context.Context, h ExtractorHost, content []byte, md metadata.Metadata) error
}

// LifecycleAction participates in engine startup and shutdown. Hook
// failures are isolated per action and never abort siblings.
type LifecycleAction interface {
	OnStart(ctx context.Context, h LifecycleHost) error
	OnStop(ctx context.Context, h LifecycleHost) error
}

// ResetAction clears plugin-owned state on operator request.
type ResetAction interface {
	HardReset(ctx context.Context, h LifecycleHost, cfg *config.Config) error
	SoftReset(ctx context.Context, h LifecycleHost, cfg *config.Config) error
}

// CommandRegistrar lets a plugin attach subcommands to the CLI root.
type CommandRegistrar interface {
	RegisterCommands(root *cobra.Command)
}
