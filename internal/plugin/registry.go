package plugin

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Registrar contributes registrations to a registry. Packages expose one so
// the binary can assemble its plugin set declaratively.
type Registrar func(r *Registry) error

// Registry holds every accepted registration, grouped by extension point and
// ordered by arrival. Registration order is meaningful: fetcher and
// extractor dispatch is first-match, and the first provider of each kind is
// the fallback singleton.
type Registry struct {
	mu     sync.RWMutex
	logger *zap.Logger

	configProviders []ConfigurationProvider
	cacheProviders  []CacheProvider
	stateProviders  []StateStoreProvider
	dataProviders   []DataStoreProvider
	taskProviders   []TaskExecutionProvider
	sources         []ContentSource
	fetchers        []ContentFetcher
	extractors      []ContentExtractor
	lifecycle       []LifecycleAction
	resets          []ResetAction
	commands        []CommandRegistrar
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

// Register offers impl at the given extension point. It returns false, with
// a warning logged, when impl does not satisfy the point's contract; the
// registry is left unchanged in that case. Duplicate registrations are
// accepted and retained in order.
func (r *Registry) Register(point ExtensionPoint, impl any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ok := false
	switch point {
	case PointConfigurationProvider:
		if p, is := impl.(ConfigurationProvider); is {
			r.configProviders = append(r.configProviders, p)
			ok = true
		}
	case PointCacheProvider:
		if p, is := impl.(CacheProvider); is {
			r.cacheProviders = append(r.cacheProviders, p)
			ok = true
		}
	case PointStateStoreProvider:
		if p, is := impl.(StateStoreProvider); is {
			r.stateProviders = append(r.stateProviders, p)
			ok = true
		}
	case PointDataStoreProvider:
		if p, is := impl.(DataStoreProvider); is {
			r.dataProviders = append(r.dataProviders, p)
			ok = true
		}
	case PointTaskExecutionProvider:
		if p, is := impl.(TaskExecutionProvider); is {
			r.taskProviders = append(r.taskProviders, p)
			ok = true
		}
	case PointContentSource:
		if p, is := impl.(ContentSource); is {
			r.sources = append(r.sources, p)
			ok = true
		}
	case PointContentFetcher:
		if p, is := impl.(ContentFetcher); is {
			r.fetchers = append(r.fetchers, p)
			ok = true
		}
	case PointContentExtractor:
		if p, is := impl.(ContentExtractor); is {
			r.extractors = append(r.extractors, p)
			ok = true
		}
	case PointLifecycleAction:
		if p, is := impl.(LifecycleAction); is {
			r.lifecycle = append(r.lifecycle, p)
			ok = true
		}
	case PointResetAction:
		if p, is := impl.(ResetAction); is {
			r.resets = append(r.resets, p)
			ok = true
		}
	case PointCommandRegistrar:
		if p, is := impl.(CommandRegistrar); is {
			r.commands = append(r.commands, p)
			ok = true
		}
	default:
		r.logger.Warn("registration at unknown extension point",
			zap.String("point", string(point)),
			zap.String("plugin", Identity(impl)),
		)
		return false
	}

	if !ok {
		r.logger.Warn("plugin does not satisfy extension point contract",
			zap.String("point", string(point)),
			zap.String("plugin", Identity(impl)),
		)
		return false
	}
	r.logger.Debug("plugin registered",
		zap.String("point", string(point)),
		zap.String("plugin", Identity(impl)),
	)
	return true
}

// RegisterAll probes impl against every extension point and registers it at
// each one it satisfies. It returns the points that accepted it.
func (r *Registry) RegisterAll(impl any) []ExtensionPoint {
	var accepted []ExtensionPoint
	for _, point := range Points() {
		if r.registerIfSatisfies(point, impl) {
			accepted = append(accepted, point)
		}
	}
	return accepted
}

// registerIfSatisfies is Register without the mismatch warning, for use by
// RegisterAll where non-satisfaction is expected.
func (r *Registry) registerIfSatisfies(point ExtensionPoint, impl any) bool {
	satisfies := false
	switch point {
	case PointConfigurationProvider:
		_, satisfies = impl.(ConfigurationProvider)
	case PointCacheProvider:
		_, satisfies = impl.(CacheProvider)
	case PointStateStoreProvider:
		_, satisfies = impl.(StateStoreProvider)
	case PointDataStoreProvider:
		_, satisfies = impl.(DataStoreProvider)
	case PointTaskExecutionProvider:
		_, satisfies = impl.(TaskExecutionProvider)
	case PointContentSource:
		_, satisfies = impl.(ContentSource)
	case PointContentFetcher:
		_, satisfies = impl.(ContentFetcher)
	case PointContentExtractor:
		_, satisfies = impl.(ContentExtractor)
	case PointLifecycleAction:
		_, satisfies = impl.(LifecycleAction)
	case PointResetAction:
		_, satisfies = impl.(ResetAction)
	case PointCommandRegistrar:
		_, satisfies = impl.(CommandRegistrar)
	}
	if !satisfies {
		return false
	}
	return r.Register(point, impl)
}

// Discover runs each registrar in order, stopping at the first error.
func (r *Registry) Discover(registrars ...Registrar) error {
	for _, reg := range registrars {
		if err := reg(r); err != nil {
			return fmt.Errorf("plugin discovery: %w", err)
		}
	}
	return nil
}

// The getters return snapshot copies; mutating a returned slice never
// affects the registry's internal lists or registration order.

func (r *Registry) ConfigurationProviders() []ConfigurationProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.configProviders)
}

func (r *Registry) CacheProviders() []CacheProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.cacheProviders)
}

func (r *Registry) StateStoreProviders() []StateStoreProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.stateProviders)
}

func (r *Registry) DataStoreProviders() []DataStoreProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.dataProviders)
}

func (r *Registry) TaskExecutionProviders() []TaskExecutionProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.taskProviders)
}

func (r *Registry) ContentSources() []ContentSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sources)
}

func (r *Registry) ContentFetchers() []ContentFetcher {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.fetchers)
}

func (r *Registry) ContentExtractors() []ContentExtractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.extractors)
}

func (r *Registry) LifecycleActions() []LifecycleAction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.lifecycle)
}

func (r *Registry) ResetActions() []ResetAction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.resets)
}

func (r *Registry) CommandRegistrars() []CommandRegistrar {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.commands)
}

// Counts reports how many registrations each extension point holds.
func (r *Registry) Counts() map[ExtensionPoint]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[ExtensionPoint]int{
		PointConfigurationProvider: len(r.configProviders),
		PointCacheProvider:         len(r.cacheProviders),
		PointStateStoreProvider:    len(r.stateProviders),
		PointDataStoreProvider:     len(r.dataProviders),
		PointTaskExecutionProvider: len(r.taskProviders),
		PointContentSource:         len(r.sources),
		PointContentFetcher:        len(r.fetchers),
		PointContentExtractor:      len(r.extractors),
		PointLifecycleAction:       len(r.lifecycle),
		PointResetAction:           len(r.resets),
		PointCommandRegistrar:      len(r.commands),
	}
}

// Inventory lists the identity of every registration per extension point,
// in registration order.
func (r *Registry) Inventory() map[ExtensionPoint][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv := make(map[ExtensionPoint][]string)
	add := func(point ExtensionPoint, impls ...any) {
		for _, impl := range impls {
			inv[point] = append(inv[point], Identity(impl))
		}
	}
	for _, p := range r.configProviders {
		add(PointConfigurationProvider, p)
	}
	for _, p := range r.cacheProviders {
		add(PointCacheProvider, p)
	}
	for _, p := range r.stateProviders {
		add(PointStateStoreProvider, p)
	}
	for _, p := range r.dataProviders {
		add(PointDataStoreProvider, p)
	}
	for _, p := range r.taskProviders {
		add(PointTaskExecutionProvider, p)
	}
	for _, p := range r.sources {
		add(PointContentSource, p)
	}
	for _, p := range r.fetchers {
		add(PointContentFetcher, p)
	}
	for _, p := range r.extractors {
		add(PointContentExtractor, p)
	}
	for _, p := range r.lifecycle {
		add(PointLifecycleAction, p)
	}
	for _, p := range r.resets {
		add(PointResetAction, p)
	}
	for _, p := range r.commands {
		add(PointCommandRegistrar, p)
	}
	return inv
}
