// Package engine drives the lifecycle state machine: bootstrap, layered
// configuration, singleton selection, and the concurrent start/stop of
// lifecycle actions. All mutation goes through the Manager, which owns the
// current phase and the singleton set.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/cache"
	"github.com/magpie-engine/magpie/internal/config"
	"github.com/magpie-engine/magpie/internal/fanout"
	"github.com/magpie-engine/magpie/internal/host"
	"github.com/magpie-engine/magpie/internal/metrics"
	"github.com/magpie-engine/magpie/internal/plugin"
	"github.com/magpie-engine/magpie/internal/state"
	"github.com/magpie-engine/magpie/internal/store"
	"github.com/magpie-engine/magpie/internal/task"
)

// Phase is one step of the engine lifecycle.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseBootstrapped
	PhaseConfigured
	PhaseSingletonsReady
	PhaseRunning
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseBootstrapped:
		return "bootstrapped"
	case PhaseConfigured:
		return "configured"
	case PhaseSingletonsReady:
		return "singletons_ready"
	case PhaseRunning:
		return "running"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Singletons is the backend set selected during startup. Tasks is nil when
// no task-execution provider is registered or configured.
type Singletons struct {
	Cache  cache.Cache
	States state.Store
	Data   store.DataStore
	Tasks  task.Executor
}

// Manager owns the lifecycle. Methods are not safe for concurrent use with
// each other except where noted; callers serialize lifecycle transitions.
type Manager struct {
	logger   *zap.Logger
	registry *plugin.Registry

	phase      Phase
	cfg        *config.Config
	singletons Singletons
	startedAt  time.Time
}

// New returns a manager in the uninitialized phase.
func New(logger *zap.Logger, registry *plugin.Registry) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:   logger,
		registry: registry,
		phase:    PhaseUninitialized,
	}
}

// Phase reports the current lifecycle phase.
func (m *Manager) Phase() Phase { return m.phase }

// Config returns the active configuration, nil before the first startup.
func (m *Manager) Config() *config.Config { return m.cfg }

// Singletons returns the selected backend set.
func (m *Manager) Singletons() Singletons { return m.singletons }

// Registry returns the plugin registry the manager was built with.
func (m *Manager) Registry() *plugin.Registry { return m.registry }

// StartedAt reports when the engine last entered the running phase.
func (m *Manager) StartedAt() time.Time { return m.startedAt }

// Bootstrap brings the engine to the bootstrapped phase. It is idempotent
// and a no-op from any later phase.
func (m *Manager) Bootstrap() {
	if m.phase != PhaseUninitialized && m.phase != PhaseStopped {
		return
	}
	metrics.Init()
	m.phase = PhaseBootstrapped
	m.logger.Info("engine bootstrapped")
}

// ExecuteStartup runs the full startup sequence: build configuration from
// provider defaults plus the operator overrides, select one provider per
// backend kind, then run every lifecycle action's OnStart concurrently.
// Calling it while running is a no-op. A configuration or singleton failure
// rolls the engine back to uninitialized and returns the error; lifecycle
// action failures are isolated per action and never fail startup.
func (m *Manager) ExecuteStartup(ctx context.Context, overrides map[string]any) error {
	if m.phase == PhaseRunning {
		m.logger.Info("startup requested while running, ignoring")
		return nil
	}
	began := time.Now()
	if err := m.StartToSingletons(ctx, overrides); err != nil {
		return err
	}

	actions := m.registry.LifecycleActions()
	failed := fanout.Run(ctx, m.logger, "lifecycle_start", len(actions),
		func(i int) string { return plugin.Identity(actions[i]) },
		func(ctx context.Context, i int) error {
			h := m.lifecycleHost(plugin.Identity(actions[i]))
			if err := actions[i].OnStart(ctx, h); err != nil {
				metrics.ObservePluginFailure(string(plugin.PointLifecycleAction))
				return err
			}
			return nil
		})
	if failed > 0 {
		m.logger.Warn("lifecycle actions failed during startup",
			zap.Int("failed", failed), zap.Int("total", len(actions)))
	}

	m.phase = PhaseRunning
	m.startedAt = time.Now()
	metrics.ObserveStartup(time.Since(began))
	m.logger.Info("engine running",
		zap.Int("lifecycle_actions", len(actions)),
		zap.Int("lifecycle_failures", failed),
	)
	return nil
}

// StartToSingletons runs startup through singleton selection and stops
// there, leaving lifecycle actions untouched. Worker processes use it to
// share the engine's backends without starting content sources.
func (m *Manager) StartToSingletons(ctx context.Context, overrides map[string]any) error {
	if m.phase == PhaseRunning || m.phase == PhaseSingletonsReady {
		return nil
	}
	m.Bootstrap()

	m.buildConfig(overrides)
	m.phase = PhaseConfigured

	if err := m.selectSingletons(ctx); err != nil {
		m.rollback()
		return fmt.Errorf("singleton selection: %w", err)
	}
	m.phase = PhaseSingletonsReady
	return nil
}

// buildConfig layers every registered provider's defaults in registration
// order, then the operator overrides on top, diffing against the previous
// build when one exists.
func (m *Manager) buildConfig(overrides map[string]any) {
	providers := m.registry.ConfigurationProviders()
	defaults := make([]map[string]any, 0, len(providers))
	for _, p := range providers {
		defaults = append(defaults, p.DefaultConfiguration())
	}
	prev := m.cfg
	m.cfg = config.Build(defaults, overrides, prev)

	if prev != nil {
		d := m.cfg.LastDiff()
		m.logger.Info("configuration rebuilt",
			zap.Int("added", len(d.Added)),
			zap.Int("removed", len(d.Removed)),
			zap.Int("modified", len(d.Modified)),
		)
	} else {
		m.logger.Info("configuration built",
			zap.Int("providers", len(providers)),
		)
	}
}

// selectSingletons picks one provider per backend kind and instantiates it.
// Selection honors the engine.providers.<kind> configuration key, falling
// back to the first registered provider. Cache, state store, and data store
// are required; the task executor is optional.
func (m *Manager) selectSingletons(ctx context.Context) error {
	cacheProvider, err := pick(m.cfg, "cache", m.registry.CacheProviders(),
		func(p plugin.CacheProvider) string { return p.ProviderID() })
	if err != nil {
		return err
	}
	c, err := cacheProvider.CreateCache(m.cfg)
	if err != nil {
		return fmt.Errorf("create cache %q: %w", cacheProvider.ProviderID(), err)
	}

	stateProvider, err := pick(m.cfg, "state_store", m.registry.StateStoreProviders(),
		func(p plugin.StateStoreProvider) string { return p.ProviderID() })
	if err != nil {
		closeQuiet(m.logger, "cache", c.Close)
		return err
	}
	states, err := stateProvider.CreateStateStore(ctx, m.cfg)
	if err != nil {
		closeQuiet(m.logger, "cache", c.Close)
		return fmt.Errorf("create state store %q: %w", stateProvider.ProviderID(), err)
	}

	dataProvider, err := pick(m.cfg, "data_store", m.registry.DataStoreProviders(),
		func(p plugin.DataStoreProvider) string { return p.ProviderID() })
	if err != nil {
		closeQuiet(m.logger, "state store", states.Close)
		closeQuiet(m.logger, "cache", c.Close)
		return err
	}
	data, err := dataProvider.CreateDataStore(ctx, m.cfg)
	if err != nil {
		closeQuiet(m.logger, "state store", states.Close)
		closeQuiet(m.logger, "cache", c.Close)
		return fmt.Errorf("create data store %q: %w", dataProvider.ProviderID(), err)
	}

	var tasks task.Executor
	taskProviders := m.registry.TaskExecutionProviders()
	if len(taskProviders) == 0 {
		m.logger.Warn("no task execution provider registered, pipeline scheduling disabled")
	} else {
		taskProvider, err := pick(m.cfg, "tasks", taskProviders,
			func(p plugin.TaskExecutionProvider) string { return p.ProviderID() })
		if err != nil {
			closeAll(m.logger, Singletons{Cache: c, States: states, Data: data})
			return err
		}
		tasks, err = taskProvider.CreateExecutor(ctx, m.cfg)
		if err != nil {
			closeAll(m.logger, Singletons{Cache: c, States: states, Data: data})
			return fmt.Errorf("create task executor %q: %w", taskProvider.ProviderID(), err)
		}
	}

	m.singletons = Singletons{Cache: c, States: states, Data: data, Tasks: tasks}
	m.logger.Info("singletons selected",
		zap.String("cache", cacheProvider.ProviderID()),
		zap.String("state_store", stateProvider.ProviderID()),
		zap.String("data_store", dataProvider.ProviderID()),
		zap.String("tasks", providerIDOrNone(tasks, taskProviders, m.cfg)),
	)
	return nil
}

// pick resolves the provider for one backend kind. The configuration key
// engine.providers.<kind> names the winner; absent that, the first
// registered provider wins.
func pick[P any](cfg *config.Config, kind string, providers []P, id func(P) string) (P, error) {
	var zero P
	if len(providers) == 0 {
		return zero, fmt.Errorf("no %s provider registered", kind)
	}
	want := cfg.GetString("engine.providers."+kind, "")
	if want == "" {
		return providers[0], nil
	}
	for _, p := range providers {
		if id(p) == want {
			return p, nil
		}
	}
	return zero, fmt.Errorf("configured %s provider %q is not registered", kind, want)
}

func providerIDOrNone(tasks task.Executor, providers []plugin.TaskExecutionProvider, cfg *config.Config) string {
	if tasks == nil {
		return "none"
	}
	if want := cfg.GetString("engine.providers.tasks", ""); want != "" {
		return want
	}
	if len(providers) > 0 {
		return providers[0].ProviderID()
	}
	return "none"
}

// Stop shuts the engine down: lifecycle actions stop concurrently in
// reverse registration order, then the singletons close. Stop is idempotent
// and safe to call from any phase.
func (m *Manager) Stop(ctx context.Context) {
	if m.phase == PhaseRunning {
		actions := m.registry.LifecycleActions()
		// Reverse so dependents stop before the things they depend on.
		for i, j := 0, len(actions)-1; i < j; i, j = i+1, j-1 {
			actions[i], actions[j] = actions[j], actions[i]
		}
		failed := fanout.Run(ctx, m.logger, "lifecycle_stop", len(actions),
			func(i int) string { return plugin.Identity(actions[i]) },
			func(ctx context.Context, i int) error {
				h := m.lifecycleHost(plugin.Identity(actions[i]))
				if err := actions[i].OnStop(ctx, h); err != nil {
					metrics.ObservePluginFailure(string(plugin.PointLifecycleAction))
					return err
				}
				return nil
			})
		if failed > 0 {
			m.logger.Warn("lifecycle actions failed during shutdown", zap.Int("failed", failed))
		}
	}

	closeAll(m.logger, m.singletons)
	m.singletons = Singletons{}
	if m.phase != PhaseUninitialized {
		m.phase = PhaseStopped
	}
	m.logger.Info("engine stopped")
}

// Reset invokes every registered reset action. Hard resets clear all
// plugin-owned state; soft resets clear derived state only. Failures are
// isolated per action; the return value is the number that failed.
func (m *Manager) Reset(ctx context.Context, hard bool) int {
	actions := m.registry.ResetActions()
	mode := "soft"
	if hard {
		mode = "hard"
	}
	m.logger.Info("reset requested", zap.String("mode", mode), zap.Int("actions", len(actions)))
	return fanout.Run(ctx, m.logger, "reset_"+mode, len(actions),
		func(i int) string { return plugin.Identity(actions[i]) },
		func(ctx context.Context, i int) error {
			h := m.lifecycleHost(plugin.Identity(actions[i]))
			var err error
			if hard {
				err = actions[i].HardReset(ctx, h, m.cfg)
			} else {
				err = actions[i].SoftReset(ctx, h, m.cfg)
			}
			if err != nil {
				metrics.ObservePluginFailure(string(plugin.PointResetAction))
			}
			return err
		})
}

// lifecycleHost builds a lifecycle host bound to the given plugin identity.
func (m *Manager) lifecycleHost(identity string) plugin.LifecycleHost {
	return host.NewLifecycleHost(host.LifecycleOptions{
		Options: host.Options{
			Identity: identity,
			Logger:   m.logger,
			Config:   m.cfg,
			States:   m.singletons.States,
		},
		Registry: m.registry,
		Cache:    m.singletons.Cache,
		Data:     m.singletons.Data,
		Tasks:    m.singletons.Tasks,
	})
}

// rollback returns the engine to uninitialized after a fatal startup error,
// closing anything already created.
func (m *Manager) rollback() {
	closeAll(m.logger, m.singletons)
	m.singletons = Singletons{}
	m.cfg = nil
	m.phase = PhaseUninitialized
}

func closeAll(logger *zap.Logger, s Singletons) {
	if s.Tasks != nil {
		closeQuiet(logger, "task executor", s.Tasks.Close)
	}
	if s.Data != nil {
		closeQuiet(logger, "data store", s.Data.Close)
	}
	if s.Cache != nil {
		closeQuiet(logger, "cache", s.Cache.Close)
	}
	if s.States != nil {
		closeQuiet(logger, "state store", s.States.Close)
	}
}

func closeQuiet(logger *zap.Logger, name string, close func() error) {
	if err := close(); err != nil {
		logger.Warn("close failed", zap.String("component", name), zap.Error(err))
	}
}
