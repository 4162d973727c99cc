package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/cache"
	"github.com/magpie-engine/magpie/internal/config"
	"github.com/magpie-engine/magpie/internal/plugin"
	"github.com/magpie-engine/magpie/internal/state"
	"github.com/magpie-engine/magpie/internal/store"
	"github.com/magpie-engine/magpie/internal/task"
)

type fakeConfigProvider struct {
	id       string
	defaults map[string]any
}

func (f *fakeConfigProvider) ConfigurationID() string              { return f.id }
func (f *fakeConfigProvider) DefaultConfiguration() map[string]any { return f.defaults }

type failingCacheProvider struct{}

func (failingCacheProvider) ProviderID() string { return "failing" }
func (failingCacheProvider) CreateCache(*config.Config) (cache.Cache, error) {
	return nil, fmt.Errorf("cache backend unavailable")
}

type countingAction struct {
	mu     sync.Mutex
	id     string
	starts int
	stops  int
	fail   bool
}

func (a *countingAction) ConfigurationID() string { return a.id }

func (a *countingAction) OnStart(_ context.Context, _ plugin.LifecycleHost) error {
	a.mu.Lock()
	a.starts++
	a.mu.Unlock()
	if a.fail {
		return fmt.Errorf("start failed")
	}
	return nil
}

func (a *countingAction) OnStop(_ context.Context, _ plugin.LifecycleHost) error {
	a.mu.Lock()
	a.stops++
	a.mu.Unlock()
	return nil
}

func baseRegistry(t *testing.T) *plugin.Registry {
	t.Helper()
	r := plugin.NewRegistry(zap.NewNop())
	require.True(t, r.Register(plugin.PointCacheProvider, cache.NewMemoryProvider()))
	require.True(t, r.Register(plugin.PointStateStoreProvider, state.NewMemoryProvider()))
	require.True(t, r.Register(plugin.PointDataStoreProvider, store.NewMemoryProvider()))
	require.True(t, r.Register(plugin.PointTaskExecutionProvider, task.NewImmediateProvider(zap.NewNop())))
	return r
}

func TestExecuteStartupReachesRunning(t *testing.T) {
	t.Parallel()

	m := New(zap.NewNop(), baseRegistry(t))
	require.NoError(t, m.ExecuteStartup(context.Background(), nil))
	require.Equal(t, PhaseRunning, m.Phase())

	s := m.Singletons()
	require.NotNil(t, s.Cache)
	require.NotNil(t, s.States)
	require.NotNil(t, s.Data)
	require.NotNil(t, s.Tasks)
}

func TestExecuteStartupWhileRunningIsNoOp(t *testing.T) {
	t.Parallel()

	r := baseRegistry(t)
	action := &countingAction{id: "action"}
	require.True(t, r.Register(plugin.PointLifecycleAction, action))

	m := New(zap.NewNop(), r)
	require.NoError(t, m.ExecuteStartup(context.Background(), nil))
	require.NoError(t, m.ExecuteStartup(context.Background(), nil))

	require.Equal(t, 1, action.starts)
}

func TestLifecycleFailureIsIsolated(t *testing.T) {
	t.Parallel()

	r := baseRegistry(t)
	first := &countingAction{id: "first"}
	middle := &countingAction{id: "middle", fail: true}
	last := &countingAction{id: "last"}
	require.True(t, r.Register(plugin.PointLifecycleAction, first))
	require.True(t, r.Register(plugin.PointLifecycleAction, middle))
	require.True(t, r.Register(plugin.PointLifecycleAction, last))

	m := New(zap.NewNop(), r)
	require.NoError(t, m.ExecuteStartup(context.Background(), nil))

	require.Equal(t, PhaseRunning, m.Phase())
	require.Equal(t, 1, first.starts)
	require.Equal(t, 1, middle.starts)
	require.Equal(t, 1, last.starts)
}

func TestSingletonFailureRollsBack(t *testing.T) {
	t.Parallel()

	r := plugin.NewRegistry(zap.NewNop())
	require.True(t, r.Register(plugin.PointCacheProvider, failingCacheProvider{}))
	require.True(t, r.Register(plugin.PointStateStoreProvider, state.NewMemoryProvider()))
	require.True(t, r.Register(plugin.PointDataStoreProvider, store.NewMemoryProvider()))

	m := New(zap.NewNop(), r)
	err := m.ExecuteStartup(context.Background(), nil)
	require.ErrorContains(t, err, "cache backend unavailable")
	require.Equal(t, PhaseUninitialized, m.Phase())
	require.Nil(t, m.Config())
}

func TestMissingRequiredProviderFailsStartup(t *testing.T) {
	t.Parallel()

	r := plugin.NewRegistry(zap.NewNop())
	require.True(t, r.Register(plugin.PointCacheProvider, cache.NewMemoryProvider()))
	// No state store or data store provider.

	m := New(zap.NewNop(), r)
	err := m.ExecuteStartup(context.Background(), nil)
	require.ErrorContains(t, err, "no state_store provider registered")
	require.Equal(t, PhaseUninitialized, m.Phase())
}

func TestMissingTaskProviderIsTolerated(t *testing.T) {
	t.Parallel()

	r := plugin.NewRegistry(zap.NewNop())
	require.True(t, r.Register(plugin.PointCacheProvider, cache.NewMemoryProvider()))
	require.True(t, r.Register(plugin.PointStateStoreProvider, state.NewMemoryProvider()))
	require.True(t, r.Register(plugin.PointDataStoreProvider, store.NewMemoryProvider()))

	m := New(zap.NewNop(), r)
	require.NoError(t, m.ExecuteStartup(context.Background(), nil))
	require.Equal(t, PhaseRunning, m.Phase())
	require.Nil(t, m.Singletons().Tasks)
}

func TestProviderSelectionHonorsConfig(t *testing.T) {
	t.Parallel()

	r := baseRegistry(t)
	require.True(t, r.Register(plugin.PointConfigurationProvider, &fakeConfigProvider{
		id: "test-profile",
		defaults: map[string]any{
			"engine": map[string]any{
				"providers": map[string]any{"cache": "memory"},
			},
		},
	}))

	m := New(zap.NewNop(), r)
	require.NoError(t, m.ExecuteStartup(context.Background(), nil))
	require.Equal(t, "memory", m.Config().GetString("engine.providers.cache", ""))
}

func TestUnknownConfiguredProviderFails(t *testing.T) {
	t.Parallel()

	r := baseRegistry(t)
	m := New(zap.NewNop(), r)
	err := m.ExecuteStartup(context.Background(), map[string]any{
		"engine": map[string]any{
			"providers": map[string]any{"cache": "no-such-backend"},
		},
	})
	require.ErrorContains(t, err, "no-such-backend")
	require.Equal(t, PhaseUninitialized, m.Phase())
}

func TestOverridesWinOverProviderDefaults(t *testing.T) {
	t.Parallel()

	r := baseRegistry(t)
	require.True(t, r.Register(plugin.PointConfigurationProvider, &fakeConfigProvider{
		id:       "defaults",
		defaults: map[string]any{"api": map[string]any{"listen": ":8080"}},
	}))

	m := New(zap.NewNop(), r)
	require.NoError(t, m.ExecuteStartup(context.Background(), map[string]any{
		"api": map[string]any{"listen": ":9999"},
	}))
	require.Equal(t, ":9999", m.Config().GetString("api.listen", ""))
}

func TestStopRunsActionsAndIsIdempotent(t *testing.T) {
	t.Parallel()

	r := baseRegistry(t)
	action := &countingAction{id: "action"}
	require.True(t, r.Register(plugin.PointLifecycleAction, action))

	m := New(zap.NewNop(), r)
	require.NoError(t, m.ExecuteStartup(context.Background(), nil))

	m.Stop(context.Background())
	require.Equal(t, PhaseStopped, m.Phase())
	require.Equal(t, 1, action.stops)

	m.Stop(context.Background())
	require.Equal(t, 1, action.stops)
}

func TestStopBeforeStartIsSafe(t *testing.T) {
	t.Parallel()

	m := New(zap.NewNop(), baseRegistry(t))
	m.Stop(context.Background())
	require.Equal(t, PhaseUninitialized, m.Phase())
}

func TestRestartAfterStop(t *testing.T) {
	t.Parallel()

	r := baseRegistry(t)
	action := &countingAction{id: "action"}
	require.True(t, r.Register(plugin.PointLifecycleAction, action))

	m := New(zap.NewNop(), r)
	require.NoError(t, m.ExecuteStartup(context.Background(), nil))
	m.Stop(context.Background())
	require.NoError(t, m.ExecuteStartup(context.Background(), nil))

	require.Equal(t, PhaseRunning, m.Phase())
	require.Equal(t, 2, action.starts)
}

type resetRecorder struct {
	id   string
	hard []bool
}

func (r *resetRecorder) ConfigurationID() string { return r.id }
func (r *resetRecorder) HardReset(context.Context, plugin.LifecycleHost, *config.Config) error {
	r.hard = append(r.hard, true)
	return nil
}
func (r *resetRecorder) SoftReset(context.Context, plugin.LifecycleHost, *config.Config) error {
	r.hard = append(r.hard, false)
	return nil
}

func TestResetDispatchesByMode(t *testing.T) {
	t.Parallel()

	r := baseRegistry(t)
	rec := &resetRecorder{id: "resettable"}
	require.True(t, r.Register(plugin.PointResetAction, rec))

	m := New(zap.NewNop(), r)
	require.NoError(t, m.StartToSingletons(context.Background(), nil))

	require.Zero(t, m.Reset(context.Background(), true))
	require.Zero(t, m.Reset(context.Background(), false))
	require.Equal(t, []bool{true, false}, rec.hard)
}
