package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/cache"
	"github.com/magpie-engine/magpie/internal/config"
	"github.com/magpie-engine/magpie/internal/extract/plaintext"
	"github.com/magpie-engine/magpie/internal/fetch/file"
	"github.com/magpie-engine/magpie/internal/metadata"
	"github.com/magpie-engine/magpie/internal/plugin"
	"github.com/magpie-engine/magpie/internal/state"
	"github.com/magpie-engine/magpie/internal/store"
	"github.com/magpie-engine/magpie/internal/task"
)

func testDeps(t *testing.T, r *plugin.Registry, data *store.Memory) Deps {
	t.Helper()
	return Deps{
		Logger:   zap.NewNop(),
		Config:   config.Build(nil, nil, nil),
		Registry: r,
		States:   state.NewMemory(),
		Cache:    cache.NewMemory(),
		Data:     data,
		Tasks:    task.NewImmediate(zap.NewNop()),
	}
}

func TestFileFlowsThroughFetchAndExtract(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello content"), 0o600))
	url := "file://" + filepath.ToSlash(path)

	r := plugin.NewRegistry(zap.NewNop())
	require.True(t, r.Register(plugin.PointContentFetcher, file.New()))
	require.True(t, r.Register(plugin.PointContentExtractor, plaintext.New()))

	data := store.NewMemory()
	deps := testDeps(t, r, data)
	executor := NewExecutor(deps)
	deps.Tasks.Bind(executor.Handle)

	id, err := executor.ScheduleFetch(context.Background(), url, metadata.New(url))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	items := data.Items()
	require.Len(t, items, 1)
	require.Equal(t, "hello content", items[0].Text)
	require.Equal(t, url, items[0].Metadata.SourceURL)
	require.Equal(t, metadata.StateExtracted, items[0].Metadata.ProcessingState)
	require.Equal(t, "text/plain", items[0].Metadata.MimeType)
}

func TestScheduleWithoutExecutorIsNoOp(t *testing.T) {
	t.Parallel()

	r := plugin.NewRegistry(zap.NewNop())
	deps := testDeps(t, r, store.NewMemory())
	deps.Tasks = nil
	executor := NewExecutor(deps)

	id, err := executor.ScheduleFetch(context.Background(), "file:///a.txt", metadata.New("file:///a.txt"))
	require.NoError(t, err)
	require.Empty(t, id)
}

func TestHandleFetchWithNoMatchingFetcherFails(t *testing.T) {
	t.Parallel()

	r := plugin.NewRegistry(zap.NewNop())
	executor := NewExecutor(testDeps(t, r, store.NewMemory()))

	err := executor.Handle(context.Background(), task.Task{
		Kind: task.KindFetch,
		URL:  "gopher://unsupported",
	})
	require.ErrorContains(t, err, "no fetcher accepts")
}

func TestHandleExtractWithNoMatchingExtractorFails(t *testing.T) {
	t.Parallel()

	r := plugin.NewRegistry(zap.NewNop())
	executor := NewExecutor(testDeps(t, r, store.NewMemory()))

	err := executor.Handle(context.Background(), task.Task{
		Kind:     task.KindExtract,
		URL:      "file:///a.bin",
		Metadata: metadata.New("file:///a.bin").Copy(metadata.MimeType("application/octet-stream")),
	})
	require.ErrorContains(t, err, "no extractor accepts")
}

func TestHandleUnknownKindFails(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(testDeps(t, plugin.NewRegistry(zap.NewNop()), store.NewMemory()))
	err := executor.Handle(context.Background(), task.Task{Kind: "compact"})
	require.ErrorContains(t, err, "unknown task kind")
}

func TestFetcherDispatchIsFirstMatchInRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := plugin.NewRegistry(zap.NewNop())
	first := &recordingFetcher{}
	second := &recordingFetcher{}
	require.True(t, r.Register(plugin.PointContentFetcher, first))
	require.True(t, r.Register(plugin.PointContentFetcher, second))

	executor := NewExecutor(testDeps(t, r, store.NewMemory()))
	require.NoError(t, executor.Handle(context.Background(), task.Task{
		Kind: task.KindFetch,
		URL:  "file:///a.txt",
	}))

	require.Equal(t, 1, first.calls)
	require.Zero(t, second.calls)
}

type recordingFetcher struct{ calls int }

func (f *recordingFetcher) CanFetch(plugin.FetcherHost, string) bool { return true }
func (f *recordingFetcher) Fetch(context.Context, plugin.FetcherHost, string, metadata.Metadata) error {
	f.calls++
	return nil
}

type scriptedSource struct {
	id         string
	started    int
	stopped    int
	startErr   error
	startDelay time.Duration
}

func (s *scriptedSource) ConfigurationID() string { return s.id }
func (s *scriptedSource) DiscoverContent(context.Context, plugin.SourceHost) ([]plugin.DiscoveredItem, error) {
	return nil, nil
}
func (s *scriptedSource) StartSource(context.Context, plugin.SourceHost) error {
	time.Sleep(s.startDelay)
	s.started++
	return s.startErr
}
func (s *scriptedSource) StopSource(context.Context, plugin.SourceHost) error {
	s.stopped++
	return nil
}

type fakeLifecycleHost struct {
	registry *plugin.Registry
	deps     Deps
}

func (h *fakeLifecycleHost) Identity() string { return "pipeline.sources" }
func (h *fakeLifecycleHost) Logger() *zap.Logger { return zap.NewNop() }
func (h *fakeLifecycleHost) Config() *config.Config { return h.deps.Config }
func (h *fakeLifecycleHost) State() plugin.State { return nil }
func (h *fakeLifecycleHost) Registry() *plugin.Registry { return h.registry }
func (h *fakeLifecycleHost) Cache() cache.Cache { return h.deps.Cache }
func (h *fakeLifecycleHost) StateStore() state.Store { return h.deps.States }
func (h *fakeLifecycleHost) DataStore() store.DataStore { return h.deps.Data }
func (h *fakeLifecycleHost) Tasks() task.Executor { return h.deps.Tasks }

func TestContentSourcesActionStartsAndStopsSources(t *testing.T) {
	t.Parallel()

	r := plugin.NewRegistry(zap.NewNop())
	good := &scriptedSource{id: "good"}
	require.True(t, r.Register(plugin.PointContentSource, good))

	deps := testDeps(t, r, store.NewMemory())
	h := &fakeLifecycleHost{registry: r, deps: deps}

	action := NewContentSourcesAction()
	require.NoError(t, action.OnStart(context.Background(), h))
	require.Equal(t, 1, good.started)

	require.NoError(t, action.OnStop(context.Background(), h))
	require.Equal(t, 1, good.stopped)
}

func TestStartedSourcesKeepRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := plugin.NewRegistry(zap.NewNop())
	slow := &scriptedSource{id: "slow", startDelay: 30 * time.Millisecond}
	fast := &scriptedSource{id: "fast"}
	require.True(t, r.Register(plugin.PointContentSource, slow))
	require.True(t, r.Register(plugin.PointContentSource, fast))

	deps := testDeps(t, r, store.NewMemory())
	h := &fakeLifecycleHost{registry: r, deps: deps}

	action := NewContentSourcesAction()
	require.NoError(t, action.OnStart(context.Background(), h))

	// fast finishes starting first, but the recorded order must follow
	// registration so shutdown reverses it deterministically.
	require.Len(t, action.started, 2)
	require.Equal(t, "slow", action.started[0].source.ConfigurationID())
	require.Equal(t, "fast", action.started[1].source.ConfigurationID())
	require.NoError(t, action.OnStop(context.Background(), h))
}

func TestFailedSourceIsNotStoppedLater(t *testing.T) {
	t.Parallel()

	r := plugin.NewRegistry(zap.NewNop())
	good := &scriptedSource{id: "good"}
	bad := &scriptedSource{id: "bad", startErr: os.ErrPermission}
	require.True(t, r.Register(plugin.PointContentSource, good))
	require.True(t, r.Register(plugin.PointContentSource, bad))

	deps := testDeps(t, r, store.NewMemory())
	h := &fakeLifecycleHost{registry: r, deps: deps}

	action := NewContentSourcesAction()
	require.NoError(t, action.OnStart(context.Background(), h))
	require.NoError(t, action.OnStop(context.Background(), h))

	require.Equal(t, 1, good.started)
	require.Equal(t, 1, good.stopped)
	require.Equal(t, 1, bad.started)
	require.Zero(t, bad.stopped)
}
