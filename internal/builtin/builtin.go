// Package builtin assembles the plugin set shipped with the engine binary:
// the deployment profile, the backend providers, the content plugins, and
// the pipeline lifecycle action.
package builtin

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/cache"
	"github.com/magpie-engine/magpie/internal/extract/htmltext"
	"github.com/magpie-engine/magpie/internal/extract/plaintext"
	"github.com/magpie-engine/magpie/internal/fetch/file"
	"github.com/magpie-engine/magpie/internal/fetch/web"
	"github.com/magpie-engine/magpie/internal/pipeline"
	"github.com/magpie-engine/magpie/internal/plugin"
	"github.com/magpie-engine/magpie/internal/profile"
	"github.com/magpie-engine/magpie/internal/source/filesystem"
	"github.com/magpie-engine/magpie/internal/state"
	"github.com/magpie-engine/magpie/internal/store"
	"github.com/magpie-engine/magpie/internal/task"
)

// Register installs every built-in plugin under the named deployment
// profile. Registration order matters: it fixes fetcher and extractor
// dispatch order and the fallback provider per backend kind.
func Register(r *plugin.Registry, logger *zap.Logger, profileName string) error {
	prof, err := profile.New(profileName)
	if err != nil {
		return fmt.Errorf("register builtins: %w", err)
	}
	return r.Discover(
		func(r *plugin.Registry) error {
			r.RegisterAll(prof)

			r.Register(plugin.PointCacheProvider, cache.NewMemoryProvider())

			r.Register(plugin.PointStateStoreProvider, state.NewMemoryProvider())
			r.Register(plugin.PointStateStoreProvider, state.NewPostgresProvider())

			r.Register(plugin.PointDataStoreProvider, store.NewMemoryProvider())
			r.Register(plugin.PointDataStoreProvider, store.NewPostgresProvider())
			r.Register(plugin.PointDataStoreProvider, store.NewGCSProvider(logger))

			r.Register(plugin.PointTaskExecutionProvider, task.NewImmediateProvider(logger))
			r.Register(plugin.PointTaskExecutionProvider, task.NewPubSubProvider(logger))

			r.RegisterAll(filesystem.New())
			r.Register(plugin.PointContentFetcher, file.New())
			r.RegisterAll(web.New())
			r.Register(plugin.PointContentExtractor, plaintext.New())
			r.Register(plugin.PointContentExtractor, htmltext.New())

			r.Register(plugin.PointLifecycleAction, pipeline.NewContentSourcesAction())
			return nil
		},
	)
}
