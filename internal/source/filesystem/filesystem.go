// Package filesystem provides the built-in content source that walks
// directory roots and schedules matching files for ingestion.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/config"
	"github.com/magpie-engine/magpie/internal/metadata"
	"github.com/magpie-engine/magpie/internal/metrics"
	"github.com/magpie-engine/magpie/internal/plugin"
)

// stateVersion is the layout version of this source's state entries.
// Entries written by older builds are migrated on start.
const stateVersion = 2

// Source walks configured directory roots and emits file:// URLs.
type Source struct{}

// New returns the filesystem content source.
func New() *Source { return &Source{} }

func (s *Source) ConfigurationID() string { return "sources.filesystem" }

// DefaultConfiguration declares the source's configuration keys with safe
// defaults; deployments override roots to point at real content.
func (s *Source) DefaultConfiguration() map[string]any {
	return map[string]any{
		"sources": map[string]any{
			"filesystem": map[string]any{
				"roots":      []any{},
				"extensions": []any{".txt", ".html", ".htm", ".md"},
			},
		},
	}
}

// DiscoverContent walks every configured root and returns one item per file
// whose extension is allowed. Roots that do not exist are skipped with a
// warning rather than failing the whole enumeration.
func (s *Source) DiscoverContent(ctx context.Context, h plugin.SourceHost) ([]plugin.DiscoveredItem, error) {
	roots := h.Config().GetStringSlice("sources.filesystem.roots", nil)
	extensions := h.Config().GetStringSlice("sources.filesystem.extensions", []string{".txt"})

	var items []plugin.DiscoveredItem
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				return nil
			}
			if !slices.Contains(extensions, strings.ToLower(filepath.Ext(path))) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			url := "file://" + filepath.ToSlash(abs)
			md := metadata.New(url).Copy(
				metadata.Location(abs),
				metadata.Title(d.Name()),
				metadata.ModifiedAt(info.ModTime()),
			)
			items = append(items, plugin.DiscoveredItem{URL: url, Metadata: md})
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			h.Logger().Warn("skipping filesystem root", zap.String("root", root), zap.Error(err))
		}
	}
	return items, nil
}

// StartSource migrates stale state entries, runs discovery, and schedules a
// fetch for every discovered item. Scheduling failures are counted and
// logged per item; only discovery itself can fail the source.
func (s *Source) StartSource(ctx context.Context, h plugin.SourceHost) error {
	if err := s.migrateState(ctx, h); err != nil {
		return fmt.Errorf("migrate state: %w", err)
	}

	items, err := s.DiscoverContent(ctx, h)
	if err != nil {
		return fmt.Errorf("discover content: %w", err)
	}
	metrics.ObserveDiscovered(s.ConfigurationID(), len(items))

	scheduled := 0
	for _, item := range items {
		if _, err := h.ScheduleFetch(ctx, item.URL, item.Metadata); err != nil {
			h.Logger().Error("schedule fetch failed",
				zap.String("url", item.URL), zap.Error(err))
			continue
		}
		scheduled++
	}

	if err := h.State().Put(ctx, "last_run", time.Now().UTC().Format(time.RFC3339), stateVersion); err != nil {
		h.Logger().Warn("record last run failed", zap.Error(err))
	}
	h.Logger().Info("filesystem source started",
		zap.Int("discovered", len(items)),
		zap.Int("scheduled", scheduled),
	)
	return nil
}

// StopSource is a no-op; discovery is one-shot.
func (s *Source) StopSource(ctx context.Context, h plugin.SourceHost) error { return nil }

// HardReset clears the source's state partition. Everything this source
// stores is derived from the filesystem, so hard and soft resets coincide.
func (s *Source) HardReset(ctx context.Context, h plugin.LifecycleHost, _ *config.Config) error {
	return h.State().Purge(ctx)
}

// SoftReset clears the source's state partition.
func (s *Source) SoftReset(ctx context.Context, h plugin.LifecycleHost, _ *config.Config) error {
	return h.State().Purge(ctx)
}

// migrateState rewrites entries written under older state layouts. Version 1
// stored last_run as a unix timestamp; it is rewritten as RFC 3339.
func (s *Source) migrateState(ctx context.Context, h plugin.SourceHost) error {
	stale, err := h.State().Versioned(ctx, stateVersion)
	if err != nil {
		return err
	}
	for _, entry := range stale {
		if entry.Key != "last_run" {
			continue
		}
		secs, err := strconv.ParseInt(entry.Value, 10, 64)
		if err != nil {
			continue
		}
		migrated := time.Unix(secs, 0).UTC().Format(time.RFC3339)
		if err := h.State().Put(ctx, entry.Key, migrated, stateVersion); err != nil {
			return err
		}
		h.Logger().Info("migrated state entry",
			zap.String("key", entry.Key),
			zap.Int("from_version", entry.Version),
			zap.Int("to_version", stateVersion),
		)
	}
	return nil
}
