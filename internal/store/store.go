// Package store defines the data-storage contract terminating the content
// pipeline, plus the builtin memory, Postgres, and GCS backends.
package store

import (
	"context"

	"github.com/magpie-engine/magpie/internal/metadata"
)

// Item is one persisted piece of extracted content.
type Item struct {
	ID       string
	Text     string
	Metadata metadata.Metadata
}

// DataStore persists extracted content. AddItem is the pipeline's terminal
// step; it returns the stored item's identifier.
type DataStore interface {
	AddItem(ctx context.Context, text string, md metadata.Metadata) (string, error)
	Close() error
}
