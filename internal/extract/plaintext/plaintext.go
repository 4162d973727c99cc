// Package plaintext provides the built-in extractor for plain text content.
package plaintext

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/metadata"
	"github.com/magpie-engine/magpie/internal/plugin"
)

const mimeType = "text/plain"

// Extractor stores plain text content as-is.
type Extractor struct{}

// New returns the plain text extractor.
func New() *Extractor { return &Extractor{} }

// CanExtract accepts text/plain content and .txt URLs.
func (e *Extractor) CanExtract(url, mime string) bool {
	return mime == mimeType || strings.HasSuffix(strings.ToLower(url), ".txt")
}

// PreferredMimeTypes advertises the mime types this extractor handles best.
func (e *Extractor) PreferredMimeTypes() []string { return []string{mimeType} }

// Extract writes the text to the data store with extracted-state metadata.
func (e *Extractor) Extract(ctx context.Context, h plugin.ExtractorHost, content []byte, md metadata.Metadata) error {
	md = md.Merge(metadata.Metadata{
		ProcessingState: metadata.StateExtracted,
		MimeType:        mimeType,
	})
	id, err := h.DataStore().AddItem(ctx, string(content), md)
	if err != nil {
		return fmt.Errorf("store %s: %w", md.SourceURL, err)
	}
	h.Logger().Debug("stored plain text item", zap.String("item_id", id))
	return nil
}
