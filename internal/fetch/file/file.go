// Package file provides the built-in fetcher for file:// URLs.
package file

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/magpie-engine/magpie/internal/metadata"
	"github.com/magpie-engine/magpie/internal/plugin"
)

const scheme = "file://"

// Fetcher reads local files off disk.
type Fetcher struct{}

// New returns the file fetcher.
func New() *Fetcher { return &Fetcher{} }

// CanFetch accepts file:// URLs.
func (f *Fetcher) CanFetch(h plugin.FetcherHost, url string) bool {
	return strings.HasPrefix(url, scheme)
}

// Fetch reads the file and hands the bytes on for extraction, stamping the
// fetched state and a mime type guessed from the extension.
func (f *Fetcher) Fetch(ctx context.Context, h plugin.FetcherHost, url string, md metadata.Metadata) error {
	path := filepath.FromSlash(strings.TrimPrefix(url, scheme))
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	md = md.Merge(metadata.Metadata{
		ProcessingState: metadata.StateFetched,
		MimeType:        mimeType,
	})

	if _, err := h.ExtractFile(ctx, content, md); err != nil {
		return fmt.Errorf("schedule extraction for %s: %w", url, err)
	}
	return nil
}
