// Package htmltext provides the built-in extractor that strips HTML down to
// its title and visible text.
package htmltext

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/metadata"
	"github.com/magpie-engine/magpie/internal/plugin"
)

const mimeType = "text/html"

// Extractor derives text and a title from HTML documents.
type Extractor struct{}

// New returns the HTML extractor.
func New() *Extractor { return &Extractor{} }

// CanExtract accepts text/html content and .html/.htm URLs.
func (e *Extractor) CanExtract(url, mime string) bool {
	if mime == mimeType || mime == "application/xhtml+xml" {
		return true
	}
	lower := strings.ToLower(url)
	return strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm")
}

// PreferredMimeTypes advertises the mime types this extractor handles best.
func (e *Extractor) PreferredMimeTypes() []string { return []string{mimeType} }

// Extract parses the document, promotes the <title> into the metadata when
// one is present, and stores the body text.
func (e *Extractor) Extract(ctx context.Context, h plugin.ExtractorHost, content []byte, md metadata.Metadata) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("parse html from %s: %w", md.SourceURL, err)
	}

	doc.Find("script, style, noscript").Remove()
	text := normalizeWhitespace(doc.Find("body").Text())
	if text == "" {
		text = normalizeWhitespace(doc.Text())
	}

	patch := metadata.Metadata{
		ProcessingState: metadata.StateExtracted,
		MimeType:        mimeType,
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		patch.Title = title
	}
	md = md.Merge(patch)

	id, err := h.DataStore().AddItem(ctx, text, md)
	if err != nil {
		return fmt.Errorf("store %s: %w", md.SourceURL, err)
	}
	h.Logger().Debug("stored html item", zap.String("item_id", id))
	return nil
}

// normalizeWhitespace collapses runs of whitespace to single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
