// Package web provides the built-in fetcher for http and https URLs,
// implemented over the Colly collector.
package web

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/magpie-engine/magpie/internal/metadata"
	"github.com/magpie-engine/magpie/internal/plugin"
)

const defaultUserAgent = "magpie-engine/1.0"

// Fetcher retrieves web content with a Colly collector.
type Fetcher struct {
	baseCollector *colly.Collector
}

// New builds the web fetcher.
func New() *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = false
	return &Fetcher{baseCollector: c}
}

// ConfigurationID identifies the fetcher's configuration section.
func (f *Fetcher) ConfigurationID() string { return "fetchers.web" }

// DefaultConfiguration declares the fetcher's tunables.
func (f *Fetcher) DefaultConfiguration() map[string]any {
	return map[string]any{
		"fetchers": map[string]any{
			"web": map[string]any{
				"user_agent":      defaultUserAgent,
				"timeout_seconds": 15,
			},
		},
	}
}

// CanFetch accepts http and https URLs.
func (f *Fetcher) CanFetch(h plugin.FetcherHost, url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// Fetch issues a single GET, stamps the fetched state and the response
// Content-Type into the metadata, and hands the body on for extraction.
func (f *Fetcher) Fetch(ctx context.Context, h plugin.FetcherHost, url string, md metadata.Metadata) error {
	collector := f.baseCollector.Clone()
	collector.UserAgent = h.Config().GetString("fetchers.web.user_agent", defaultUserAgent)
	timeout := h.Config().GetInt("fetchers.web.timeout_seconds", 15)
	collector.SetRequestTimeout(time.Duration(timeout) * time.Second)

	if err := ctx.Err(); err != nil {
		return err
	}
	var (
		body     []byte
		mimeType string
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
		mimeType = r.Headers.Get("Content-Type")
		if i := strings.IndexByte(mimeType, ';'); i >= 0 {
			mimeType = mimeType[:i]
		}
		mimeType = strings.TrimSpace(mimeType)
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	if err := collector.Visit(url); err != nil {
		return fmt.Errorf("visit %s: %w", url, err)
	}
	collector.Wait()
	if fetchErr != nil {
		return fmt.Errorf("fetch %s: %w", url, fetchErr)
	}

	md = md.Merge(metadata.Metadata{
		ProcessingState: metadata.StateFetched,
		MimeType:        mimeType,
	})
	if _, err := h.ExtractFile(ctx, body, md); err != nil {
		return fmt.Errorf("schedule extraction for %s: %w", url, err)
	}
	return nil
}
