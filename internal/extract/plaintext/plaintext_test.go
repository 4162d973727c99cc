package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/cache"
	"github.com/magpie-engine/magpie/internal/host"
	"github.com/magpie-engine/magpie/internal/metadata"
	"github.com/magpie-engine/magpie/internal/state"
	"github.com/magpie-engine/magpie/internal/store"
)

func TestCanExtract(t *testing.T) {
	t.Parallel()

	e := New()
	require.True(t, e.CanExtract("file:///notes.txt", ""))
	require.True(t, e.CanExtract("https://example.com/data", "text/plain"))
	require.False(t, e.CanExtract("https://example.com/page", "text/html"))
}

func TestExtractStoresContentVerbatim(t *testing.T) {
	t.Parallel()

	data := store.NewMemory()
	h := host.NewExtractorHost(host.Options{
		Identity: "extractors.plaintext",
		Logger:   zap.NewNop(),
		States:   state.NewMemory(),
	}, cache.NewMemory(), data)

	e := New()
	md := metadata.New("file:///notes.txt")
	require.NoError(t, e.Extract(context.Background(), h, []byte("line one\nline two"), md))

	items := data.Items()
	require.Len(t, items, 1)
	require.Equal(t, "line one\nline two", items[0].Text)
	require.Equal(t, "text/plain", items[0].Metadata.MimeType)
	require.Equal(t, metadata.StateExtracted, items[0].Metadata.ProcessingState)
}
