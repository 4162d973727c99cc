package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	md := New("https://example.com/a")
	require.Equal(t, "https://example.com/a", md.SourceURL)
	require.Equal(t, StatePending, md.ProcessingState)
	require.False(t, md.CreatedAt.IsZero())
}

func TestCopyAppliesChangesWithoutMutatingOriginal(t *testing.T) {
	t.Parallel()

	orig := New("https://example.com/a").Copy(
		Title("original"),
		Tags([]string{"a"}),
		Extra(map[string]any{"depth": 1}),
	)

	changed := orig.Copy(
		Title("changed"),
		ProcessingState(StateFetched),
	)

	require.Equal(t, "changed", changed.Title)
	require.Equal(t, StateFetched, changed.ProcessingState)
	require.Equal(t, "original", orig.Title)
	require.Equal(t, StatePending, orig.ProcessingState)

	// The copy owns its collections.
	changed.Tags[0] = "mutated"
	changed.Extra["depth"] = 99
	require.Equal(t, []string{"a"}, orig.Tags)
	require.Equal(t, 1, orig.Extra["depth"])
}

func TestMergeAbsentFieldsKeepBase(t *testing.T) {
	t.Parallel()

	base := New("https://example.com/a").Copy(
		Title("base title"),
		Author("base author"),
	)

	merged := base.Merge(Metadata{MimeType: "text/plain"})

	require.Equal(t, "base title", merged.Title)
	require.Equal(t, "base author", merged.Author)
	require.Equal(t, "text/plain", merged.MimeType)
	require.Equal(t, base.SourceURL, merged.SourceURL)
}

func TestMergePatchWinsOnPresentFields(t *testing.T) {
	t.Parallel()

	base := New("https://example.com/a").Copy(Title("base"))
	merged := base.Merge(Metadata{
		Title:           "patch",
		ProcessingState: StateExtracted,
	})

	require.Equal(t, "patch", merged.Title)
	require.Equal(t, StateExtracted, merged.ProcessingState)
}

func TestMergeConcatenatesTags(t *testing.T) {
	t.Parallel()

	base := New("u").Copy(Tags([]string{"a", "b"}))
	merged := base.Merge(Metadata{Tags: []string{"c"}})

	require.Equal(t, []string{"a", "b", "c"}, merged.Tags)
	require.Equal(t, []string{"a", "b"}, base.Tags)
}

func TestMergeExtraRecursesAndConcatenatesLists(t *testing.T) {
	t.Parallel()

	base := New("u").Copy(Extra(map[string]any{
		"nested": map[string]any{"keep": "base", "override": "base"},
		"list":   []any{1, 2},
		"scalar": "base",
	}))
	merged := base.Merge(Metadata{Extra: map[string]any{
		"nested": map[string]any{"override": "patch", "added": true},
		"list":   []any{3},
		"scalar": "patch",
	}})

	nested, ok := merged.Extra["nested"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "base", nested["keep"])
	require.Equal(t, "patch", nested["override"])
	require.Equal(t, true, nested["added"])
	require.Equal(t, []any{1, 2, 3}, merged.Extra["list"])
	require.Equal(t, "patch", merged.Extra["scalar"])

	// Base is untouched.
	require.Equal(t, []any{1, 2}, base.Extra["list"])
	require.Equal(t, "base", base.Extra["nested"].(map[string]any)["override"])
}

func TestMergeModifiedAt(t *testing.T) {
	t.Parallel()

	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	base := New("u").Copy(ModifiedAt(when))

	kept := base.Merge(Metadata{Title: "t"})
	require.Equal(t, when, kept.ModifiedAt)

	later := when.Add(time.Hour)
	updated := base.Merge(Metadata{ModifiedAt: later})
	require.Equal(t, later, updated.ModifiedAt)
}
