// Package metadata defines the immutable content-description record that
// travels through the ingestion pipeline. A Metadata value is never mutated
// in place: Copy and Merge always return a new value, so concurrent pipeline
// stages can hold references without coordination.
package metadata

import (
	"maps"
	"slices"
	"time"
)

// Processing-state markers recorded as an item advances through the pipeline.
// The state is a free-form resumability marker; these are the values the
// builtin stages use.
const (
	StatePending          = "pending"
	StateFetchScheduled   = "fetch_scheduled"
	StateFetched          = "fetched"
	StateExtractScheduled = "extract_scheduled"
	StateExtracted        = "extracted"
	StateFailed           = "failed"
)

// Metadata describes a single piece of discovered content. SourceURL is the
// required identity; everything else is optional and progressively refined
// by fetcher and extractor stages.
type Metadata struct {
	SourceURL       string         `json:"source_url"`
	Location        string         `json:"location,omitempty"`
	Title           string         `json:"title,omitempty"`
	ParentID        string         `json:"parent_id,omitempty"`
	Description     string         `json:"description,omitempty"`
	ProcessingState string         `json:"processing_state,omitempty"`
	CreatedAt       time.Time      `json:"created_at,omitempty"`
	ModifiedAt      time.Time      `json:"modified_at,omitempty"`
	Author          string         `json:"author,omitempty"`
	Tags            []string       `json:"tags,omitempty"`
	MimeType        string         `json:"mime_type,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// New builds a Metadata for freshly discovered content. ProcessingState
// starts at StatePending.
func New(sourceURL string) Metadata {
	return Metadata{
		SourceURL:       sourceURL,
		ProcessingState: StatePending,
		CreatedAt:       time.Now().UTC(),
	}
}

// Change is a named-field override applied by Copy.
type Change func(*Metadata)

// Location overrides the location field.
func Location(v string) Change { return func(m *Metadata) { m.Location = v } }

// Title overrides the title field.
func Title(v string) Change { return func(m *Metadata) { m.Title = v } }

// ParentID overrides the parent identifier.
func ParentID(v string) Change { return func(m *Metadata) { m.ParentID = v } }

// Description overrides the description field.
func Description(v string) Change { return func(m *Metadata) { m.Description = v } }

// ProcessingState overrides the resumability marker.
func ProcessingState(v string) Change { return func(m *Metadata) { m.ProcessingState = v } }

// Author overrides the author field.
func Author(v string) Change { return func(m *Metadata) { m.Author = v } }

// MimeType overrides the MIME type.
func MimeType(v string) Change { return func(m *Metadata) { m.MimeType = v } }

// ModifiedAt overrides the modification timestamp.
func ModifiedAt(t time.Time) Change { return func(m *Metadata) { m.ModifiedAt = t } }

// Tags replaces the tag list.
func Tags(v []string) Change {
	return func(m *Metadata) { m.Tags = slices.Clone(v) }
}

// Extra replaces the open-ended mapping.
func Extra(v map[string]any) Change {
	return func(m *Metadata) { m.Extra = deepCopyMap(v) }
}

// Copy returns a structural copy of m with the given overrides applied.
// With no changes the result is deeply equal to the receiver, and the
// receiver is untouched either way.
func (m Metadata) Copy(changes ...Change) Metadata {
	out := m
	out.Tags = slices.Clone(m.Tags)
	out.Extra = deepCopyMap(m.Extra)
	for _, change := range changes {
		change(&out)
	}
	return out
}

// Merge folds patch into m field by field and returns the result:
//
//   - a zero value in the patch keeps the base value (a patch never
//     overrides with absence),
//   - ordered sequences concatenate base-then-patch, duplicates and order
//     preserved (an empty patch list is a no-op, not a clear),
//   - mappings merge recursively key by key, the patch winning on scalar
//     leaf conflicts,
//   - anything else in the patch replaces the base value outright.
//
// Note the deliberate contrast with configuration merging, which never
// concatenates lists.
func (m Metadata) Merge(patch Metadata) Metadata {
	out := m.Copy()
	if patch.SourceURL != "" {
		out.SourceURL = patch.SourceURL
	}
	if patch.Location != "" {
		out.Location = patch.Location
	}
	if patch.Title != "" {
		out.Title = patch.Title
	}
	if patch.ParentID != "" {
		out.ParentID = patch.ParentID
	}
	if patch.Description != "" {
		out.Description = patch.Description
	}
	if patch.ProcessingState != "" {
		out.ProcessingState = patch.ProcessingState
	}
	if !patch.CreatedAt.IsZero() {
		out.CreatedAt = patch.CreatedAt
	}
	if !patch.ModifiedAt.IsZero() {
		out.ModifiedAt = patch.ModifiedAt
	}
	if patch.Author != "" {
		out.Author = patch.Author
	}
	if patch.MimeType != "" {
		out.MimeType = patch.MimeType
	}
	out.Tags = append(out.Tags, patch.Tags...)
	out.Extra = mergeValuesMap(out.Extra, patch.Extra)
	return out
}

func deepCopyMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}

// mergeValuesMap applies the Merge rules inside the Extra mapping: nested
// maps merge recursively, nested sequences concatenate, scalars are won by
// the patch.
func mergeValuesMap(base, patch map[string]any) map[string]any {
	if patch == nil {
		return base
	}
	if base == nil {
		return deepCopyMap(patch)
	}
	out := make(map[string]any, len(base)+len(patch))
	maps.Copy(out, base)
	for k, pv := range patch {
		bv, exists := out[k]
		if !exists {
			out[k] = deepCopyValue(pv)
			continue
		}
		switch bt := bv.(type) {
		case map[string]any:
			if pt, ok := pv.(map[string]any); ok {
				out[k] = mergeValuesMap(bt, pt)
				continue
			}
		case []any:
			if pt, ok := pv.([]any); ok {
				merged := make([]any, 0, len(bt)+len(pt))
				merged = append(merged, bt...)
				merged = append(merged, pt...)
				out[k] = merged
				continue
			}
		}
		out[k] = deepCopyValue(pv)
	}
	return out
}
