// Package config implements the layered configuration engine: provider
// default documents are folded together in registration order with a
// recursive structural merge, user overrides land last with highest
// precedence, and every build produces a diff against the previous tree so
// plugins can react to reloads.
package config

import (
	"reflect"
	"strings"
)

// ValueChange records the before/after pair for a modified key.
type ValueChange struct {
	From any
	To   any
}

// Diff captures the keys that changed between two configuration builds.
// Keys are dotted paths to leaf values.
type Diff struct {
	Added     map[string]any
	Removed   map[string]any
	Modified  map[string]ValueChange
	Unchanged map[string]any
}

// Config is the immutable result of one configuration build. It is safe for
// concurrent readers; a reload produces a fresh Config rather than mutating
// this one.
type Config struct {
	tree map[string]any
	diff Diff
}

// Build merges the provider default documents in order (later providers win
// on scalar conflicts, nested mappings merge key by key, lists replace
// rather than concatenate), folds overrides last, and diffs the result against
// prev's tree. A nil prev diffs against the empty tree, so the very first
// build reports every key as added.
func Build(defaults []map[string]any, overrides map[string]any, prev *Config) *Config {
	tree := map[string]any{}
	for _, doc := range defaults {
		mergeTree(tree, doc)
	}
	if overrides != nil {
		mergeTree(tree, overrides)
	}
	var prevTree map[string]any
	if prev != nil {
		prevTree = prev.tree
	}
	return &Config{
		tree: tree,
		diff: computeDiff(prevTree, tree),
	}
}

// Get resolves a dotted key to its value, returning def when the key is
// absent or a path segment is not a mapping. Mapping values come back as
// deep copies so no caller can reach into the merged tree.
func (c *Config) Get(key string, def any) any {
	node := any(c.tree)
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return def
		}
		node, ok = m[part]
		if !ok {
			return def
		}
	}
	if m, ok := node.(map[string]any); ok {
		return copyTree(m)
	}
	return node
}

// GetString returns the string at key, or def when absent or not a string.
func (c *Config) GetString(key, def string) string {
	if v, ok := c.Get(key, def).(string); ok {
		return v
	}
	return def
}

// GetInt returns the integer at key, tolerating the numeric types YAML and
// JSON decoders produce.
func (c *Config) GetInt(key string, def int) int {
	switch v := c.Get(key, def).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// GetBool returns the boolean at key, or def when absent or not a bool.
func (c *Config) GetBool(key string, def bool) bool {
	if v, ok := c.Get(key, def).(bool); ok {
		return v
	}
	return def
}

// GetStringSlice returns the list of strings at key. Both []string and the
// []any a YAML decoder produces are accepted.
func (c *Config) GetStringSlice(key string, def []string) []string {
	switch v := c.Get(key, nil).(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return def
	}
}

// Section returns a deep copy of the named top-level section, or an empty
// map when the section is absent. Mutating the result never affects the
// configuration.
func (c *Config) Section(name string) map[string]any {
	if m, ok := c.tree[name].(map[string]any); ok {
		return copyTree(m)
	}
	return map[string]any{}
}

// Addition reads a key through the last diff: the new value if the key was
// added by this build, def otherwise.
func (c *Config) Addition(key string, def any) any {
	if v, ok := c.diff.Added[key]; ok {
		return v
	}
	return def
}

// Removal returns the previous value of a key removed by this build, def
// otherwise.
func (c *Config) Removal(key string, def any) any {
	if v, ok := c.diff.Removed[key]; ok {
		return v
	}
	return def
}

// HasChanged reports whether the key was added, removed, or modified by this
// build.
func (c *Config) HasChanged(key string) bool {
	if _, ok := c.diff.Added[key]; ok {
		return true
	}
	if _, ok := c.diff.Removed[key]; ok {
		return true
	}
	_, ok := c.diff.Modified[key]
	return ok
}

// LastDiff returns a copy of the diff computed by this build.
func (c *Config) LastDiff() Diff {
	return Diff{
		Added:     copyFlat(c.diff.Added),
		Removed:   copyFlat(c.diff.Removed),
		Modified:  copyModified(c.diff.Modified),
		Unchanged: copyFlat(c.diff.Unchanged),
	}
}

// Tree returns a deep copy of the merged tree.
func (c *Config) Tree() map[string]any {
	return copyTree(c.tree)
}

// mergeTree folds src into dst. Nested mappings merge key by key; any other
// value, lists included, replaces the destination outright.
func mergeTree(dst, src map[string]any) {
	for k, sv := range src {
		if sm, ok := sv.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				mergeTree(dm, sm)
				continue
			}
			fresh := map[string]any{}
			mergeTree(fresh, sm)
			dst[k] = fresh
			continue
		}
		dst[k] = sv
	}
}

func copyTree(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		if m, ok := v.(map[string]any); ok {
			out[k] = copyTree(m)
			continue
		}
		out[k] = v
	}
	return out
}

func copyFlat(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func copyModified(src map[string]ValueChange) map[string]ValueChange {
	out := make(map[string]ValueChange, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// flatten walks the tree and records every leaf under its dotted path.
func flatten(prefix string, tree map[string]any, out map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if m, ok := v.(map[string]any); ok {
			flatten(key, m, out)
			continue
		}
		out[key] = v
	}
}

func computeDiff(prevTree, tree map[string]any) Diff {
	prevFlat := map[string]any{}
	if prevTree != nil {
		flatten("", prevTree, prevFlat)
	}
	flat := map[string]any{}
	flatten("", tree, flat)

	d := Diff{
		Added:     map[string]any{},
		Removed:   map[string]any{},
		Modified:  map[string]ValueChange{},
		Unchanged: map[string]any{},
	}
	for key, v := range flat {
		old, existed := prevFlat[key]
		switch {
		case !existed:
			d.Added[key] = v
		case reflect.DeepEqual(old, v):
			d.Unchanged[key] = v
		default:
			d.Modified[key] = ValueChange{From: old, To: v}
		}
	}
	for key, old := range prevFlat {
		if _, stillThere := flat[key]; !stillThere {
			d.Removed[key] = old
		}
	}
	return d
}
