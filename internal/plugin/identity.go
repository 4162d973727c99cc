package plugin

import (
	"fmt"
	"reflect"
	"strings"
)

// Identity derives the stable identity string for a plugin value. Plugins
// that expose ConfigurationID or ProviderID use that; anything else falls
// back to its package-qualified type name. The result partitions state and
// tags log lines, so it must not change between runs of the same build.
func Identity(v any) string {
	switch p := v.(type) {
	case interface{ ConfigurationID() string }:
		if id := p.ConfigurationID(); id != "" {
			return id
		}
	case interface{ ProviderID() string }:
		if id := p.ProviderID(); id != "" {
			return id
		}
	}
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	if t.PkgPath() != "" {
		// Trim the module prefix down to the last two path elements so the
		// identity stays readable in logs and state partitions.
		parts := strings.Split(t.PkgPath(), "/")
		if len(parts) > 2 {
			parts = parts[len(parts)-2:]
		}
		return fmt.Sprintf("%s.%s", strings.Join(parts, "/"), t.Name())
	}
	return t.String()
}
