package normalizer

import (
	"strconv"
	"strings"

	"github.com/BearBump/ParcelSync/internal/integrations/marketplace"
)

// list coerces a repeated field to a slice of objects. The marketplace encodes
// a field that occurs once as a bare object and several occurrences as a list;
// both forms come out of list identically. Non-object items are dropped.
func list(v any) []map[string]any {
	if m, ok := object(v); ok {
		return []map[string]any{m}
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := object(it); ok {
			out = append(out, m)
		}
	}
	return out
}

func object(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case marketplace.Payload:
		return t, true
	default:
		return nil, false
	}
}

// get walks nested objects along path and returns nil as soon as a step is missing.
func get(v any, path ...string) any {
	cur := v
	for _, k := range path {
		m, ok := object(cur)
		if !ok {
			return nil
		}
		cur = m[k]
	}
	return cur
}

// text renders a scalar node. Elements that carried attributes are decoded as
// objects holding their character data under "value".
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	if m, ok := object(v); ok {
		return text(m["value"])
	}
	return ""
}

// firstText returns the first non-empty text among keys of m.
func firstText(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := text(m[k]); s != "" {
			return s
		}
	}
	return ""
}
