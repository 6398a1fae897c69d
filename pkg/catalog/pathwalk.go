package catalog

import (
	"encoding/json"
	"strings"
)

// fieldPath is a tiny JSON-path-like descriptor language used throughout
// the catalog so that reference extraction and rewriting never need
// kind-specific code. A path is a dot-separated list of segments; a
// segment ending in "[]" means "this field holds an array, iterate it".
// Examples:
//
//	"listId"                         -> object["listId"]
//	"definition.entries[].siteLists[]" -> object["definition"]["entries"][*]["siteLists"][*]
type fieldPath string

// decode unmarshals raw JSON into a generic value for walking.
func decode(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func segments(p fieldPath) []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), ".")
}

// walkGet returns every leaf value reachable by the path, fanning out
// across arrays. Non-existent intermediate nodes are silently skipped,
// since controller payloads vary field presence across object versions.
func walkGet(root any, p fieldPath) []any {
	segs := segments(p)
	if len(segs) == 0 {
		if root == nil {
			return nil
		}
		return []any{root}
	}
	return walkSegments([]any{root}, segs)
}

func walkSegments(cur []any, segs []string) []any {
	if len(segs) == 0 {
		return cur
	}
	seg := segs[0]
	rest := segs[1:]

	array := strings.HasSuffix(seg, "[]")
	key := strings.TrimSuffix(seg, "[]")

	var next []any
	for _, node := range cur {
		m, ok := node.(map[string]any)
		if !ok {
			continue
		}
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		if array {
			items, ok := v.([]any)
			if !ok {
				continue
			}
			next = append(next, items...)
		} else {
			next = append(next, v)
		}
	}
	return walkSegments(next, rest)
}

// walkStrings runs walkGet and returns only string leaves, which is what
// identity fields and reference sites expect.
func walkStrings(root any, p fieldPath) []string {
	var out []string
	for _, v := range walkGet(root, p) {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// rewriteStrings walks the same path as walkStrings but replaces each
// string leaf in place using mapper, mutating root (which must have come
// from decode, i.e. be built of map[string]any / []any / scalars).
func rewriteStrings(root any, p fieldPath, mapper func(old string) string) {
	segs := segments(p)
	if len(segs) == 0 {
		return
	}
	rewriteSegments([]any{root}, segs, mapper)
}

func rewriteSegments(cur []any, segs []string, mapper func(string) string) {
	seg := segs[0]
	rest := segs[1:]
	array := strings.HasSuffix(seg, "[]")
	key := strings.TrimSuffix(seg, "[]")
	last := len(rest) == 0

	for _, node := range cur {
		m, ok := node.(map[string]any)
		if !ok {
			continue
		}
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		if array {
			items, ok := v.([]any)
			if !ok {
				continue
			}
			if last {
				for i, it := range items {
					if s, ok := it.(string); ok {
						items[i] = mapper(s)
					}
				}
			} else {
				rewriteSegments(items, rest, mapper)
			}
		} else {
			if last {
				if s, ok := v.(string); ok {
					m[key] = mapper(s)
				}
			} else {
				rewriteSegments([]any{v}, rest, mapper)
			}
		}
	}
}
