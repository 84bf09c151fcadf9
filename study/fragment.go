package study

import "strings"

// Fragment is one node of a decoded registry document: element names map to
// strings, nested Fragments or []any for repeated elements. Attributes are
// stored under "@name" and the text of an element that also carries
// attributes under "$".
type Fragment map[string]any

// Get walks a dotted path ("id_info.nct_id") and returns nil when any step is
// missing or is not a mapping.
func (f Fragment) Get(path string) any {
	if f == nil {
		return nil
	}
	var cur any = f
	for _, key := range strings.Split(path, ".") {
		m, ok := asFragment(cur)
		if !ok {
			return nil
		}
		cur, ok = m[key]
		if !ok {
			return nil
		}
	}
	return cur
}

// String returns the text at path, or def when the value is absent or not a
// string. Elements carrying attributes resolve to their "$" text.
func (f Fragment) String(path, def string) string {
	switch v := f.Get(path).(type) {
	case string:
		return v
	case Fragment, map[string]any:
		m, _ := asFragment(v)
		if s, ok := m["$"].(string); ok {
			return s
		}
	}
	return def
}

// Fragment returns the mapping at path, or nil.
func (f Fragment) Fragment(path string) Fragment {
	m, _ := asFragment(f.Get(path))
	return m
}

// Fragments returns every mapping at path. A single mapping is promoted to a
// one-element list; non-mapping items are skipped.
func (f Fragment) Fragments(path string) []Fragment {
	var out []Fragment
	for _, item := range asList(f.Get(path)) {
		if m, ok := asFragment(item); ok {
			out = append(out, m)
		}
	}
	return out
}

// Strings returns every string at path, promoting a single value to a list.
// It returns nil when the path is absent.
func (f Fragment) Strings(path string) []string {
	var out []string
	for _, item := range asList(f.Get(path)) {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case Fragment, map[string]any:
			m, _ := asFragment(v)
			if s, ok := m["$"].(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// Has reports whether path resolves to a non-nil value.
func (f Fragment) Has(path string) bool {
	return f.Get(path) != nil
}

func asFragment(v any) (Fragment, bool) {
	switch m := v.(type) {
	case Fragment:
		return m, true
	case map[string]any:
		return Fragment(m), true
	}
	return nil, false
}

func asList(v any) []any {
	switch l := v.(type) {
	case nil:
		return nil
	case []any:
		return l
	case []Fragment:
		out := make([]any, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out
	case []string:
		out := make([]any, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out
	}
	return []any{v}
}
