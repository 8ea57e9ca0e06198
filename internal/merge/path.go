package merge

import "strings"

// SplitPath splits a dotted path such as "tender.lots" into segments.
// An empty string yields no segments.
func SplitPath(dotted string) []string {
	if dotted == "" {
		return nil
	}
	return strings.Split(dotted, ".")
}

// JoinPath renders path segments for logs and provenance keys. List
// element segments ("[id=L1]", "[3]") attach to the preceding key.
func JoinPath(path []string) string {
	var b strings.Builder
	for i, seg := range path {
		if i > 0 && !strings.HasPrefix(seg, "[") {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

// Lookup returns the value at path inside doc. It never mutates doc and
// reports false for any missing or non-mapping intermediate.
func Lookup(doc map[string]any, path ...string) (any, bool) {
	var cur any = doc
	for _, seg := range path {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Ensure walks path inside doc, creating empty mappings for missing
// segments, and returns the mapping at the end of the path. An existing
// non-mapping value along the way yields a *PathError.
func Ensure(doc map[string]any, path ...string) (map[string]any, error) {
	return ensure("ensure", doc, path, len(path))
}

// ensure walks the first n segments of path. Errors report the full path.
func ensure(op string, doc map[string]any, path []string, n int) (map[string]any, error) {
	cur := doc
	for i, seg := range path[:n] {
		next, ok := cur[seg]
		if !ok || next == nil {
			child := make(map[string]any)
			cur[seg] = child
			cur = child
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return nil, &PathError{Op: op, Path: path, Segment: i, Found: ShapeOf(next)}
		}
		cur = m
	}
	return cur, nil
}

// Set assigns value at path inside doc, creating intermediate mappings.
// An empty path is a no-op.
func Set(doc map[string]any, value any, path ...string) error {
	if len(path) == 0 {
		return nil
	}
	parent, err := ensure("set", doc, path, len(path)-1)
	if err != nil {
		return err
	}
	parent[path[len(path)-1]] = value
	return nil
}
