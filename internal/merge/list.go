package merge

import "fmt"

// keyed merges two sequences correlated by key. Existing entities keep
// their slots; incoming entities with a known identifier merge into that
// slot and new identifiers are appended in incoming order.
func (s step) keyed(existing, incoming []any, key string, path []string) []any {
	index := make(map[any]int, len(existing)+len(incoming))
	for i, item := range existing {
		id, ok := identifier(item, key)
		if !ok {
			continue
		}
		if first, dup := index[id]; dup {
			s.conflict(ConflictDuplicateIdentifier,
				child(path, elementSegment(item, key, i)), existing[first], item)
			continue
		}
		index[id] = i
	}

	result := existing
	for _, item := range incoming {
		if ShapeOf(item) == ShapeAbsent {
			continue
		}
		id, ok := identifier(item, key)
		if !ok {
			p := child(path, fmt.Sprintf("[%d]", len(result)))
			s.conflict(ConflictMissingIdentifier, p, nil, item)
			s.leaves(item, p)
			result = append(result, deepCopy(item))
			continue
		}

		p := child(path, elementSegment(item, key, len(result)))
		if idx, found := index[id]; found {
			result[idx] = s.value(result[idx], item, p)
			continue
		}
		index[id] = len(result)
		s.leaves(item, p)
		result = append(result, deepCopy(item))
	}
	return result
}

// positional concatenates two unkeyed sequences. Incoming scalars already
// present are dropped; mappings and nested sequences are always appended.
func (s step) positional(existing, incoming []any, path []string) []any {
	seen := make(map[any]struct{}, len(existing))
	for _, item := range existing {
		if ShapeOf(item) != ShapeScalar {
			continue
		}
		if k, ok := scalarKey(item); ok {
			seen[k] = struct{}{}
		}
	}

	result := existing
	for _, item := range incoming {
		if ShapeOf(item) == ShapeAbsent {
			continue
		}
		if ShapeOf(item) == ShapeScalar {
			if k, ok := scalarKey(item); ok {
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
			}
		}
		s.leaves(item, child(path, fmt.Sprintf("[%d]", len(result))))
		result = append(result, deepCopy(item))
	}
	return result
}

// identifier returns the normalized identifier of item under key. Items
// that are not mappings, lack the key, hold a null or hold a non-scalar
// identifier have none.
func identifier(item any, key string) (any, bool) {
	m, ok := asMap(item)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	if !ok || v == nil || ShapeOf(v) != ShapeScalar {
		return nil, false
	}
	return scalarKey(v)
}

// elementSegment renders the path segment of a list element.
func elementSegment(item any, key string, pos int) string {
	if key != "" {
		if m, ok := asMap(item); ok {
			if v, ok := m[key]; ok && v != nil && ShapeOf(v) == ShapeScalar {
				return fmt.Sprintf("[%s=%v]", key, v)
			}
		}
	}
	return fmt.Sprintf("[%d]", pos)
}
