package merge

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidOptions indicates invalid merge options were provided.
var ErrInvalidOptions = errors.New("invalid options")

// DefaultIdentifierKeys correlates list entities by their "id" field.
var DefaultIdentifierKeys = []string{"id"}

// Options configures a Merger. The zero value is valid: entities are
// correlated by "id", conflicts go to a fresh log and provenance is off.
type Options struct {
	// IdentifierKeys lists field names tried, in order, to decide whether
	// a sequence is keyed and by which field.
	IdentifierKeys []string

	// Log receives conflict records. A new log is created when nil.
	Log *ConflictLog

	// Provenance, when set, receives every leaf path written.
	Provenance *Provenance
}

// Merger folds JSON-like values together. It mutates the existing side of
// every merge in place and never retains or mutates the incoming side.
//
// A Merger is not safe for concurrent use; the pipeline serializes folds.
type Merger struct {
	keys []string
	log  *ConflictLog
	prov *Provenance
}

// NewMerger creates a Merger with the given options.
func NewMerger(opts Options) (*Merger, error) {
	keys := opts.IdentifierKeys
	if len(keys) == 0 {
		keys = DefaultIdentifierKeys
	}
	for _, k := range keys {
		if k == "" {
			return nil, fmt.Errorf("%w: empty string in IdentifierKeys", ErrInvalidOptions)
		}
	}
	log := opts.Log
	if log == nil {
		log = NewConflictLog()
	}
	return &Merger{
		keys: append([]string(nil), keys...),
		log:  log,
		prov: opts.Provenance,
	}, nil
}

// Log returns the conflict log the merger appends to.
func (m *Merger) Log() *ConflictLog {
	return m.log
}

// Merge combines incoming into existing and returns the result, attributing
// any conflicts to source. When both are mappings the existing mapping is
// updated in place and returned.
func (m *Merger) Merge(existing, incoming any, source string) any {
	s := step{m: m, source: source}
	return s.value(existing, incoming, nil)
}

// MergeList merges two sequences of keyed entities. An empty key selects
// the first configured identifier key present in either sequence.
func (m *Merger) MergeList(existing, incoming []any, key, source string) []any {
	s := step{m: m, source: source}
	if key == "" {
		key = s.listKey(existing, incoming)
	}
	if key == "" {
		return s.positional(existing, incoming, nil)
	}
	return s.keyed(existing, incoming, key, nil)
}

// step carries the attribution for one merge call.
type step struct {
	m      *Merger
	source string
}

func (s step) value(existing, incoming any, path []string) any {
	inShape := ShapeOf(incoming)
	if inShape == ShapeAbsent {
		return existing
	}
	exShape := ShapeOf(existing)
	if exShape == ShapeAbsent {
		s.leaves(incoming, path)
		return deepCopy(incoming)
	}

	if em, ok := asMap(existing); ok {
		if im, ok := asMap(incoming); ok {
			return s.mapping(em, im, path)
		}
	}
	if es, ok := asSlice(existing); ok {
		if is, ok := asSlice(incoming); ok {
			return s.sequence(es, is, path)
		}
	}

	if exShape == ShapeScalar && inShape == ShapeScalar {
		if scalarEqual(existing, incoming) {
			s.m.prov.Record(path, s.source)
			return existing
		}
		s.conflict(ConflictOverwrite, path, existing, incoming)
		s.m.prov.Record(path, s.source)
		return incoming
	}

	s.conflict(ConflictShape, path, existing, incoming)
	s.leaves(incoming, path)
	return deepCopy(incoming)
}

// mapping merges incoming into existing key by key, in sorted key order so
// the conflict log is deterministic.
func (s step) mapping(existing, incoming map[string]any, path []string) map[string]any {
	keys := make([]string, 0, len(incoming))
	for k := range incoming {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := incoming[k]
		p := child(path, k)
		if cur, ok := existing[k]; ok {
			existing[k] = s.value(cur, v, p)
			continue
		}
		if ShapeOf(v) == ShapeAbsent {
			continue
		}
		s.leaves(v, p)
		existing[k] = deepCopy(v)
	}
	return existing
}

func (s step) sequence(existing, incoming []any, path []string) []any {
	if key := s.listKey(existing, incoming); key != "" {
		return s.keyed(existing, incoming, key, path)
	}
	return s.positional(existing, incoming, path)
}

// listKey returns the first identifier key carried by any mapping in
// either sequence, or "" when the sequences are positional.
func (s step) listKey(existing, incoming []any) string {
	for _, key := range s.m.keys {
		for _, items := range [][]any{incoming, existing} {
			for _, item := range items {
				if _, ok := identifier(item, key); ok {
					return key
				}
			}
		}
	}
	return ""
}

func (s step) conflict(kind ConflictKind, path []string, previous, incoming any) {
	s.m.log.Append(ConflictRecord{
		Kind:     kind,
		Path:     path,
		Previous: previous,
		Incoming: incoming,
		Source:   s.source,
	})
}

// leaves records provenance for every leaf under v.
func (s step) leaves(v any, path []string) {
	if s.m.prov == nil {
		return
	}
	if m, ok := asMap(v); ok && len(m) > 0 {
		for k, val := range m {
			s.leaves(val, child(path, k))
		}
		return
	}
	if items, ok := asSlice(v); ok && len(items) > 0 {
		key := s.listKey(nil, items)
		for i, item := range items {
			s.leaves(item, child(path, elementSegment(item, key, i)))
		}
		return
	}
	s.m.prov.Record(path, s.source)
}

// child returns a fresh path with seg appended.
func child(path []string, seg string) []string {
	p := make([]string, len(path)+1)
	copy(p, path)
	p[len(path)] = seg
	return p
}
