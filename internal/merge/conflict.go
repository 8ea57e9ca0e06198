package merge

import (
	"fmt"
	"slices"
	"sync"
)

// ConflictKind classifies a recorded merge decision.
type ConflictKind string

const (
	// ConflictOverwrite is a scalar replaced by a different scalar.
	ConflictOverwrite ConflictKind = "overwrite"
	// ConflictShape is a value replaced by one of a different shape.
	ConflictShape ConflictKind = "shape_mismatch"
	// ConflictMissingIdentifier is an entity without an identifier appended
	// to a keyed list.
	ConflictMissingIdentifier ConflictKind = "missing_identifier"
	// ConflictDuplicateIdentifier is a second entity with an already indexed
	// identifier found in an existing keyed list.
	ConflictDuplicateIdentifier ConflictKind = "duplicate_identifier"
)

// ErrorKind maps the conflict to the error kind it stands in for.
// Plain overwrites carry no error kind.
func (k ConflictKind) ErrorKind() ErrorKind {
	switch k {
	case ConflictShape:
		return KindShapeConflict
	case ConflictMissingIdentifier, ConflictDuplicateIdentifier:
		return KindMalformedFragment
	default:
		return ""
	}
}

// ConflictRecord is one entry of the conflict log.
type ConflictRecord struct {
	Kind     ConflictKind `json:"kind"`
	Path     []string     `json:"path"`
	Previous any          `json:"previous,omitempty"`
	Incoming any          `json:"incoming,omitempty"`
	Source   string       `json:"source"`
}

func (r ConflictRecord) String() string {
	return fmt.Sprintf("%s at %s: %v -> %v (source %s)",
		r.Kind, JoinPath(r.Path), r.Previous, r.Incoming, r.Source)
}

// ConflictLog is an append-only record of overwrites and ambiguous merge
// decisions. It is safe for concurrent use.
type ConflictLog struct {
	mu      sync.Mutex
	records []ConflictRecord
}

// NewConflictLog returns an empty log.
func NewConflictLog() *ConflictLog {
	return &ConflictLog{}
}

// Append records r. Values and path are copied so later mutation of the
// release cannot alter the record.
func (l *ConflictLog) Append(r ConflictRecord) {
	r.Path = slices.Clone(r.Path)
	r.Previous = deepCopy(r.Previous)
	r.Incoming = deepCopy(r.Incoming)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
}

// Records returns a copy of every record in append order.
func (l *ConflictLog) Records() []ConflictRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

// Len returns the number of records.
func (l *ConflictLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Since returns a copy of the records appended after the first n.
func (l *ConflictLog) Since(n int) []ConflictRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n >= len(l.records) {
		return nil
	}
	if n < 0 {
		n = 0
	}
	return slices.Clone(l.records[n:])
}
