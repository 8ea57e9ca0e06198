package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu         sync.RWMutex
	runs       map[string]Run
	order      []string // run IDs in insertion order
	outcomes   map[string][]Outcome
	conflicts  map[string][]Conflict
	converters map[string]bool
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		runs:       make(map[string]Run),
		outcomes:   make(map[string][]Outcome),
		conflicts:  make(map[string][]Conflict),
		converters: make(map[string]bool),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

// RecordRun stores rec. Recording the same run twice is an error.
func (m *MemStore) RecordRun(_ context.Context, rec RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.runs[rec.Run.ID]; dup {
		return fmt.Errorf("audit: run %s already recorded", rec.Run.ID)
	}
	m.runs[rec.Run.ID] = rec.Run
	m.order = append(m.order, rec.Run.ID)
	m.outcomes[rec.Run.ID] = append([]Outcome(nil), rec.Outcomes...)
	m.conflicts[rec.Run.ID] = append([]Conflict(nil), rec.Conflicts...)
	for _, o := range rec.Outcomes {
		m.converters[o.ConverterID] = true
	}
	return nil
}

// GetRun returns the run with the given ID.
func (m *MemStore) GetRun(_ context.Context, runID string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("audit: %w: %s", ErrUnknownRun, runID)
	}
	return &r, nil
}

// ListRuns returns runs newest first, up to limit. A limit <= 0 returns all.
func (m *MemStore) ListRuns(_ context.Context, limit int) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Run
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, m.runs[m.order[i]])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Outcomes returns a run's outcomes in registration order.
func (m *MemStore) Outcomes(_ context.Context, runID string) ([]Outcome, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.runs[runID]; !ok {
		return nil, fmt.Errorf("audit: %w: %s", ErrUnknownRun, runID)
	}
	return append([]Outcome(nil), m.outcomes[runID]...), nil
}

// Conflicts returns a run's conflicts in log order.
func (m *MemStore) Conflicts(_ context.Context, runID string) ([]Conflict, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.runs[runID]; !ok {
		return nil, fmt.Errorf("audit: %w: %s", ErrUnknownRun, runID)
	}
	return append([]Conflict(nil), m.conflicts[runID]...), nil
}

// ConflictsByPath returns conflicts whose path starts with prefix, ordered
// by run ID then sequence.
func (m *MemStore) ConflictsByPath(_ context.Context, prefix string, limit int) ([]Conflict, error) {
	out := m.filter(func(c Conflict) bool { return strings.HasPrefix(c.Path, prefix) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ConflictsBySource returns conflicts raised by converterID, ordered by run
// ID then sequence.
func (m *MemStore) ConflictsBySource(_ context.Context, converterID string) ([]Conflict, error) {
	return m.filter(func(c Conflict) bool { return c.Source == converterID }), nil
}

func (m *MemStore) filter(keep func(Conflict) bool) []Conflict {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Conflict
	for _, cs := range m.conflicts {
		for _, c := range cs {
			if keep(c) {
				out = append(out, c)
			}
		}
	}
	sortConflicts(out)
	return out
}

// Stats returns counts of runs, converters, outcomes and conflicts.
func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := &Stats{RunCount: len(m.runs), ConverterCount: len(m.converters)}
	for _, o := range m.outcomes {
		st.OutcomeCount += len(o)
	}
	for _, cs := range m.conflicts {
		st.ConflictCount += len(cs)
	}
	return st, nil
}

func sortConflicts(cs []Conflict) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].RunID != cs[j].RunID {
			return cs[i].RunID < cs[j].RunID
		}
		return cs[i].Seq < cs[j].Seq
	})
}
