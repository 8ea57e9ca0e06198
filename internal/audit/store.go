// Package audit persists conversion runs: per-converter outcomes and the
// conflict log, queryable by run, path or source converter.
package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrUnknownRun is returned when a run ID is not in the store.
var ErrUnknownRun = errors.New("unknown run")

// Store is the audit backend.
// Implementations: KuzuStore (persistent), MemStore (default and tests).
type Store interface {
	io.Closer

	// Schema setup, called once before any run is recorded.
	InitSchema(ctx context.Context) error

	// RecordRun stores a run with its outcomes and conflicts.
	RecordRun(ctx context.Context, rec RunRecord) error

	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Outcomes(ctx context.Context, runID string) ([]Outcome, error)
	Conflicts(ctx context.Context, runID string) ([]Conflict, error)

	// ConflictsByPath returns conflicts whose path starts with prefix, across
	// runs. A limit <= 0 returns all matches.
	ConflictsByPath(ctx context.Context, prefix string, limit int) ([]Conflict, error)

	// ConflictsBySource returns conflicts raised by one converter.
	ConflictsBySource(ctx context.Context, converterID string) ([]Conflict, error)

	Stats(ctx context.Context) (*Stats, error)
}

// Backends accepted by Open.
const (
	BackendMemory = "memory"
	BackendKuzu   = "kuzu"
)

// Open returns an initialized store for backend. path is only used by the
// kuzu backend; empty means an in-memory database.
func Open(ctx context.Context, backend, path string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch backend {
	case "", BackendMemory:
		s = NewMemStore()
	case BackendKuzu:
		s, err = openKuzu(path)
	default:
		return nil, fmt.Errorf("audit: unknown backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	if err := s.InitSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
