//go:build cgo

package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements Store using KuzuDB. Runs, converters and conflicts
// are nodes; outcomes are RAN edges from a run to a converter.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	mu   sync.Mutex
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openDatabase(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given path. KuzuDB creates the leaf itself for new databases.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openDatabase(dbPath)
}

func openKuzu(path string) (Store, error) {
	if path == "" {
		return NewKuzuStore()
	}
	return NewKuzuFileStore(path)
}

func openDatabase(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Run(
		id STRING,
		notice_id STRING,
		notice_type STRING,
		started_at STRING,
		applied INT64,
		skipped INT64,
		errored INT64,
		conflicts INT64,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Converter(
		id STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Conflict(
		id STRING,
		run_id STRING,
		seq INT64,
		kind STRING,
		path STRING,
		previous STRING,
		incoming STRING,
		source STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS RAN(
		FROM Run TO Converter,
		position INT64,
		status STRING,
		error_kind STRING,
		error STRING
	)`,
	`CREATE REL TABLE IF NOT EXISTS RAISED_BY(FROM Conflict TO Converter)`,
	`CREATE REL TABLE IF NOT EXISTS IN_RUN(FROM Conflict TO Run)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// RecordRun inserts the run node, MERGEs one Converter node per outcome,
// then links outcomes and conflicts.
func (s *KuzuStore) RecordRun(_ context.Context, rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.query("MATCH (r:Run {id: $id}) RETURN r.id", map[string]any{"id": rec.Run.ID})
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return fmt.Errorf("audit: run %s already recorded", rec.Run.ID)
	}

	r := rec.Run
	if err := s.exec(
		`CREATE (r:Run {
			id: $id,
			notice_id: $nid,
			notice_type: $ntype,
			started_at: $started,
			applied: $applied,
			skipped: $skipped,
			errored: $errored,
			conflicts: $conflicts
		})`,
		map[string]any{
			"id":        r.ID,
			"nid":       r.NoticeID,
			"ntype":     r.NoticeType,
			"started":   r.StartedAt.UTC().Format(time.RFC3339Nano),
			"applied":   int64(r.Applied),
			"skipped":   int64(r.Skipped),
			"errored":   int64(r.Errored),
			"conflicts": int64(r.Conflicts),
		},
	); err != nil {
		return err
	}

	for _, o := range rec.Outcomes {
		if err := s.exec("MERGE (c:Converter {id: $id})", map[string]any{"id": o.ConverterID}); err != nil {
			return err
		}
		if err := s.exec(
			`MATCH (r:Run {id: $run}), (c:Converter {id: $conv})
			 CREATE (r)-[:RAN {position: $pos, status: $status, error_kind: $kind, error: $err}]->(c)`,
			map[string]any{
				"run":    r.ID,
				"conv":   o.ConverterID,
				"pos":    int64(o.Position),
				"status": o.Status,
				"kind":   o.ErrorKind,
				"err":    o.Error,
			},
		); err != nil {
			return err
		}
	}

	for _, c := range rec.Conflicts {
		id := conflictID(r.ID, c.Seq)
		if err := s.exec(
			`CREATE (x:Conflict {
				id: $id,
				run_id: $run,
				seq: $seq,
				kind: $kind,
				path: $path,
				previous: $prev,
				incoming: $inc,
				source: $src
			})`,
			map[string]any{
				"id":   id,
				"run":  r.ID,
				"seq":  int64(c.Seq),
				"kind": c.Kind,
				"path": c.Path,
				"prev": c.Previous,
				"inc":  c.Incoming,
				"src":  c.Source,
			},
		); err != nil {
			return err
		}
		if err := s.exec(
			`MATCH (x:Conflict {id: $id}), (r:Run {id: $run})
			 CREATE (x)-[:IN_RUN]->(r)`,
			map[string]any{"id": id, "run": r.ID},
		); err != nil {
			return err
		}
		if err := s.exec("MERGE (c:Converter {id: $id})", map[string]any{"id": c.Source}); err != nil {
			return err
		}
		if err := s.exec(
			`MATCH (x:Conflict {id: $id}), (c:Converter {id: $src})
			 CREATE (x)-[:RAISED_BY]->(c)`,
			map[string]any{"id": id, "src": c.Source},
		); err != nil {
			return err
		}
	}
	return nil
}

// ---------- Read operations ----------

const (
	runColumns      = "r.id, r.notice_id, r.notice_type, r.started_at, r.applied, r.skipped, r.errored, r.conflicts"
	conflictColumns = "x.run_id, x.seq, x.kind, x.path, x.previous, x.incoming, x.source"
)

// GetRun retrieves a single Run node.
func (s *KuzuStore) GetRun(_ context.Context, runID string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.query("MATCH (r:Run {id: $id}) RETURN "+runColumns, map[string]any{"id": runID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("audit: %w: %s", ErrUnknownRun, runID)
	}
	run := rowToRun(rows[0])
	return &run, nil
}

// ListRuns returns runs newest first, up to limit. A limit <= 0 returns all.
func (s *KuzuStore) ListRuns(_ context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cypher := "MATCH (r:Run) RETURN " + runColumns + " ORDER BY r.started_at DESC, r.id"
	var params map[string]any
	if limit > 0 {
		cypher += " LIMIT $lim"
		params = map[string]any{"lim": int64(limit)}
	}
	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]Run, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToRun(r))
	}
	return out, nil
}

// Outcomes follows the run's RAN edges in registration order.
func (s *KuzuStore) Outcomes(_ context.Context, runID string) ([]Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireRun(runID); err != nil {
		return nil, err
	}
	rows, err := s.query(
		`MATCH (r:Run {id: $id})-[e:RAN]->(c:Converter)
		 RETURN c.id, e.position, e.status, e.error_kind, e.error
		 ORDER BY e.position`,
		map[string]any{"id": runID},
	)
	if err != nil {
		return nil, err
	}
	out := make([]Outcome, 0, len(rows))
	for _, r := range rows {
		out = append(out, Outcome{
			RunID:       runID,
			ConverterID: toString(r[0]),
			Position:    toInt(r[1]),
			Status:      toString(r[2]),
			ErrorKind:   toString(r[3]),
			Error:       toString(r[4]),
		})
	}
	return out, nil
}

// Conflicts follows IN_RUN edges into the run, in log order.
func (s *KuzuStore) Conflicts(_ context.Context, runID string) ([]Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireRun(runID); err != nil {
		return nil, err
	}
	return s.conflicts(
		`MATCH (x:Conflict)-[:IN_RUN]->(r:Run {id: $id})
		 RETURN `+conflictColumns+` ORDER BY x.seq`,
		map[string]any{"id": runID},
	)
}

// ConflictsByPath returns conflicts whose path starts with prefix.
func (s *KuzuStore) ConflictsByPath(_ context.Context, prefix string, limit int) ([]Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cypher := `MATCH (x:Conflict) WHERE x.path STARTS WITH $prefix
		 RETURN ` + conflictColumns + ` ORDER BY x.run_id, x.seq`
	params := map[string]any{"prefix": prefix}
	if limit > 0 {
		cypher += " LIMIT $lim"
		params["lim"] = int64(limit)
	}
	return s.conflicts(cypher, params)
}

// ConflictsBySource follows RAISED_BY edges back from a converter.
func (s *KuzuStore) ConflictsBySource(_ context.Context, converterID string) ([]Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conflicts(
		`MATCH (x:Conflict)-[:RAISED_BY]->(c:Converter {id: $id})
		 RETURN `+conflictColumns+` ORDER BY x.run_id, x.seq`,
		map[string]any{"id": converterID},
	)
}

// ---------- Stats ----------

// Stats returns counts of the node tables and RAN edges.
func (s *KuzuStore) Stats(_ context.Context) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs, err := s.countTable("Run")
	if err != nil {
		return nil, err
	}
	converters, err := s.countTable("Converter")
	if err != nil {
		return nil, err
	}
	conflicts, err := s.countTable("Conflict")
	if err != nil {
		return nil, err
	}
	rows, err := s.query("MATCH ()-[e:RAN]->() RETURN count(e)", nil)
	if err != nil {
		return nil, err
	}
	outcomes := 0
	if len(rows) > 0 && len(rows[0]) > 0 {
		outcomes = toInt(rows[0][0])
	}
	return &Stats{
		RunCount:       runs,
		ConverterCount: converters,
		OutcomeCount:   outcomes,
		ConflictCount:  conflicts,
	}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func (s *KuzuStore) conflicts(cypher string, params map[string]any) ([]Conflict, error) {
	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]Conflict, 0, len(rows))
	for _, r := range rows {
		out = append(out, Conflict{
			RunID:    toString(r[0]),
			Seq:      toInt(r[1]),
			Kind:     toString(r[2]),
			Path:     toString(r[3]),
			Previous: toString(r[4]),
			Incoming: toString(r[5]),
			Source:   toString(r[6]),
		})
	}
	return out, nil
}

func (s *KuzuStore) requireRun(runID string) error {
	rows, err := s.query("MATCH (r:Run {id: $id}) RETURN r.id", map[string]any{"id": runID})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("audit: %w: %s", ErrUnknownRun, runID)
	}
	return nil
}

// countTable returns the number of rows in a node table.
func (s *KuzuStore) countTable(table string) (int, error) {
	// Table name is a fixed internal constant, not user input.
	cypher := fmt.Sprintf("MATCH (n:%s) RETURN count(n)", table)
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// conflictID produces a deterministic key: "runID#seq".
func conflictID(runID string, seq int) string {
	return fmt.Sprintf("%s#%d", runID, seq)
}

// rowToRun converts an 8-column result row into a Run.
// Column order follows runColumns.
func rowToRun(r []any) Run {
	started, _ := time.Parse(time.RFC3339Nano, toString(r[3]))
	return Run{
		ID:         toString(r[0]),
		NoticeID:   toString(r[1]),
		NoticeType: toString(r[2]),
		StartedAt:  started,
		Applied:    toInt(r[4]),
		Skipped:    toInt(r[5]),
		Errored:    toInt(r[6]),
		Conflicts:  toInt(r[7]),
	}
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
