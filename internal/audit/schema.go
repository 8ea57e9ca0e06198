package audit

import (
	"encoding/json"
	"time"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/orchestrator"
)

// Run summarizes one conversion run.
type Run struct {
	ID         string    `json:"id"`
	NoticeID   string    `json:"noticeId"`
	NoticeType string    `json:"noticeType"`
	StartedAt  time.Time `json:"startedAt"`
	Applied    int       `json:"applied"`
	Skipped    int       `json:"skipped"`
	Errored    int       `json:"errored"`
	Conflicts  int       `json:"conflicts"`
}

// Outcome is one converter's result within a run.
type Outcome struct {
	RunID       string `json:"runId"`
	ConverterID string `json:"converterId"`
	Position    int    `json:"position"`
	Status      string `json:"status"`
	ErrorKind   string `json:"errorKind,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Conflict is one conflict log entry. Previous and Incoming hold the
// JSON encoding of the values.
type Conflict struct {
	RunID    string `json:"runId"`
	Seq      int    `json:"seq"`
	Kind     string `json:"kind"`
	Path     string `json:"path"`
	Previous string `json:"previous"`
	Incoming string `json:"incoming"`
	Source   string `json:"source"`
}

// RunRecord is everything persisted for one run.
type RunRecord struct {
	Run       Run
	Outcomes  []Outcome
	Conflicts []Conflict
}

// Stats summarizes the store.
type Stats struct {
	RunCount       int `json:"runCount"`
	ConverterCount int `json:"converterCount"`
	OutcomeCount   int `json:"outcomeCount"`
	ConflictCount  int `json:"conflictCount"`
}

// FromResult flattens a pipeline result into a RunRecord.
func FromResult(noticeID, noticeType string, startedAt time.Time, res *orchestrator.Result) RunRecord {
	rec := RunRecord{
		Run: Run{
			ID:         res.RunID,
			NoticeID:   noticeID,
			NoticeType: noticeType,
			StartedAt:  startedAt.UTC(),
			Applied:    res.Count(orchestrator.StatusApplied),
			Skipped:    res.Count(orchestrator.StatusSkipped),
			Errored:    res.Count(orchestrator.StatusErrored),
			Conflicts:  len(res.Conflicts),
		},
		Outcomes:  make([]Outcome, len(res.Outcomes)),
		Conflicts: make([]Conflict, len(res.Conflicts)),
	}
	for i, o := range res.Outcomes {
		rec.Outcomes[i] = Outcome{
			RunID:       res.RunID,
			ConverterID: o.ConverterID,
			Position:    i,
			Status:      string(o.Status),
			ErrorKind:   string(o.ErrorKind),
			Error:       o.Error,
		}
	}
	for i, c := range res.Conflicts {
		rec.Conflicts[i] = Conflict{
			RunID:    res.RunID,
			Seq:      i,
			Kind:     string(c.Kind),
			Path:     merge.JoinPath(c.Path),
			Previous: encode(c.Previous),
			Incoming: encode(c.Incoming),
			Source:   c.Source,
		}
	}
	return rec
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
