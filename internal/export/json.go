package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/orchestrator"
	"github.com/tidwall/gjson"
)

// ErrNoMatch is returned by Query when the path selects nothing.
var ErrNoMatch = errors.New("query matched nothing")

// Diagnostics is the JSON bundle written next to a release.
type Diagnostics struct {
	RunID      string                          `json:"runId"`
	NoticeID   string                          `json:"noticeId"`
	NoticeType string                          `json:"noticeType"`
	ExportedAt string                          `json:"exportedAt"`
	Summary    Summary                         `json:"summary"`
	Outcomes   []orchestrator.ConverterOutcome `json:"outcomes"`
	Conflicts  []ConflictExport                `json:"conflicts"`
	Issues     []IssueExport                   `json:"issues,omitempty"`
	Provenance map[string][]string             `json:"provenance,omitempty"`
}

// Summary counts outcomes by status.
type Summary struct {
	Applied   int `json:"applied"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
	Conflicts int `json:"conflicts"`
}

// ConflictExport is a conflict record with its path joined.
type ConflictExport struct {
	Kind     merge.ConflictKind `json:"kind"`
	Path     string             `json:"path"`
	Previous any                `json:"previous"`
	Incoming any                `json:"incoming"`
	Source   string             `json:"source"`
}

// IssueExport describes one coherence issue.
type IssueExport struct {
	Path        string `json:"path"`
	Description string `json:"description"`
}

// BuildDiagnostics flattens a pipeline result for export.
func BuildDiagnostics(noticeID, noticeType string, res *orchestrator.Result) *Diagnostics {
	d := &Diagnostics{
		RunID:      res.RunID,
		NoticeID:   noticeID,
		NoticeType: noticeType,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Summary: Summary{
			Applied:   res.Count(orchestrator.StatusApplied),
			Skipped:   res.Count(orchestrator.StatusSkipped),
			Errored:   res.Count(orchestrator.StatusErrored),
			Conflicts: len(res.Conflicts),
		},
		Outcomes:   res.Outcomes,
		Conflicts:  make([]ConflictExport, 0, len(res.Conflicts)),
		Provenance: res.Provenance,
	}
	for _, c := range res.Conflicts {
		d.Conflicts = append(d.Conflicts, ConflictExport{
			Kind:     c.Kind,
			Path:     merge.JoinPath(c.Path),
			Previous: c.Previous,
			Incoming: c.Incoming,
			Source:   c.Source,
		})
	}
	for _, i := range res.Issues {
		d.Issues = append(d.Issues, IssueExport{Path: i.Path, Description: i.Description})
	}
	return d
}

// WriteJSON encodes v to w, indented with two spaces when indent is set.
func WriteJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("export: encode: %w", err)
	}
	return nil
}

// WriteJSONFile writes v to path, creating parent directories. The file is
// written to a temporary sibling and renamed into place.
func WriteJSONFile(path string, v any, indent bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteJSON(tmp, v, indent); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// Query selects a sub-tree of the release with a gjson path, e.g.
// "tender.lots.#.id" or `parties.#(id=="ORG-0001").name`. The raw JSON of
// the match is returned, pretty-printed when indent is set.
func Query(r *merge.Release, path string, indent bool) (string, error) {
	data, err := r.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("export: encode: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return "", errors.New("export: release is not valid JSON")
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return "", fmt.Errorf("export: %w: %s", ErrNoMatch, path)
	}
	if indent && (res.IsObject() || res.IsArray()) {
		return gjson.Get(res.Raw, "@pretty").Raw, nil
	}
	return res.Raw, nil
}
