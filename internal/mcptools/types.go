package mcptools

import (
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/audit"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/export"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/orchestrator"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// ConvertNoticeInput is the input for the convert_notice MCP tool.
type ConvertNoticeInput struct {
	XML   string `json:"xml,omitempty" jsonschema:"the eForms notice XML text; takes precedence over path"`
	Path  string `json:"path,omitempty" jsonschema:"path to an eForms notice XML file"`
	Query string `json:"query,omitempty" jsonschema:"optional gjson path selecting part of the release, e.g. tender.lots.#.id"`
}

// ConvertNoticeOutput is the result of the convert_notice MCP tool.
type ConvertNoticeOutput struct {
	RunID     string                          `json:"runId"`
	NoticeID  string                          `json:"noticeId"`
	Release   map[string]any                  `json:"release"`
	Selection string                          `json:"selection,omitempty"`
	Summary   export.Summary                  `json:"summary"`
	Outcomes  []orchestrator.ConverterOutcome `json:"outcomes"`
	Conflicts []export.ConflictExport         `json:"conflicts"`
	Issues    []export.IssueExport            `json:"issues,omitempty"`
}

// ListConvertersInput is the input for the list_converters MCP tool.
type ListConvertersInput struct{}

// ConverterInfo describes one registered converter.
type ConverterInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

// ListConvertersOutput is the result of the list_converters MCP tool.
type ListConvertersOutput struct {
	Converters []ConverterInfo `json:"converters"`
}

// GetRunConflictsInput is the input for the get_run_conflicts MCP tool.
type GetRunConflictsInput struct {
	RunID      string `json:"runId,omitempty" jsonschema:"run to inspect; empty searches every recorded run"`
	PathPrefix string `json:"pathPrefix,omitempty" jsonschema:"only conflicts whose path starts with this prefix, e.g. tender.lots"`
	Source     string `json:"source,omitempty" jsonschema:"only conflicts raised by this converter, e.g. BT-21-Lot"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 100)"`
}

// GetRunConflictsOutput is the result of the get_run_conflicts MCP tool.
type GetRunConflictsOutput struct {
	Conflicts []audit.Conflict `json:"conflicts"`
	Total     int              `json:"total"`
}

// ListRunsInput is the input for the list_runs MCP tool.
type ListRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs, newest first (default: 20)"`
}

// RunInfo summarizes one recorded run.
type RunInfo struct {
	ID         string `json:"id"`
	NoticeID   string `json:"noticeId"`
	NoticeType string `json:"noticeType"`
	StartedAt  string `json:"startedAt"`
	Applied    int    `json:"applied"`
	Skipped    int    `json:"skipped"`
	Errored    int    `json:"errored"`
	Conflicts  int    `json:"conflicts"`
}

// ListRunsOutput is the result of the list_runs MCP tool.
type ListRunsOutput struct {
	Runs  []RunInfo   `json:"runs"`
	Stats audit.Stats `json:"stats"`
}
