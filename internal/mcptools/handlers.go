package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/audit"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/converters"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/export"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/notice"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/orchestrator"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ConvertService holds the pipeline and audit store used by MCP tool
// handlers.
type ConvertService struct {
	pipeline orchestrator.Orchestrator
	terms    []converters.Term
	store    audit.Store
}

// NewConvertService creates a ConvertService running terms through a
// pipeline built from cfg. Every run is recorded in store.
func NewConvertService(cfg orchestrator.Config, terms []converters.Term, store audit.Store) (*ConvertService, error) {
	convs := make([]orchestrator.Converter, len(terms))
	for i, t := range terms {
		convs[i] = t
	}
	p, err := orchestrator.NewPipeline(cfg, convs)
	if err != nil {
		return nil, err
	}
	return &ConvertService{pipeline: p, terms: terms, store: store}, nil
}

// ConvertNotice converts one notice, records the run and returns the
// release with its diagnostics.
func (s *ConvertService) ConvertNotice(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ConvertNoticeInput,
) (*mcp.CallToolResult, ConvertNoticeOutput, error) {
	var (
		src *notice.Notice
		err error
	)
	switch {
	case strings.TrimSpace(input.XML) != "":
		src, err = notice.ParseString(input.XML)
	case input.Path != "":
		src, err = notice.ParseFile(input.Path)
	default:
		return nil, ConvertNoticeOutput{}, errors.New("xml or path is required")
	}
	if err != nil {
		return nil, ConvertNoticeOutput{}, err
	}

	started := time.Now()
	res, err := s.pipeline.Run(ctx, src)
	if err != nil {
		return nil, ConvertNoticeOutput{}, err
	}
	if err := s.store.RecordRun(ctx, audit.FromResult(src.NoticeID(), src.NoticeType(), started, res)); err != nil {
		return nil, ConvertNoticeOutput{}, fmt.Errorf("record run: %w", err)
	}

	diag := export.BuildDiagnostics(src.NoticeID(), src.NoticeType(), res)
	out := ConvertNoticeOutput{
		RunID:     res.RunID,
		NoticeID:  src.NoticeID(),
		Release:   res.Release.Snapshot(),
		Summary:   diag.Summary,
		Outcomes:  diag.Outcomes,
		Conflicts: diag.Conflicts,
		Issues:    diag.Issues,
	}
	if input.Query != "" {
		out.Selection, err = export.Query(res.Release, input.Query, false)
		if err != nil {
			return nil, ConvertNoticeOutput{}, err
		}
	}
	return nil, out, nil
}

// ListConverters returns the registered converters in fold order.
func (s *ConvertService) ListConverters(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListConvertersInput,
) (*mcp.CallToolResult, ListConvertersOutput, error) {
	registered := make(map[string]bool)
	for _, c := range s.pipeline.Converters() {
		registered[c.ID()] = true
	}

	out := ListConvertersOutput{Converters: []ConverterInfo{}}
	for _, t := range s.terms {
		if !registered[t.ID()] {
			continue
		}
		out.Converters = append(out.Converters, ConverterInfo{
			ID:          t.ID(),
			Description: t.Description(),
			Position:    len(out.Converters),
		})
	}
	return nil, out, nil
}

// GetRunConflicts queries the audit store by run, path prefix or source.
func (s *ConvertService) GetRunConflicts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetRunConflictsInput,
) (*mcp.CallToolResult, GetRunConflictsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 100
	}

	var (
		found []audit.Conflict
		err   error
	)
	switch {
	case input.RunID != "":
		found, err = s.store.Conflicts(ctx, input.RunID)
	case input.Source != "":
		found, err = s.store.ConflictsBySource(ctx, input.Source)
	default:
		found, err = s.store.ConflictsByPath(ctx, input.PathPrefix, 0)
	}
	if err != nil {
		return nil, GetRunConflictsOutput{}, err
	}

	out := GetRunConflictsOutput{Conflicts: []audit.Conflict{}}
	for _, c := range found {
		if input.PathPrefix != "" && !strings.HasPrefix(c.Path, input.PathPrefix) {
			continue
		}
		if input.Source != "" && c.Source != input.Source {
			continue
		}
		out.Total++
		if len(out.Conflicts) < limit {
			out.Conflicts = append(out.Conflicts, c)
		}
	}
	return nil, out, nil
}

// ListRuns returns recorded runs newest first with store statistics.
func (s *ConvertService) ListRuns(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListRunsInput,
) (*mcp.CallToolResult, ListRunsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, ListRunsOutput{}, err
	}
	st, err := s.store.Stats(ctx)
	if err != nil {
		return nil, ListRunsOutput{}, err
	}
	out := ListRunsOutput{Runs: make([]RunInfo, 0, len(runs)), Stats: *st}
	for _, r := range runs {
		out.Runs = append(out.Runs, RunInfo{
			ID:         r.ID,
			NoticeID:   r.NoticeID,
			NoticeType: r.NoticeType,
			StartedAt:  r.StartedAt.UTC().Format(time.RFC3339),
			Applied:    r.Applied,
			Skipped:    r.Skipped,
			Errored:    r.Errored,
			Conflicts:  r.Conflicts,
		})
	}
	return nil, out, nil
}
