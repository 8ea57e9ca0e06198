package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/notice"
	"github.com/google/uuid"
)

// Compile-time interface check.
var _ Orchestrator = (*Pipeline)(nil)

// Pipeline extracts fragments in parallel through a FanOut and folds them,
// one at a time and in registration order, into a single release.
type Pipeline struct {
	cfg        Config
	converters []Converter
	progress   *ProgressReporter
	fanout     *FanOut
}

// NewPipeline registers converters in the given order, minus any listed in
// cfg.Disabled. Duplicate converter IDs and invalid identifier keys are
// rejected.
func NewPipeline(cfg Config, converters []Converter) (*Pipeline, error) {
	if _, err := merge.NewMerger(merge.Options{IdentifierKeys: cfg.IdentifierKeys}); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	seen := make(map[string]bool, len(converters))
	registered := make([]Converter, 0, len(converters))
	for _, c := range converters {
		id := c.ID()
		if id == "" {
			return nil, errors.New("pipeline: converter with empty ID")
		}
		if seen[id] {
			return nil, fmt.Errorf("pipeline: duplicate converter ID %q", id)
		}
		seen[id] = true
		if slices.Contains(cfg.Disabled, id) {
			continue
		}
		registered = append(registered, c)
	}

	progress := NewProgressReporter()
	return &Pipeline{
		cfg:        cfg,
		converters: registered,
		progress:   progress,
		fanout:     NewFanOut(cfg.workers(), progress.Emit),
	}, nil
}

// Converters returns the registered converters in fold order.
func (p *Pipeline) Converters() []Converter {
	return slices.Clone(p.converters)
}

// Progress returns a channel that emits progress events.
func (p *Pipeline) Progress() <-chan ProgressEvent {
	return p.progress.Subscribe()
}

// Close shuts down the progress reporter.
func (p *Pipeline) Close() {
	p.progress.Close()
}

// Run converts src. Every registered converter is attempted exactly once
// and gets exactly one outcome. If ctx is cancelled the partially folded,
// frozen result is returned together with the context error; converters
// that were not folded are recorded as cancelled.
func (p *Pipeline) Run(ctx context.Context, src *notice.Notice) (*Result, error) {
	if src == nil {
		return nil, fmt.Errorf("pipeline: %w: nil notice", notice.ErrMalformedSource)
	}

	runID := uuid.NewString()
	log := p.cfg.logger().With("run", runID)

	conflicts := merge.NewConflictLog()
	var prov *merge.Provenance
	if p.cfg.TrackProvenance {
		prov = merge.NewProvenance()
	}
	merger, err := merge.NewMerger(merge.Options{
		IdentifierKeys: p.cfg.IdentifierKeys,
		Log:            conflicts,
		Provenance:     prov,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	release := merge.NewRelease()
	outcomes := make([]ConverterOutcome, 0, len(p.converters))

	log.Debug("run.start", "notice", src.NoticeID(), "converters", len(p.converters), "workers", p.cfg.workers())
	for i, c := range p.converters {
		p.progress.Emit(ProgressEvent{RunID: runID, Converter: c.ID(), Index: i, Status: ProgressPending})
	}

	batch := p.fanout.Start(ctx, runID, src, p.converters)

	var runErr error
	folded := len(p.converters)
	for i, c := range p.converters {
		ex, ok := batch.Await(ctx, i)
		if !ok || ex.cancelled {
			runErr = ctx.Err()
			if runErr == nil {
				runErr = ex.err
			}
			folded = i
			for j, rest := range p.converters[i:] {
				outcomes = append(outcomes, p.record(log, runID, i+j, ConverterOutcome{
					ConverterID: rest.ID(),
					Status:      StatusErrored,
					ErrorKind:   merge.KindCancelled,
					Error:       runErr.Error(),
				}))
			}
			break
		}

		before := conflicts.Len()
		outcome := p.fold(merger, release, c.ID(), ex)
		outcomes = append(outcomes, p.record(log, runID, i, outcome))
		for _, rec := range conflicts.Since(before) {
			log.Warn("merge.conflict",
				"kind", string(rec.Kind),
				"path", merge.JoinPath(rec.Path),
				"previous", rec.Previous,
				"incoming", rec.Incoming,
				"source", rec.Source)
		}
	}
	batch.Wait()

	release.Freeze()
	issues := CheckCoherence(release.Snapshot(), p.cfg.IdentifierKeys)
	for _, issue := range issues {
		log.Warn("coherence.issue", "path", issue.Path, "description", issue.Description)
	}

	res := &Result{
		RunID:      runID,
		Release:    release,
		Outcomes:   outcomes,
		Conflicts:  conflicts.Records(),
		Provenance: prov.Map(),
		Issues:     issues,
	}
	log.Info("run.complete",
		"applied", res.Count(StatusApplied),
		"skipped", res.Count(StatusSkipped),
		"errored", res.Count(StatusErrored),
		"conflicts", len(res.Conflicts))

	if runErr != nil {
		return res, fmt.Errorf("pipeline: run %s stopped after %d of %d converters: %w",
			runID, folded, len(p.converters), runErr)
	}
	return res, nil
}

// fold applies one extraction to the release and returns its outcome.
func (p *Pipeline) fold(merger *merge.Merger, release *merge.Release, id string, ex extraction) ConverterOutcome {
	switch {
	case ex.err != nil:
		return ConverterOutcome{
			ConverterID: id,
			Status:      StatusErrored,
			ErrorKind:   merge.KindConverterFailure,
			Error:       ex.err.Error(),
		}
	case len(ex.fragment) == 0:
		return ConverterOutcome{ConverterID: id, Status: StatusSkipped}
	}

	if err := merger.Fold(release, ex.fragment, id); err != nil {
		return ConverterOutcome{
			ConverterID: id,
			Status:      StatusErrored,
			ErrorKind:   merge.KindOf(err),
			Error:       err.Error(),
		}
	}
	return ConverterOutcome{ConverterID: id, Status: StatusApplied}
}

// record logs an outcome and emits its terminal progress event.
func (p *Pipeline) record(log *slog.Logger, runID string, index int, o ConverterOutcome) ConverterOutcome {
	status := ProgressApplied
	switch o.Status {
	case StatusSkipped:
		status = ProgressSkipped
	case StatusErrored:
		status = ProgressFailed
	}
	p.progress.Emit(ProgressEvent{
		RunID:     runID,
		Converter: o.ConverterID,
		Index:     index,
		Status:    status,
		Message:   o.Error,
	})

	if o.Status == StatusErrored {
		log.Warn("converter.errored", "converter", o.ConverterID, "kind", string(o.ErrorKind), "error", o.Error)
	} else {
		log.Debug("converter."+string(o.Status), "converter", o.ConverterID)
	}
	return o
}
