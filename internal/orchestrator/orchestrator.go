package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/notice"
)

// ErrConverterFailure classifies errors raised by a field converter.
var ErrConverterFailure = errors.New("converter failure")

// Converter extracts one business term from a notice. Convert must not
// mutate the notice; a nil or empty fragment means the term is absent.
type Converter interface {
	ID() string
	Convert(ctx context.Context, src *notice.Notice) (merge.Fragment, error)
}

// ConvertFunc is the function form of Converter.Convert.
type ConvertFunc func(ctx context.Context, src *notice.Notice) (merge.Fragment, error)

type funcConverter struct {
	id string
	fn ConvertFunc
}

func (c funcConverter) ID() string { return c.id }

func (c funcConverter) Convert(ctx context.Context, src *notice.Notice) (merge.Fragment, error) {
	return c.fn(ctx, src)
}

// NewConverter adapts fn into a Converter identified by id.
func NewConverter(id string, fn ConvertFunc) Converter {
	return funcConverter{id: id, fn: fn}
}

// Status is the terminal state of one converter in one run.
type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
	StatusErrored Status = "errored"
)

// ConverterOutcome records what happened to one registered converter.
type ConverterOutcome struct {
	ConverterID string          `json:"converterId"`
	Status      Status          `json:"status"`
	ErrorKind   merge.ErrorKind `json:"errorKind,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// ConverterError wraps an error or panic raised by a converter.
type ConverterError struct {
	ConverterID string
	Panic       bool
	Err         error
}

func (e *ConverterError) Error() string {
	if e.Panic {
		return fmt.Sprintf("converter %s panicked: %v", e.ConverterID, e.Err)
	}
	return fmt.Sprintf("converter %s: %v", e.ConverterID, e.Err)
}

func (e *ConverterError) Unwrap() error { return e.Err }

func (e *ConverterError) Is(target error) bool { return target == ErrConverterFailure }

// ErrorKind reports merge.KindConverterFailure.
func (e *ConverterError) ErrorKind() merge.ErrorKind { return merge.KindConverterFailure }

// Result is everything one run produces. Release is frozen.
type Result struct {
	RunID      string
	Release    *merge.Release
	Outcomes   []ConverterOutcome
	Conflicts  []merge.ConflictRecord
	Provenance map[string][]string
	Issues     []CoherenceIssue
}

// Count returns how many outcomes ended in status s.
func (r *Result) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Orchestrator runs a registered set of converters against one notice.
type Orchestrator interface {
	// Run converts src and returns the merged release with diagnostics.
	Run(ctx context.Context, src *notice.Notice) (*Result, error)

	// Converters returns the registered converters in order.
	Converters() []Converter

	// Progress returns a channel that emits progress events.
	Progress() <-chan ProgressEvent
}
