package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/notice"
	"golang.org/x/sync/errgroup"
)

// extraction is the outcome of invoking one converter.
type extraction struct {
	fragment  merge.Fragment
	err       error
	cancelled bool
}

// FanOut invokes converters in parallel on a bounded pool. Converter
// failures are captured per slot and never cancel sibling invocations.
type FanOut struct {
	workers    int
	onProgress func(ProgressEvent)
}

// NewFanOut creates a FanOut running at most workers converters at once.
// onProgress is called from worker goroutines; it may be nil.
func NewFanOut(workers int, onProgress func(ProgressEvent)) *FanOut {
	if workers < 1 {
		workers = 1
	}
	return &FanOut{workers: workers, onProgress: onProgress}
}

// Batch holds the in-flight extractions of one run. Slot i corresponds to
// the i-th converter passed to Start.
type Batch struct {
	results []extraction
	ready   []chan struct{}
	done    chan struct{}
}

// Start dispatches every converter and returns immediately. Dispatch stops
// launching new invocations once ctx is done.
func (f *FanOut) Start(ctx context.Context, runID string, src *notice.Notice, convs []Converter) *Batch {
	b := &Batch{
		results: make([]extraction, len(convs)),
		ready:   make([]chan struct{}, len(convs)),
		done:    make(chan struct{}),
	}
	for i := range b.ready {
		b.ready[i] = make(chan struct{})
	}

	var g errgroup.Group
	g.SetLimit(f.workers)

	go func() {
		defer close(b.done)
		for i, c := range convs {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				f.emit(ProgressEvent{RunID: runID, Converter: c.ID(), Index: i, Status: ProgressWorking})
				b.results[i] = invoke(ctx, src, c)
				close(b.ready[i])
				return nil
			})
		}
		_ = g.Wait()
	}()

	return b
}

// Await blocks until slot i is ready or ctx is done. A ready slot wins
// over a concurrently cancelled context.
func (b *Batch) Await(ctx context.Context, i int) (extraction, bool) {
	select {
	case <-b.ready[i]:
		return b.results[i], true
	default:
	}
	select {
	case <-b.ready[i]:
		return b.results[i], true
	case <-ctx.Done():
		return extraction{}, false
	}
}

// Wait blocks until dispatch has stopped and every launched invocation
// has returned.
func (b *Batch) Wait() {
	<-b.done
}

// invoke runs one converter, turning errors and panics into a failed
// extraction.
func invoke(ctx context.Context, src *notice.Notice, c Converter) (res extraction) {
	defer func() {
		if r := recover(); r != nil {
			res = extraction{err: &ConverterError{
				ConverterID: c.ID(),
				Panic:       true,
				Err:         fmt.Errorf("%v", r),
			}}
		}
	}()

	if err := ctx.Err(); err != nil {
		return extraction{err: err, cancelled: true}
	}
	frag, err := c.Convert(ctx, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return extraction{err: err, cancelled: true}
		}
		return extraction{err: &ConverterError{ConverterID: c.ID(), Err: err}}
	}
	return extraction{fragment: frag}
}

// emit sends a progress event if a callback is registered.
func (f *FanOut) emit(ev ProgressEvent) {
	if f.onProgress != nil {
		f.onProgress(ev)
	}
}
