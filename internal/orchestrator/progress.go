package orchestrator

import (
	"fmt"
	"sync"
)

// ProgressStatus is the state of a converter within a run.
type ProgressStatus string

const (
	ProgressPending ProgressStatus = "pending"
	ProgressWorking ProgressStatus = "working"
	ProgressApplied ProgressStatus = "applied"
	ProgressSkipped ProgressStatus = "skipped"
	ProgressFailed  ProgressStatus = "failed"
)

// ProgressEvent is emitted to the user during a run.
type ProgressEvent struct {
	RunID     string
	Converter string
	Index     int
	Status    ProgressStatus
	Message   string
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	mu     sync.RWMutex
	ch     chan ProgressEvent
	closed bool
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full or closed, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	if pr.closed {
		return
	}
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel. Closing twice is harmless.
func (pr *ProgressReporter) Close() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.closed {
		return
	}
	pr.closed = true
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", event.Converter)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s...", event.Converter)
	case ProgressApplied:
		return fmt.Sprintf("  ✓ %s applied", event.Converter)
	case ProgressSkipped:
		return fmt.Sprintf("  - %s skipped", event.Converter)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Converter, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Converter)
	}
}

// FormatRunHeader formats a run header for display.
// Returns: "[{noticeID}] {n} converters"
func FormatRunHeader(noticeID string, n int) string {
	if noticeID == "" {
		noticeID = "unidentified notice"
	}
	return fmt.Sprintf("[%s] %d converters", noticeID, n)
}
