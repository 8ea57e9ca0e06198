package orchestrator

import (
	"io"
	"log/slog"
	"runtime"
)

// Config holds runtime configuration for a conversion run.
type Config struct {
	// Workers bounds concurrent converter invocations. Zero means
	// runtime.GOMAXPROCS(0).
	Workers int

	// IdentifierKeys are the fields used to correlate list entities.
	// Empty means merge.DefaultIdentifierKeys.
	IdentifierKeys []string

	// Disabled lists converter IDs that are not registered.
	Disabled []string

	// TrackProvenance enables the per-leaf provenance index.
	TrackProvenance bool

	// Logger receives outcome, conflict and coherence messages. Nil
	// discards them.
	Logger *slog.Logger
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
