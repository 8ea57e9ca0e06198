package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressReporter_EmitAndSubscribe(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	pr.Emit(ProgressEvent{Converter: "BT-05", Status: ProgressWorking})

	ev := <-pr.Subscribe()
	assert.Equal(t, "BT-05", ev.Converter)
	assert.Equal(t, ProgressWorking, ev.Status)
}

func TestProgressReporter_DropsWhenFull(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	for i := 0; i < 100; i++ {
		pr.Emit(ProgressEvent{Index: i})
	}
	assert.Len(t, pr.Subscribe(), 64)
}

func TestProgressReporter_EmitAfterClose(t *testing.T) {
	pr := NewProgressReporter()
	pr.Close()

	assert.NotPanics(t, func() {
		pr.Emit(ProgressEvent{Converter: "late"})
		pr.Close()
	})

	_, open := <-pr.Subscribe()
	assert.False(t, open)
}

func TestFormatProgress(t *testing.T) {
	tests := []struct {
		name string
		ev   ProgressEvent
		want string
	}{
		{"pending", ProgressEvent{Converter: "BT-24", Status: ProgressPending}, "  ○ BT-24 (pending)"},
		{"working", ProgressEvent{Converter: "BT-24", Status: ProgressWorking}, "  ● BT-24..."},
		{"applied", ProgressEvent{Converter: "BT-24", Status: ProgressApplied}, "  ✓ BT-24 applied"},
		{"skipped", ProgressEvent{Converter: "BT-24", Status: ProgressSkipped}, "  - BT-24 skipped"},
		{"failed", ProgressEvent{Converter: "BT-27", Status: ProgressFailed, Message: "bad amount"}, "  ✗ BT-27 failed: bad amount"},
		{"unknown", ProgressEvent{Converter: "x", Status: "odd"}, "  ? x (unknown status)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatProgress(tt.ev))
		})
	}
}

func TestFormatRunHeader(t *testing.T) {
	assert.Equal(t, "[00001-2024] 24 converters", FormatRunHeader("00001-2024", 24))
	assert.Equal(t, "[unidentified notice] 3 converters", FormatRunHeader("", 3))
}
