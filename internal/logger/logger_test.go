package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ted2ocds.log")
	cleanup, err := Setup(Config{Path: path})
	require.NoError(t, err)

	require.NoError(t, IsReady())
	assert.Equal(t, path, Path())
	L().Warn("merge.conflict", "path", "tender.title")
	L().Debug("hidden")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "merge.conflict", rec["msg"])
	assert.Equal(t, "tender.title", rec["path"])
	assert.True(t, strings.HasSuffix(rec["time"].(string), "Z"), "timestamps are UTC")

	assert.Error(t, IsReady())
	assert.Empty(t, Path())
}

func TestSetup_DebugToStderr(t *testing.T) {
	var buf bytes.Buffer
	cleanup, err := Setup(Config{Debug: true, Stderr: &buf})
	require.NoError(t, err)
	defer cleanup()

	L().Debug("converter.applied", "converter", "BT-04")
	assert.Contains(t, buf.String(), `"converter":"BT-04"`)
	assert.Error(t, IsReady())
}

func TestSetup_DiscardByDefault(t *testing.T) {
	cleanup, err := Setup(Config{})
	require.NoError(t, err)
	require.NoError(t, cleanup())
	assert.NotPanics(t, func() { L().Error("dropped") })
}
