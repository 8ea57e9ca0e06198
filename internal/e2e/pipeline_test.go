//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/audit"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/converters"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/export"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/notice"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/orchestrator"
)

// TestPipeline_E2E_AuditAndDiagnostics converts both fixture notices,
// records each run in an audit store and writes the diagnostics bundle,
// checking the pieces agree with each other.
func TestPipeline_E2E_AuditAndDiagnostics(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := audit.Open(ctx, audit.BackendMemory, "")
	require.NoError(t, err)
	defer store.Close()

	pipeline, err := orchestrator.NewPipeline(orchestrator.Config{
		Workers:         4,
		TrackProvenance: true,
	}, converters.Converters(converters.Options{OCIDPrefix: "ocds-e2e"}))
	require.NoError(t, err)
	defer pipeline.Close()

	outputDir := t.TempDir()
	runIDs := make(map[string]string)

	for _, name := range []string{"contract-notice", "result-notice"} {
		src, err := notice.ParseFile(filepath.Join("..", "..", "testdata", "notices", name+".xml"))
		require.NoError(t, err)

		started := time.Now()
		res, err := pipeline.Run(ctx, src)
		require.NoError(t, err, "run %s", name)
		require.True(t, res.Release.Frozen())
		assert.Len(t, res.Outcomes, len(pipeline.Converters()))
		assert.Zero(t, res.Count(orchestrator.StatusErrored), "no converter should fail on %s", name)

		require.NoError(t, store.RecordRun(ctx, audit.FromResult(src.NoticeID(), src.NoticeType(), started, res)))
		runIDs[name] = res.RunID

		diagPath := filepath.Join(outputDir, name+".diagnostics.json")
		require.NoError(t, export.WriteJSONFile(diagPath, export.BuildDiagnostics(src.NoticeID(), src.NoticeType(), res), true))

		data, err := os.ReadFile(diagPath)
		require.NoError(t, err)
		var diag export.Diagnostics
		require.NoError(t, json.Unmarshal(data, &diag))
		assert.Equal(t, res.RunID, diag.RunID)
		assert.Equal(t, src.NoticeID(), diag.NoticeID)
		assert.Equal(t, res.Count(orchestrator.StatusApplied), diag.Summary.Applied)

		ocid, err := export.Query(res.Release, "ocid", false)
		require.NoError(t, err)
		assert.Equal(t, `"ocds-e2e-aff2863e-b4cc-4e91-baba-b3b85f709117"`, ocid)
		assert.Equal(t, []string{"OPP-OCID"}, diag.Provenance["ocid"])
	}

	require.NotEqual(t, runIDs["contract-notice"], runIDs["result-notice"])

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.RunCount)
	assert.Equal(t, 2*len(pipeline.Converters()), stats.OutcomeCount)
	assert.Zero(t, stats.ConflictCount)

	outcomes, err := store.Outcomes(ctx, runIDs["result-notice"])
	require.NoError(t, err)
	assert.Len(t, outcomes, len(pipeline.Converters()))
}
