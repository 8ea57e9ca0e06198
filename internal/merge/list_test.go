package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeList_AppendOrderStability(t *testing.T) {
	m := newTestMerger(t)

	existing := []any{map[string]any{"id": 1}, map[string]any{"id": 2}}
	incoming := []any{map[string]any{"id": 2, "x": 9}, map[string]any{"id": 3}}

	got := m.MergeList(existing, incoming, "id", "src")
	assert.Equal(t, []any{
		map[string]any{"id": 1},
		map[string]any{"id": 2, "x": 9},
		map[string]any{"id": 3},
	}, got)
	assert.Zero(t, m.Log().Len())
}

func TestMergeList_IdentifierUniqueness(t *testing.T) {
	m := newTestMerger(t)

	got := m.MergeList(
		[]any{map[string]any{"id": "L1"}},
		[]any{
			map[string]any{"id": "L2", "a": 1},
			map[string]any{"id": "L1", "b": 2},
			map[string]any{"id": "L2", "c": 3},
		},
		"", "src",
	)
	require.Len(t, got, 2)
	assert.Equal(t, map[string]any{"id": "L1", "b": 2}, got[0])
	assert.Equal(t, map[string]any{"id": "L2", "a": 1, "c": 3}, got[1])
}

func TestMergeList_MissingIdentifierAppendedAndNoted(t *testing.T) {
	m := newTestMerger(t)

	got := m.MergeList(
		[]any{map[string]any{"id": "B1"}},
		[]any{map[string]any{"rank": 1}, map[string]any{"rank": 1}},
		"id", "BT-171",
	)
	assert.Len(t, got, 3, "entities without identifiers are never merged")

	recs := m.Log().Records()
	require.Len(t, recs, 2)
	assert.Equal(t, ConflictMissingIdentifier, recs[0].Kind)
	assert.Equal(t, KindMalformedFragment, recs[0].Kind.ErrorKind())
	assert.Equal(t, []string{"[1]"}, recs[0].Path)
	assert.Equal(t, []string{"[2]"}, recs[1].Path)
}

func TestMergeList_DuplicateInExistingFirstWins(t *testing.T) {
	m := newTestMerger(t)

	existing := []any{
		map[string]any{"id": "L1", "n": 1},
		map[string]any{"id": "L1", "n": 2},
	}
	got := m.MergeList(existing, []any{map[string]any{"id": "L1", "t": "x"}}, "id", "src")

	assert.Equal(t, map[string]any{"id": "L1", "n": 1, "t": "x"}, got[0])
	assert.Equal(t, map[string]any{"id": "L1", "n": 2}, got[1], "later duplicate left untouched")

	recs := m.Log().Records()
	require.Len(t, recs, 1)
	assert.Equal(t, ConflictDuplicateIdentifier, recs[0].Kind)
	assert.Equal(t, []string{"[id=L1]"}, recs[0].Path)
}

func TestMergeList_NumericIdentifiersNormalized(t *testing.T) {
	m := newTestMerger(t)

	got := m.MergeList(
		[]any{map[string]any{"id": 1}},
		[]any{map[string]any{"id": 1.0, "x": true}, map[string]any{"id": "1"}},
		"id", "src",
	)
	require.Len(t, got, 2, `"1" is a different identifier from 1`)
	assert.Equal(t, true, got[0].(map[string]any)["x"])
}

func TestMergeList_AlternateIdentifierKey(t *testing.T) {
	m, err := NewMerger(Options{IdentifierKeys: []string{"id", "scheme"}})
	require.NoError(t, err)

	got := m.Merge(
		map[string]any{"classifications": []any{map[string]any{"scheme": "CPV", "x": 1}}},
		map[string]any{"classifications": []any{map[string]any{"scheme": "CPV", "y": 2}}},
		"src",
	)
	assert.Equal(t, map[string]any{
		"classifications": []any{map[string]any{"scheme": "CPV", "x": 1, "y": 2}},
	}, got)
}

func TestMergeList_NestedConflictPath(t *testing.T) {
	m := newTestMerger(t)

	m.Merge(
		map[string]any{"lots": []any{map[string]any{"id": "L1", "title": "a"}}},
		map[string]any{"lots": []any{map[string]any{"id": "L1", "title": "b"}}},
		"BT-21",
	)
	recs := m.Log().Records()
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"lots", "[id=L1]", "title"}, recs[0].Path)
}
