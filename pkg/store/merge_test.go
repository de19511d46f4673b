package store

import (
	"path/filepath"
	"testing"

	"github.com/praetorian-inc/locus/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_Validation(t *testing.T) {
	_, err := Merge(MergeConfig{DestPath: "dest.db"})
	assert.ErrorContains(t, err, "no source databases")

	_, err = Merge(MergeConfig{SourcePaths: []string{"source.db"}})
	assert.ErrorContains(t, err, "destination path is required")
}

func seed(t *testing.T, path string, contents ...string) {
	t.Helper()
	s, err := NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	for i, c := range contents {
		item := types.ComputeItemID([]byte(c))
		require.NoError(t, s.AddItem(item, int64(len(c))))
		require.NoError(t, s.AddProvenance(item, types.FileProvenance{FilePath: path, Index: i}))
		require.NoError(t, s.AddResult(newResult("str index-of", `{"pattern":"."}`, item, types.Int(int64(i)))))
	}
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.db")
	b := filepath.Join(dir, "b.db")
	dest := filepath.Join(dir, "merged.db")

	seed(t, a, "one", "two")
	seed(t, b, "two", "three")

	stats, err := Merge(MergeConfig{SourcePaths: []string{a, b}, DestPath: dest})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.SourcesProcessed)
	assert.Equal(t, 3, stats.ItemsMerged, "the shared item is stored once")
	assert.Equal(t, 3, stats.ResultsMerged)
	assert.Equal(t, 4, stats.ProvenanceMerged, "each source location is kept")

	merged, err := NewSQLite(dest)
	require.NoError(t, err)
	defer merged.Close()

	all, err := merged.GetAllResults()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMerge_Idempotent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.db")
	dest := filepath.Join(dir, "merged.db")
	seed(t, a, "one")

	_, err := Merge(MergeConfig{SourcePaths: []string{a}, DestPath: dest})
	require.NoError(t, err)
	stats, err := Merge(MergeConfig{SourcePaths: []string{a}, DestPath: dest})
	require.NoError(t, err)

	assert.Zero(t, stats.ItemsMerged)
	assert.Zero(t, stats.ResultsMerged)
	assert.Zero(t, stats.ProvenanceMerged)
}

func TestMerge_SourceWithoutSchema(t *testing.T) {
	dir := t.TempDir()
	_, err := Merge(MergeConfig{
		SourcePaths: []string{filepath.Join(dir, "empty.db")},
		DestPath:    filepath.Join(dir, "merged.db"),
	})
	assert.ErrorContains(t, err, "reading schema version")
}
