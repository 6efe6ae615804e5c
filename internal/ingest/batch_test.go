package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travisleebounds/Beta-Gold/internal/index"
	"github.com/travisleebounds/Beta-Gold/internal/store"
)

func readCheckpoint(t *testing.T, path string) Checkpoint {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var cp Checkpoint
	require.NoError(t, json.Unmarshal(data, &cp))
	return cp
}

func TestRunBatch(t *testing.T) {
	st := newFakeChunkStore()
	ing := newTestIngestor(t, st)
	dir := t.TempDir()
	for n := 0; n < 5; n++ {
		writeDoc(t, dir, fmt.Sprintf("doc%02d.txt", n), fmt.Sprintf("document number %d about road funding", n))
	}
	writeDoc(t, dir, "broken.txt", "") // parses fine, yields nothing

	cpPath := filepath.Join(t.TempDir(), "checkpoint.json")
	var progressed int
	cp, err := ing.RunBatch(context.Background(), dir, cpPath, BatchOptions{
		Tier:       index.TierStandard,
		OnProgress: func(Progress) { progressed++ },
	})
	require.NoError(t, err)

	assert.True(t, cp.Finished)
	assert.NotEmpty(t, cp.JobID)
	assert.NotEmpty(t, cp.FinishedAt)
	assert.Equal(t, 6, cp.Stats.Total)
	assert.Equal(t, 6, cp.Stats.Processed)
	assert.Equal(t, 5, cp.Stats.Ingested)
	assert.Equal(t, 1, cp.Stats.Errors)
	assert.Equal(t, 6, progressed)

	require.Len(t, cp.Errors, 1)
	assert.Equal(t, "broken.txt", cp.Errors[0].File)

	// Finished checkpoint lands on disk.
	onDisk := readCheckpoint(t, cpPath)
	assert.True(t, onDisk.Finished)
	assert.Equal(t, cp.JobID, onDisk.JobID)
}

func TestRunBatch_SecondRunSkips(t *testing.T) {
	st := newFakeChunkStore()
	ing := newTestIngestor(t, st)
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "document a")
	writeDoc(t, dir, "b.txt", "document b")

	cpPath := filepath.Join(t.TempDir(), "checkpoint.json")
	opts := BatchOptions{Tier: index.TierStandard}

	first, err := ing.RunBatch(context.Background(), dir, cpPath, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Stats.Ingested)

	second, err := ing.RunBatch(context.Background(), dir, cpPath, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Stats.Skipped, "unchanged files skip on a fresh run")
	assert.Equal(t, 0, second.Stats.Ingested)
}

func TestRunBatch_ResumesUnfinishedCheckpoint(t *testing.T) {
	st := newFakeChunkStore()
	ing := newTestIngestor(t, st)
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "document a")
	writeDoc(t, dir, "b.txt", "document b")
	writeDoc(t, dir, "c.txt", "document c")

	cpPath := filepath.Join(t.TempDir(), "checkpoint.json")
	prior := &Checkpoint{
		JobID:     "job-1",
		Completed: []string{"a.txt", "b.txt"},
		Stats:     BatchStats{Total: 3, Processed: 2, Ingested: 2},
		StartedAt: "2026-08-30T10:00:00Z",
	}
	require.NoError(t, saveCheckpoint(cpPath, prior))

	cp, err := ing.RunBatch(context.Background(), dir, cpPath, BatchOptions{Tier: index.TierStandard})
	require.NoError(t, err)

	assert.Equal(t, "job-1", cp.JobID, "resume keeps the original job identity")
	assert.Equal(t, 3, cp.Stats.Processed)
	assert.Equal(t, 3, cp.Stats.Ingested)
	assert.True(t, cp.Finished)

	// Only c.txt actually hit the store.
	assert.Len(t, st.chunks, 1)
	assert.Contains(t, st.chunks, "c.txt")
}

func TestRunBatch_RestartDiscardsCheckpoint(t *testing.T) {
	st := newFakeChunkStore()
	ing := newTestIngestor(t, st)
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "document a")

	cpPath := filepath.Join(t.TempDir(), "checkpoint.json")
	prior := &Checkpoint{
		JobID:     "job-1",
		Completed: []string{"a.txt"},
		Stats:     BatchStats{Total: 1, Processed: 1, Ingested: 1},
		StartedAt: "2026-08-30T10:00:00Z",
	}
	require.NoError(t, saveCheckpoint(cpPath, prior))

	cp, err := ing.RunBatch(context.Background(), dir, cpPath, BatchOptions{
		Tier:    index.TierStandard,
		Restart: true,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "job-1", cp.JobID)
	assert.Equal(t, 1, cp.Stats.Processed)
	assert.Contains(t, st.chunks, "a.txt")
}

func TestRunBatch_StoreOutageNotMarkedCompleted(t *testing.T) {
	st := newFakeChunkStore()
	st.addErr = fmt.Errorf("insert: %w", store.ErrUnavailable)
	ing := newTestIngestor(t, st)
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "document a")

	cpPath := filepath.Join(t.TempDir(), "checkpoint.json")
	cp, err := ing.RunBatch(context.Background(), dir, cpPath, BatchOptions{Tier: index.TierStandard})
	require.NoError(t, err)

	assert.Equal(t, 1, cp.Stats.Errors)
	assert.Empty(t, cp.Completed, "store outages must be retried by the next run")
}

func TestRunBatch_BoundedErrorList(t *testing.T) {
	st := newFakeChunkStore()
	ing := newTestIngestor(t, st)
	dir := t.TempDir()
	for n := 0; n < 6; n++ {
		writeDoc(t, dir, fmt.Sprintf("empty%d.txt", n), "")
	}

	cpPath := filepath.Join(t.TempDir(), "checkpoint.json")
	cp, err := ing.RunBatch(context.Background(), dir, cpPath, BatchOptions{
		Tier:      index.TierStandard,
		MaxErrors: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, 6, cp.Stats.Errors, "counter keeps the true total")
	require.Len(t, cp.Errors, 3, "detail list keeps only the most recent")
	assert.Equal(t, "empty3.txt", cp.Errors[0].File)
	assert.Equal(t, "empty5.txt", cp.Errors[2].File)
}

func TestRunBatch_CancellationPersistsCheckpoint(t *testing.T) {
	st := newFakeChunkStore()
	ing := newTestIngestor(t, st)
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "document a")
	writeDoc(t, dir, "b.txt", "document b")
	writeDoc(t, dir, "c.txt", "document c")

	ctx, cancel := context.WithCancel(context.Background())
	cpPath := filepath.Join(t.TempDir(), "checkpoint.json")

	cp, err := ing.RunBatch(ctx, dir, cpPath, BatchOptions{
		Tier: index.TierStandard,
		OnProgress: func(p Progress) {
			if p.Processed == 1 {
				cancel()
			}
		},
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, cp.Finished)
	assert.Equal(t, 1, cp.Stats.Processed)

	onDisk := readCheckpoint(t, cpPath)
	assert.False(t, onDisk.Finished)
	assert.Equal(t, []string{"a.txt"}, onDisk.Completed)
}

func TestRunBatch_UnknownTier(t *testing.T) {
	ing := newTestIngestor(t, newFakeChunkStore())
	_, err := ing.RunBatch(context.Background(), t.TempDir(), "", BatchOptions{Tier: "mystery"})
	assert.Error(t, err)
}

func TestListSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "b.txt", "x")
	writeDoc(t, dir, "a.csv", "x")
	writeDoc(t, dir, "ignore.bin", "x")

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0755))
	writeDoc(t, sub, "deep.md", "x")

	hidden := filepath.Join(dir, ".cache")
	require.NoError(t, os.Mkdir(hidden, 0755))
	writeDoc(t, hidden, "secret.txt", "x")

	t.Run("recursive", func(t *testing.T) {
		files, err := listSupportedFiles(dir, true)
		require.NoError(t, err)
		require.Len(t, files, 3)
		assert.Equal(t, filepath.Join(dir, "a.csv"), files[0])
		assert.Equal(t, filepath.Join(dir, "b.txt"), files[1])
		assert.Equal(t, filepath.Join(sub, "deep.md"), files[2])
	})

	t.Run("non-recursive", func(t *testing.T) {
		files, err := listSupportedFiles(dir, false)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.txt")}, files)
	})

	t.Run("not a directory", func(t *testing.T) {
		_, err := listSupportedFiles(filepath.Join(dir, "b.txt"), true)
		assert.Error(t, err)
	})
}
