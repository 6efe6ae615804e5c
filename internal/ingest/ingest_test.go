package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travisleebounds/Beta-Gold/internal/chunker"
	"github.com/travisleebounds/Beta-Gold/internal/index"
	"github.com/travisleebounds/Beta-Gold/internal/store"
)

// fakeChunkStore keeps chunks in memory, keyed by source filename.
type fakeChunkStore struct {
	chunks  map[string][]store.Chunk
	addErr  error
	deletes int
	adds    int
}

func newFakeChunkStore() *fakeChunkStore {
	return &fakeChunkStore{chunks: make(map[string][]store.Chunk)}
}

func (f *fakeChunkStore) Add(ctx context.Context, chunks []store.Chunk) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.adds++
	for _, c := range chunks {
		f.chunks[c.SourceFile] = append(f.chunks[c.SourceFile], c)
	}
	return nil
}

func (f *fakeChunkStore) DeleteFile(ctx context.Context, filename string) (int, error) {
	n := len(f.chunks[filename])
	delete(f.chunks, filename)
	f.deletes++
	return n, nil
}

func newTestIngestor(t *testing.T, st ChunkStore) *Ingestor {
	t.Helper()
	idx, err := index.Load(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, err)
	return New(st, idx, chunker.New(), 100)
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestIngestFile(t *testing.T) {
	st := newFakeChunkStore()
	ing := newTestIngestor(t, st)
	path := writeDoc(t, t.TempDir(), "budget.txt", strings.Repeat("transportation budget line. ", 100))

	res, err := ing.IngestFile(context.Background(), path, index.TierGold, false)
	require.NoError(t, err)
	assert.Equal(t, StatusIngested, res.Status)
	assert.Equal(t, "budget.txt", res.File)
	assert.Greater(t, res.Chunks, 1)
	assert.Equal(t, 2800, res.Chars)

	stored := st.chunks["budget.txt"]
	require.Len(t, stored, res.Chunks)
	assert.Equal(t, "budget.txt__chunk_0", stored[0].ID)
	assert.Equal(t, index.TierGold, stored[0].Tier)
	assert.Equal(t, res.Chunks, stored[0].TotalChunks)
	assert.NotEmpty(t, stored[0].SHA256)

	rec, ok := ing.Index().Get("budget.txt")
	require.True(t, ok)
	assert.Equal(t, stored[0].SHA256, rec.SHA256)
	assert.Equal(t, res.Chunks, rec.Chunks)
}

func TestIngestFile_SkipsUnchanged(t *testing.T) {
	st := newFakeChunkStore()
	ing := newTestIngestor(t, st)
	path := writeDoc(t, t.TempDir(), "memo.txt", "a short memo about road salt procurement")

	_, err := ing.IngestFile(context.Background(), path, index.TierStandard, false)
	require.NoError(t, err)
	addsBefore := st.adds

	res, err := ing.IngestFile(context.Background(), path, index.TierStandard, false)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Equal(t, addsBefore, st.adds, "skip must not touch the store")
}

func TestIngestFile_ForceReingests(t *testing.T) {
	st := newFakeChunkStore()
	ing := newTestIngestor(t, st)
	path := writeDoc(t, t.TempDir(), "memo.txt", "a short memo")

	_, err := ing.IngestFile(context.Background(), path, index.TierStandard, false)
	require.NoError(t, err)

	res, err := ing.IngestFile(context.Background(), path, index.TierStandard, true)
	require.NoError(t, err)
	assert.Equal(t, StatusIngested, res.Status)
}

func TestIngestFile_TierChangeReingests(t *testing.T) {
	st := newFakeChunkStore()
	ing := newTestIngestor(t, st)
	path := writeDoc(t, t.TempDir(), "memo.txt", "a short memo")

	_, err := ing.IngestFile(context.Background(), path, index.TierStandard, false)
	require.NoError(t, err)

	res, err := ing.IngestFile(context.Background(), path, index.TierGold, false)
	require.NoError(t, err)
	assert.Equal(t, StatusIngested, res.Status)
	assert.Equal(t, index.TierGold, st.chunks["memo.txt"][0].Tier)

	counts := ing.Index().TierCounts()
	assert.Equal(t, map[index.Tier]int{index.TierGold: 1}, counts)
}

func TestIngestFile_ReplacementDropsOldChunks(t *testing.T) {
	st := newFakeChunkStore()
	ing := newTestIngestor(t, st)
	dir := t.TempDir()
	path := writeDoc(t, dir, "report.txt", strings.Repeat("long first version. ", 200))

	first, err := ing.IngestFile(context.Background(), path, index.TierStandard, false)
	require.NoError(t, err)
	require.Greater(t, first.Chunks, 1)

	writeDoc(t, dir, "report.txt", "tiny second version")
	second, err := ing.IngestFile(context.Background(), path, index.TierStandard, false)
	require.NoError(t, err)

	assert.Equal(t, 1, second.Chunks)
	assert.Len(t, st.chunks["report.txt"], 1, "stale chunks from the longer version must be gone")
}

func TestIngestFile_EmptyContent(t *testing.T) {
	st := newFakeChunkStore()
	ing := newTestIngestor(t, st)
	path := writeDoc(t, t.TempDir(), "blank.txt", "   \n\n  ")

	res, err := ing.IngestFile(context.Background(), path, index.TierStandard, false)
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Equal(t, StatusError, res.Status)
	assert.Empty(t, st.chunks)
}

func TestIngestFile_UnknownTier(t *testing.T) {
	st := newFakeChunkStore()
	ing := newTestIngestor(t, st)
	path := writeDoc(t, t.TempDir(), "memo.txt", "content")

	res, err := ing.IngestFile(context.Background(), path, index.Tier("platinum"), false)
	assert.Error(t, err)
	assert.Equal(t, StatusError, res.Status)
}

func TestIngestFile_RespectsAddBatchSize(t *testing.T) {
	st := newFakeChunkStore()
	idx, err := index.Load(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, err)
	ing := New(st, idx, chunker.New(), 2)

	path := writeDoc(t, t.TempDir(), "long.txt", strings.Repeat("filler sentence for chunking. ", 300))
	res, err := ing.IngestFile(context.Background(), path, index.TierStandard, false)
	require.NoError(t, err)
	require.Greater(t, res.Chunks, 4)

	want := (res.Chunks + 1) / 2
	assert.Equal(t, want, st.adds)
	assert.Len(t, st.chunks["long.txt"], res.Chunks)
}

func TestIngestDir(t *testing.T) {
	st := newFakeChunkStore()
	ing := newTestIngestor(t, st)
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "first document")
	writeDoc(t, dir, "b.md", "second document")
	writeDoc(t, dir, "skip.exe", "not a document")
	writeDoc(t, dir, "empty.txt", "")

	results, err := ing.IngestDir(context.Background(), dir, index.TierStandard, false, false)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Deterministic order, per-file failures recorded in place.
	assert.Equal(t, "a.txt", results[0].File)
	assert.Equal(t, StatusIngested, results[0].Status)
	assert.Equal(t, "b.md", results[1].File)
	assert.Equal(t, StatusIngested, results[1].Status)
	assert.Equal(t, "empty.txt", results[2].File)
	assert.Equal(t, StatusError, results[2].Status)

	assert.Equal(t, 2, ing.Index().Count())
}
