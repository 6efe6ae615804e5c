// Package ingest drives the document ingestion pipeline: parse, hash-check,
// chunk, embed into the vector store and record in the document index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/travisleebounds/Beta-Gold/internal/chunker"
	"github.com/travisleebounds/Beta-Gold/internal/index"
	"github.com/travisleebounds/Beta-Gold/internal/logger"
	"github.com/travisleebounds/Beta-Gold/internal/parser"
	"github.com/travisleebounds/Beta-Gold/internal/store"
)

// ErrEmptyContent indicates a file parsed successfully but yielded no text.
var ErrEmptyContent = errors.New("empty content")

// Status classifies the outcome of ingesting one file.
type Status string

const (
	StatusIngested Status = "ingested"
	StatusSkipped  Status = "skipped"
	StatusError    Status = "error"
)

// Result reports the outcome of a single file ingestion.
type Result struct {
	File   string `json:"file"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
	Chunks int    `json:"chunks,omitempty"`
	Chars  int    `json:"chars,omitempty"`
}

// ChunkStore is the slice of the vector store the ingestor drives.
type ChunkStore interface {
	Add(ctx context.Context, chunks []store.Chunk) error
	DeleteFile(ctx context.Context, filename string) (int, error)
}

// Ingestor owns the parse-chunk-embed-record pipeline. It is not safe for
// concurrent use; callers serialize ingestion against one storage directory.
type Ingestor struct {
	store        ChunkStore
	idx          *index.Index
	splitter     *chunker.Splitter
	addBatchSize int
}

// New creates an ingestor over the given store and index.
func New(st ChunkStore, idx *index.Index, splitter *chunker.Splitter, addBatchSize int) *Ingestor {
	if addBatchSize <= 0 {
		addBatchSize = 100
	}
	return &Ingestor{store: st, idx: idx, splitter: splitter, addBatchSize: addBatchSize}
}

// IngestFile ingests a single file under the given tier. An unchanged file
// (same hash, same tier) is skipped unless force is set. A changed file has
// all of its previous chunks removed before the new ones are added.
func (i *Ingestor) IngestFile(ctx context.Context, path string, tier index.Tier, force bool) (Result, error) {
	return i.ingest(ctx, path, tier, force, true)
}

func (i *Ingestor) ingest(ctx context.Context, path string, tier index.Tier, force, flush bool) (Result, error) {
	fname := filepath.Base(path)

	if !tier.Valid() {
		err := fmt.Errorf("unknown tier %q", tier)
		return errorResult(fname, err), err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return errorResult(fname, err), err
	}

	hash, err := parser.FileHash(abs)
	if err != nil {
		return errorResult(fname, err), err
	}

	if !force {
		if rec, ok := i.idx.Get(fname); ok && rec.SHA256 == hash && rec.Tier == tier {
			logger.Debug("skipping %s (already ingested, same hash)", fname)
			return Result{File: fname, Status: StatusSkipped, Reason: "already ingested"}, nil
		}
	}

	text, err := parser.Parse(abs)
	if err != nil {
		return errorResult(fname, err), err
	}

	chunks := i.splitter.Split(text)
	if len(chunks) == 0 {
		return errorResult(fname, ErrEmptyContent), ErrEmptyContent
	}
	logger.Debug("%s: %d chars -> %d chunks", fname, len(text), len(chunks))

	// Re-ingest fully replaces: stale chunks from a previous version must
	// be gone before the new set goes in.
	if removed, err := i.store.DeleteFile(ctx, fname); err != nil {
		return errorResult(fname, err), err
	} else if removed > 0 {
		logger.Debug("removed %d old chunks for %s", removed, fname)
	}

	ingestedAt := time.Now().Format(time.RFC3339)
	records := make([]store.Chunk, len(chunks))
	for n, content := range chunks {
		records[n] = store.Chunk{
			ID:          store.ChunkID(fname, n),
			SourceFile:  fname,
			SourcePath:  abs,
			ChunkIndex:  n,
			TotalChunks: len(chunks),
			SHA256:      hash,
			Tier:        tier,
			IngestedAt:  ingestedAt,
			Content:     content,
		}
	}

	for start := 0; start < len(records); start += i.addBatchSize {
		end := start + i.addBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := i.store.Add(ctx, records[start:end]); err != nil {
			return errorResult(fname, err), err
		}
	}

	i.idx.Upsert(index.Record{
		Filename:   fname,
		Path:       abs,
		SHA256:     hash,
		Tier:       tier,
		Chunks:     len(chunks),
		Chars:      len(text),
		IngestedAt: ingestedAt,
	})
	if flush {
		if err := i.idx.Flush(); err != nil {
			return errorResult(fname, err), err
		}
	}

	logger.Info("%s: %d chunks indexed (%s)", fname, len(chunks), tier)
	return Result{File: fname, Status: StatusIngested, Chunks: len(chunks), Chars: len(text)}, nil
}

// IngestDir ingests every supported file directly under dir (or the whole
// tree when recursive is set) in deterministic lexicographic order.
// Per-file failures are recorded in the results, never fatal.
func (i *Ingestor) IngestDir(ctx context.Context, dir string, tier index.Tier, recursive, force bool) ([]Result, error) {
	files, err := listSupportedFiles(dir, recursive)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := i.ingest(ctx, path, tier, force, false)
		if err != nil {
			logger.Warn("failed to ingest %s: %v", res.File, err)
		}
		results = append(results, res)
	}

	if err := i.idx.Flush(); err != nil {
		return results, err
	}
	return results, nil
}

// Index exposes the underlying document index.
func (i *Ingestor) Index() *index.Index {
	return i.idx
}

func errorResult(fname string, err error) Result {
	return Result{File: fname, Status: StatusError, Reason: err.Error()}
}
