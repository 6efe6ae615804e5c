package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/travisleebounds/Beta-Gold/internal/index"
	"github.com/travisleebounds/Beta-Gold/internal/logger"
	"github.com/travisleebounds/Beta-Gold/internal/parser"
	"github.com/travisleebounds/Beta-Gold/internal/store"
)

// BatchStats are the running counters of a batch job.
type BatchStats struct {
	Total          int     `json:"total"`
	Processed      int     `json:"processed"`
	Ingested       int     `json:"ingested"`
	Skipped        int     `json:"skipped"`
	Errors         int     `json:"errors"`
	ElapsedSeconds float64 `json:"elapsed_seconds,omitempty"`
}

// FileError records one failed file for diagnosis.
type FileError struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Checkpoint is the persisted progress of a batch run. It is created at
// batch start, rewritten at a fixed cadence, and marked finished at
// completion so the next run knows whether to resume.
type Checkpoint struct {
	JobID      string      `json:"job_id"`
	Completed  []string    `json:"completed"`
	Stats      BatchStats  `json:"stats"`
	Errors     []FileError `json:"errors,omitempty"`
	StartedAt  string      `json:"started_at"`
	FinishedAt string      `json:"finished_at,omitempty"`
	Finished   bool        `json:"finished"`
}

// BatchOptions tune a batch run.
type BatchOptions struct {
	Tier            index.Tier
	Force           bool // re-ingest files even when hash and tier are unchanged
	Restart         bool // discard any prior checkpoint and start over
	CheckpointEvery int  // files between checkpoint flushes (default 50)
	MaxErrors       int  // most recent errors kept in the checkpoint (default 20)
	OnProgress      func(Progress)
}

// Progress is delivered to the OnProgress callback after every file.
type Progress struct {
	File      string
	Result    Result
	Processed int
	Total     int
}

// RunBatch ingests every supported file under dir with resumability.
// Per-file failures are counted and recorded, never fatal; the only fatal
// condition is failure to persist the checkpoint itself, since the process
// must not silently lose track of progress.
func (i *Ingestor) RunBatch(ctx context.Context, dir, checkpointPath string, opts BatchOptions) (*Checkpoint, error) {
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = 50
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = 20
	}
	if !opts.Tier.Valid() {
		return nil, fmt.Errorf("unknown tier %q", opts.Tier)
	}

	files, err := listSupportedFiles(dir, true)
	if err != nil {
		return nil, err
	}

	cp := &Checkpoint{
		JobID:     uuid.New().String(),
		StartedAt: time.Now().Format(time.RFC3339),
	}
	startedAt := time.Now()

	if !opts.Restart {
		if prior, err := loadCheckpoint(checkpointPath); err != nil {
			return nil, err
		} else if prior != nil && !prior.Finished {
			logger.Info("resuming batch %s: %d of %d files already completed",
				prior.JobID, len(prior.Completed), prior.Stats.Total)
			cp = prior
			if t, err := time.Parse(time.RFC3339, prior.StartedAt); err == nil {
				startedAt = t
			}
		}
	}

	completed := make(map[string]bool, len(cp.Completed))
	for _, f := range cp.Completed {
		completed[f] = true
	}
	cp.Stats.Total = len(files)

	sinceFlush := 0
	for _, path := range files {
		fname := filepath.Base(path)
		if completed[fname] {
			continue
		}
		if err := ctx.Err(); err != nil {
			// External termination: persist what we have so the next run
			// picks up where this one stopped.
			if saveErr := saveCheckpoint(checkpointPath, cp); saveErr != nil {
				return cp, saveErr
			}
			_ = i.idx.Flush()
			return cp, err
		}

		res, err := i.ingest(ctx, path, opts.Tier, opts.Force, false)
		switch res.Status {
		case StatusIngested:
			cp.Stats.Ingested++
		case StatusSkipped:
			cp.Stats.Skipped++
		default:
			cp.Stats.Errors++
			cp.Errors = append(cp.Errors, FileError{File: res.File, Reason: res.Reason})
			if len(cp.Errors) > opts.MaxErrors {
				cp.Errors = cp.Errors[len(cp.Errors)-opts.MaxErrors:]
			}
			logger.Warn("batch: %s failed: %v", res.File, err)
		}

		// A failed file is still completed for resume purposes only when
		// the failure was local to the file; store outages leave it
		// unmarked so the next run retries it.
		if res.Status != StatusError || !isRetryable(err) {
			completed[fname] = true
			cp.Completed = append(cp.Completed, fname)
		}
		cp.Stats.Processed++
		sinceFlush++

		if opts.OnProgress != nil {
			opts.OnProgress(Progress{File: fname, Result: res, Processed: cp.Stats.Processed, Total: cp.Stats.Total})
		}

		if sinceFlush >= opts.CheckpointEvery {
			sinceFlush = 0
			if err := saveCheckpoint(checkpointPath, cp); err != nil {
				return cp, err
			}
			if err := i.idx.Flush(); err != nil {
				return cp, err
			}
		}
	}

	cp.Finished = true
	cp.FinishedAt = time.Now().Format(time.RFC3339)
	cp.Stats.ElapsedSeconds = time.Since(startedAt).Seconds()
	if err := saveCheckpoint(checkpointPath, cp); err != nil {
		return cp, err
	}
	if err := i.idx.Flush(); err != nil {
		return cp, err
	}

	logger.Info("batch finished: %d ingested, %d skipped, %d errors (%.1fs)",
		cp.Stats.Ingested, cp.Stats.Skipped, cp.Stats.Errors, cp.Stats.ElapsedSeconds)
	return cp, nil
}

// isRetryable reports whether an ingest failure should be retried on the
// next batch run rather than marked completed.
func isRetryable(err error) bool {
	return errors.Is(err, store.ErrUnavailable)
}

// listSupportedFiles enumerates parseable files under dir in deterministic
// lexicographic path order. Hidden subdirectories are excluded.
func listSupportedFiles(dir string, recursive bool) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == dir {
				return nil
			}
			if !recursive || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if parser.Supported(filepath.Ext(d.Name())) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// loadCheckpoint reads a prior checkpoint, or returns nil if none exists.
func loadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	return &cp, nil
}

// saveCheckpoint rewrites the checkpoint file in full.
func saveCheckpoint(path string, cp *Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}
