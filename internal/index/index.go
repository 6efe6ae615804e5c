// Package index maintains the durable mapping of ingested filenames to
// their ingestion metadata, plus per-tier document counters. It is loaded
// in full at startup and rewritten wholesale on every flush.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Record describes one ingested source file.
type Record struct {
	Filename   string `json:"filename"`
	Path       string `json:"path"`
	SHA256     string `json:"sha256"`
	Tier       Tier   `json:"tier"`
	Chunks     int    `json:"chunks"`
	Chars      int    `json:"chars"`
	IngestedAt string `json:"ingested_at"`
}

// fileFormat is the on-disk shape of the index.
type fileFormat struct {
	Documents   map[string]Record `json:"documents"`
	Stats       map[Tier]int      `json:"stats"`
	LastUpdated string            `json:"last_updated,omitempty"`
}

// Index tracks what has been ingested. It is not safe for concurrent use;
// the engine serializes access (single caller context).
type Index struct {
	path      string
	documents map[string]Record
	stats     map[Tier]int
	updated   string
}

// Load reads the index from path, or starts empty if the file is absent.
func Load(path string) (*Index, error) {
	idx := &Index{
		path:      path,
		documents: make(map[string]Record),
		stats:     make(map[Tier]int),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}
	if ff.Documents != nil {
		idx.documents = ff.Documents
	}
	if ff.Stats != nil {
		idx.stats = ff.Stats
	}
	idx.updated = ff.LastUpdated

	return idx, nil
}

// Flush rewrites the index file in full.
func (idx *Index) Flush() error {
	idx.updated = time.Now().Format(time.RFC3339)

	ff := fileFormat{
		Documents:   idx.documents,
		Stats:       idx.stats,
		LastUpdated: idx.updated,
	}
	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(idx.path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	if err := os.WriteFile(idx.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// Upsert inserts or fully replaces the record for its filename, moving the
// tier counter from the old tier to the new one when replacing.
func (idx *Index) Upsert(rec Record) {
	if old, ok := idx.documents[rec.Filename]; ok {
		idx.stats[old.Tier]--
		if idx.stats[old.Tier] <= 0 {
			delete(idx.stats, old.Tier)
		}
	}
	idx.documents[rec.Filename] = rec
	idx.stats[rec.Tier]++
}

// Get returns the record for filename, if present.
func (idx *Index) Get(filename string) (Record, bool) {
	rec, ok := idx.documents[filename]
	return rec, ok
}

// Remove deletes the record for filename. The caller is responsible for
// deleting the file's chunks from the vector store first.
func (idx *Index) Remove(filename string) {
	if old, ok := idx.documents[filename]; ok {
		idx.stats[old.Tier]--
		if idx.stats[old.Tier] <= 0 {
			delete(idx.stats, old.Tier)
		}
		delete(idx.documents, filename)
	}
}

// Count returns the number of indexed documents.
func (idx *Index) Count() int {
	return len(idx.documents)
}

// TierCounts returns the number of documents per tier.
func (idx *Index) TierCounts() map[Tier]int {
	counts := make(map[Tier]int, len(idx.stats))
	for t, n := range idx.stats {
		counts[t] = n
	}
	return counts
}

// LastUpdated returns the timestamp of the most recent flush.
func (idx *Index) LastUpdated() string {
	return idx.updated
}

// Records returns all records. Order is unspecified.
func (idx *Index) Records() []Record {
	recs := make([]Record, 0, len(idx.documents))
	for _, rec := range idx.documents {
		recs = append(recs, rec)
	}
	return recs
}
