// Package engine wires the Document Master together: parsers, chunker,
// vector store, document index, tiered retrieval and report generation
// behind one facade.
package engine

import (
	"context"
	"fmt"

	"github.com/travisleebounds/Beta-Gold/config"
	"github.com/travisleebounds/Beta-Gold/internal/chunker"
	"github.com/travisleebounds/Beta-Gold/internal/index"
	"github.com/travisleebounds/Beta-Gold/internal/ingest"
	"github.com/travisleebounds/Beta-Gold/internal/logger"
	"github.com/travisleebounds/Beta-Gold/internal/ollama"
	"github.com/travisleebounds/Beta-Gold/internal/report"
	"github.com/travisleebounds/Beta-Gold/internal/search"
	"github.com/travisleebounds/Beta-Gold/internal/store"
)

// Master is the document engine facade consumed by the CLI and UI
// collaborators. One Master owns one storage directory; callers must not
// run two engines against the same directory concurrently.
type Master struct {
	cfg       *config.Config
	llm       *ollama.Client
	store     *store.Store
	idx       *index.Index
	ingestor  *ingest.Ingestor
	searcher  *search.Engine
	generator *report.Generator
}

// Status summarizes engine state for the dashboard.
type Status struct {
	BackendRunning   bool               `json:"backend_running"`
	ModelAvailable   bool               `json:"model_available"`
	Model            string             `json:"model"`
	DocumentsIndexed int                `json:"documents_indexed"`
	TotalChunks      int                `json:"total_chunks"`
	TierCounts       map[index.Tier]int `json:"tier_counts"`
	LastUpdated      string             `json:"last_updated,omitempty"`
}

// New builds a Master from configuration: connects the vector store,
// ensures its schema and loads the document index.
func New(ctx context.Context, cfg *config.Config) (*Master, error) {
	llm := ollama.NewClient(cfg.Ollama.BaseURL)

	st, err := store.New(cfg.Database.ConnectionString, llm, cfg.Ollama.EmbedModel)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		st.Close()
		return nil, err
	}

	idx, err := index.Load(cfg.IndexPath())
	if err != nil {
		st.Close()
		return nil, err
	}

	splitter := chunker.New(
		chunker.WithChunkSize(cfg.Processing.ChunkSize),
		chunker.WithOverlap(cfg.Processing.ChunkOverlap),
	)

	searcher := search.New(st)
	m := &Master{
		cfg:       cfg,
		llm:       llm,
		store:     st,
		idx:       idx,
		ingestor:  ingest.New(st, idx, splitter, cfg.Processing.AddBatchSize),
		searcher:  searcher,
		generator: report.NewGenerator(llm, report.NewAssembler(searcher), cfg.Ollama.Model, cfg.Ollama.FallbackModel),
	}

	logger.Debug("engine initialized: %d documents indexed", idx.Count())
	return m, nil
}

// Close releases the vector store connection pool.
func (m *Master) Close() {
	m.store.Close()
}

// IngestFile ingests one file under the given tier.
func (m *Master) IngestFile(ctx context.Context, path string, tier index.Tier, force bool) (ingest.Result, error) {
	return m.ingestor.IngestFile(ctx, path, tier, force)
}

// IngestDirectory ingests every supported file under dir.
func (m *Master) IngestDirectory(ctx context.Context, dir string, tier index.Tier, recursive, force bool) ([]ingest.Result, error) {
	return m.ingestor.IngestDir(ctx, dir, tier, recursive, force)
}

// RunBatch runs a resumable, checkpointed batch ingestion over dir.
func (m *Master) RunBatch(ctx context.Context, dir string, opts ingest.BatchOptions) (*ingest.Checkpoint, error) {
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = m.cfg.Processing.CheckpointEvery
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = m.cfg.Processing.MaxTrackedErrors
	}
	return m.ingestor.RunBatch(ctx, dir, m.cfg.CheckpointPath(), opts)
}

// Search performs a tier-weighted semantic search.
func (m *Master) Search(ctx context.Context, query string, topK int, opts search.Options) ([]search.Hit, error) {
	if topK <= 0 {
		topK = m.cfg.Processing.TopK
	}
	return m.searcher.Search(ctx, query, topK, opts)
}

// GenerateReport streams a member report as an ordered event sequence.
func (m *Master) GenerateReport(ctx context.Context, member report.Member, kind report.Kind, dashboardContext string) <-chan report.Event {
	return m.generator.Stream(ctx, member, kind, dashboardContext)
}

// Documents lists what has been ingested.
func (m *Master) Documents() []index.Record {
	return m.idx.Records()
}

// RemoveDocument hard-deletes a document: its chunks first, then the
// index record.
func (m *Master) RemoveDocument(ctx context.Context, filename string) error {
	if _, ok := m.idx.Get(filename); !ok {
		return fmt.Errorf("document %q not indexed", filename)
	}
	if _, err := m.store.DeleteFile(ctx, filename); err != nil {
		return err
	}
	m.idx.Remove(filename)
	return m.idx.Flush()
}

// Status reports engine state: index counts, chunk totals and backend
// health.
func (m *Master) Status(ctx context.Context) Status {
	s := Status{
		Model:            m.cfg.Ollama.Model,
		DocumentsIndexed: m.idx.Count(),
		TierCounts:       m.idx.TierCounts(),
		LastUpdated:      m.idx.LastUpdated(),
	}

	if n, err := m.store.Count(ctx); err == nil {
		s.TotalChunks = n
	}

	if ok, err := m.llm.HasModel(ctx, m.cfg.Ollama.Model); err == nil {
		s.BackendRunning = true
		s.ModelAvailable = ok
	}

	return s
}
