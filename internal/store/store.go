// Package store adapts the Postgres/pgvector similarity-search backend.
// It owns embedding of chunk text on write and of query text on read;
// vector math itself is delegated to pgvector.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/travisleebounds/Beta-Gold/internal/index"
	"github.com/travisleebounds/Beta-Gold/internal/ollama"
)

// ErrUnavailable indicates the backend could not be reached. Interactive
// callers surface it immediately; batch ingestion records it per file.
var ErrUnavailable = errors.New("vector store unavailable")

// embedDim matches the nomic-embed-text embedding size.
const embedDim = 768

// Chunk is the unit stored and retrieved. ID is deterministic:
// filename plus ordinal index, stable across re-embedding.
type Chunk struct {
	ID          string
	SourceFile  string
	SourcePath  string
	ChunkIndex  int
	TotalChunks int
	SHA256      string
	Tier        index.Tier
	IngestedAt  string
	Content     string
}

// ChunkID derives the deterministic id for a chunk of a file.
func ChunkID(filename string, i int) string {
	return fmt.Sprintf("%s__chunk_%d", filename, i)
}

// Hit is a query result carrying the raw cosine similarity.
type Hit struct {
	Chunk
	Similarity float64
}

// Store wraps the pgvector-backed chunk collection.
type Store struct {
	pool       *pgxpool.Pool
	llm        *ollama.Client
	embedModel string
}

// New creates a store over a new connection pool and verifies connectivity.
func New(connString string, llm *ollama.Client, embedModel string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &Store{pool: pool, llm: llm, embedModel: embedModel}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// EnsureSchema creates the extension, chunk table and indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS doc_chunks (
			chunk_id     TEXT PRIMARY KEY,
			source_file  TEXT NOT NULL,
			source_path  TEXT NOT NULL,
			chunk_index  INT NOT NULL,
			total_chunks INT NOT NULL,
			sha256       TEXT NOT NULL,
			tier         TEXT NOT NULL,
			ingested_at  TEXT NOT NULL,
			content      TEXT NOT NULL,
			embedding    vector(%d)
		)`, embedDim),
		`CREATE INDEX IF NOT EXISTS doc_chunks_source_file_idx ON doc_chunks (source_file)`,
		`CREATE INDEX IF NOT EXISTS doc_chunks_tier_idx ON doc_chunks (tier)`,
		`CREATE INDEX IF NOT EXISTS doc_chunks_embedding_idx ON doc_chunks
			USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Add embeds and stores the given chunks in one batch.
func (s *Store) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := s.llm.EmbedBatch(ctx, s.embedModel, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	batch := &pgx.Batch{}
	for i, c := range chunks {
		batch.Queue(
			`INSERT INTO doc_chunks
				(chunk_id, source_file, source_path, chunk_index, total_chunks,
				 sha256, tier, ingested_at, content, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (chunk_id) DO UPDATE SET
				source_path = EXCLUDED.source_path,
				total_chunks = EXCLUDED.total_chunks,
				sha256 = EXCLUDED.sha256,
				tier = EXCLUDED.tier,
				ingested_at = EXCLUDED.ingested_at,
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding`,
			c.ID, c.SourceFile, c.SourcePath, c.ChunkIndex, c.TotalChunks,
			c.SHA256, c.Tier, c.IngestedAt, c.Content, pgvector.NewVector(embeddings[i]),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < len(chunks); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}
	return nil
}

// DeleteFile removes every chunk belonging to filename, so stale chunks
// from a previous version never linger across a re-ingest.
func (s *Store) DeleteFile(ctx context.Context, filename string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM doc_chunks WHERE source_file = $1`, filename)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks for %s: %w", filename, err)
	}
	return int(tag.RowsAffected()), nil
}

// Query embeds the query text and returns up to limit hits ranked by raw
// cosine similarity, optionally restricted to one tier. An empty store
// yields an empty result, not an error.
func (s *Store) Query(ctx context.Context, query string, limit int, tier index.Tier) ([]Hit, error) {
	embedding, err := s.llm.Embed(ctx, s.embedModel, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sql := `SELECT chunk_id, source_file, source_path, chunk_index, total_chunks,
	               sha256, tier, ingested_at, content,
	               1 - (embedding <=> $1) AS similarity
	        FROM doc_chunks
	        WHERE embedding IS NOT NULL`
	args := []any{pgvector.NewVector(embedding)}

	if tier != "" {
		sql += ` AND tier = $2
	        ORDER BY embedding <=> $1 LIMIT $3`
		args = append(args, string(tier), limit)
	} else {
		sql += `
	        ORDER BY embedding <=> $1 LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(
			&h.ID, &h.SourceFile, &h.SourcePath, &h.ChunkIndex, &h.TotalChunks,
			&h.SHA256, &h.Tier, &h.IngestedAt, &h.Content, &h.Similarity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Count returns the total number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM doc_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}
