// Package search performs priority-weighted semantic retrieval across
// document tiers.
package search

import (
	"context"
	"sort"

	"github.com/travisleebounds/Beta-Gold/internal/index"
	"github.com/travisleebounds/Beta-Gold/internal/store"
)

// candidateMultiple controls how many raw candidates the underlying vector
// query fetches relative to topK. Fetching extra keeps boosted gold chunks
// from being starved by raw-similarity-only retrieval.
const candidateMultiple = 3

// DefaultTopK is the number of hits returned when the caller does not ask
// for a specific count.
const DefaultTopK = 15

// Hit is one retrieval result. FinalScore is the tier-weighted similarity
// used for ranking; Similarity is the raw backend score.
type Hit struct {
	store.Hit
	FinalScore float64
}

// Options tune a search call.
type Options struct {
	TierFilter   index.Tier // restrict to one tier when set
	DisableBoost bool       // rank on raw similarity only
}

// Querier is the read side of the vector store.
type Querier interface {
	Query(ctx context.Context, query string, limit int, tier index.Tier) ([]store.Hit, error)
}

// Engine executes tier-weighted searches against the vector store.
type Engine struct {
	store Querier
}

// New creates a search engine over the given store.
func New(st Querier) *Engine {
	return &Engine{store: st}
}

// Search returns up to topK hits for the query, ranked descending by
// final score with ties kept in backend order. An empty store yields an
// empty result, not an error.
func (e *Engine) Search(ctx context.Context, query string, topK int, opts Options) ([]Hit, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	raw, err := e.store.Query(ctx, query, topK*candidateMultiple, opts.TierFilter)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, len(raw))
	for i, h := range raw {
		final := h.Similarity
		if !opts.DisableBoost {
			final *= h.Tier.Weight()
		}
		hits[i] = Hit{Hit: h, FinalScore: final}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].FinalScore > hits[b].FinalScore
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}
