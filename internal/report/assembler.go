// Package report assembles retrieved document context and dashboard facts
// into generation requests, and streams the resulting report as an ordered
// event sequence. The generative backend itself is treated as an opaque
// text-completion service.
package report

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/travisleebounds/Beta-Gold/internal/index"
	"github.com/travisleebounds/Beta-Gold/internal/search"
)

// Kind selects the report variant.
type Kind string

const (
	KindBrief         Kind = "brief"
	KindComprehensive Kind = "comprehensive"
)

// ParseKind validates a report kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBrief, KindComprehensive:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown report kind %q (want brief or comprehensive)", s)
}

// Member identifies the district member a report is generated for.
type Member struct {
	ID    string
	Name  string
	Party string
	Area  string
}

// perQueryHits is how many chunks each topic query retrieves before
// cross-query deduplication.
const perQueryHits = 5

// Searcher is the retrieval surface the assembler queries.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, opts search.Options) ([]search.Hit, error)
}

// Assembler composes topic-diversified retrieval into a bounded context
// document for the generation prompt.
type Assembler struct {
	engine Searcher
}

// NewAssembler creates an assembler over the given search engine.
func NewAssembler(engine Searcher) *Assembler {
	return &Assembler{engine: engine}
}

// queries builds the topic-diversified retrieval queries for a member.
// The comprehensive variant widens coverage with funding and
// infrastructure topics.
func queries(m Member, kind Kind) []string {
	qs := []string{
		fmt.Sprintf("%s %s", m.Name, m.Area),
		fmt.Sprintf("%s transportation funding", m.ID),
		fmt.Sprintf("%s policy compliance", m.ID),
		"Illinois transportation federal funding",
	}

	if kind == KindComprehensive {
		qs = append(qs,
			fmt.Sprintf("%s grants discretionary", m.ID),
			fmt.Sprintf("%s road construction closures", m.ID),
			fmt.Sprintf("%s infrastructure", m.Area),
			"IIJA formula allocations Illinois",
		)
	}

	return qs
}

// Collect runs every topic query and merges the hits, deduplicating by
// exact chunk text so one strong chunk never appears twice in the context.
func (a *Assembler) Collect(ctx context.Context, m Member, kind Kind) ([]search.Hit, error) {
	var all []search.Hit
	seen := make(map[string]bool)

	for _, q := range queries(m, kind) {
		hits, err := a.engine.Search(ctx, q, perQueryHits, search.Options{})
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			if !seen[h.Content] {
				all = append(all, h)
				seen[h.Content] = true
			}
		}
	}

	return all, nil
}

// BuildContext renders the retrieved chunks into the document-context
// section of the prompt, bounded to maxChars. Gold-tier sources are
// marked so the model can weigh them above archive material.
func BuildContext(hits []search.Hit, maxChars int) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		var label string
		switch h.Tier {
		case index.TierGold:
			label = fmt.Sprintf("[GOLD SOURCE: %s]", h.SourceFile)
		case index.TierArchive:
			label = fmt.Sprintf("[Archive source: %s]", h.SourceFile)
		default:
			label = fmt.Sprintf("[Source: %s]", h.SourceFile)
		}
		parts = append(parts, label+"\n"+h.Content)
	}

	return truncate(strings.Join(parts, "\n\n---\n\n"), maxChars)
}

// GoldCount returns how many hits are gold tier.
func GoldCount(hits []search.Hit) int {
	n := 0
	for _, h := range hits {
		if h.Tier == index.TierGold {
			n++
		}
	}
	return n
}

// truncate cuts s to at most max bytes on a rune boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
