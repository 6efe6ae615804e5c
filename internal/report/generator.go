package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/travisleebounds/Beta-Gold/internal/logger"
	"github.com/travisleebounds/Beta-Gold/internal/ollama"
)

// ErrBackendHealth indicates the generative backend is unreachable or the
// configured model is not available. No partial report is emitted after it.
var ErrBackendHealth = errors.New("generation backend unavailable")

// Generator streams member reports over the generative backend.
type Generator struct {
	llm           *ollama.Client
	assembler     *Assembler
	model         string
	fallbackModel string
}

// NewGenerator creates a report generator.
func NewGenerator(llm *ollama.Client, assembler *Assembler, model, fallbackModel string) *Generator {
	return &Generator{llm: llm, assembler: assembler, model: model, fallbackModel: fallbackModel}
}

// stages lists the progress stages announced before generation. The
// comprehensive variant adds its deeper analysis passes.
func stages(kind Kind) []string {
	s := []string{
		"Connecting to Document Master",
		"Loading member profile data",
		"Querying policy database",
		"Searching document archive",
	}
	if kind == KindComprehensive {
		s = append(s,
			"Cross-referencing compliance records",
			"Analyzing historical data",
			"Processing all related documents",
			"Building risk assessment matrix",
		)
	}
	return append(s, "Generating report")
}

// Stream generates a report as an ordered event sequence: stage events,
// then token events, then exactly one Done or Error event. The channel is
// closed when the stream ends; cancellation is caller-side via ctx.
func (g *Generator) Stream(ctx context.Context, m Member, kind Kind, dashboardContext string) <-chan Event {
	out := make(chan Event)

	go func() {
		defer close(out)

		stageList := stages(kind)
		total := len(stageList)
		emit := func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for i, stage := range stageList[:total-1] {
			if !emit(StageEvent{Stage: stage, Progress: float64(i) / float64(total) * 100}) {
				return
			}
		}

		hits, err := g.assembler.Collect(ctx, m, kind)
		if err != nil {
			emit(ErrorEvent{Err: err})
			return
		}
		docContext := BuildContext(hits, DocsBudget(kind))
		prompt := buildPrompt(m, kind, docContext, dashboardContext)

		if !emit(StageEvent{Stage: stageList[total-1], Progress: 90}) {
			return
		}

		model, err := g.llm.ResolveModel(ctx, g.model, g.fallbackModel)
		if err != nil {
			emit(ErrorEvent{Err: fmt.Errorf("%w: %v", ErrBackendHealth, err)})
			return
		}
		logger.Debug("generating %s report for %s with model %s", kind, m.ID, model)

		numPredict := 4096
		if kind == KindComprehensive {
			numPredict = 8192
		}

		var full strings.Builder
		err = g.llm.GenerateStream(ctx, &ollama.GenerateRequest{
			Model:  model,
			Prompt: prompt,
			Options: map[string]any{
				"temperature": 0.3,
				"num_predict": numPredict,
				"top_p":       0.9,
			},
		}, func(token string) {
			full.WriteString(token)
			emit(TokenEvent{Token: token})
		})
		if err != nil {
			emit(ErrorEvent{Err: fmt.Errorf("generation failed: %w", err)})
			return
		}

		emit(DoneEvent{
			FullText:    full.String(),
			Sources:     len(hits),
			GoldSources: GoldCount(hits),
		})
	}()

	return out
}

// Generate runs a report to completion and returns the full text.
func (g *Generator) Generate(ctx context.Context, m Member, kind Kind, dashboardContext string) (string, error) {
	var full string
	for ev := range g.Stream(ctx, m, kind, dashboardContext) {
		switch e := ev.(type) {
		case DoneEvent:
			full = e.FullText
		case ErrorEvent:
			return "", e.Err
		}
	}
	if full == "" && ctx.Err() != nil {
		return "", ctx.Err()
	}
	return full, nil
}
