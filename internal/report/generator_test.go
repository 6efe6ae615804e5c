package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travisleebounds/Beta-Gold/internal/index"
	"github.com/travisleebounds/Beta-Gold/internal/ollama"
	"github.com/travisleebounds/Beta-Gold/internal/search"
)

func fakeBackend(t *testing.T, tokens []string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{{"name": "llama3.1:8b"}},
		})
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		for _, tok := range tokens {
			enc.Encode(map[string]any{"response": tok})
		}
		enc.Encode(map[string]any{"done": true})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGenerator(t *testing.T, srv *httptest.Server, hits []search.Hit) *Generator {
	t.Helper()
	byQuery := make(map[string][]search.Hit)
	for _, q := range queries(testMember, KindComprehensive) {
		byQuery[q] = hits
	}
	assembler := NewAssembler(&fakeSearcher{byQuery: byQuery})
	return NewGenerator(ollama.NewClient(srv.URL), assembler, "qwen2.5-coder:7b", "llama3.1:8b")
}

func TestStream_EventOrder(t *testing.T) {
	srv := fakeBackend(t, []string{"The ", "report ", "body."})
	gen := newTestGenerator(t, srv, []search.Hit{
		searchHit("audit.pdf", "gold chunk", index.TierGold),
		searchHit("memo.txt", "standard chunk", index.TierStandard),
	})

	var stages, tokens []string
	var done *DoneEvent
	phase := 0 // 0 = stages, 1 = tokens, 2 = finished
	for ev := range gen.Stream(context.Background(), testMember, KindBrief, "dashboard data") {
		switch e := ev.(type) {
		case StageEvent:
			require.Equal(t, 0, phase, "stage after tokens started")
			stages = append(stages, e.Stage)
		case TokenEvent:
			require.LessOrEqual(t, phase, 1)
			phase = 1
			tokens = append(tokens, e.Token)
		case DoneEvent:
			phase = 2
			done = &e
		case ErrorEvent:
			t.Fatalf("unexpected error event: %v", e.Err)
		}
	}

	assert.Equal(t, []string{
		"Connecting to Document Master",
		"Loading member profile data",
		"Querying policy database",
		"Searching document archive",
		"Generating report",
	}, stages)
	assert.Equal(t, []string{"The ", "report ", "body."}, tokens)

	require.NotNil(t, done, "stream must end with a Done event")
	assert.Equal(t, "The report body.", done.FullText)
	assert.Equal(t, 2, done.Sources)
	assert.Equal(t, 1, done.GoldSources)
}

func TestStream_ComprehensiveStages(t *testing.T) {
	srv := fakeBackend(t, []string{"ok"})
	gen := newTestGenerator(t, srv, nil)

	var stages []string
	for ev := range gen.Stream(context.Background(), testMember, KindComprehensive, "") {
		if e, ok := ev.(StageEvent); ok {
			stages = append(stages, e.Stage)
		}
	}

	require.Len(t, stages, 9)
	assert.Contains(t, stages, "Building risk assessment matrix")
	assert.Equal(t, "Generating report", stages[len(stages)-1])
}

func TestStream_BackendDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on
	gen := newTestGenerator(t, srv, nil)

	var errEv *ErrorEvent
	var sawTokens bool
	for ev := range gen.Stream(context.Background(), testMember, KindBrief, "") {
		switch e := ev.(type) {
		case ErrorEvent:
			errEv = &e
		case TokenEvent:
			sawTokens = true
		}
	}

	require.NotNil(t, errEv)
	assert.ErrorIs(t, errEv.Err, ErrBackendHealth)
	assert.False(t, sawTokens, "no partial report after a health failure")
}

func TestStream_Cancellation(t *testing.T) {
	srv := fakeBackend(t, []string{"ok"})
	gen := newTestGenerator(t, srv, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := gen.Stream(ctx, testMember, KindBrief, "")
	for range events {
	}
	// Channel drains and closes without hanging.
}

func TestGenerate(t *testing.T) {
	srv := fakeBackend(t, []string{"full ", "text"})
	gen := newTestGenerator(t, srv, nil)

	text, err := gen.Generate(context.Background(), testMember, KindBrief, "")
	require.NoError(t, err)
	assert.Equal(t, "full text", text)
}

func TestGenerate_PropagatesError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	gen := newTestGenerator(t, srv, nil)

	_, err := gen.Generate(context.Background(), testMember, KindBrief, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendHealth)
}
