//go:build cgo

package lawreader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/legalgraph/lawreader/autolink"
	"github.com/legalgraph/lawreader/embedding"
	"github.com/legalgraph/lawreader/kg"
	"github.com/legalgraph/lawreader/llm"
	"github.com/legalgraph/lawreader/match"
	"github.com/legalgraph/lawreader/store"
	"github.com/legalgraph/lawreader/vecindex"
)

// fakeLLM maps exact texts to fixed vectors and returns a canned chat
// response, counting chat calls so tests can assert which path ran.
type fakeLLM struct {
	mu        sync.Mutex
	chatCalls int
	chatText  string
	vectors   map[string][]float32
}

func (f *fakeLLM) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.mu.Lock()
	f.chatCalls++
	f.mu.Unlock()
	return &llm.ChatResponse{Content: f.chatText, Model: "fake"}, nil
}

func (f *fakeLLM) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = append([]float32(nil), v...)
		} else {
			out[i] = []float32{0, 0, 0, 1}
		}
	}
	return out, nil
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chatCalls
}

const (
	seedScenario  = "Police arrested me without a warrant"
	seedPrinciple = "Arrest requires production before a magistrate within 24 hours"
	seedArticle   = "No person shall be deprived of his life or personal liberty except according to procedure established by law"

	matchQuery = "What happens if police arrest me without a warrant?"
	missQuery  = "Can my landlord keep my security deposit?"

	genScenario  = "Landlord withholding tenant security deposit"
	genPrinciple = "Landlords must return security deposits within a reasonable period."
)

const genResponse = `{
  "scenario": {"example": "Landlord withholding tenant security deposit"},
  "principles": ["Landlords must return security deposits within a reasonable period."],
  "articles": ["Article 21 - Protection of life and personal liberty"],
  "links": ["Principle 1 -> Article 21"]
}`

func newFakeLLM() *fakeLLM {
	return &fakeLLM{
		chatText: genResponse,
		vectors: map[string][]float32{
			seedScenario:  {1, 0, 0, 0},
			matchQuery:    {1, 0, 0, 0},
			seedPrinciple: {0, 1, 0, 0},
			seedArticle:   {0, 0, 1, 0},
			missQuery:     {0, 0.6, 0, 0.8},
			genScenario:   {0, 0.6, 0, 0.8},
			genPrinciple:  {0.8, 0, 0.6, 0},
		},
	}
}

// newTestReader builds a reader over a seeded graph: one scenario supported
// by one principle, which explains article 21.
func newTestReader(t *testing.T, fake *fakeLLM) *reader {
	t.Helper()

	dir := t.TempDir()

	g := kg.New()
	scenarioID := g.AddNode(seedScenario, kg.NodeScenario)
	principleID := g.AddNode(seedPrinciple, kg.NodePrinciple)
	g.Insert(&kg.Node{
		ID:          "article_21",
		Type:        kg.NodeArticle,
		Number:      "21",
		Title:       "Protection of life and personal liberty",
		Description: seedArticle,
	})
	g.AddEdgeIfMissing(scenarioID, principleID, kg.EdgeSupports)
	g.AddEdgeIfMissing(principleID, "article_21", kg.EdgeExplains)

	indexes, err := vecindex.OpenSet(filepath.Join(dir, "indexes"), 4,
		[]string{kg.NodePrinciple, kg.NodeArticle})
	if err != nil {
		t.Fatalf("OpenSet: %v", err)
	}
	t.Cleanup(func() { indexes.Close() })

	s, err := store.New(filepath.Join(dir, "lawreader.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	embedder := embedding.New(fake, 4)
	return &reader{
		cfg:       Config{MatchThreshold: 0.65, EmbeddingDim: 4},
		graphPath: filepath.Join(dir, "law_graph.json"),
		graph:     g,
		store:     s,
		indexes:   indexes,
		embedder:  embedder,
		matcher:   match.New(g, embedder, 0.65),
		linker:    autolink.New(g, fake, embedder, indexes),
	}
}

func TestProcessQueryGraphMatchSkipsLLM(t *testing.T) {
	fake := newFakeLLM()
	r := newTestReader(t, fake)

	res, err := r.ProcessQuery(context.Background(), matchQuery)
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if !res.Success {
		t.Fatal("expected success")
	}
	if res.MethodUsed != MethodGraphMatch {
		t.Fatalf("method = %q, want %q", res.MethodUsed, MethodGraphMatch)
	}
	if fake.calls() != 0 {
		t.Fatalf("chat calls = %d, want 0 on a graph match", fake.calls())
	}
	if _, ok := res.DebugInfo["matched_scenario_id"]; !ok {
		t.Error("debug info missing matched_scenario_id")
	}
	if len(res.Context.Principles) != 1 || len(res.Context.Articles) != 1 {
		t.Fatalf("context = %d principles, %d articles, want 1 and 1",
			len(res.Context.Principles), len(res.Context.Articles))
	}
	if !strings.Contains(res.Answer, "Article 21") {
		t.Errorf("answer does not mention Article 21:\n%s", res.Answer)
	}
}

func TestProcessQueryMissGeneratesAndInserts(t *testing.T) {
	fake := newFakeLLM()
	r := newTestReader(t, fake)

	res, err := r.ProcessQuery(context.Background(), missQuery)
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, answer: %s", res.Answer)
	}
	if res.MethodUsed != MethodLLMGeneration {
		t.Fatalf("method = %q, want %q", res.MethodUsed, MethodLLMGeneration)
	}
	if fake.calls() != 1 {
		t.Fatalf("chat calls = %d, want exactly 1", fake.calls())
	}

	// One new scenario plus one new principle; article 21 matched by number.
	if got := res.DebugInfo["nodes_created"]; got != 2 {
		t.Errorf("nodes_created = %v, want 2", got)
	}
	stats := r.graph.Stats()
	if stats.NodeTypes[kg.NodeScenario] != 2 {
		t.Errorf("scenarios = %d, want 2", stats.NodeTypes[kg.NodeScenario])
	}
	if stats.NodeTypes[kg.NodeArticle] != 1 {
		t.Errorf("articles = %d, want 1 (reused by number)", stats.NodeTypes[kg.NodeArticle])
	}

	// The expanded context must carry the new principle and the linked article.
	if len(res.Context.Principles) != 1 || res.Context.Principles[0].Text != genPrinciple {
		t.Fatalf("unexpected principles in context: %+v", res.Context.Principles)
	}
	if len(res.Context.Articles) != 1 || res.Context.Articles[0].ID != "article_21" {
		t.Fatalf("unexpected articles in context: %+v", res.Context.Articles)
	}

	// The graph is persisted before the answer returns.
	if _, err := os.Stat(r.graphPath); err != nil {
		t.Errorf("graph not saved: %v", err)
	}
	loaded, err := kg.Load(r.graphPath)
	if err != nil {
		t.Fatalf("reloading saved graph: %v", err)
	}
	if loaded.Stats().Nodes != stats.Nodes {
		t.Errorf("saved graph has %d nodes, want %d", loaded.Stats().Nodes, stats.Nodes)
	}
}

func TestProcessQueryRepeatHitsGraphMatch(t *testing.T) {
	fake := newFakeLLM()
	r := newTestReader(t, fake)

	ctx := context.Background()
	first, err := r.ProcessQuery(ctx, missQuery)
	if err != nil {
		t.Fatalf("first ProcessQuery: %v", err)
	}
	if first.MethodUsed != MethodLLMGeneration {
		t.Fatalf("first method = %q, want %q", first.MethodUsed, MethodLLMGeneration)
	}

	second, err := r.ProcessQuery(ctx, missQuery)
	if err != nil {
		t.Fatalf("second ProcessQuery: %v", err)
	}
	if second.MethodUsed != MethodGraphMatch {
		t.Fatalf("second method = %q, want %q", second.MethodUsed, MethodGraphMatch)
	}
	if fake.calls() != 1 {
		t.Fatalf("chat calls = %d, want 1 total across both queries", fake.calls())
	}
	if second.DebugInfo["matched_scenario_id"] != first.DebugInfo["new_scenario_id"] {
		t.Errorf("second query matched %v, want the scenario created first (%v)",
			second.DebugInfo["matched_scenario_id"], first.DebugInfo["new_scenario_id"])
	}
}

// Concurrent miss queries mutate the graph; ProcessQuery must serialize them
// so only the first generates and the rest match the scenario it created.
// Run under the race detector to catch unsynchronized graph access.
func TestProcessQueryConcurrentMisses(t *testing.T) {
	fake := newFakeLLM()
	r := newTestReader(t, fake)

	const workers = 4
	ctx := context.Background()
	results := make([]*Result, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.ProcessQuery(ctx, missQuery)
		}(i)
	}
	wg.Wait()

	generated := 0
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if !results[i].Success {
			t.Fatalf("worker %d unsuccessful: %s", i, results[i].Answer)
		}
		if results[i].MethodUsed == MethodLLMGeneration {
			generated++
		}
	}
	if generated != 1 {
		t.Errorf("llm_generation ran %d times, want 1", generated)
	}
	if fake.calls() != 1 {
		t.Errorf("chat calls = %d, want 1", fake.calls())
	}
	if n := r.graph.Stats().NodeTypes[kg.NodeScenario]; n != 2 {
		t.Errorf("scenarios = %d, want 2 (seed plus one generated)", n)
	}
}

func TestProcessQueryForceLLM(t *testing.T) {
	fake := newFakeLLM()
	r := newTestReader(t, fake)

	res, err := r.ProcessQuery(context.Background(), matchQuery, WithForceLLM())
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if res.MethodUsed != MethodLLMGeneration {
		t.Fatalf("method = %q, want %q", res.MethodUsed, MethodLLMGeneration)
	}
	if fake.calls() != 1 {
		t.Fatalf("chat calls = %d, want 1", fake.calls())
	}
}

func TestProcessQueryLLMFailureIsUnsuccessful(t *testing.T) {
	fake := newFakeLLM()
	fake.chatText = "I cannot help with that."
	r := newTestReader(t, fake)

	res, err := r.ProcessQuery(context.Background(), missQuery)
	if err != nil {
		t.Fatalf("LLM content failure should not surface as an error, got: %v", err)
	}
	if res.Success {
		t.Fatal("expected unsuccessful result")
	}
	if !strings.HasPrefix(res.Answer, "Unable to process") {
		t.Errorf("answer = %q, want textual failure message", res.Answer)
	}
	if _, ok := res.DebugInfo["error"]; !ok {
		t.Error("debug info missing error detail")
	}
	// The failed attempt must not leave a scenario behind as matchable.
	if n := r.graph.Stats().NodeTypes[kg.NodeScenario]; n != 1 {
		t.Errorf("scenarios = %d, want 1", n)
	}
}

func TestProcessQueryEmptyQuery(t *testing.T) {
	r := newTestReader(t, newFakeLLM())

	if _, err := r.ProcessQuery(context.Background(), "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestProcessQueryLogsOutcome(t *testing.T) {
	fake := newFakeLLM()
	r := newTestReader(t, fake)

	ctx := context.Background()
	if _, err := r.ProcessQuery(ctx, matchQuery); err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if _, err := r.ProcessQuery(ctx, missQuery); err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}

	recs, err := r.store.RecentQueries(ctx, 10)
	if err != nil {
		t.Fatalf("RecentQueries: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("logged %d queries, want 2", len(recs))
	}
	// Newest first.
	if recs[0].Query != missQuery || recs[0].MethodUsed != MethodLLMGeneration {
		t.Errorf("latest record = %q via %q", recs[0].Query, recs[0].MethodUsed)
	}
	if recs[1].Query != matchQuery || recs[1].MethodUsed != MethodGraphMatch {
		t.Errorf("older record = %q via %q", recs[1].Query, recs[1].MethodUsed)
	}
	if recs[0].NodesCreated != 2 {
		t.Errorf("nodes_created logged as %d, want 2", recs[0].NodesCreated)
	}
}

func TestTopMatches(t *testing.T) {
	fake := newFakeLLM()
	r := newTestReader(t, fake)

	matches, err := r.TopMatches(context.Background(), matchQuery, 5)
	if err != nil {
		t.Fatalf("TopMatches: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 (only one scenario)", len(matches))
	}
	if matches[0].Score < 0.99 {
		t.Errorf("score = %v, want ~1.0 for an exact-vector match", matches[0].Score)
	}
}
