// Package lawreader answers natural-language legal questions about Indian
// law. Queries are matched against a knowledge graph of scenario, principle,
// and article nodes; matches expand into legal context and render as
// plain-language answers. Unmatched queries fall back to an LLM that
// synthesizes new graph content, which is deduplicated, persisted, and
// available to subsequent queries.
package lawreader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/legalgraph/lawreader/answer"
	"github.com/legalgraph/lawreader/autolink"
	"github.com/legalgraph/lawreader/embedding"
	"github.com/legalgraph/lawreader/kg"
	"github.com/legalgraph/lawreader/llm"
	"github.com/legalgraph/lawreader/match"
	"github.com/legalgraph/lawreader/store"
	"github.com/legalgraph/lawreader/traverse"
	"github.com/legalgraph/lawreader/vecindex"
)

// Method names reported in Result.MethodUsed.
const (
	MethodGraphMatch    = "graph_match"
	MethodLLMGeneration = "llm_generation"
)

// Reader is the main entry point for the legal QA engine.
type Reader interface {
	// ProcessQuery runs a question through the match/expand/simplify
	// pipeline, falling back to LLM generation on a graph miss. Content
	// failures come back as an unsuccessful Result, not an error; errors
	// are reserved for structural problems.
	ProcessQuery(ctx context.Context, query string, opts ...QueryOption) (*Result, error)

	// TopMatches returns the k closest scenarios for a query regardless of
	// threshold, for diagnostics.
	TopMatches(ctx context.Context, query string, k int) ([]match.Match, error)

	// Graph returns the live knowledge graph.
	Graph() *kg.Graph

	// GraphStats summarizes the graph.
	GraphStats() kg.Stats

	// Store returns the underlying store for document analyses and the
	// query log.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// Result is the outcome of one processed query.
type Result struct {
	Query          string                 `json:"query"`
	MethodUsed     string                 `json:"method_used"`
	Success        bool                   `json:"success"`
	Answer         string                 `json:"answer"`
	ShortAnswer    string                 `json:"short_answer,omitempty"`
	Context        *traverse.Context      `json:"-"`
	DebugInfo      map[string]interface{} `json:"debug_info,omitempty"`
	ProcessingTime float64                `json:"processing_time"` // seconds
}

// QueryOption configures query behavior.
type QueryOption func(*queryOptions)

type queryOptions struct {
	forceLLM bool
}

// WithForceLLM skips graph matching and goes straight to LLM generation.
func WithForceLLM() QueryOption {
	return func(o *queryOptions) { o.forceLLM = true }
}

// reader is the concrete implementation of Reader.
type reader struct {
	cfg       Config
	graphPath string

	graph    *kg.Graph
	store    *store.Store
	indexes  *vecindex.Set
	embedder *embedding.Embedder
	matcher  *match.Matcher
	linker   *autolink.Linker

	// mu serializes queries: a graph miss mutates the graph, the matcher
	// state, and the vector indexes, and callers (notably the HTTP server)
	// dispatch concurrently.
	mu    sync.Mutex
	ready bool // matcher refreshed and indexes bootstrapped
}

// New creates a LawReader engine with the given configuration. The graph and
// indexes load from disk; embeddings are not computed until the first query
// (or an explicit Warm call).
func New(cfg Config) (Reader, error) {
	if cfg.MatchThreshold < 0 || cfg.MatchThreshold > 1 {
		return nil, fmt.Errorf("%w: match threshold %v outside [0, 1]", ErrInvalidConfig, cfg.MatchThreshold)
	}
	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = embedding.DefaultDimensions
	}

	graphPath := cfg.resolveGraphPath()
	g, err := kg.Load(graphPath)
	if err != nil {
		if !errors.Is(err, kg.ErrGraphLoad) || !cfg.AllowEmptyGraph {
			return nil, fmt.Errorf("%w: %v", ErrGraphUnavailable, err)
		}
		slog.Warn("graph file missing, starting empty", "path", graphPath)
		g = kg.New()
	}

	chatLLM, err := llm.NewProvider(llm.Config{
		Provider: cfg.Chat.Provider,
		Model:    cfg.Chat.Model,
		BaseURL:  cfg.Chat.BaseURL,
		APIKey:   cfg.Chat.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat provider: %w", err)
	}

	embedLLM, err := llm.NewProvider(llm.Config{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
		APIKey:   cfg.Embedding.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}
	embedder := embedding.New(embedLLM, cfg.EmbeddingDim)

	indexes, err := vecindex.OpenSet(cfg.resolveIndexDir(), cfg.EmbeddingDim,
		[]string{kg.NodePrinciple, kg.NodeArticle})
	if err != nil {
		return nil, fmt.Errorf("opening vector indexes: %w", err)
	}

	s, err := store.New(cfg.resolveDBPath())
	if err != nil {
		indexes.Close()
		return nil, fmt.Errorf("opening store: %w", err)
	}

	return &reader{
		cfg:       cfg,
		graphPath: graphPath,
		graph:     g,
		store:     s,
		indexes:   indexes,
		embedder:  embedder,
		matcher:   match.New(g, embedder, cfg.MatchThreshold),
		linker:    autolink.New(g, chatLLM, embedder, indexes),
	}, nil
}

func (r *reader) Graph() *kg.Graph     { return r.graph }
func (r *reader) GraphStats() kg.Stats { return r.graph.Stats() }
func (r *reader) Store() *store.Store  { return r.store }

// Close shuts down the indexes and the store.
func (r *reader) Close() error {
	ierr := r.indexes.Close()
	serr := r.store.Close()
	if ierr != nil {
		return ierr
	}
	return serr
}

// ensureReady refreshes the matcher's scenario embeddings and rebuilds any
// vector index whose row count disagrees with the graph. Runs once per
// engine lifetime; later refreshes happen after auto-linker mutations.
func (r *reader) ensureReady(ctx context.Context) error {
	if r.ready {
		return nil
	}

	if err := r.matcher.Refresh(ctx); err != nil {
		return err
	}

	for _, nodeType := range []string{kg.NodePrinciple, kg.NodeArticle} {
		n, err := r.indexes.Index(nodeType).Count(ctx)
		if err != nil {
			return fmt.Errorf("checking %s index: %w", nodeType, err)
		}
		if n != len(r.graph.NodesByType(nodeType)) {
			slog.Info("vector index stale, rebuilding",
				"type", nodeType, "indexed", n, "graph", len(r.graph.NodesByType(nodeType)))
			if err := r.linker.Reindex(ctx); err != nil {
				return err
			}
			break
		}
	}

	r.ready = true
	return nil
}

// ProcessQuery implements the match-first, LLM-fallback policy.
func (r *reader) ProcessQuery(ctx context.Context, query string, opts ...QueryOption) (*Result, error) {
	options := &queryOptions{}
	for _, o := range opts {
		o(options)
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	start := time.Now()
	res := &Result{Query: query, DebugInfo: map[string]interface{}{}}
	defer func() {
		if res.ProcessingTime == 0 {
			res.ProcessingTime = time.Since(start).Seconds()
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureReady(ctx); err != nil {
		return nil, fmt.Errorf("preparing engine: %w", err)
	}

	var scenarioID string
	var matchScore float32

	forceLLM := options.forceLLM
	if !forceLLM {
		m, err := r.matcher.FindMatchingScenario(ctx, query)
		if err != nil {
			return r.failure(ctx, res, start, MethodGraphMatch,
				"Unable to process your legal query: the matching backend is unavailable.", err), nil
		}
		if m != nil {
			scenarioID = m.Node.ID
			matchScore = m.Score
			res.MethodUsed = MethodGraphMatch
			res.DebugInfo["matched_scenario_id"] = scenarioID
			res.DebugInfo["similarity_score"] = matchScore
			slog.Info("scenario matched", "query", query, "scenario", scenarioID, "score", matchScore)
		} else {
			slog.Info("no scenario match, falling back to LLM",
				"query", query, "threshold", r.matcher.Threshold())
			forceLLM = true
		}
	}

	if forceLLM {
		linked, err := r.linker.GenerateAndInsert(ctx, query)
		if err != nil {
			return r.failure(ctx, res, start, MethodLLMGeneration,
				"Unable to process your legal query: the language model did not return usable content.", err), nil
		}

		// All graph holders observe the same mutated instance; persist and
		// refresh before the new scenario becomes matchable.
		if err := kg.Save(r.graph, r.graphPath); err != nil {
			return nil, fmt.Errorf("persisting graph: %w", err)
		}
		if err := r.matcher.Refresh(ctx); err != nil {
			return nil, fmt.Errorf("refreshing matcher: %w", err)
		}

		scenarioID = linked.ScenarioID
		res.MethodUsed = MethodLLMGeneration
		res.DebugInfo["new_scenario_id"] = scenarioID
		res.DebugInfo["nodes_created"] = linked.NodesCreated()
		if len(linked.UnresolvedRefs) > 0 {
			res.DebugInfo["unresolved_refs"] = linked.UnresolvedRefs
		}
	}

	// A scenario id that fails to expand indicates a broken invariant
	// between matcher/linker and the graph: propagate, don't soften.
	ec, err := traverse.ExpandContext(r.graph, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("expanding context for %s: %w", scenarioID, err)
	}

	res.Success = true
	res.Context = ec
	res.Answer = answer.Simplify(ec)
	res.ShortAnswer = answer.ShortAnswer(ec)
	res.DebugInfo["principles_found"] = len(ec.Principles)
	res.DebugInfo["articles_found"] = len(ec.Articles)
	res.ProcessingTime = time.Since(start).Seconds()

	r.logQuery(ctx, res, scenarioID, float64(matchScore))
	return res, nil
}

// TopMatches surfaces the matcher's diagnostics view.
func (r *reader) TopMatches(ctx context.Context, query string, k int) ([]match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureReady(ctx); err != nil {
		return nil, err
	}
	return r.matcher.TopMatches(ctx, query, k)
}

// failure finalizes a content-failure result: user-visible text, never a
// raw error.
func (r *reader) failure(ctx context.Context, res *Result, start time.Time, method, msg string, cause error) *Result {
	slog.Error("query processing failed", "query", res.Query, "method", method, "error", cause)
	res.MethodUsed = method
	res.Success = false
	res.Answer = msg
	res.DebugInfo["error"] = cause.Error()
	res.ProcessingTime = time.Since(start).Seconds()
	r.logQuery(ctx, res, "", 0)
	return res
}

// logQuery records the query outcome; audit failures never affect the answer.
func (r *reader) logQuery(ctx context.Context, res *Result, scenarioID string, score float64) {
	nodesCreated := 0
	if v, ok := res.DebugInfo["nodes_created"].(int); ok {
		nodesCreated = v
	}
	err := r.store.LogQuery(ctx, store.QueryRecord{
		Query:        res.Query,
		Answer:       res.Answer,
		MethodUsed:   res.MethodUsed,
		Success:      res.Success,
		MatchScore:   score,
		ScenarioID:   scenarioID,
		NodesCreated: nodesCreated,
		ProcessingMs: int64(res.ProcessingTime * 1000),
	})
	if err != nil {
		slog.Warn("query log write failed", "error", err)
	}
}
