// Package autolink grows the knowledge graph from LLM output. When a query
// has no matching scenario, the linker asks the model for a structured
// scenario/principles/articles response, deduplicates against existing
// nodes, inserts what is genuinely new, and rebuilds the affected vector
// indexes.
package autolink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/legalgraph/lawreader/embedding"
	"github.com/legalgraph/lawreader/kg"
	"github.com/legalgraph/lawreader/llm"
	"github.com/legalgraph/lawreader/vecindex"
)

// ErrLLMFailed indicates the model call failed or returned no usable JSON.
var ErrLLMFailed = errors.New("autolink: LLM failed")

// Dedup thresholds. Principles dedupe far stricter than articles: merging
// two different legal principles is a worse error than merging two
// similarly-worded article descriptions.
const (
	PrincipleDedupThreshold = 0.92
	ArticleMatchThreshold   = 0.75
)

// articleNumberRE pulls an article number like "19", "31A", or "19(1)(a)"
// out of free text; only the leading number and letter suffix are kept.
var articleNumberRE = regexp.MustCompile(`(?i)Article\s*(\d+[A-Z]?)(?:\([^)]+\))*`)

// linkRefRE extracts the article references from one links entry,
// e.g. "Principle 2 -> Article 14,21(1)" yields 14 and 21(1).
var linkRefRE = regexp.MustCompile(`\b\d+[A-Z]?(?:\(\w+\))*`)

// payload is the JSON shape demanded from the model.
type payload struct {
	Scenario struct {
		Example FlexText `json:"example"`
	} `json:"scenario"`
	Principles []FlexText `json:"principles"`
	Articles   []FlexText `json:"articles"`
	Links      []string   `json:"links"`
}

// Result reports what one generate-and-insert run did to the graph.
type Result struct {
	ScenarioID       string          `json:"scenario_id"`
	PrincipleIDs     []string        `json:"principle_ids"`
	ArticleIDs       []string        `json:"article_ids"`
	CreatedPrinciple []string        `json:"created_principles"`
	CreatedArticle   []string        `json:"created_articles"`
	// UnresolvedRefs lists article references from links entries that
	// matched no existing node. They are dropped, not fatal; callers decide
	// how loudly to report them.
	UnresolvedRefs []string        `json:"unresolved_refs,omitempty"`
	LLMResponse    json.RawMessage `json:"llm_response,omitempty"`
}

// NodesCreated counts new nodes including the scenario, which is always new.
func (r *Result) NodesCreated() int {
	return 1 + len(r.CreatedPrinciple) + len(r.CreatedArticle)
}

// Linker synthesizes and merges graph content for unmatched queries.
type Linker struct {
	graph    *kg.Graph
	chat     llm.Provider
	embedder *embedding.Embedder
	indexes  *vecindex.Set

	principleThreshold float32
	articleThreshold   float32
}

// New creates a Linker with the default thresholds.
func New(graph *kg.Graph, chat llm.Provider, embedder *embedding.Embedder, indexes *vecindex.Set) *Linker {
	return &Linker{
		graph:              graph,
		chat:               chat,
		embedder:           embedder,
		indexes:            indexes,
		principleThreshold: PrincipleDedupThreshold,
		articleThreshold:   ArticleMatchThreshold,
	}
}

// SetGraph repoints the linker at a different graph instance.
func (l *Linker) SetGraph(graph *kg.Graph) {
	l.graph = graph
}

// GenerateAndInsert runs the full generate/dedup/insert/reindex sequence for
// one query. The graph is mutated in place; persistence is the caller's job.
func (l *Linker) GenerateAndInsert(ctx context.Context, query string) (*Result, error) {
	data, raw, err := l.callLLM(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMFailed, err)
	}

	res := &Result{LLMResponse: raw}

	// Scenarios are never deduplicated here: reaching the linker means the
	// matcher already found no scenario close enough.
	scenarioText := data.Scenario.Example.String()
	if scenarioText == "" {
		scenarioText = query
	}
	res.ScenarioID = l.graph.AddNode(scenarioText, kg.NodeScenario)

	// Links are positional over the NEW principles only: matched principles
	// are assumed already linked and consume no links entry.
	newPrinciples := 0
	for _, p := range data.Principles {
		text := p.String()
		if text == "" {
			continue
		}

		principleID, matched, err := l.dedupPrinciple(ctx, text)
		if err != nil {
			return nil, err
		}
		if !matched {
			principleID = l.graph.AddNode(text, kg.NodePrinciple)
			res.CreatedPrinciple = append(res.CreatedPrinciple, principleID)
			res.UnresolvedRefs = append(res.UnresolvedRefs,
				l.linkArticleRefs(principleID, data.Links, newPrinciples)...)
			newPrinciples++
		}

		res.PrincipleIDs = append(res.PrincipleIDs, principleID)
		l.graph.AddEdgeIfMissing(res.ScenarioID, principleID, kg.EdgeSupports)
	}

	for _, a := range data.Articles {
		text := a.String()
		if text == "" {
			continue
		}

		articleID := l.findArticleByNumberOrTitle(text)
		if articleID == "" {
			articleID, err = l.semanticArticleMatch(ctx, text)
			if err != nil {
				return nil, err
			}
		}
		if articleID == "" {
			// New articles carry the title only; descriptions would need a
			// separate enrichment pass.
			articleID = l.graph.AddNode(text, kg.NodeArticle)
			res.CreatedArticle = append(res.CreatedArticle, articleID)
		}
		res.ArticleIDs = append(res.ArticleIDs, articleID)
	}

	// Full rebuild of both indexes, not a delta: index row order must match
	// a fresh graph scan or ids and vectors desynchronize.
	if err := l.Reindex(ctx); err != nil {
		return nil, fmt.Errorf("reindexing after insert: %w", err)
	}

	if len(res.UnresolvedRefs) > 0 {
		slog.Warn("autolink: article references dropped",
			"scenario", res.ScenarioID, "refs", res.UnresolvedRefs)
	}
	slog.Info("autolink: inserted graph content",
		"scenario", res.ScenarioID,
		"principles", len(res.PrincipleIDs),
		"articles", len(res.ArticleIDs),
		"nodes_created", res.NodesCreated())

	return res, nil
}

// Reindex rebuilds the principle and article vector indexes from the full
// current graph.
func (l *Linker) Reindex(ctx context.Context) error {
	for _, nodeType := range []string{kg.NodePrinciple, kg.NodeArticle} {
		nodes := l.graph.NodesByType(nodeType)

		texts := make([]string, 0, len(nodes))
		kept := make([]*kg.Node, 0, len(nodes))
		for _, n := range nodes {
			if t := n.IndexText(); t != "" {
				texts = append(texts, t)
				kept = append(kept, n)
			}
		}

		var entries []vecindex.Entry
		if len(texts) > 0 {
			vecs, err := l.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return fmt.Errorf("embedding %s nodes: %w", nodeType, err)
			}
			entries = make([]vecindex.Entry, len(kept))
			for i, n := range kept {
				entries[i] = vecindex.Entry{NodeID: n.ID, Content: texts[i], Vector: vecs[i]}
			}
		}

		if err := l.indexes.Rebuild(ctx, nodeType, entries); err != nil {
			return fmt.Errorf("rebuilding %s index: %w", nodeType, err)
		}
	}
	return nil
}

// callLLM sends the generation prompt and parses the structured response.
func (l *Linker) callLLM(ctx context.Context, query string) (*payload, json.RawMessage, error) {
	resp, err := l.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a legal assistant."},
			{Role: "user", Content: fmt.Sprintf(generationPrompt, query)},
		},
		Temperature:    0.3,
		MaxTokens:      600,
		ResponseFormat: "json_object",
	})
	if err != nil {
		return nil, nil, err
	}

	jsonStr, err := extractJSON(resp.Content)
	if err != nil {
		return nil, nil, err
	}

	var data payload
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		// Models under token pressure emit truncated or sloppy JSON;
		// attempt a repair before giving up.
		repaired, rerr := jsonrepair.JSONRepair(jsonStr)
		if rerr != nil {
			return nil, nil, fmt.Errorf("parsing LLM response: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &data); err != nil {
			return nil, nil, fmt.Errorf("parsing repaired LLM response: %w", err)
		}
		jsonStr = repaired
	}

	if data.Scenario.Example.String() == "" && len(data.Principles) == 0 && len(data.Articles) == 0 {
		return nil, nil, errors.New("LLM returned an empty result")
	}

	return &data, json.RawMessage(jsonStr), nil
}

// dedupPrinciple searches the principle index for a near-duplicate of text.
// Returns the matched node id, or matched=false if nothing clears the
// threshold.
func (l *Linker) dedupPrinciple(ctx context.Context, text string) (string, bool, error) {
	qv, err := l.embedder.Embed(ctx, text)
	if err != nil {
		return "", false, fmt.Errorf("embedding principle: %w", err)
	}
	hits, err := l.indexes.Search(ctx, kg.NodePrinciple, qv, 3)
	if err != nil {
		return "", false, fmt.Errorf("searching principle index: %w", err)
	}
	for _, h := range hits {
		if h.Score >= l.principleThreshold {
			slog.Debug("autolink: principle deduplicated",
				"text", text, "matched", h.NodeID, "score", h.Score)
			return h.NodeID, true, nil
		}
	}
	return "", false, nil
}

// semanticArticleMatch falls back to embedding search for articles that the
// exact number/title matcher could not resolve.
func (l *Linker) semanticArticleMatch(ctx context.Context, text string) (string, error) {
	qv, err := l.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embedding article: %w", err)
	}
	hits, err := l.indexes.Search(ctx, kg.NodeArticle, qv, 3)
	if err != nil {
		return "", fmt.Errorf("searching article index: %w", err)
	}
	for _, h := range hits {
		if h.Score >= l.articleThreshold {
			return h.NodeID, nil
		}
	}
	return "", nil
}

// linkArticleRefs parses the links entry for the idx-th new principle and
// adds explains edges to the articles it references. Resolution here is
// exact number/title match only; references that resolve to nothing come
// back to the caller instead of failing the insert.
func (l *Linker) linkArticleRefs(principleID string, links []string, idx int) []string {
	if idx >= len(links) {
		slog.Warn("autolink: no links entry for new principle",
			"principle", principleID, "index", idx)
		return nil
	}

	// Entries follow "Principle N -> Article X,Y"; only the article side
	// carries references.
	entry := links[idx]
	if _, after, found := strings.Cut(entry, "->"); found {
		entry = after
	}

	var unresolved []string
	for _, ref := range linkRefRE.FindAllString(entry, -1) {
		articleID := l.findArticleByNumberOrTitle("Article " + ref)
		if articleID == "" {
			unresolved = append(unresolved, ref)
			continue
		}
		l.graph.AddEdgeIfMissing(principleID, articleID, kg.EdgeExplains)
	}
	return unresolved
}

// findArticleByNumberOrTitle resolves an article mention to an existing node
// by extracting its number, or failing that, by normalized-title substring
// match. Returns "" when nothing matches. Numbers are preferred because they
// are a precise, low-ambiguity key.
func (l *Linker) findArticleByNumberOrTitle(text string) string {
	if m := articleNumberRE.FindStringSubmatch(text); m != nil {
		num := strings.ToUpper(m[1])
		for _, n := range l.graph.NodesByType(kg.NodeArticle) {
			if strings.ToUpper(n.Number) == num {
				return n.ID
			}
		}
	}

	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, n := range l.graph.NodesByType(kg.NodeArticle) {
		title := strings.ToLower(strings.TrimSpace(n.Title))
		if title != "" && strings.Contains(normalized, title) {
			return n.ID
		}
	}
	return ""
}

// codeBlockRE strips markdown code fences from LLM output.
var codeBlockRE = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractJSON finds a JSON object in raw LLM response text, tolerating
// markdown code fences and leading or trailing prose.
func extractJSON(raw string) (string, error) {
	if m := codeBlockRE.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}

	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		return raw, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}
	return "", errors.New("no JSON object found in response")
}
