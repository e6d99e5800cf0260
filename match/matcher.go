// Package match finds the knowledge-graph scenario closest to a user query.
// Scenario embeddings are held in memory and recomputed on Refresh, so the
// matcher always reflects the graph it was last refreshed against.
package match

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/legalgraph/lawreader/embedding"
	"github.com/legalgraph/lawreader/kg"
)

// DefaultThreshold is the minimum similarity for a scenario match.
const DefaultThreshold = 0.65

// Match pairs a scenario node with its similarity to the query.
type Match struct {
	Node  *kg.Node
	Score float32
}

// Matcher performs semantic matching of queries against scenario nodes.
type Matcher struct {
	graph     *kg.Graph
	embedder  *embedding.Embedder
	threshold float32

	ids  []string
	vecs [][]float32
}

// New creates a Matcher over the given graph. Pass threshold <= 0 for
// DefaultThreshold. Call Refresh before matching.
func New(graph *kg.Graph, embedder *embedding.Embedder, threshold float32) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{graph: graph, embedder: embedder, threshold: threshold}
}

// Threshold returns the active match threshold.
func (m *Matcher) Threshold() float32 { return m.threshold }

// SetGraph points the matcher at a different graph. The cached embeddings
// are dropped; call Refresh before the next match.
func (m *Matcher) SetGraph(graph *kg.Graph) {
	m.graph = graph
	m.ids = nil
	m.vecs = nil
}

// Refresh re-embeds every scenario node. Must be called after the graph's
// scenario set changes or matches will miss new scenarios.
func (m *Matcher) Refresh(ctx context.Context) error {
	scenarios := m.graph.NodesByType(kg.NodeScenario)
	if len(scenarios) == 0 {
		m.ids = nil
		m.vecs = nil
		return nil
	}

	ids := make([]string, len(scenarios))
	texts := make([]string, len(scenarios))
	for i, n := range scenarios {
		ids[i] = n.ID
		texts[i] = n.Content()
	}

	vecs, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("refreshing scenario embeddings: %w", err)
	}

	m.ids = ids
	m.vecs = vecs
	slog.Debug("matcher refreshed", "scenarios", len(ids))
	return nil
}

// FindMatchingScenario returns the best scenario at or above the threshold,
// or nil if nothing qualifies. Ties keep the earliest-inserted scenario.
func (m *Matcher) FindMatchingScenario(ctx context.Context, query string) (*Match, error) {
	matches, err := m.TopMatches(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 || matches[0].Score < m.threshold {
		return nil, nil
	}
	return &matches[0], nil
}

// TopMatches returns up to k scenarios ranked by similarity, best first,
// with no threshold applied. Equal scores keep insertion order.
func (m *Matcher) TopMatches(ctx context.Context, query string, k int) ([]Match, error) {
	if len(m.ids) == 0 || k <= 0 {
		return nil, nil
	}

	qv, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	scores := make([]float32, len(m.ids))
	for i, v := range m.vecs {
		scores[i] = embedding.Cosine(qv, v)
	}

	if k > len(m.ids) {
		k = len(m.ids)
	}

	// Selection by repeated arg-max keeps ties in insertion order, which
	// matters for reproducible answers on symmetric graphs.
	taken := make([]bool, len(m.ids))
	matches := make([]Match, 0, k)
	for len(matches) < k {
		best := -1
		for i := range scores {
			if taken[i] {
				continue
			}
			if best == -1 || scores[i] > scores[best] {
				best = i
			}
		}
		if best == -1 {
			break
		}
		taken[best] = true
		node, ok := m.graph.Node(m.ids[best])
		if !ok {
			// Scenario removed since the last Refresh; skip it.
			continue
		}
		matches = append(matches, Match{Node: node, Score: scores[best]})
	}
	return matches, nil
}
