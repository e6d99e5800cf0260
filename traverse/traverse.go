// Package traverse expands a matched scenario into its legal context by
// walking the knowledge graph: scenario to supporting principles, then each
// principle to the articles that explain it.
package traverse

import (
	"errors"
	"fmt"

	"github.com/legalgraph/lawreader/kg"
)

// ErrNodeNotFound indicates a traversal was asked to start from an ID the
// graph does not contain.
var ErrNodeNotFound = errors.New("traverse: node not found")

// Context is the legal context gathered around one scenario.
type Context struct {
	Scenario   *kg.Node
	Principles []*kg.Node
	Articles   []*kg.Node
}

// ExpandContext walks outward from a scenario node. Principles come back in
// edge order; articles are deduplicated across principles, keeping the
// position of their first appearance.
func ExpandContext(g *kg.Graph, scenarioID string) (*Context, error) {
	scenario, ok := g.Node(scenarioID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, scenarioID)
	}
	if scenario.Type != kg.NodeScenario {
		return nil, fmt.Errorf("node %s is a %s, not a scenario", scenarioID, scenario.Type)
	}

	ec := &Context{Scenario: scenario}

	seenArticle := make(map[string]bool)
	for _, nb := range g.Neighbors(scenarioID) {
		if nb.EdgeType != kg.EdgeSupports || nb.Node.Type != kg.NodePrinciple {
			continue
		}
		ec.Principles = append(ec.Principles, nb.Node)

		for _, pn := range g.Neighbors(nb.Node.ID) {
			if pn.EdgeType != kg.EdgeExplains || pn.Node.Type != kg.NodeArticle {
				continue
			}
			if seenArticle[pn.Node.ID] {
				continue
			}
			seenArticle[pn.Node.ID] = true
			ec.Articles = append(ec.Articles, pn.Node)
		}
	}

	return ec, nil
}

// RelatedScenarios returns scenarios directly connected to the given one
// through a related edge.
func RelatedScenarios(g *kg.Graph, scenarioID string) ([]*kg.Node, error) {
	if _, ok := g.Node(scenarioID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, scenarioID)
	}

	var out []*kg.Node
	for _, nb := range g.Neighbors(scenarioID) {
		if nb.EdgeType == kg.EdgeRelated && nb.Node.Type == kg.NodeScenario {
			out = append(out, nb.Node)
		}
	}
	return out, nil
}

// Connection is one edge incident to a node, as seen from that node.
type Connection struct {
	Node     *kg.Node
	EdgeType string
}

// NodeConnections lists every neighbor of a node with the connecting edge
// type, regardless of direction. Useful for graph inspection tooling.
func NodeConnections(g *kg.Graph, nodeID string) ([]Connection, error) {
	if _, ok := g.Node(nodeID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	neighbors := g.Neighbors(nodeID)
	out := make([]Connection, 0, len(neighbors))
	for _, nb := range neighbors {
		out = append(out, Connection{Node: nb.Node, EdgeType: nb.EdgeType})
	}
	return out, nil
}
