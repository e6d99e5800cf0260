// Package kg implements the typed legal knowledge graph: scenario, principle,
// and article nodes connected by supports/explains/related edges, with
// JSON file persistence guarded by a sidecar lock file.
package kg

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Node type constants.
const (
	NodeScenario  = "scenario"
	NodePrinciple = "principle"
	NodeArticle   = "article"
)

// Edge type constants. A supports edge connects a scenario to a principle;
// an explains edge connects a principle to an article; related edges connect
// scenarios to each other.
const (
	EdgeSupports = "supports"
	EdgeExplains = "explains"
	EdgeRelated  = "related"
)

// Node is a single attributed graph node. Exactly one of Example, Text, or
// Title carries the node's primary content, depending on Type.
type Node struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Example       string `json:"example,omitempty"`     // scenario
	Text          string `json:"text,omitempty"`        // principle
	Title         string `json:"title,omitempty"`       // article
	Number        string `json:"number,omitempty"`      // article, e.g. "19" or "31A"
	Description   string `json:"description,omitempty"` // article layman summary
	AutoGenerated bool   `json:"auto_generated"`
	CreatedAt     int64  `json:"created_at"`
}

// Content returns the node's primary text by type.
func (n *Node) Content() string {
	switch n.Type {
	case NodeScenario:
		return n.Example
	case NodePrinciple:
		return n.Text
	default:
		return n.Title
	}
}

// IndexText returns the text embedded into the vector index for this node.
// Articles prefer their description (richer signal) and fall back to the
// title for auto-generated nodes that carry no description yet.
func (n *Node) IndexText() string {
	if n.Type == NodeArticle {
		if n.Description != "" {
			return n.Description
		}
		return n.Title
	}
	return n.Content()
}

// Edge is an undirected typed edge between two node IDs.
type Edge struct {
	A    string `json:"source"`
	B    string `json:"target"`
	Type string `json:"type"`
}

// Neighbor pairs an adjacent node with the type of the connecting edge.
type Neighbor struct {
	Node     *Node
	EdgeType string
}

// Graph is the single mutable knowledge graph instance. It is not safe for
// concurrent mutation; the orchestrator owns it and serializes writes.
// Node iteration order is insertion order, which makes index row order
// reproducible across a save/load round trip.
type Graph struct {
	nodes map[string]*Node
	order []string
	edges []Edge
	adj   map[string][]int // node ID -> indexes into edges
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		adj:   make(map[string][]int),
	}
}

// Node returns the node with the given ID, if present.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodesByType returns all nodes of the given type in insertion order.
func (g *Graph) NodesByType(nodeType string) []*Node {
	var out []*Node
	for _, id := range g.order {
		if n := g.nodes[id]; n.Type == nodeType {
			out = append(out, n)
		}
	}
	return out
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Neighbors returns the nodes adjacent to id together with edge types,
// in edge insertion order.
func (g *Graph) Neighbors(id string) []Neighbor {
	var out []Neighbor
	for _, ei := range g.adj[id] {
		e := g.edges[ei]
		other := e.B
		if other == id {
			other = e.A
		}
		if n, ok := g.nodes[other]; ok {
			out = append(out, Neighbor{Node: n, EdgeType: e.Type})
		}
	}
	return out
}

// HasEdge reports whether an edge of the given type exists between a and b,
// in either direction.
func (g *Graph) HasEdge(a, b, edgeType string) bool {
	for _, ei := range g.adj[a] {
		e := g.edges[ei]
		if e.Type != edgeType {
			continue
		}
		if (e.A == a && e.B == b) || (e.A == b && e.B == a) {
			return true
		}
	}
	return false
}

// AddNode creates a new auto-generated node holding content and returns its
// ID. Repeated identical content at different seconds yields different IDs;
// callers must dedupe against the existing graph before calling.
func (g *Graph) AddNode(content, nodeType string) string {
	id := GenerateNodeID(content, nodeType)
	n := &Node{
		ID:            id,
		Type:          nodeType,
		AutoGenerated: true,
		CreatedAt:     time.Now().Unix(),
	}
	switch nodeType {
	case NodeScenario:
		n.Example = content
	case NodePrinciple:
		n.Text = content
	case NodeArticle:
		n.Title = content
	}
	g.insert(n)
	return id
}

// Insert adds a fully-populated node, such as a curated article carrying a
// number and description. An existing node with the same ID is replaced.
func (g *Graph) Insert(n *Node) {
	g.insert(n)
}

// AddEdgeIfMissing inserts an edge of the given type between a and b unless
// one already exists. Returns true if a new edge was added.
func (g *Graph) AddEdgeIfMissing(a, b, edgeType string) bool {
	if g.HasEdge(a, b, edgeType) {
		return false
	}
	g.edges = append(g.edges, Edge{A: a, B: b, Type: edgeType})
	ei := len(g.edges) - 1
	g.adj[a] = append(g.adj[a], ei)
	if b != a {
		g.adj[b] = append(g.adj[b], ei)
	}
	return true
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.order) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Stats summarizes the graph for diagnostics.
type Stats struct {
	Nodes         int            `json:"nodes"`
	Edges         int            `json:"edges"`
	AutoGenerated int            `json:"auto_generated"`
	NodeTypes     map[string]int `json:"node_types"`
	EdgeTypes     map[string]int `json:"edge_types"`
}

// Stats counts nodes and edges by type.
func (g *Graph) Stats() Stats {
	s := Stats{
		Nodes:     len(g.order),
		Edges:     len(g.edges),
		NodeTypes: make(map[string]int),
		EdgeTypes: make(map[string]int),
	}
	for _, id := range g.order {
		n := g.nodes[id]
		s.NodeTypes[n.Type]++
		if n.AutoGenerated {
			s.AutoGenerated++
		}
	}
	for _, e := range g.edges {
		s.EdgeTypes[e.Type]++
	}
	return s
}

// insert adds a fully-populated node, preserving insertion order.
func (g *Graph) insert(n *Node) {
	if _, exists := g.nodes[n.ID]; !exists {
		g.order = append(g.order, n.ID)
	}
	g.nodes[n.ID] = n
}

// GenerateNodeID derives a node ID from content, type, and a coarse
// timestamp: <type>_<md5(content)[:8]>_<last 6 digits of unix time>.
// Collision-resistant in practice, not globally unique across processes.
func GenerateNodeID(content, nodeType string) string {
	sum := md5.Sum([]byte(content))
	hash := hex.EncodeToString(sum[:])[:8]
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	if len(ts) > 6 {
		ts = ts[len(ts)-6:]
	}
	return fmt.Sprintf("%s_%s_%s", nodeType, hash, ts)
}
