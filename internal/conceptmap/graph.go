// Package conceptmap turns a concept-graph snapshot into something a
// terminal can work with: indexed lookups, highlight resolution for a set of
// concept names, a single-selection state machine, and visual encodings for
// nodes and edges.
package conceptmap

import (
	"sort"
	"strings"

	"github.com/abhisek/studiz/internal/api"
)

// Node is one concept in the graph snapshot.
type Node struct {
	ID         string
	Label      string
	Importance float64
	Chapter    string
}

// Edge is one relationship between two concepts.
type Edge struct {
	ID     string
	Source string
	Target string
	Type   string
	Label  string
}

// Graph is an immutable snapshot with precomputed indices. Build one per
// fetch; lookups never mutate it.
type Graph struct {
	nodes     []Node
	edges     []Edge
	byID      map[string]*Node
	byLabel   map[string][]string
	byChapter map[string][]Node
	chapters  []string
	neighbors map[string][]string
}

// NewGraph builds the indices from a snapshot. Duplicate node IDs keep the
// first occurrence; edges naming a missing endpoint are dropped.
func NewGraph(nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		byID:      make(map[string]*Node, len(nodes)),
		byLabel:   make(map[string][]string, len(nodes)),
		byChapter: make(map[string][]Node),
		neighbors: make(map[string][]string),
	}

	// ID and label indices
	seenNode := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.ID == "" || seenNode[n.ID] {
			continue
		}
		seenNode[n.ID] = true
		g.nodes = append(g.nodes, n)
		key := normalizeLabel(n.Label)
		g.byLabel[key] = append(g.byLabel[key], n.ID)
	}
	for i := range g.nodes {
		g.byID[g.nodes[i].ID] = &g.nodes[i]
	}

	// Edges and undirected adjacency
	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		if _, ok := g.byID[e.Source]; !ok {
			continue
		}
		if _, ok := g.byID[e.Target]; !ok {
			continue
		}
		if e.ID == "" {
			e.ID = e.Source + "->" + e.Target
		}
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		g.edges = append(g.edges, e)
		if e.Source != e.Target {
			g.neighbors[e.Source] = append(g.neighbors[e.Source], e.Target)
			g.neighbors[e.Target] = append(g.neighbors[e.Target], e.Source)
		}
	}
	for id, ns := range g.neighbors {
		g.neighbors[id] = dedupeSorted(ns)
	}

	// Chapter groups, most important first
	for _, n := range g.nodes {
		g.byChapter[n.Chapter] = append(g.byChapter[n.Chapter], n)
	}
	for ch, ns := range g.byChapter {
		sort.Slice(ns, func(i, j int) bool {
			if ns[i].Importance != ns[j].Importance {
				return ns[i].Importance > ns[j].Importance
			}
			return ns[i].Label < ns[j].Label
		})
		g.byChapter[ch] = ns
		g.chapters = append(g.chapters, ch)
	}
	sort.Strings(g.chapters)

	return g
}

// FromGraphData converts a backend snapshot into a Graph.
func FromGraphData(data *api.GraphData) *Graph {
	if data == nil {
		return NewGraph(nil, nil)
	}
	nodes := make([]Node, 0, len(data.Nodes))
	for _, n := range data.Nodes {
		nodes = append(nodes, Node{
			ID:         n.ID,
			Label:      n.Label,
			Importance: n.Importance,
			Chapter:    n.Chapter,
		})
	}
	edges := make([]Edge, 0, len(data.Edges))
	for _, e := range data.Edges {
		edges = append(edges, Edge{
			ID:     e.ID,
			Source: e.Source,
			Target: e.Target,
			Type:   e.Type,
			Label:  e.Label,
		})
	}
	return NewGraph(nodes, edges)
}

// Node returns a node by ID.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns all nodes in input order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns all surviving edges in input order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// NodeCount reports the number of indexed nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount reports the number of surviving edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// MatchLabel returns the IDs of nodes whose label equals name after
// normalization: lowercased, trimmed, inner whitespace collapsed. Containment
// matching is deliberately not offered here; see Search for the interactive
// finder.
func (g *Graph) MatchLabel(name string) []string {
	ids := g.byLabel[normalizeLabel(name)]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Neighbors returns the IDs of nodes sharing an edge with id, sorted.
func (g *Graph) Neighbors(id string) []string {
	ns := g.neighbors[id]
	out := make([]string, len(ns))
	copy(out, ns)
	return out
}

// Chapters returns the chapter names present in the snapshot, sorted.
func (g *Graph) Chapters() []string {
	out := make([]string, len(g.chapters))
	copy(out, g.chapters)
	return out
}

// Chapter returns a chapter's nodes, most important first.
func (g *Graph) Chapter(name string) []Node {
	ns := g.byChapter[name]
	out := make([]Node, len(ns))
	copy(out, ns)
	return out
}

// TopByImportance returns up to n nodes ranked by importance descending,
// ties broken by label.
func (g *Graph) TopByImportance(n int) []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].Label < out[j].Label
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// Search returns nodes whose label contains query, case-insensitively,
// ranked by importance descending. This is the interactive finder and is
// looser than the highlight matching in MatchLabel.
func (g *Graph) Search(query string) []Node {
	q := normalizeLabel(query)
	if q == "" {
		return nil
	}
	var out []Node
	for _, n := range g.nodes {
		if strings.Contains(normalizeLabel(n.Label), q) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func dedupeSorted(ids []string) []string {
	sort.Strings(ids)
	out := ids[:0]
	var prev string
	for i, id := range ids {
		if i > 0 && id == prev {
			continue
		}
		out = append(out, id)
		prev = id
	}
	return out
}
