package conceptmap

import "sort"

// Emphasis is the render treatment for one element. While a highlight set is
// active every element is either highlighted or faded; with no active set
// everything is normal.
type Emphasis int

const (
	EmphasisNormal Emphasis = iota
	EmphasisHighlighted
	EmphasisFaded
)

// SelectionChange notifies the caller of a selection transition. Selected
// false means the selection was cleared; NodeID and Label then name the node
// that was deselected.
type SelectionChange struct {
	Selected bool
	NodeID   string
	Label    string
}

// View layers mutable presentation state over an immutable Graph: the
// current highlight set, the single selected node, and a fit sequence the
// embedding screen watches to reframe the viewport.
type View struct {
	graph *Graph

	hiNodes   map[string]bool
	hiEdges   map[string]bool
	unmatched []string
	selected  string
	fitSeq    uint64
}

// NewView creates a view with no highlights and no selection.
func NewView(g *Graph) *View {
	return &View{
		graph:   g,
		hiNodes: make(map[string]bool),
		hiEdges: make(map[string]bool),
	}
}

// Graph returns the underlying snapshot.
func (v *View) Graph() *Graph { return v.graph }

// SetHighlights resolves a set of concept names into the highlight set:
// every node whose label matches a name, plus every node sharing an edge
// with a match, plus every edge with both endpoints inside that set.
// Everything else fades. A non-empty result bumps the fit sequence so the
// viewport reframes around the highlighted nodes; an empty input, or one
// matching nothing, clears all highlight and fade state and leaves the
// viewport where it was. Names that matched no node are kept for advisory
// display.
func (v *View) SetHighlights(names []string) {
	v.hiNodes = make(map[string]bool)
	v.hiEdges = make(map[string]bool)
	v.unmatched = nil

	if len(names) == 0 {
		return
	}

	matched := false
	for _, name := range names {
		ids := v.graph.MatchLabel(name)
		if len(ids) == 0 {
			v.unmatched = append(v.unmatched, name)
			continue
		}
		matched = true
		for _, id := range ids {
			v.hiNodes[id] = true
			for _, nb := range v.graph.Neighbors(id) {
				v.hiNodes[nb] = true
			}
		}
	}
	if !matched {
		return
	}

	for _, e := range v.graph.edges {
		if v.hiNodes[e.Source] && v.hiNodes[e.Target] {
			v.hiEdges[e.ID] = true
		}
	}
	v.fitSeq++
}

// ClearHighlights is SetHighlights with an empty input.
func (v *View) ClearHighlights() { v.SetHighlights(nil) }

// HighlightActive reports whether a highlight set is in effect.
func (v *View) HighlightActive() bool { return len(v.hiNodes) > 0 }

// HighlightedNodes returns the highlighted node IDs, sorted.
func (v *View) HighlightedNodes() []string { return sortedKeys(v.hiNodes) }

// HighlightedEdges returns the highlighted edge IDs, sorted.
func (v *View) HighlightedEdges() []string { return sortedKeys(v.hiEdges) }

// Unmatched returns the names from the last SetHighlights call that matched
// no node.
func (v *View) Unmatched() []string {
	out := make([]string, len(v.unmatched))
	copy(out, v.unmatched)
	return out
}

// NodeEmphasis returns the render treatment for a node.
func (v *View) NodeEmphasis(id string) Emphasis {
	if !v.HighlightActive() {
		return EmphasisNormal
	}
	if v.hiNodes[id] {
		return EmphasisHighlighted
	}
	return EmphasisFaded
}

// EdgeEmphasis returns the render treatment for an edge.
func (v *View) EdgeEmphasis(id string) Emphasis {
	if !v.HighlightActive() {
		return EmphasisNormal
	}
	if v.hiEdges[id] {
		return EmphasisHighlighted
	}
	return EmphasisFaded
}

// FitSeq is a counter incremented each time the highlight set calls for a
// viewport reframe. The embedding screen refits whenever it observes a new
// value.
func (v *View) FitSeq() uint64 { return v.fitSeq }

// Select activates a node. At most one node is selected at a time; selecting
// a second node replaces the first. Returns the notification to forward and
// whether the selection actually changed. Unknown IDs and re-selecting the
// current node are no-ops.
func (v *View) Select(id string) (SelectionChange, bool) {
	n, ok := v.graph.Node(id)
	if !ok || v.selected == id {
		return SelectionChange{}, false
	}
	v.selected = id
	return SelectionChange{Selected: true, NodeID: n.ID, Label: n.Label}, true
}

// ClearSelection returns to the no-selection state, as on background
// activation. No-op when nothing is selected.
func (v *View) ClearSelection() (SelectionChange, bool) {
	if v.selected == "" {
		return SelectionChange{}, false
	}
	n, _ := v.graph.Node(v.selected)
	v.selected = ""
	return SelectionChange{Selected: false, NodeID: n.ID, Label: n.Label}, true
}

// Selected returns the selected node, if any.
func (v *View) Selected() (Node, bool) {
	if v.selected == "" {
		return Node{}, false
	}
	return v.graph.Node(v.selected)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
