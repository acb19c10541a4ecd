package conceptmap

// NodeStyle is the visual encoding for one node, derived from its importance
// alone. Rank and glyph weight grow monotonically with importance, so more
// central concepts always draw heavier than less central ones.
type NodeStyle struct {
	Rank  int
	Glyph string
	Bold  bool
}

// nodeGlyphs orders markers from lightest to heaviest.
var nodeGlyphs = [...]string{"·", "∘", "•", "◉", "●"}

// StyleForImportance maps an importance scalar in [0,1] to a NodeStyle.
// Out-of-range values clamp.
func StyleForImportance(importance float64) NodeStyle {
	if importance < 0 {
		importance = 0
	}
	if importance > 1 {
		importance = 1
	}
	rank := int(importance * float64(len(nodeGlyphs)))
	if rank >= len(nodeGlyphs) {
		rank = len(nodeGlyphs) - 1
	}
	return NodeStyle{
		Rank:  rank,
		Glyph: nodeGlyphs[rank],
		Bold:  rank >= 3,
	}
}

// EdgeStyle is the visual encoding for one relationship type.
type EdgeStyle struct {
	Color string
	Arrow string
	Name  string
}

// edgeStyles covers the canonical relationship types emitted by the backend.
var edgeStyles = map[string]EdgeStyle{
	"PREREQ":   {Color: "#F59E0B", Arrow: "──▶", Name: "prerequisite"},
	"RELATED":  {Color: "#0EA5E9", Arrow: "◀─▶", Name: "related"},
	"COVERS":   {Color: "#10B981", Arrow: "──▶", Name: "covers"},
	"PART_OF":  {Color: "#8B5CF6", Arrow: "──▶", Name: "part of"},
	"MENTIONS": {Color: "#94A3B8", Arrow: "╌╌▶", Name: "mentions"},
}

// fallbackEdgeStyle renders relationship types this client does not know.
var fallbackEdgeStyle = EdgeStyle{Color: "#64748B", Arrow: "───", Name: "linked"}

// StyleForEdgeType maps a relationship-type tag to an EdgeStyle. Unknown
// tags get the fallback style.
func StyleForEdgeType(edgeType string) EdgeStyle {
	if s, ok := edgeStyles[edgeType]; ok {
		return s
	}
	return fallbackEdgeStyle
}
