package conceptmap

import "testing"

func TestStyleForImportance_Monotonic(t *testing.T) {
	grid := []float64{0, 0.1, 0.19, 0.2, 0.35, 0.5, 0.65, 0.8, 0.95, 1}

	prev := -1
	for _, imp := range grid {
		s := StyleForImportance(imp)
		if s.Rank < prev {
			t.Fatalf("rank decreased: importance %v gave rank %d after %d", imp, s.Rank, prev)
		}
		if s.Rank < 0 || s.Rank >= len(nodeGlyphs) {
			t.Fatalf("rank %d out of range for importance %v", s.Rank, imp)
		}
		if s.Glyph != nodeGlyphs[s.Rank] {
			t.Fatalf("glyph %q does not match rank %d", s.Glyph, s.Rank)
		}
		prev = s.Rank
	}
}

func TestStyleForImportance_Bounds(t *testing.T) {
	if got := StyleForImportance(-0.5); got.Rank != 0 {
		t.Fatalf("StyleForImportance(-0.5).Rank = %d, want clamped 0", got.Rank)
	}
	if got := StyleForImportance(1.5); got.Rank != len(nodeGlyphs)-1 {
		t.Fatalf("StyleForImportance(1.5).Rank = %d, want clamped max", got.Rank)
	}
	if !StyleForImportance(1).Bold {
		t.Fatal("top importance should render bold")
	}
	if StyleForImportance(0.1).Bold {
		t.Fatal("low importance should not render bold")
	}
}

func TestStyleForEdgeType(t *testing.T) {
	known := []string{"PREREQ", "RELATED", "COVERS", "PART_OF", "MENTIONS"}
	for _, typ := range known {
		s := StyleForEdgeType(typ)
		if s == fallbackEdgeStyle {
			t.Errorf("StyleForEdgeType(%s) fell back, want dedicated style", typ)
		}
		if s.Color == "" || s.Name == "" {
			t.Errorf("StyleForEdgeType(%s) = %+v, want color and name", typ, s)
		}
	}

	if got := StyleForEdgeType("WIBBLE"); got != fallbackEdgeStyle {
		t.Fatalf("StyleForEdgeType(WIBBLE) = %+v, want fallback", got)
	}
}
