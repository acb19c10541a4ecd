package conceptmap

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestView_SetHighlights_IncludesNeighbors(t *testing.T) {
	v := NewView(biologyGraph())

	v.SetHighlights([]string{"Photosynthesis"})

	wantNodes := []string{"n1", "n2", "n3"}
	if diff := cmp.Diff(wantNodes, v.HighlightedNodes()); diff != "" {
		t.Fatalf("highlighted nodes mismatch (-want +got):\n%s", diff)
	}
	// e4 joins two neighbors; both endpoints are in the set, so it lights up.
	wantEdges := []string{"e1", "e2", "e4"}
	if diff := cmp.Diff(wantEdges, v.HighlightedEdges()); diff != "" {
		t.Fatalf("highlighted edges mismatch (-want +got):\n%s", diff)
	}

	if got := v.NodeEmphasis("n1"); got != EmphasisHighlighted {
		t.Fatalf("NodeEmphasis(n1) = %v, want highlighted", got)
	}
	if got := v.NodeEmphasis("n4"); got != EmphasisFaded {
		t.Fatalf("NodeEmphasis(n4) = %v, want faded", got)
	}
	if got := v.EdgeEmphasis("e3"); got != EmphasisFaded {
		t.Fatalf("EdgeEmphasis(e3) = %v, want faded", got)
	}
	if v.FitSeq() != 1 {
		t.Fatalf("FitSeq() = %d, want 1 after a non-empty match", v.FitSeq())
	}
}

func TestView_SetHighlights_EmptyClearsWithoutRefit(t *testing.T) {
	v := NewView(biologyGraph())
	v.SetHighlights([]string{"Photosynthesis"})
	seq := v.FitSeq()

	v.SetHighlights(nil)

	if v.HighlightActive() {
		t.Fatal("highlight set still active after empty input")
	}
	if got := v.NodeEmphasis("n4"); got != EmphasisNormal {
		t.Fatalf("NodeEmphasis(n4) = %v, want normal after clear", got)
	}
	if got := v.EdgeEmphasis("e1"); got != EmphasisNormal {
		t.Fatalf("EdgeEmphasis(e1) = %v, want normal after clear", got)
	}
	if v.FitSeq() != seq {
		t.Fatalf("FitSeq() = %d, want unchanged %d", v.FitSeq(), seq)
	}
}

func TestView_SetHighlights_NoMatchesBehavesLikeClear(t *testing.T) {
	v := NewView(biologyGraph())
	v.SetHighlights([]string{"Photosynthesis"})
	seq := v.FitSeq()

	v.SetHighlights([]string{"Quantum Tunneling", "Entropy"})

	if v.HighlightActive() {
		t.Fatal("highlight set active with zero matches")
	}
	if v.FitSeq() != seq {
		t.Fatalf("FitSeq() = %d, want unchanged %d", v.FitSeq(), seq)
	}
	want := []string{"Quantum Tunneling", "Entropy"}
	if diff := cmp.Diff(want, v.Unmatched()); diff != "" {
		t.Fatalf("Unmatched() mismatch (-want +got):\n%s", diff)
	}
}

func TestView_SetHighlights_PartialMatchRecordsUnmatched(t *testing.T) {
	v := NewView(biologyGraph())

	v.SetHighlights([]string{"mitosis", "Dark Matter"})

	wantNodes := []string{"n4", "n5"}
	if diff := cmp.Diff(wantNodes, v.HighlightedNodes()); diff != "" {
		t.Fatalf("highlighted nodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Dark Matter"}, v.Unmatched()); diff != "" {
		t.Fatalf("Unmatched() mismatch (-want +got):\n%s", diff)
	}
	if v.FitSeq() != 1 {
		t.Fatalf("FitSeq() = %d, want 1", v.FitSeq())
	}
}

func TestView_SetHighlights_ReplacesPreviousSet(t *testing.T) {
	v := NewView(biologyGraph())
	v.SetHighlights([]string{"Photosynthesis"})

	v.SetHighlights([]string{"Meiosis"})

	wantNodes := []string{"n4", "n5"}
	if diff := cmp.Diff(wantNodes, v.HighlightedNodes()); diff != "" {
		t.Fatalf("highlighted nodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"e3"}, v.HighlightedEdges()); diff != "" {
		t.Fatalf("highlighted edges mismatch (-want +got):\n%s", diff)
	}
	if v.FitSeq() != 2 {
		t.Fatalf("FitSeq() = %d, want 2 after two matching calls", v.FitSeq())
	}
}

func TestView_Selection(t *testing.T) {
	v := NewView(biologyGraph())

	if _, ok := v.Selected(); ok {
		t.Fatal("fresh view has a selection")
	}

	change, changed := v.Select("n1")
	if !changed {
		t.Fatal("Select(n1) reported no change")
	}
	want := SelectionChange{Selected: true, NodeID: "n1", Label: "Photosynthesis"}
	if change != want {
		t.Fatalf("change = %+v, want %+v", change, want)
	}

	if _, changed := v.Select("n1"); changed {
		t.Fatal("re-selecting the current node reported a change")
	}
	if _, changed := v.Select("ghost"); changed {
		t.Fatal("selecting an unknown node reported a change")
	}

	change, changed = v.Select("n4")
	if !changed || change.NodeID != "n4" || change.Label != "Mitosis" {
		t.Fatalf("Select(n4) = %+v changed=%v, want replacement selection", change, changed)
	}
	sel, ok := v.Selected()
	if !ok || sel.ID != "n4" {
		t.Fatalf("Selected() = %+v, want n4", sel)
	}

	change, changed = v.ClearSelection()
	if !changed || change.Selected || change.NodeID != "n4" {
		t.Fatalf("ClearSelection() = %+v changed=%v, want deselection of n4", change, changed)
	}
	if _, changed := v.ClearSelection(); changed {
		t.Fatal("clearing an empty selection reported a change")
	}
}

func TestView_SelectionIndependentOfHighlights(t *testing.T) {
	v := NewView(biologyGraph())
	if _, changed := v.Select("n4"); !changed {
		t.Fatal("Select(n4) reported no change")
	}

	v.SetHighlights([]string{"Photosynthesis"})

	sel, ok := v.Selected()
	if !ok || sel.ID != "n4" {
		t.Fatalf("Selected() after highlight = %+v, want n4 retained", sel)
	}

	v.ClearHighlights()
	if _, ok := v.Selected(); !ok {
		t.Fatal("clearing highlights dropped the selection")
	}
}
