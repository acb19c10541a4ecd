package graphview

import (
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/studiz/internal/api"
	"github.com/abhisek/studiz/internal/appstate"
	"github.com/abhisek/studiz/internal/conceptmap"
	"github.com/abhisek/studiz/internal/ui/theme"
)

func fixtureGraph() *conceptmap.Graph {
	return conceptmap.FromGraphData(&api.GraphData{
		Nodes: []api.GraphNode{
			{ID: "c1", Label: "Photosynthesis", Importance: 0.9, Chapter: "Unit 2"},
			{ID: "c2", Label: "Chlorophyll", Importance: 0.5, Chapter: "Unit 2"},
			{ID: "c3", Label: "Light Reactions", Importance: 0.6, Chapter: "Unit 2"},
			{ID: "c4", Label: "Osmosis", Importance: 0.4, Chapter: "Unit 1"},
		},
		Edges: []api.GraphEdge{
			{ID: "e1", Source: "c2", Target: "c1", Type: "PART_OF"},
			{ID: "e2", Source: "c3", Target: "c1", Type: "PREREQ"},
		},
	})
}

// Row layout of the fixture: Unit 1 header, Osmosis, Unit 2 header,
// Photosynthesis, Light Reactions, Chlorophyll.
func newTestGraphView(state *appstate.Store) *GraphViewScreen {
	s := New(nil, state, nil)
	s.Update(graphLoadedMsg{Graph: fixtureGraph()})
	return s
}

func key(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func TestHighlightsFromLastAnswer(t *testing.T) {
	state := appstate.New("biology", theme.Default())
	state.SetHighlightedConcepts([]string{"Photosynthesis"})
	s := newTestGraphView(state)

	if got := s.view.NodeEmphasis("c1"); got != conceptmap.EmphasisHighlighted {
		t.Errorf("matched node emphasis = %v, want highlighted", got)
	}
	if got := s.view.NodeEmphasis("c2"); got != conceptmap.EmphasisHighlighted {
		t.Errorf("neighbor emphasis = %v, want highlighted", got)
	}
	if got := s.view.NodeEmphasis("c4"); got != conceptmap.EmphasisFaded {
		t.Errorf("unrelated emphasis = %v, want faded", got)
	}

	// The view reframes onto the first highlighted concept.
	if s.cursor != 3 {
		t.Errorf("cursor = %d, want 3 (the Photosynthesis row)", s.cursor)
	}

	view := s.View(100, 30)
	if !strings.Contains(view, "highlighting Photosynthesis") {
		t.Error("header should announce the active highlight set")
	}
}

func TestNoHighlightKeepsCursorAtTop(t *testing.T) {
	s := newTestGraphView(appstate.New("biology", theme.Default()))

	if s.view.HighlightActive() {
		t.Error("no highlight set should be active")
	}
	if s.cursor != 1 {
		t.Errorf("cursor = %d, want 1 (the first concept row)", s.cursor)
	}
}

func TestUnmatchedHighlightLeavesViewAlone(t *testing.T) {
	state := appstate.New("biology", theme.Default())
	state.SetHighlightedConcepts([]string{"Quantum Tunneling"})
	s := newTestGraphView(state)

	if s.view.HighlightActive() {
		t.Error("an unmatched set must not activate highlighting")
	}
	if s.cursor != 1 {
		t.Errorf("cursor = %d, want 1: no match means no reframe", s.cursor)
	}
	if !strings.Contains(s.View(100, 30), "not on the map") {
		t.Error("unmatched names should be called out")
	}
}

func TestClearHighlights(t *testing.T) {
	state := appstate.New("biology", theme.Default())
	state.SetHighlightedConcepts([]string{"Photosynthesis"})
	s := newTestGraphView(state)

	s.Update(key('c'))

	if s.view.HighlightActive() {
		t.Error("c should clear the highlight set")
	}
	if got := s.view.NodeEmphasis("c4"); got != conceptmap.EmphasisNormal {
		t.Errorf("emphasis after clear = %v, want normal", got)
	}
}

func TestSearchFiltersRows(t *testing.T) {
	s := newTestGraphView(appstate.New("biology", theme.Default()))

	s.Update(key('/'))
	if !s.searching {
		t.Fatal("/ should enter search mode")
	}
	s.search.Model.SetValue("photo")
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})

	if len(s.rows) != 1 || s.rows[0].node.Label != "Photosynthesis" {
		t.Fatalf("filtered rows = %d, want just Photosynthesis", len(s.rows))
	}
	if !strings.Contains(s.View(100, 30), "filter: photo") {
		t.Error("active filter should be shown")
	}

	// An empty query restores the chaptered list.
	s.Update(key('/'))
	s.search.Model.SetValue("")
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if len(s.rows) != 6 {
		t.Errorf("rows after clearing the filter = %d, want 6", len(s.rows))
	}
}

func TestSelectShowsRelations(t *testing.T) {
	s := newTestGraphView(appstate.New("biology", theme.Default()))

	s.Update(tea.KeyPressMsg{Code: tea.KeyTab}) // jump to Unit 2
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})

	sel, ok := s.view.Selected()
	if !ok || sel.Label != "Photosynthesis" {
		t.Fatalf("selected = %v %v, want Photosynthesis", sel, ok)
	}

	view := s.View(100, 30)
	if !strings.Contains(view, "prerequisite") {
		t.Error("detail pane should name the PREREQ relation")
	}
	if !strings.Contains(view, "part of") {
		t.Error("detail pane should name the PART_OF relation")
	}

	s.Update(key('x'))
	if _, ok := s.view.Selected(); ok {
		t.Error("x should clear the selection")
	}
}

func TestPathPane(t *testing.T) {
	state := appstate.New("biology", theme.Default())
	state.SetProficiency(map[string]float64{"Light Reactions": 0.45})
	s := newTestGraphView(state)
	s.view.Select("c1")

	s.Update(pathLoadedMsg{
		Concept: "Photosynthesis",
		Path: &api.LearningPath{
			TargetConcept: "Photosynthesis",
			Prerequisites: []api.PathConcept{
				{ID: "c3", Name: "Light Reactions", Depth: 1},
			},
			TotalConcepts: 2,
		},
	})

	view := s.View(100, 30)
	if !strings.Contains(view, "study order (2 concepts)") {
		t.Error("path pane should show the concept count")
	}
	if !strings.Contains(view, "1. Light Reactions") {
		t.Error("path pane should list prerequisites in study order")
	}
	if !strings.Contains(view, "→ Photosynthesis") {
		t.Error("path pane should end at the target")
	}
}

func TestStalePathDropped(t *testing.T) {
	s := newTestGraphView(appstate.New("biology", theme.Default()))
	s.view.Select("c4")

	s.Update(pathLoadedMsg{
		Concept: "Photosynthesis",
		Path:    &api.LearningPath{TargetConcept: "Photosynthesis", TotalConcepts: 1},
	})

	if s.path != nil {
		t.Error("a path for a concept no longer selected must be dropped")
	}
}

func TestLoadFailureAdvisory(t *testing.T) {
	s := New(nil, appstate.New("biology", theme.Default()), nil)
	s.Update(graphLoadedMsg{Err: errors.New("dial tcp: connection refused")})

	view := s.View(80, 24)
	if !strings.Contains(view, "Could not load the concept map") {
		t.Error("fetch failure should render as an advisory")
	}

	// Input on the failed screen must not panic.
	s.Update(key('j'))
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
}
