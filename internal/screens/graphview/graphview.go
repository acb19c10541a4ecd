// Package graphview is the concept map: the knowledge graph grouped by
// chapter, with the concepts from the last answer highlighted, single-node
// selection with a detail pane, fulltext search over labels, and prerequisite
// paths fetched on demand.
package graphview

import (
	"context"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/abhisek/studiz/internal/api"
	"github.com/abhisek/studiz/internal/appstate"
	"github.com/abhisek/studiz/internal/conceptmap"
	"github.com/abhisek/studiz/internal/screen"
	"github.com/abhisek/studiz/internal/ui/components"
	"github.com/abhisek/studiz/internal/ui/layout"
)

const (
	// graphLimit caps the snapshot size; the backend returns the most
	// important concepts first.
	graphLimit = 150

	pathMaxDepth = 3
	loadTimeout  = 10 * time.Second
)

type rowKind int

const (
	rowChapterHeader rowKind = iota
	rowConcept
)

type row struct {
	kind    rowKind
	chapter string
	node    conceptmap.Node
}

// GraphViewScreen browses the knowledge graph.
type GraphViewScreen struct {
	client *api.Client
	state  *appstate.Store
	logger *zap.Logger

	view  *conceptmap.View
	stats *api.GraphStats

	rows         []row
	cursor       int
	scrollOffset int
	loaded       bool
	errMsg       string

	searching bool
	search    components.TextInput
	query     string

	path        *api.LearningPath
	pathPending bool
	pathErr     string

	lastFit uint64
}

var _ screen.Screen = (*GraphViewScreen)(nil)
var _ screen.KeyHintProvider = (*GraphViewScreen)(nil)

// New creates the concept map screen. The snapshot is fetched by Init, so a
// fresh instance per visit always reflects the latest highlight set.
func New(client *api.Client, state *appstate.Store, logger *zap.Logger) *GraphViewScreen {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphViewScreen{
		client: client,
		state:  state,
		logger: logger,
		search: components.NewTextInput("Find a concept...", false, 40),
	}
}

func (s *GraphViewScreen) Init() tea.Cmd {
	client := s.client
	logger := s.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		data, err := client.GraphData(ctx, graphLimit)
		if err != nil {
			return graphLoadedMsg{Err: err}
		}
		stats, err := client.GraphStats(ctx)
		if err != nil {
			logger.Warn("graph stats unavailable", zap.Error(err))
			stats = nil
		}
		return graphLoadedMsg{Graph: conceptmap.FromGraphData(data), Stats: stats}
	}
}

func (s *GraphViewScreen) Title() string {
	return "Concept Map"
}

func (s *GraphViewScreen) KeyHints() []layout.KeyHint {
	if !s.loaded || s.errMsg != "" {
		return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
	}
	if s.searching {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Apply"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "/", Description: "Find"},
		{Key: "p", Description: "Path"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *GraphViewScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case graphLoadedMsg:
		s.handleGraphLoaded(msg)
		return s, nil

	case pathLoadedMsg:
		s.handlePathLoaded(msg)
		return s, nil

	case tea.KeyMsg:
		if s.view == nil {
			return s, nil
		}
		if s.searching {
			return s, s.handleSearchKey(msg)
		}
		return s, s.handleBrowseKey(msg)
	}
	return s, nil
}

func (s *GraphViewScreen) handleGraphLoaded(msg graphLoadedMsg) {
	s.loaded = true
	if msg.Err != nil {
		s.errMsg = msg.Err.Error()
		s.logger.Warn("graph load failed", zap.Error(msg.Err))
		return
	}

	s.view = conceptmap.NewView(msg.Graph)
	s.stats = msg.Stats
	s.rebuildRows()
	s.applyHighlights(s.state.Get().HighlightedConcepts)
	s.logger.Debug("graph loaded",
		zap.Int("nodes", msg.Graph.NodeCount()),
		zap.Int("edges", msg.Graph.EdgeCount()))
}

func (s *GraphViewScreen) handlePathLoaded(msg pathLoadedMsg) {
	s.pathPending = false

	// The selection may have moved while the fetch was in flight.
	sel, ok := s.view.Selected()
	if !ok || sel.Label != msg.Concept {
		return
	}
	if msg.Err != nil {
		s.pathErr = msg.Err.Error()
		s.logger.Warn("learning path fetch failed",
			zap.String("concept", msg.Concept),
			zap.Error(msg.Err))
		return
	}
	s.path = msg.Path
}

func (s *GraphViewScreen) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "enter" {
		s.searching = false
		s.query = strings.TrimSpace(s.search.Value())
		s.rebuildRows()
		return nil
	}
	var cmd tea.Cmd
	s.search, cmd = s.search.Update(msg)
	return cmd
}

func (s *GraphViewScreen) handleBrowseKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		s.moveCursor(-1)
	case "down", "j":
		s.moveCursor(1)
	case "tab":
		s.nextChapter(1)
	case "shift+tab":
		s.nextChapter(-1)
	case "/":
		s.searching = true
		return s.search.Init()
	case "enter":
		s.selectUnderCursor()
	case "x":
		if ch, changed := s.view.ClearSelection(); changed {
			s.path = nil
			s.pathErr = ""
			s.logger.Debug("selection cleared", zap.String("label", ch.Label))
		}
	case "c":
		s.view.ClearHighlights()
	case "p":
		return s.fetchPath()
	}
	return nil
}

// applyHighlights installs a highlight set and, when it reframed the view,
// jumps the cursor to the first highlighted concept. An empty or unmatched
// set keeps the cursor and scroll where they were.
func (s *GraphViewScreen) applyHighlights(names []string) {
	s.view.SetHighlights(names)
	if s.view.FitSeq() == s.lastFit {
		return
	}
	s.lastFit = s.view.FitSeq()
	for i, r := range s.rows {
		if r.kind == rowConcept && s.view.NodeEmphasis(r.node.ID) == conceptmap.EmphasisHighlighted {
			s.cursor = i
			return
		}
	}
}

// rebuildRows regenerates the list: chapter sections normally, a flat result
// list while a search query is active.
func (s *GraphViewScreen) rebuildRows() {
	s.rows = s.rows[:0]
	g := s.view.Graph()

	if s.query != "" {
		for _, n := range g.Search(s.query) {
			s.rows = append(s.rows, row{kind: rowConcept, chapter: n.Chapter, node: n})
		}
	} else {
		for _, ch := range g.Chapters() {
			s.rows = append(s.rows, row{kind: rowChapterHeader, chapter: ch})
			for _, n := range g.Chapter(ch) {
				s.rows = append(s.rows, row{kind: rowConcept, chapter: ch, node: n})
			}
		}
	}

	s.cursor = 0
	s.scrollOffset = 0
	s.moveCursor(0)
}

// moveCursor moves by delta, skipping chapter headers. Delta zero snaps to
// the nearest concept row at or after the cursor.
func (s *GraphViewScreen) moveCursor(delta int) {
	if len(s.rows) == 0 {
		return
	}
	next := s.cursor + delta
	if delta == 0 {
		for next < len(s.rows) && s.rows[next].kind != rowConcept {
			next++
		}
		if next < len(s.rows) {
			s.cursor = next
		}
		return
	}
	for next >= 0 && next < len(s.rows) {
		if s.rows[next].kind == rowConcept {
			s.cursor = next
			return
		}
		next += delta
	}
}

// nextChapter jumps to the first concept of the adjacent chapter.
func (s *GraphViewScreen) nextChapter(dir int) {
	if s.query != "" || len(s.rows) == 0 {
		return
	}
	current := s.rows[s.cursor].chapter
	if dir > 0 {
		for i := s.cursor + 1; i < len(s.rows); i++ {
			if s.rows[i].kind == rowConcept && s.rows[i].chapter != current {
				s.cursor = i
				return
			}
		}
		return
	}

	// Find the previous chapter, then its first concept.
	prev := ""
	found := false
	for i := s.cursor - 1; i >= 0; i-- {
		if s.rows[i].kind == rowConcept && s.rows[i].chapter != current {
			prev = s.rows[i].chapter
			found = true
			break
		}
	}
	if !found {
		return
	}
	for i := 0; i < len(s.rows); i++ {
		if s.rows[i].kind == rowConcept && s.rows[i].chapter == prev {
			s.cursor = i
			return
		}
	}
}

func (s *GraphViewScreen) selectUnderCursor() {
	if s.cursor >= len(s.rows) {
		return
	}
	r := s.rows[s.cursor]
	if r.kind != rowConcept {
		return
	}
	ch, changed := s.view.Select(r.node.ID)
	if !changed {
		return
	}
	s.path = nil
	s.pathErr = ""
	s.logger.Debug("concept selected",
		zap.String("id", ch.NodeID),
		zap.String("label", ch.Label))
}

func (s *GraphViewScreen) fetchPath() tea.Cmd {
	sel, ok := s.view.Selected()
	if !ok || s.pathPending {
		return nil
	}
	s.pathPending = true
	s.pathErr = ""

	client := s.client
	concept := sel.Label
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		path, err := client.LearningPath(ctx, concept, pathMaxDepth)
		return pathLoadedMsg{Concept: concept, Path: path, Err: err}
	}
}

// adjustScroll keeps the cursor inside the list window, pulling the chapter
// header above it into view when there is room.
func (s *GraphViewScreen) adjustScroll(height int) {
	if height <= 0 {
		return
	}
	top := s.cursor
	for top > 0 && s.rows[top-1].kind == rowChapterHeader {
		top--
	}
	if top < s.scrollOffset {
		s.scrollOffset = top
	}
	if s.cursor >= s.scrollOffset+height {
		s.scrollOffset = s.cursor - height + 1
	}
}
