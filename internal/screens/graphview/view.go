package graphview

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/studiz/internal/appstate"
	"github.com/abhisek/studiz/internal/conceptmap"
	"github.com/abhisek/studiz/internal/ui/components"
	"github.com/abhisek/studiz/internal/ui/theme"
)

func (s *GraphViewScreen) View(width, height int) string {
	if s.errMsg != "" {
		return s.renderAdvisory(width, height)
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading the concept map...")
	}
	if s.view.Graph().NodeCount() == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  The knowledge graph is empty.")
	}

	snap := s.state.Get()

	header := s.renderHeader(snap, width)
	detail := s.renderDetail(snap, width)
	legend := s.renderLegend(width)

	listH := height - lineCount(header) - lineCount(legend) - 2
	if detail != "" {
		listH -= lineCount(detail) + 1
	}
	if listH < 3 {
		listH = 3
	}
	list := s.renderRows(snap, width, listH)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	b.WriteString(list)
	if detail != "" {
		b.WriteString("\n")
		b.WriteString(detail)
	}
	b.WriteString("\n")
	b.WriteString(legend)
	return b.String()
}

func (s *GraphViewScreen) renderAdvisory(width, height int) string {
	msg := lipgloss.NewStyle().Foreground(theme.Error).Bold(true).
		Render("⚠ Could not load the concept map")
	detail := lipgloss.NewStyle().Foreground(theme.TextDim).
		Render(truncate(s.errMsg, width-8))
	hint := lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
		Render("The backend may be offline. Press esc to go back.")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		msg+"\n\n"+detail+"\n\n"+hint)
}

func (s *GraphViewScreen) renderHeader(snap appstate.Snapshot, width int) string {
	g := s.view.Graph()
	concepts, rels := g.NodeCount(), g.EdgeCount()
	stats := fmt.Sprintf("%s · %d concepts · %d relationships", snap.Subject, concepts, rels)
	if s.stats != nil {
		stats = fmt.Sprintf("%s · %d concepts · %d relationships · %d modules",
			snap.Subject, s.stats.ConceptCount, s.stats.RelationshipCount, s.stats.ModuleCount)
	}
	lines := []string{
		"  " + lipgloss.NewStyle().Foreground(theme.TextDim).Render(stats),
	}

	if s.searching {
		prompt := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("  / ")
		lines = append(lines, prompt+s.search.View())
	} else if s.query != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
			Render(fmt.Sprintf("  filter: %s (press / to change)", s.query)))
	}

	if s.view.HighlightActive() {
		names := strings.Join(snap.HighlightedConcepts, ", ")
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.Accent).
			Render(truncate(fmt.Sprintf("  ● highlighting %s and its connections (c to clear)", names), width-2)))
	}
	if unmatched := s.view.Unmatched(); len(unmatched) > 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
			Render(truncate("  not on the map: "+strings.Join(unmatched, ", "), width-2)))
	}

	return strings.Join(lines, "\n")
}

func (s *GraphViewScreen) renderRows(snap appstate.Snapshot, width, height int) string {
	if len(s.rows) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("No concept matches this filter.")
	}

	s.adjustScroll(height)

	var lines []string
	visible := 0
	for i := s.scrollOffset; i < len(s.rows) && visible < height; i++ {
		r := s.rows[i]
		switch r.kind {
		case rowChapterHeader:
			lines = append(lines, s.renderChapterHeader(snap, r.chapter))
		case rowConcept:
			lines = append(lines, s.renderConceptRow(snap, r, i == s.cursor, width))
		}
		visible++
	}
	return strings.Join(lines, "\n")
}

func (s *GraphViewScreen) renderChapterHeader(snap appstate.Snapshot, chapter string) string {
	name := chapter
	if name == "" {
		name = "ungrouped"
	}
	return lipgloss.NewStyle().
		Foreground(snap.Theme.ChapterColor(chapter)).
		Bold(true).
		Render("  " + strings.ToUpper(name))
}

func (s *GraphViewScreen) renderConceptRow(snap appstate.Snapshot, r row, underCursor bool, width int) string {
	n := r.node
	ns := conceptmap.StyleForImportance(n.Importance)

	nameWidth := width - 18
	if s.query != "" {
		nameWidth -= 16 // room for the chapter tag on flat results
	}
	if nameWidth < 10 {
		nameWidth = 10
	}
	name := truncate(n.Label, nameWidth)

	mastery := lipgloss.NewStyle().Foreground(theme.TextDim).Render("  · ")
	if lvl, ok := snap.Proficiency[n.Label]; ok {
		mastery = lipgloss.NewStyle().Foreground(masteryColor(lvl)).
			Render(fmt.Sprintf("%3.0f%%", lvl*100))
	}

	var style lipgloss.Style
	switch {
	case underCursor:
		style = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	default:
		switch s.view.NodeEmphasis(n.ID) {
		case conceptmap.EmphasisHighlighted:
			style = lipgloss.NewStyle().Foreground(theme.Accent).Bold(ns.Bold)
		case conceptmap.EmphasisFaded:
			style = lipgloss.NewStyle().Foreground(theme.TextDim)
		default:
			style = lipgloss.NewStyle().Foreground(theme.Text).Bold(ns.Bold)
		}
	}
	if sel, ok := s.view.Selected(); ok && sel.ID == n.ID {
		style = style.Underline(true)
	}

	cursor := "  "
	if underCursor {
		cursor = "▸ "
	}

	line := fmt.Sprintf("  %s%s %s", cursor, ns.Glyph, style.Render(fmt.Sprintf("%-*s", nameWidth, name)))
	if s.query != "" {
		tag := truncate(n.Chapter, 14)
		line += lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf(" %-14s", tag))
	}
	return line + " " + mastery
}

// renderDetail builds the pane for the selected concept: importance, local
// mastery, incident relationships and, once fetched, the prerequisite path.
func (s *GraphViewScreen) renderDetail(snap appstate.Snapshot, width int) string {
	sel, ok := s.view.Selected()
	if !ok {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	var b strings.Builder

	b.WriteString(dim.Render("  " + strings.Repeat("─", min(width-4, 60))))
	b.WriteString("\n")

	ns := conceptmap.StyleForImportance(sel.Importance)
	title := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).
		Render(fmt.Sprintf("  %s %s", ns.Glyph, sel.Label))
	meta := dim.Render(fmt.Sprintf("  %s · importance %.2f", chapterOr(sel.Chapter, "no chapter"), sel.Importance))
	b.WriteString(title + meta)
	b.WriteString("\n")

	if lvl, ok := snap.Proficiency[sel.Label]; ok {
		bar := components.ProgressBar{
			Label:       "  mastery",
			Percent:     lvl,
			ShowPercent: true,
			Width:       min(width-8, 44),
			Color:       masteryColor(lvl),
		}
		b.WriteString(bar.View())
	} else {
		b.WriteString(dim.Italic(true).Render("  not practiced yet"))
	}
	b.WriteString("\n")

	b.WriteString(s.renderRelations(sel, width))
	b.WriteString(s.renderPath(snap, sel))

	return strings.TrimRight(b.String(), "\n")
}

const maxRelationsShown = 5

func (s *GraphViewScreen) renderRelations(sel conceptmap.Node, width int) string {
	type relation struct {
		style conceptmap.EdgeStyle
		other string
	}
	var rels []relation
	for _, e := range s.view.Graph().Edges() {
		var otherID string
		switch sel.ID {
		case e.Source:
			otherID = e.Target
		case e.Target:
			otherID = e.Source
		default:
			continue
		}
		if other, ok := s.view.Graph().Node(otherID); ok {
			rels = append(rels, relation{style: conceptmap.StyleForEdgeType(e.Type), other: other.Label})
		}
	}
	if len(rels) == 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	var b strings.Builder
	shown := rels
	if len(shown) > maxRelationsShown {
		shown = shown[:maxRelationsShown]
	}
	for _, r := range shown {
		tag := lipgloss.NewStyle().Foreground(lipgloss.Color(r.style.Color)).
			Render(fmt.Sprintf("%s %-12s", r.style.Arrow, r.style.Name))
		b.WriteString("    " + tag + " " + truncate(r.other, width-26))
		b.WriteString("\n")
	}
	if rest := len(rels) - len(shown); rest > 0 {
		b.WriteString(dim.Render(fmt.Sprintf("    and %d more", rest)))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *GraphViewScreen) renderPath(snap appstate.Snapshot, sel conceptmap.Node) string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)

	switch {
	case s.pathPending:
		return dim.Italic(true).Render("    fetching the prerequisite path...") + "\n"
	case s.pathErr != "":
		return dim.Render("    ✗ path unavailable: "+truncate(s.pathErr, 50)) + "\n"
	case s.path == nil:
		return ""
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).
		Render(fmt.Sprintf("    study order (%d concepts)", s.path.TotalConcepts)))
	b.WriteString("\n")
	for i, p := range s.path.Prerequisites {
		line := fmt.Sprintf("    %d. %s", i+1, p.Name)
		if lvl, ok := snap.Proficiency[p.Name]; ok {
			line += dim.Render(fmt.Sprintf("  %.0f%%", lvl*100))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Primary).
		Render("    → " + sel.Label))
	b.WriteString("\n")
	return b.String()
}

// renderLegend lists the relationship types present in the snapshot.
func (s *GraphViewScreen) renderLegend(width int) string {
	seen := make(map[string]bool)
	var parts []string
	for _, e := range s.view.Graph().Edges() {
		if seen[e.Type] {
			continue
		}
		seen[e.Type] = true
		st := conceptmap.StyleForEdgeType(e.Type)
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color(st.Color)).
			Render(st.Arrow+" "+st.Name))
		if len(parts) == 5 {
			break
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return truncate("  "+strings.Join(parts, "   "), width)
}

func masteryColor(lvl float64) color.Color {
	switch {
	case lvl < 0.4:
		return theme.Error
	case lvl <= 0.7:
		return theme.Accent
	default:
		return theme.Success
	}
}

func chapterOr(chapter, fallback string) string {
	if chapter == "" {
		return fallback
	}
	return chapter
}

func lineCount(block string) int {
	if block == "" {
		return 0
	}
	return strings.Count(block, "\n") + 1
}

func truncate(s string, max int) string {
	if max < 1 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
