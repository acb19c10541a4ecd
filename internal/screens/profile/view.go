package profile

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/studiz/internal/mastery"
	"github.com/abhisek/studiz/internal/ui/components"
	"github.com/abhisek/studiz/internal/ui/theme"
)

func (s *ProfileScreen) View(width, height int) string {
	entries := s.entries()

	var b strings.Builder
	b.WriteString(s.renderHeader(entries, width))
	b.WriteString("\n\n")

	if s.confirmReset {
		b.WriteString(s.renderConfirm(width))
		return b.String()
	}

	if len(entries) == 0 {
		b.WriteString(lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\nNo practice recorded yet.\nTake a quiz to start building your profile."))
		return b.String()
	}

	listH := height - 8
	if listH < 3 {
		listH = 3
	}
	s.adjustScroll(listH, len(entries))

	end := s.scrollOffset + listH
	if end > len(entries) {
		end = len(entries)
	}
	for i := s.scrollOffset; i < end; i++ {
		b.WriteString(s.renderEntry(entries[i], i == s.cursor, width))
		b.WriteString("\n")
	}
	if rest := len(entries) - end; rest > 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).
			Render(fmt.Sprintf("    … %d more", rest)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(s.renderFooter(entries, width))
	return b.String()
}

func (s *ProfileScreen) renderHeader(entries []mastery.ConceptMastery, width int) string {
	snap := s.state.Get()

	title := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).
		Render(fmt.Sprintf("  PROFILE · %s", snap.Subject))
	overall := lipgloss.NewStyle().Foreground(theme.TextDim).
		Render(fmt.Sprintf("   overall %.0f%% across %d concepts",
			meanLevel(entries)*100, len(entries)))
	lines := []string{title + overall}

	switch {
	case s.refreshing:
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
			Render("  syncing with the backend..."))
	case s.resetting:
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
			Render("  resetting..."))
	case snap.LastSyncError != nil:
		msg := truncate("  ⚠ sync issue: "+snap.LastSyncError.Error()+" (d to dismiss)", width-2)
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.Error).Render(msg))
	case s.notice != "":
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.TextDim).Render("  "+s.notice))
	}

	if s.weakestFirst {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
			Render("  sorted weakest first"))
	}
	return strings.Join(lines, "\n")
}

func (s *ProfileScreen) renderConfirm(width int) string {
	warn := lipgloss.NewStyle().Foreground(theme.Error).Bold(true).
		Render("Reset all progress?")
	detail := lipgloss.NewStyle().Foreground(theme.Text).
		Render("This wipes your mastery on the backend and locally.")
	hint := lipgloss.NewStyle().Foreground(theme.TextDim).
		Render("y to reset, n to keep everything")
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).
		Render("\n\n" + warn + "\n\n" + detail + "\n\n" + hint)
}

func (s *ProfileScreen) renderEntry(e mastery.ConceptMastery, selected bool, width int) string {
	nameWidth := width - 50
	if nameWidth < 14 {
		nameWidth = 14
	}
	if nameWidth > 32 {
		nameWidth = 32
	}

	cursor := "  "
	nameStyle := lipgloss.NewStyle().Foreground(theme.Text)
	if selected {
		cursor = "▸ "
		nameStyle = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	}

	band := mastery.TargetDifficulty(e.Level)
	bar := components.ProgressBar{
		Percent:     e.Level,
		ShowPercent: true,
		Width:       22,
		Color:       bandColor(band),
	}

	attempts := "      "
	if e.Attempts > 0 {
		attempts = fmt.Sprintf("%3d ✎ ", e.Attempts)
	}

	syncMark := " "
	if s.sync.SyncErr(e.Concept) != nil {
		syncMark = lipgloss.NewStyle().Foreground(theme.Error).Render("⚠")
	}

	name := truncate(e.Concept, nameWidth)
	return fmt.Sprintf("  %s%s %s %s%s %s",
		cursor,
		nameStyle.Render(fmt.Sprintf("%-*s", nameWidth, name)),
		bar.View(),
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(attempts),
		lipgloss.NewStyle().Foreground(bandColor(band)).Render(fmt.Sprintf("%-6s", band)),
		syncMark,
	)
}

func (s *ProfileScreen) renderFooter(entries []mastery.ConceptMastery, width int) string {
	var lines []string

	if s.cursor < len(entries) {
		e := entries[s.cursor]
		if err := s.sync.SyncErr(e.Concept); err != nil {
			lines = append(lines, lipgloss.NewStyle().Foreground(theme.Error).
				Render(truncate("  ⚠ "+err.Error(), width-2)))
		} else if !e.LastAssessed.IsZero() {
			lines = append(lines, lipgloss.NewStyle().Foreground(theme.TextDim).
				Render(fmt.Sprintf("  %s last assessed %s",
					e.Concept, e.LastAssessed.Format("Jan 2 15:04"))))
		}
	}

	lines = append(lines, lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
		Render("  concepts you have never practiced report 30%"))
	return strings.Join(lines, "\n")
}

func (s *ProfileScreen) adjustScroll(height, total int) {
	if s.cursor < s.scrollOffset {
		s.scrollOffset = s.cursor
	}
	if s.cursor >= s.scrollOffset+height {
		s.scrollOffset = s.cursor - height + 1
	}
	if s.scrollOffset > total-1 {
		s.scrollOffset = 0
	}
}

func meanLevel(entries []mastery.ConceptMastery) float64 {
	if len(entries) == 0 {
		return mastery.DefaultLevel
	}
	sum := 0.0
	for _, e := range entries {
		sum += e.Level
	}
	return sum / float64(len(entries))
}

func bandColor(band string) color.Color {
	switch band {
	case "easy":
		return theme.Error
	case "medium":
		return theme.Accent
	default:
		return theme.Success
	}
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
