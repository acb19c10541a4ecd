// Package history replays past answers from the local cache.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/abhisek/studiz/internal/screen"
	"github.com/abhisek/studiz/internal/store"
	"github.com/abhisek/studiz/internal/ui/layout"
	"github.com/abhisek/studiz/internal/ui/theme"
)

const (
	recentLimit = 50
	loadTimeout = 5 * time.Second
)

type loadedMsg struct {
	Records []store.HistoryRecord
	Err     error
}

// HistoryScreen lists recent exchanges and rereads one at a time.
type HistoryScreen struct {
	db     *store.Store
	logger *zap.Logger

	records      []store.HistoryRecord
	cursor       int
	scrollOffset int
	loaded       bool
	errMsg       string

	reading    bool
	readScroll int

	rendered   string
	renderedID int64
	renderedW  int
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates the history screen. db may be nil; the screen then explains
// that nothing is kept.
func New(db *store.Store, logger *zap.Logger) *HistoryScreen {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryScreen{db: db, logger: logger}
}

func (s *HistoryScreen) Init() tea.Cmd {
	if s.db == nil {
		return nil
	}
	repo := s.db.HistoryRepo()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		records, err := repo.Recent(ctx, recentLimit)
		return loadedMsg{Records: records, Err: err}
	}
}

func (s *HistoryScreen) Title() string {
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	if s.reading {
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Scroll"},
			{Key: "Enter", Description: "Back to list"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Choose"},
		{Key: "Enter", Description: "Reread"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.loaded = true
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			s.logger.Warn("history load failed", zap.Error(msg.Err))
		} else {
			s.records = msg.Records
		}
		return s, nil

	case tea.KeyMsg:
		s.handleKey(msg)
		return s, nil
	}
	return s, nil
}

func (s *HistoryScreen) handleKey(msg tea.KeyMsg) {
	if s.reading {
		switch msg.String() {
		case "up", "k":
			if s.readScroll > 0 {
				s.readScroll--
			}
		case "down", "j":
			s.readScroll++
		case "enter", "backspace":
			s.reading = false
		}
		return
	}

	switch msg.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.records)-1 {
			s.cursor++
		}
	case "enter":
		if len(s.records) > 0 {
			s.reading = true
			s.readScroll = 0
		}
	}
}

func (s *HistoryScreen) View(width, height int) string {
	if s.db == nil {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\nThe local cache is off, so answers are not kept between runs.")
	}
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render("\n\n⚠ Could not load history\n" + s.errMsg)
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading history...")
	}
	if len(s.records) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\nNo answers saved yet. Ask something first.")
	}

	if s.reading {
		return s.renderRead(width, height)
	}
	return s.renderList(width, height)
}

func (s *HistoryScreen) renderList(width, height int) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).
		Render("  HISTORY"))
	b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).
		Render(fmt.Sprintf("   last %d answers", len(s.records))))
	b.WriteString("\n\n")

	listH := height - 5
	if listH < 3 {
		listH = 3
	}
	s.adjustScroll(listH)

	end := s.scrollOffset + listH
	if end > len(s.records) {
		end = len(s.records)
	}
	for i := s.scrollOffset; i < end; i++ {
		b.WriteString(s.renderRow(s.records[i], i == s.cursor, width))
		b.WriteString("\n")
	}
	if rest := len(s.records) - end; rest > 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).
			Render(fmt.Sprintf("    … %d more", rest)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
		Render("  enter rereads the full answer"))
	return b.String()
}

func (s *HistoryScreen) renderRow(rec store.HistoryRecord, selected bool, width int) string {
	cursor := "  "
	qStyle := lipgloss.NewStyle().Foreground(theme.Text)
	if selected {
		cursor = "▸ "
		qStyle = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	}

	when := rec.CreatedAt.Format("Jan 02 15:04")
	qWidth := width - len(when) - 8
	if qWidth < 16 {
		qWidth = 16
	}
	q := rec.Question
	if len(q) > qWidth {
		q = q[:qWidth-1] + "…"
	}

	return fmt.Sprintf("  %s%s  %s",
		cursor,
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(when),
		qStyle.Render(q))
}

func (s *HistoryScreen) renderRead(width, height int) string {
	rec := s.records[s.cursor]
	wrap := width - 6
	if wrap < 20 {
		wrap = 20
	}

	header := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).
		Render("  ❯ " + rec.Question)
	meta := fmt.Sprintf("  %s · %d passages · %s",
		rec.Model, rec.RetrievedCount, rec.CreatedAt.Format("Jan 02 15:04"))
	head := header + "\n" +
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(meta) + "\n\n"

	body := s.renderAnswer(rec, wrap)
	lines := strings.Split(body, "\n")

	bodyH := height - 4
	if bodyH < 1 {
		bodyH = 1
	}
	maxScroll := len(lines) - bodyH
	if maxScroll < 0 {
		maxScroll = 0
	}
	if s.readScroll > maxScroll {
		s.readScroll = maxScroll
	}

	end := s.readScroll + bodyH
	if end > len(lines) {
		end = len(lines)
	}
	out := head + strings.Join(lines[s.readScroll:end], "\n")
	if rest := len(lines) - end; rest > 0 {
		out += "\n" + lipgloss.NewStyle().Foreground(theme.TextDim).
			Render(fmt.Sprintf("  … %d more (↓ to scroll)", rest))
	}
	return out
}

// renderAnswer caches the markdown rendering for the open record; moving to
// another record or resizing re-renders.
func (s *HistoryScreen) renderAnswer(rec store.HistoryRecord, wrap int) string {
	if s.renderedID == rec.ID && s.renderedW == wrap {
		return s.rendered
	}

	out := rec.Answer
	if r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	); err == nil {
		if rendered, err := r.Render(rec.Answer); err == nil {
			out = strings.TrimRight(rendered, "\n")
		}
	}

	s.rendered = out
	s.renderedID = rec.ID
	s.renderedW = wrap
	return out
}

func (s *HistoryScreen) adjustScroll(height int) {
	if s.cursor < s.scrollOffset {
		s.scrollOffset = s.cursor
	}
	if s.cursor >= s.scrollOffset+height {
		s.scrollOffset = s.cursor - height + 1
	}
}
