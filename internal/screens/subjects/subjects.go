// Package subjects is the subject switcher: it lists the backend's catalog
// and applies the chosen subject's palette across the whole interface.
package subjects

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"github.com/abhisek/studiz/internal/api"
	"github.com/abhisek/studiz/internal/appstate"
	"github.com/abhisek/studiz/internal/screen"
	"github.com/abhisek/studiz/internal/store"
	"github.com/abhisek/studiz/internal/ui/layout"
	"github.com/abhisek/studiz/internal/ui/theme"
)

const loadTimeout = 10 * time.Second

type catalogMsg struct {
	List *api.SubjectList
	Err  error
}

type themeMsg struct {
	Subject api.SubjectSummary
	Theme   *api.SubjectTheme
	Err     error
}

// SubjectsScreen lists the catalog and switches the active subject.
type SubjectsScreen struct {
	client *api.Client
	state  *appstate.Store
	db     *store.Store
	logger *zap.Logger

	subjects []api.SubjectSummary
	cursor   int
	loaded   bool
	errMsg   string

	switching string
	notice    string
}

var _ screen.Screen = (*SubjectsScreen)(nil)
var _ screen.KeyHintProvider = (*SubjectsScreen)(nil)

// New creates the subject switcher. db may be nil; the choice then lasts for
// this run only.
func New(client *api.Client, state *appstate.Store, db *store.Store, logger *zap.Logger) *SubjectsScreen {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectsScreen{client: client, state: state, db: db, logger: logger}
}

func (s *SubjectsScreen) Init() tea.Cmd {
	client := s.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		list, err := client.Subjects(ctx)
		return catalogMsg{List: list, Err: err}
	}
}

func (s *SubjectsScreen) Title() string {
	return "Subjects"
}

func (s *SubjectsScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Choose"},
		{Key: "Enter", Description: "Switch"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *SubjectsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case catalogMsg:
		s.handleCatalog(msg)
		return s, nil

	case themeMsg:
		return s, s.handleTheme(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(s.subjects)-1 {
				s.cursor++
			}
		case "enter":
			return s, s.selectCursor()
		}
	}
	return s, nil
}

func (s *SubjectsScreen) handleCatalog(msg catalogMsg) {
	s.loaded = true
	if msg.Err != nil {
		s.errMsg = msg.Err.Error()
		s.logger.Warn("subject catalog failed", zap.Error(msg.Err))
		return
	}
	s.subjects = msg.List.Subjects

	active := s.state.Get().Subject
	for i, sub := range s.subjects {
		if sub.ID == active {
			s.cursor = i
		}
	}
}

func (s *SubjectsScreen) selectCursor() tea.Cmd {
	if !s.loaded || len(s.subjects) == 0 || s.switching != "" {
		return nil
	}
	sub := s.subjects[s.cursor]
	if sub.ID == s.state.Get().Subject {
		s.notice = "already studying " + sub.Name
		return nil
	}

	s.switching = sub.ID
	s.notice = ""
	client := s.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		th, err := client.SubjectTheme(ctx, sub.ID)
		return themeMsg{Subject: sub, Theme: th, Err: err}
	}
}

// handleTheme completes the switch. The palette swap touches the package
// theme styles, so it has to happen here on the program loop, never inside
// the fetch command. A failed theme fetch still switches the subject; colors
// fall back to the defaults.
func (s *SubjectsScreen) handleTheme(msg themeMsg) tea.Cmd {
	s.switching = ""

	palette := theme.Default()
	if msg.Err != nil {
		s.notice = fmt.Sprintf("switched to %s, but its theme could not load", msg.Subject.Name)
		s.logger.Warn("subject theme failed",
			zap.String("subject", msg.Subject.ID), zap.Error(msg.Err))
	} else {
		palette = theme.FromColors(
			msg.Theme.PrimaryColor,
			msg.Theme.SecondaryColor,
			msg.Theme.AccentColor,
			msg.Theme.ChapterColors,
		)
		s.notice = "now studying " + msg.Subject.Name
	}

	theme.Apply(palette)
	s.state.SetSubject(msg.Subject.ID, palette)
	s.logger.Info("subject switched", zap.String("subject", msg.Subject.ID))

	if s.db == nil {
		return nil
	}
	repo := s.db.PrefsRepo()
	logger := s.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		if err := repo.Set(ctx, store.PrefSubject, msg.Subject.ID); err != nil {
			logger.Warn("subject preference write failed", zap.Error(err))
		}
		return nil
	}
}

func (s *SubjectsScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render("\n\n⚠ Could not load the subject catalog\n" + s.errMsg)
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading subjects...")
	}
	if len(s.subjects) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\nThe backend lists no subjects.")
	}

	active := s.state.Get().Subject

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).
		Render("  SUBJECTS"))
	b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).
		Render("   studying " + active))
	b.WriteString("\n")

	switch {
	case s.switching != "":
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
			Render("  fetching the theme..."))
		b.WriteString("\n")
	case s.notice != "":
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).
			Render("  " + s.notice))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, sub := range s.subjects {
		b.WriteString(s.renderSubject(sub, i == s.cursor, sub.ID == active, width))
	}
	return b.String()
}

func (s *SubjectsScreen) renderSubject(sub api.SubjectSummary, selected, active bool, width int) string {
	cursor := "  "
	nameStyle := lipgloss.NewStyle().Foreground(theme.Text)
	if selected {
		cursor = "▸ "
		nameStyle = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	}

	line := "  " + cursor + nameStyle.Render(sub.Name)
	if active {
		line += lipgloss.NewStyle().Foreground(theme.Accent).Render("  ● active")
	} else if sub.IsDefault {
		line += lipgloss.NewStyle().Foreground(theme.TextDim).Render("  default")
	}
	out := line + "\n"

	if sub.Description != "" {
		desc := sub.Description
		if max := width - 8; max > 10 && len(desc) > max {
			desc = desc[:max-1] + "…"
		}
		out += lipgloss.NewStyle().Foreground(theme.TextDim).Render("      "+desc) + "\n"
	}
	return out
}
