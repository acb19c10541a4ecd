// Package home is the main menu: entry points to every screen plus a recap
// of the most recent exchanges from the local history.
package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"github.com/abhisek/studiz/internal/api"
	"github.com/abhisek/studiz/internal/appstate"
	"github.com/abhisek/studiz/internal/config"
	"github.com/abhisek/studiz/internal/mastery"
	"github.com/abhisek/studiz/internal/router"
	"github.com/abhisek/studiz/internal/screen"
	"github.com/abhisek/studiz/internal/screens/chat"
	"github.com/abhisek/studiz/internal/screens/graphview"
	"github.com/abhisek/studiz/internal/screens/history"
	"github.com/abhisek/studiz/internal/screens/profile"
	"github.com/abhisek/studiz/internal/screens/quiz"
	"github.com/abhisek/studiz/internal/screens/subjects"
	"github.com/abhisek/studiz/internal/store"
	"github.com/abhisek/studiz/internal/stream"
	"github.com/abhisek/studiz/internal/ui/components"
	"github.com/abhisek/studiz/internal/ui/theme"
)

// recentShown is how many recent exchanges the home screen recaps.
const recentShown = 3

// HomeScreen is the main menu of the application.
type HomeScreen struct {
	client *api.Client
	state  *appstate.Store
	menu   components.Menu
	recent []store.HistoryRecord
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates the home screen. Recent exchanges are read synchronously from
// the local cache; db may be nil, which just leaves the recap empty.
func New(client *api.Client, controller *stream.Controller, sync *mastery.Synchronizer, state *appstate.Store, db *store.Store, cfg config.Config, logger *zap.Logger) *HomeScreen {
	var recent []store.HistoryRecord
	if db != nil {
		var err error
		recent, err = db.HistoryRepo().Recent(context.Background(), recentShown)
		if err != nil && logger != nil {
			logger.Warn("recent history load failed", zap.Error(err))
		}
	}

	items := []components.MenuItem{
		{Label: "ASK A QUESTION", Hint: "stream an answer from the tutor", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: chat.New(controller, state, cfg, logger)}
			}
		}},
		{Label: "CONCEPT MAP", Hint: "explore the knowledge graph", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: graphview.New(client, state, logger)}
			}
		}},
		{Label: "QUIZ", Hint: "adaptive practice on any concept", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: quiz.New(client, sync, state, db, logger)}
			}
		}},
		{Label: "PROFILE", Hint: "proficiency ledger and sync", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: profile.New(sync, state, db, logger)}
			}
		}},
		{Label: "HISTORY", Hint: "recent questions and answers", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: history.New(db, logger)}
			}
		}},
		{Label: "SUBJECTS", Hint: "switch the study subject", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: subjects.New(client, state, db, logger)}
			}
		}},
		{Label: "EXIT", Action: func() tea.Cmd {
			return tea.Quit
		}},
	}

	return &HomeScreen{
		client: client,
		state:  state,
		menu:   components.NewMenu(items),
		recent: recent,
	}
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func (h *HomeScreen) View(width, height int) string {
	var sections []string

	title := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true).
		Render("STUDIZ")
	subtitle := lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(h.statsLine())
	sections = append(sections, title+"\n"+subtitle)

	if recap := h.renderRecent(width); recap != "" {
		sections = append(sections, recap)
	}

	sections = append(sections, h.menu.View())

	content := strings.Join(sections, "\n\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// statsLine summarizes the session: student, subject, tracked concepts.
func (h *HomeScreen) statsLine() string {
	snap := h.state.Get()
	student := "default"
	if h.client != nil {
		student = h.client.StudentID()
	}
	return fmt.Sprintf("%s · %s · %d concepts tracked",
		student, snap.Subject, len(snap.Proficiency))
}

func (h *HomeScreen) renderRecent(width int) string {
	if len(h.recent) == 0 {
		return ""
	}

	maxLine := width - 20
	if maxLine > 64 {
		maxLine = 64
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render("Recently asked"))
	for _, rec := range h.recent {
		q := rec.Question
		if maxLine > 4 && len(q) > maxLine {
			q = q[:maxLine-1] + "…"
		}
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Render("· " + q))
	}
	return b.String()
}
