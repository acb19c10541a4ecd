// Package app hosts the bubbletea program: the screen router, the frame
// around it, and the pump that feeds stream events back into the update loop.
package app

import (
	"context"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"github.com/abhisek/studiz/internal/api"
	"github.com/abhisek/studiz/internal/appstate"
	"github.com/abhisek/studiz/internal/config"
	"github.com/abhisek/studiz/internal/mastery"
	"github.com/abhisek/studiz/internal/router"
	"github.com/abhisek/studiz/internal/screen"
	"github.com/abhisek/studiz/internal/screens/home"
	"github.com/abhisek/studiz/internal/screens/welcome"
	"github.com/abhisek/studiz/internal/store"
	"github.com/abhisek/studiz/internal/stream"
	"github.com/abhisek/studiz/internal/ui/layout"
)

// historyKeep bounds the local exchange history.
const historyKeep = 100

// Deps are the wired services the screens draw from. DB may be nil when the
// local cache could not be opened; everything else is required.
type Deps struct {
	Client     *api.Client
	Controller *stream.Controller
	Mastery    *mastery.Synchronizer
	State      *appstate.Store
	DB         *store.Store
	Config     config.Config
	Logger     *zap.Logger
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	deps   Deps
	router *router.Router
	width  int
	height int
}

// newAppModel creates the root model, starting on the welcome screen.
func newAppModel(d Deps) AppModel {
	homeFactory := func() screen.Screen {
		return home.New(d.Client, d.Controller, d.Mastery, d.State, d.DB, d.Config, d.Logger)
	}
	w := welcome.New(d.Client, d.Mastery, d.State, d.DB, d.Logger, homeFactory)
	return AppModel{
		deps:   d,
		router: router.New(w),
	}
}

func (m AppModel) Init() tea.Cmd {
	return m.waitForStream()
}

// waitForStream blocks on the controller's event channel and re-enters the
// loop with the next envelope. Re-armed after every receive, so exactly one
// pump goroutine is pending at a time.
func (m AppModel) waitForStream() tea.Cmd {
	events := m.deps.Controller.Events()
	return func() tea.Msg {
		return <-events
	}
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stream.Envelope:
		return m.handleStreamEnvelope(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.router.CloseAll()
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

// handleStreamEnvelope applies one stream event on the program loop and
// forwards it to the screens. The pump is re-armed first so delivery keeps
// flowing even while a screen handles the event. Stale envelopes are dropped
// by Apply and never reach the screens.
func (m AppModel) handleStreamEnvelope(env stream.Envelope) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.waitForStream()}

	if m.deps.Controller.Apply(env) {
		if s := m.deps.Controller.Active(); s != nil && s.Status().Terminal() {
			if cmd := m.finalizeSession(s); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		if cmd := m.router.Update(env); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// finalizeSession runs once per session, on the envelope that made it
// terminal. Completed answers update the shared state and are appended to the
// local history even if the chat screen is no longer on top. Failed sessions
// keep their error inline on the session; aborted ones never get here, since
// Cancel marks them terminal before any further event is applied.
func (m AppModel) finalizeSession(s *stream.Session) tea.Cmd {
	if s.Status() != stream.StatusDone {
		m.deps.Logger.Warn("session failed",
			zap.String("session_id", s.ID()),
			zap.Error(s.Err()))
		return nil
	}

	resp := s.Finalize()
	m.deps.State.SetExpandedConcepts(resp.ExpandedConcepts)
	m.deps.State.SetHighlightedConcepts(resp.ExpandedConcepts)
	m.deps.Logger.Debug("answer finalized",
		zap.String("session_id", s.ID()),
		zap.Int("answer_len", len(resp.Answer)),
		zap.Int("expanded", len(resp.ExpandedConcepts)))

	if m.deps.DB == nil {
		return nil
	}

	repo := m.deps.DB.HistoryRepo()
	logger := m.deps.Logger
	return func() tea.Msg {
		ctx := context.Background()
		rec := &store.HistoryRecord{
			Question:       resp.Question,
			Answer:         resp.Answer,
			Model:          resp.Model,
			RetrievedCount: resp.RetrievedCount,
			CreatedAt:      time.Now(),
		}
		if err := repo.Append(ctx, rec); err != nil {
			logger.Warn("history append failed", zap.Error(err))
			return nil
		}
		if err := repo.Prune(ctx, historyKeep); err != nil {
			logger.Warn("history prune failed", zap.Error(err))
		}
		return nil
	}
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	snap := m.deps.State.Get()
	header := layout.RenderHeader(title, layout.HeaderStatus{
		Subject: snap.Subject,
		Syncing: snap.SyncInProgress,
		SyncErr: snap.LastSyncError != nil,
	}, m.width)

	var footerHints []layout.KeyHint
	if hp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = hp.KeyHints()
	}
	if footerHints == nil {
		if m.router.Depth() > 1 {
			footerHints = []layout.KeyHint{
				{Key: "Esc", Description: "Back"},
				{Key: "Ctrl+C", Description: "Quit"},
			}
		} else {
			footerHints = []layout.KeyHint{
				{Key: "↑↓", Description: "Navigate"},
				{Key: "Enter", Description: "Select"},
				{Key: "Ctrl+C", Description: "Quit"},
			}
		}
	}

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

// Run starts the Bubble Tea program and blocks until it exits. Screens still
// on the stack are closed on the way out, which cancels any running stream.
func Run(d Deps) error {
	m := newAppModel(d)
	p := tea.NewProgram(m)
	_, err := p.Run()
	m.router.CloseAll()
	if err != nil {
		return fmt.Errorf("run program: %w", err)
	}
	return nil
}
