// Package profile shows the proficiency ledger: every concept the student
// has practiced, its level and difficulty band, sync health, and the reset
// flow. Opening the screen refreshes the ledger from the backend.
package profile

import (
	"context"
	"sort"
	"time"

	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/abhisek/studiz/internal/appstate"
	"github.com/abhisek/studiz/internal/mastery"
	"github.com/abhisek/studiz/internal/screen"
	"github.com/abhisek/studiz/internal/store"
	"github.com/abhisek/studiz/internal/ui/layout"
)

const refreshTimeout = 10 * time.Second

// refreshDoneMsg reports the authoritative reload.
type refreshDoneMsg struct {
	Err error
}

// resetDoneMsg reports the backend-confirmed wipe.
type resetDoneMsg struct {
	Err error
}

// ProfileScreen is the proficiency ledger view.
type ProfileScreen struct {
	sync   *mastery.Synchronizer
	state  *appstate.Store
	db     *store.Store
	logger *zap.Logger

	cursor       int
	scrollOffset int
	weakestFirst bool
	refreshing   bool
	confirmReset bool
	resetting    bool
	notice       string
}

var _ screen.Screen = (*ProfileScreen)(nil)
var _ screen.KeyHintProvider = (*ProfileScreen)(nil)

// New creates the profile screen. db may be nil; the cache mirror is then
// skipped.
func New(sync *mastery.Synchronizer, state *appstate.Store, db *store.Store, logger *zap.Logger) *ProfileScreen {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileScreen{
		sync:   sync,
		state:  state,
		db:     db,
		logger: logger,
	}
}

// Init refreshes from the backend so the screen always opens on current
// truth. The seeded ledger shows in the meantime.
func (s *ProfileScreen) Init() tea.Cmd {
	return s.refresh()
}

func (s *ProfileScreen) Title() string {
	return "Profile"
}

func (s *ProfileScreen) KeyHints() []layout.KeyHint {
	if s.confirmReset {
		return []layout.KeyHint{
			{Key: "y", Description: "Reset"},
			{Key: "n", Description: "Keep"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "s", Description: "Sort"},
		{Key: "r", Description: "Refresh"},
		{Key: "ctrl+r", Description: "Reset all"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *ProfileScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshDoneMsg:
		s.handleRefreshDone(msg)
		return s, nil

	case resetDoneMsg:
		s.handleResetDone(msg)
		return s, nil

	case tea.KeyMsg:
		if s.confirmReset {
			return s, s.handleConfirmKey(msg)
		}
		return s, s.handleKey(msg)
	}
	return s, nil
}

func (s *ProfileScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.entries())-1 {
			s.cursor++
		}
	case "s":
		s.weakestFirst = !s.weakestFirst
		s.cursor = 0
		s.scrollOffset = 0
	case "r":
		if !s.refreshing {
			return s.refresh()
		}
	case "ctrl+r":
		if !s.resetting {
			s.confirmReset = true
		}
	case "d":
		s.sync.ClearLastSyncErr()
		s.state.SetSyncError(nil)
	}
	return nil
}

func (s *ProfileScreen) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "y" {
		return s.reset()
	}
	s.confirmReset = false
	return nil
}

// entries returns the ledger in display order.
func (s *ProfileScreen) entries() []mastery.ConceptMastery {
	entries := s.sync.Entries()
	if s.weakestFirst {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Level < entries[j].Level
		})
	}
	return entries
}

// refresh reloads the ledger from the backend. The shared-state bookkeeping
// happens inside the command: the done message only reaches this screen while
// it is still on top, but the sync flag must clear either way.
func (s *ProfileScreen) refresh() tea.Cmd {
	s.refreshing = true
	s.notice = ""
	s.state.SetSyncInProgress(true)

	syncer, state, db, logger := s.sync, s.state, s.db, s.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		defer state.SetSyncInProgress(false)

		if err := syncer.LoadAuthoritative(ctx); err != nil {
			state.SetSyncError(err)
			return refreshDoneMsg{Err: err}
		}
		state.SetProficiency(syncer.All())
		state.SetSyncError(nil)
		mirrorLedger(ctx, db, syncer, logger)
		return refreshDoneMsg{}
	}
}

func (s *ProfileScreen) handleRefreshDone(msg refreshDoneMsg) {
	s.refreshing = false

	if msg.Err != nil {
		s.notice = "✗ refresh failed, showing the local ledger"
		s.logger.Warn("profile refresh failed", zap.Error(msg.Err))
		return
	}
	s.notice = "✓ profile refreshed"
	s.clampCursor()
}

func (s *ProfileScreen) reset() tea.Cmd {
	s.confirmReset = false
	s.resetting = true
	s.notice = ""

	syncer, state, db, logger := s.sync, s.state, s.db, s.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := syncer.Reset(ctx); err != nil {
			return resetDoneMsg{Err: err}
		}
		state.SetProficiency(syncer.All())
		if db != nil {
			if err := db.MasteryRepo().Clear(ctx); err != nil {
				logger.Warn("mastery cache clear failed", zap.Error(err))
			}
		}
		return resetDoneMsg{}
	}
}

func (s *ProfileScreen) handleResetDone(msg resetDoneMsg) {
	s.resetting = false

	if msg.Err != nil {
		s.notice = "✗ reset failed, nothing was changed"
		s.logger.Warn("profile reset failed", zap.Error(msg.Err))
		return
	}
	s.notice = "✓ all progress reset"
	s.cursor = 0
	s.scrollOffset = 0
	s.logger.Info("profile reset")
}

func (s *ProfileScreen) clampCursor() {
	if n := len(s.entries()); s.cursor >= n && n > 0 {
		s.cursor = n - 1
	} else if n == 0 {
		s.cursor = 0
	}
}

// mirrorLedger writes the ledger back to the local cache after an
// authoritative reload.
func mirrorLedger(ctx context.Context, db *store.Store, syncer *mastery.Synchronizer, logger *zap.Logger) {
	if db == nil {
		return
	}
	repo := db.MasteryRepo()
	if err := repo.Clear(ctx); err != nil {
		logger.Warn("mastery cache clear failed", zap.Error(err))
		return
	}
	for _, e := range syncer.Entries() {
		rec := store.MasteryRecord{
			Concept:   e.Concept,
			Level:     e.Level,
			Attempts:  e.Attempts,
			UpdatedAt: time.Now(),
		}
		if !e.LastAssessed.IsZero() {
			t := e.LastAssessed
			rec.LastAssessed = &t
		}
		if err := repo.Upsert(ctx, rec); err != nil {
			logger.Warn("mastery cache write failed",
				zap.String("concept", e.Concept), zap.Error(err))
			return
		}
	}
}
