// Package welcome is the startup screen: it shows the banner while the
// version handshake and the authoritative profile load run, then hands off
// to the home screen. A failed handshake is advisory; the app still enters,
// offline, with whatever the local cache held.
package welcome

import (
	"context"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/studiz/internal/api"
	"github.com/abhisek/studiz/internal/appstate"
	"github.com/abhisek/studiz/internal/mastery"
	"github.com/abhisek/studiz/internal/router"
	"github.com/abhisek/studiz/internal/screen"
	"github.com/abhisek/studiz/internal/store"
	"github.com/abhisek/studiz/internal/ui/theme"
)

const (
	tickInterval = 100 * time.Millisecond
	bootTimeout  = 10 * time.Second
)

type tickMsg time.Time

// bootDoneMsg carries the startup outcome back into the loop. Subject and
// Palette restore the last-used subject when the local cache held one; Err
// is the handshake or profile failure, advisory only.
type bootDoneMsg struct {
	Server  *api.ServerInfo
	Subject string
	Palette *theme.Palette
	Err     error
}

// WelcomeScreen shows the banner while startup runs, then transitions to the
// screen produced by homeFactory.
type WelcomeScreen struct {
	client      *api.Client
	sync        *mastery.Synchronizer
	state       *appstate.Store
	db          *store.Store
	logger      *zap.Logger
	homeFactory func() screen.Screen

	tickCount    int
	booted       bool
	bootErr      error
	server       *api.ServerInfo
	transitioned bool
}

var _ screen.Screen = (*WelcomeScreen)(nil)

// New creates a WelcomeScreen. db may be nil; the cache seed and subject
// restore are then skipped.
func New(client *api.Client, sync *mastery.Synchronizer, state *appstate.Store, db *store.Store, logger *zap.Logger, homeFactory func() screen.Screen) *WelcomeScreen {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WelcomeScreen{
		client:      client,
		sync:        sync,
		state:       state,
		db:          db,
		logger:      logger,
		homeFactory: homeFactory,
	}
}

func (w *WelcomeScreen) Title() string {
	return ""
}

func (w *WelcomeScreen) Init() tea.Cmd {
	return tea.Batch(
		tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) }),
		w.boot(),
	)
}

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		w.tickCount++
		if w.booted {
			return w, nil
		}
		return w, tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })

	case bootDoneMsg:
		return w.handleBootDone(msg)

	case tea.KeyPressMsg:
		// Hold the screen until the startup outcome is known.
		if w.booted {
			return w, w.transition()
		}
		return w, nil
	}

	return w, nil
}

// boot runs the startup work off the loop: seed the ledger from the local
// cache, then the version handshake and the authoritative profile load in
// parallel, then the saved-subject restore.
func (w *WelcomeScreen) boot() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), bootTimeout)
		defer cancel()

		// Cache first, so SeedEntries cannot shadow a fresher profile.
		w.seedFromCache(ctx)

		var info *api.ServerInfo
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			i, err := w.client.CheckServer(gctx)
			if err != nil {
				return err
			}
			info = i
			return nil
		})
		g.Go(func() error {
			return w.sync.LoadAuthoritative(gctx)
		})

		subject, palette := w.restoreSubject(ctx)

		if err := g.Wait(); err != nil {
			w.logger.Warn("startup handshake failed", zap.Error(err))
			return bootDoneMsg{Subject: subject, Palette: palette, Err: err}
		}

		w.mirrorLedger(ctx)
		return bootDoneMsg{Server: info, Subject: subject, Palette: palette}
	}
}

func (w *WelcomeScreen) handleBootDone(msg bootDoneMsg) (screen.Screen, tea.Cmd) {
	w.booted = true
	w.bootErr = msg.Err
	w.server = msg.Server

	if msg.Subject != "" {
		pal := theme.Default()
		if msg.Palette != nil {
			pal = *msg.Palette
		}
		theme.Apply(pal)
		w.state.SetSubject(msg.Subject, pal)
	}

	if msg.Err == nil {
		w.state.SetProficiency(w.sync.All())
	} else {
		w.state.SetSyncError(msg.Err)
	}

	return w, nil
}

// seedFromCache primes the ledger with the persisted mirror so proficiency
// shows immediately, and still shows when the backend is unreachable.
func (w *WelcomeScreen) seedFromCache(ctx context.Context) {
	if w.db == nil {
		return
	}
	recs, err := w.db.MasteryRepo().All(ctx)
	if err != nil {
		w.logger.Warn("mastery cache read failed", zap.Error(err))
		return
	}
	entries := make([]mastery.ConceptMastery, 0, len(recs))
	for _, r := range recs {
		e := mastery.ConceptMastery{
			Concept:  r.Concept,
			Level:    r.Level,
			Attempts: r.Attempts,
		}
		if r.LastAssessed != nil {
			e.LastAssessed = *r.LastAssessed
		}
		entries = append(entries, e)
	}
	w.sync.SeedEntries(entries)
	w.state.SetProficiency(w.sync.All())
	w.logger.Debug("ledger seeded from cache", zap.Int("concepts", len(entries)))
}

// mirrorLedger writes the authoritative ledger back to the local cache.
func (w *WelcomeScreen) mirrorLedger(ctx context.Context) {
	if w.db == nil {
		return
	}
	repo := w.db.MasteryRepo()
	if err := repo.Clear(ctx); err != nil {
		w.logger.Warn("mastery cache clear failed", zap.Error(err))
		return
	}
	for _, e := range w.sync.Entries() {
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
			w.logger.Warn("mastery cache write failed",
				zap.String("concept", e.Concept), zap.Error(err))
			return
		}
	}
}

// restoreSubject reads the saved subject preference and fetches its theme.
// A missing preference or an unreachable theme endpoint keeps the defaults.
func (w *WelcomeScreen) restoreSubject(ctx context.Context) (string, *theme.Palette) {
	if w.db == nil {
		return "", nil
	}
	subject, ok, err := w.db.PrefsRepo().Get(ctx, store.PrefSubject)
	if err != nil || !ok {
		return "", nil
	}
	st, err := w.client.SubjectTheme(ctx, subject)
	if err != nil {
		w.logger.Debug("subject theme fetch failed",
			zap.String("subject", subject), zap.Error(err))
		return subject, nil
	}
	pal := theme.FromColors(st.PrimaryColor, st.SecondaryColor, st.AccentColor, st.ChapterColors)
	return subject, &pal
}

func (w *WelcomeScreen) transition() tea.Cmd {
	if w.transitioned {
		return nil
	}
	w.transitioned = true
	homeScreen := w.homeFactory()
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: homeScreen}
	}
}

func (w *WelcomeScreen) View(width, height int) string {
	var sections []string

	sections = append(sections, RenderBanner(width))
	sections = append(sections, "")

	tagline := lipgloss.NewStyle().
		Foreground(theme.Text).
		Bold(true).
		Render("Ask anything. See how it connects.")
	sections = append(sections, tagline)
	sections = append(sections, "")

	sections = append(sections, w.renderStatus(width))

	if w.booted {
		sections = append(sections, "")
		hint := lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Italic(true).
			Render("press any key to begin")
		sections = append(sections, hint)
	}

	content := strings.Join(sections, "\n")

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func (w *WelcomeScreen) renderStatus(width int) string {
	if !w.booted {
		dots := strings.Repeat(".", w.tickCount%4)
		return lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Render("Connecting to the tutor backend" + dots)
	}

	if w.bootErr != nil {
		warn := lipgloss.NewStyle().
			Foreground(theme.Error).
			Render("⚠ Backend unreachable, starting offline")
		detail := w.bootErr.Error()
		if max := width - 8; max > 10 && len(detail) > max {
			detail = detail[:max-1] + "…"
		}
		return warn + "\n" + lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Render(detail)
	}

	connected := "✓ Connected"
	if w.server != nil {
		connected = "✓ Connected to " + w.server.Name + " v" + w.server.Version
	}
	return lipgloss.NewStyle().
		Foreground(theme.Success).
		Render(connected)
}
