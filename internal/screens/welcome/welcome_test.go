package welcome

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/studiz/internal/api"
	"github.com/abhisek/studiz/internal/appstate"
	"github.com/abhisek/studiz/internal/mastery"
	"github.com/abhisek/studiz/internal/router"
	"github.com/abhisek/studiz/internal/screen"
	"github.com/abhisek/studiz/internal/stubserver"
	"github.com/abhisek/studiz/internal/ui/theme"
)

// stubScreen is a minimal screen implementation for testing.
type stubScreen struct{}

func (s *stubScreen) Init() tea.Cmd                           { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return "home" }
func (s *stubScreen) Title() string                           { return "Home" }

func newTestWelcome(t *testing.T) (*WelcomeScreen, *appstate.Store, *int) {
	t.Helper()
	callCount := 0
	factory := func() screen.Screen {
		callCount++
		return &stubScreen{}
	}
	state := appstate.New("biology", theme.Default())
	sync := mastery.NewSynchronizer(nil, nil)
	return New(nil, sync, state, nil, nil, factory), state, &callCount
}

func TestKeypressBeforeBootIsIgnored(t *testing.T) {
	w, _, callCount := newTestWelcome(t)

	_, cmd := w.Update(tea.KeyPressMsg{Code: ' '})
	if cmd != nil {
		t.Error("keypress before boot should not produce a command")
	}
	if *callCount != 0 {
		t.Errorf("factory should not be called before boot, got %d", *callCount)
	}
}

func TestBootThenKeypressReplaces(t *testing.T) {
	w, _, callCount := newTestWelcome(t)

	w.Update(bootDoneMsg{Server: &api.ServerInfo{Name: "studiz-tutor", Version: "0.3.0"}})

	_, cmd := w.Update(tea.KeyPressMsg{Code: ' '})
	if cmd == nil {
		t.Fatal("expected a command from keypress after boot")
	}
	msg := cmd()
	replaceMsg, ok := msg.(router.ReplaceScreenMsg)
	if !ok {
		t.Fatalf("expected ReplaceScreenMsg, got %T", msg)
	}
	if replaceMsg.Screen == nil {
		t.Error("replace screen should not be nil")
	}
	if *callCount != 1 {
		t.Errorf("factory should be called once, got %d", *callCount)
	}
}

func TestFactoryCalledOnce(t *testing.T) {
	w, _, callCount := newTestWelcome(t)

	w.Update(bootDoneMsg{Server: &api.ServerInfo{Name: "studiz-tutor", Version: "0.3.0"}})
	w.Update(tea.KeyPressMsg{Code: 'a'})

	_, cmd := w.Update(tea.KeyPressMsg{Code: 'b'})
	if cmd != nil {
		t.Error("second keypress should not produce a command")
	}
	if *callCount != 1 {
		t.Errorf("factory should be called exactly once, got %d", *callCount)
	}
}

func TestOfflineBootStillEnters(t *testing.T) {
	w, state, callCount := newTestWelcome(t)

	bootErr := errors.New("dial tcp: connection refused")
	w.Update(bootDoneMsg{Err: bootErr})

	view := w.View(80, 24)
	if !strings.Contains(view, "offline") {
		t.Error("offline advisory should be visible after a failed boot")
	}
	if !errors.Is(state.Get().LastSyncError, bootErr) {
		t.Error("boot failure should be recorded as the sync error")
	}

	_, cmd := w.Update(tea.KeyPressMsg{Code: ' '})
	if cmd == nil {
		t.Fatal("offline boot should still allow entering")
	}
	if _, ok := cmd().(router.ReplaceScreenMsg); !ok {
		t.Fatal("expected ReplaceScreenMsg after offline boot")
	}
	if *callCount != 1 {
		t.Errorf("factory should be called once, got %d", *callCount)
	}
}

func TestSubjectRestoreAppliesPalette(t *testing.T) {
	w, state, _ := newTestWelcome(t)
	t.Cleanup(func() { theme.Apply(theme.Default()) })

	pal := theme.FromColors("#3B82F6", "", "", nil)
	w.Update(bootDoneMsg{
		Server:  &api.ServerInfo{Name: "studiz-tutor", Version: "0.3.0"},
		Subject: "chemistry",
		Palette: &pal,
	})

	snap := state.Get()
	if snap.Subject != "chemistry" {
		t.Errorf("expected subject chemistry, got %q", snap.Subject)
	}
	if snap.Theme.Primary != pal.Primary {
		t.Errorf("expected restored primary %v, got %v", pal.Primary, snap.Theme.Primary)
	}
}

func TestViewShowsConnectedServer(t *testing.T) {
	w, _, _ := newTestWelcome(t)

	w.Update(bootDoneMsg{Server: &api.ServerInfo{Name: "studiz-tutor", Version: "0.3.0"}})

	view := w.View(80, 24)
	if !strings.Contains(view, "studiz-tutor v0.3.0") {
		t.Error("connected status should name the server and version")
	}
	if !strings.Contains(view, "press any key") {
		t.Error("continue hint should be visible after boot")
	}
}

func TestTicksStopAfterBoot(t *testing.T) {
	w, _, _ := newTestWelcome(t)

	_, cmd := w.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Error("ticks should re-arm while booting")
	}

	w.Update(bootDoneMsg{Server: &api.ServerInfo{Name: "studiz-tutor", Version: "0.3.0"}})

	_, cmd = w.Update(tickMsg(time.Now()))
	if cmd != nil {
		t.Error("ticks should stop once booted")
	}
}

func TestBootAgainstBackend(t *testing.T) {
	srv := httptest.NewServer(stubserver.New(stubserver.Options{}).Handler())
	t.Cleanup(srv.Close)

	client, err := api.New(api.Options{BaseURL: srv.URL, StudentID: "tester"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	callCount := 0
	factory := func() screen.Screen {
		callCount++
		return &stubScreen{}
	}
	state := appstate.New("biology", theme.Default())
	sync := mastery.NewSynchronizer(client, nil)
	w := New(client, sync, state, nil, nil, factory)

	msg := w.boot()()
	boot, ok := msg.(bootDoneMsg)
	if !ok {
		t.Fatalf("expected bootDoneMsg, got %T", msg)
	}
	if boot.Err != nil {
		t.Fatalf("boot against stub backend failed: %v", boot.Err)
	}
	if boot.Server == nil || boot.Server.Version == "" {
		t.Fatal("handshake should report the server version")
	}

	w.Update(boot)
	if got := sync.Mastery("anything"); got != 0.3 {
		t.Errorf("fresh profile should leave default mastery, got %v", got)
	}

	_, cmd := w.Update(tea.KeyPressMsg{Code: ' '})
	if cmd == nil {
		t.Fatal("expected transition after successful boot")
	}
}

func TestTitleEmpty(t *testing.T) {
	w, _, _ := newTestWelcome(t)
	if w.Title() != "" {
		t.Errorf("expected empty title, got %q", w.Title())
	}
}
