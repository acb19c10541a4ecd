package subjects

import (
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/studiz/internal/api"
	"github.com/abhisek/studiz/internal/appstate"
	"github.com/abhisek/studiz/internal/ui/theme"
)

func newTestSubjects(t *testing.T) (*SubjectsScreen, *appstate.Store) {
	t.Helper()
	t.Cleanup(func() { theme.Apply(theme.Default()) })

	client, err := api.New(api.Options{BaseURL: "http://127.0.0.1:9"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	state := appstate.New("biology", theme.Default())
	return New(client, state, nil, nil), state
}

func fixtureCatalog() catalogMsg {
	return catalogMsg{List: &api.SubjectList{
		DefaultSubject: "biology",
		Subjects: []api.SubjectSummary{
			{ID: "physics", Name: "Physics 2e", Description: "Mechanics, waves and thermodynamics"},
			{ID: "biology", Name: "Biology 2e", Description: "The introductory biology corpus", IsDefault: true},
		},
	}}
}

func TestCatalogListsSubjects(t *testing.T) {
	s, _ := newTestSubjects(t)

	s.Update(fixtureCatalog())

	view := s.View(90, 24)
	if !strings.Contains(view, "Physics 2e") || !strings.Contains(view, "Biology 2e") {
		t.Error("both subjects should render")
	}
	if !strings.Contains(view, "● active") {
		t.Error("the active subject should carry its marker")
	}
	if s.cursor != 1 {
		t.Errorf("cursor = %d, want to start on the active subject", s.cursor)
	}
}

func TestSwitchAppliesThemeAndState(t *testing.T) {
	s, state := newTestSubjects(t)
	s.Update(fixtureCatalog())

	s.Update(tea.KeyPressMsg{Code: 'k'})
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("selecting another subject should fetch its theme")
	}
	if s.switching != "physics" {
		t.Errorf("switching = %q, want physics", s.switching)
	}

	s.Update(themeMsg{
		Subject: api.SubjectSummary{ID: "physics", Name: "Physics 2e"},
		Theme: &api.SubjectTheme{
			SubjectID:    "physics",
			PrimaryColor: "#FF0000",
		},
	})

	snap := state.Get()
	if snap.Subject != "physics" {
		t.Errorf("subject = %q, want physics", snap.Subject)
	}
	if snap.Theme.Primary != lipgloss.Color("#FF0000") {
		t.Errorf("palette primary = %v, want the backend color", snap.Theme.Primary)
	}
	if theme.Primary != lipgloss.Color("#FF0000") {
		t.Error("the active styles should pick up the new palette")
	}
	if !strings.Contains(s.View(90, 24), "now studying Physics 2e") {
		t.Error("the switch notice should render")
	}
}

func TestSwitchToActiveSubjectIsNoop(t *testing.T) {
	s, state := newTestSubjects(t)
	s.Update(fixtureCatalog())

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd != nil {
		t.Error("re-selecting the active subject should not fetch anything")
	}
	if state.Get().Subject != "biology" {
		t.Error("the subject should stay put")
	}
	if !strings.Contains(s.View(90, 24), "already studying") {
		t.Error("the no-op notice should render")
	}
}

func TestThemeFailureStillSwitches(t *testing.T) {
	s, state := newTestSubjects(t)
	s.Update(fixtureCatalog())

	s.Update(tea.KeyPressMsg{Code: 'k'})
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	s.Update(themeMsg{
		Subject: api.SubjectSummary{ID: "physics", Name: "Physics 2e"},
		Err:     errors.New("theme endpoint down"),
	})

	snap := state.Get()
	if snap.Subject != "physics" {
		t.Error("a theme failure must not block the subject switch")
	}
	if snap.Theme.Primary != theme.Default().Primary {
		t.Error("colors should fall back to the defaults")
	}
	if !strings.Contains(s.View(90, 24), "theme could not load") {
		t.Error("the advisory should render")
	}
}

func TestCatalogFailureAdvisory(t *testing.T) {
	s, _ := newTestSubjects(t)

	s.Update(catalogMsg{Err: errors.New("backend down")})

	if !strings.Contains(s.View(90, 24), "backend down") {
		t.Error("the catalog failure should render")
	}
	// Keys on the error view must not panic.
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	s.Update(tea.KeyPressMsg{Code: 'j'})
}
