package quiz

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/studiz/internal/api"
	"github.com/abhisek/studiz/internal/appstate"
	"github.com/abhisek/studiz/internal/mastery"
	"github.com/abhisek/studiz/internal/ui/theme"
)

// stubBackend grades like the real backend: same deltas, same clamp. Tests
// override update or updateErr to force drift or failure.
type stubBackend struct {
	update    *api.MasteryUpdate
	updateErr error

	levels   map[string]float64
	attempts map[string]int
	updates  []string
}

func (b *stubBackend) UpdateMastery(_ context.Context, concept string, correct bool) (*api.MasteryUpdate, error) {
	b.updates = append(b.updates, concept)
	if b.updateErr != nil {
		return nil, b.updateErr
	}
	if b.update != nil {
		return b.update, nil
	}

	if b.levels == nil {
		b.levels = map[string]float64{}
		b.attempts = map[string]int{}
	}
	prev, ok := b.levels[concept]
	if !ok {
		prev = mastery.DefaultLevel
	}
	next := prev - mastery.IncorrectDelta
	if correct {
		next = prev + mastery.CorrectDelta
	}
	if next < mastery.FloorLevel {
		next = mastery.FloorLevel
	}
	if next > mastery.CeilLevel {
		next = mastery.CeilLevel
	}
	b.levels[concept] = next
	b.attempts[concept]++
	return &api.MasteryUpdate{
		Concept:          concept,
		PreviousMastery:  prev,
		NewMastery:       next,
		TargetDifficulty: mastery.TargetDifficulty(next),
		TotalAttempts:    b.attempts[concept],
	}, nil
}

func (b *stubBackend) Profile(_ context.Context) (*api.Profile, error) {
	return &api.Profile{MasteryLevels: b.levels}, nil
}

func (b *stubBackend) ResetProfile(_ context.Context) (*api.Profile, error) {
	b.levels = map[string]float64{}
	return &api.Profile{MasteryLevels: b.levels}, nil
}

func newTestQuiz(t *testing.T, backend *stubBackend) (*QuizScreen, *mastery.Synchronizer, *appstate.Store) {
	t.Helper()
	client, err := api.New(api.Options{BaseURL: "http://127.0.0.1:9", StudentID: "tester"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	sync := mastery.NewSynchronizer(backend, nil)
	state := appstate.New("biology", theme.Default())
	return New(client, sync, state, nil, nil), sync, state
}

func fixtureQuiz() *api.AdaptiveQuiz {
	return &api.AdaptiveQuiz{
		Quiz: api.Quiz{
			ID:    "quiz-1",
			Title: "Photosynthesis check",
			Questions: []api.QuizQuestion{
				{
					ID:   "q1",
					Text: "Where do the light reactions happen?",
					Options: []api.QuizOption{
						{ID: "a", Text: "Thylakoid membrane"},
						{ID: "b", Text: "Stroma"},
						{ID: "c", Text: "Cell wall"},
					},
					CorrectOptionID: "a",
					Explanation:     "The light reactions run on the thylakoid membrane.",
					RelatedConcept:  "Light Reactions",
				},
				{
					ID:   "q2",
					Text: "Which pigment absorbs the light?",
					Options: []api.QuizOption{
						{ID: "a", Text: "Keratin"},
						{ID: "b", Text: "Chlorophyll"},
					},
					CorrectOptionID: "b",
					Explanation:     "Chlorophyll absorbs red and blue wavelengths.",
					RelatedConcept:  "Chlorophyll",
				},
			},
		},
		StudentMastery:   0.3,
		TargetDifficulty: "easy",
		Adapted:          true,
	}
}

// startFixture drives the screen from the topic prompt into the first
// question without running the fetch command.
func startFixture(t *testing.T, s *QuizScreen, quiz *api.AdaptiveQuiz) {
	t.Helper()
	s.input.Model.SetValue("photosynthesis")
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("submitting a topic should start the fetch")
	}
	s.Update(quizReadyMsg{Quiz: quiz})
	if s.phase != phaseQuestion {
		t.Fatalf("phase after quizReadyMsg = %v, want phaseQuestion", s.phase)
	}
}

// answer presses a number key and, when the grade kicks off a reconcile,
// runs it to completion.
func answer(t *testing.T, s *QuizScreen, key rune) {
	t.Helper()
	_, cmd := s.Update(tea.KeyPressMsg{Code: key})
	if cmd == nil {
		t.Fatalf("answering with %q should start the reconcile", key)
	}
	s.Update(cmd())
}

func closeTo(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestEmptyTopicIgnored(t *testing.T) {
	s, _, _ := newTestQuiz(t, &stubBackend{})

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd != nil {
		t.Error("an empty topic should not start a fetch")
	}
	if s.phase != phaseTopic {
		t.Error("the screen should stay on the topic prompt")
	}
}

func TestQuizReadyShowsFirstQuestion(t *testing.T) {
	s, _, _ := newTestQuiz(t, &stubBackend{})
	startFixture(t, s, fixtureQuiz())

	view := s.View(100, 30)
	if !strings.Contains(view, "Where do the light reactions happen?") {
		t.Error("the first question should render")
	}
	if !strings.Contains(view, "question 1 of 2") {
		t.Error("the progress marker should render")
	}
	if !strings.Contains(view, "targeting easy") {
		t.Error("an adapted quiz should show its difficulty banner")
	}
}

func TestGenerationFailureReturnsToTopic(t *testing.T) {
	s, _, _ := newTestQuiz(t, &stubBackend{})
	s.input.Model.SetValue("photosynthesis")
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})

	s.Update(quizReadyMsg{Err: errors.New("backend down")})

	if s.phase != phaseTopic {
		t.Error("a failed fetch should fall back to the topic prompt")
	}
	if !strings.Contains(s.View(100, 30), "backend down") {
		t.Error("the failure should be visible on the prompt")
	}
}

func TestEmptyQuizReturnsToTopic(t *testing.T) {
	s, _, _ := newTestQuiz(t, &stubBackend{})
	s.input.Model.SetValue("photosynthesis")
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})

	s.Update(quizReadyMsg{Quiz: &api.AdaptiveQuiz{}})

	if s.phase != phaseTopic {
		t.Error("an empty quiz should fall back to the topic prompt")
	}
	if !strings.Contains(s.View(100, 30), "empty quiz") {
		t.Error("the empty-quiz advisory should render")
	}
}

func TestCorrectAnswerRaisesMastery(t *testing.T) {
	s, sync, state := newTestQuiz(t, &stubBackend{})
	startFixture(t, s, fixtureQuiz())

	answer(t, s, '1')

	if got := sync.Mastery("Light Reactions"); !closeTo(got, 0.45) {
		t.Errorf("mastery after a correct answer = %v, want 0.45", got)
	}
	if got := state.Get().Proficiency["Light Reactions"]; !closeTo(got, 0.45) {
		t.Errorf("shared proficiency = %v, want 0.45", got)
	}
	if state.Get().SyncInProgress {
		t.Error("the sync flag should clear once the reconcile lands")
	}

	view := s.View(100, 30)
	if !strings.Contains(view, "✓ Correct") {
		t.Error("feedback should confirm the answer")
	}
	if !strings.Contains(view, "thylakoid membrane") {
		t.Error("feedback should show the explanation")
	}
	if !strings.Contains(view, "30% → 45%") {
		t.Error("feedback should show the mastery movement")
	}
}

func TestWrongAnswerLowersMastery(t *testing.T) {
	s, sync, _ := newTestQuiz(t, &stubBackend{})
	startFixture(t, s, fixtureQuiz())

	answer(t, s, '2')

	if got := sync.Mastery("Light Reactions"); !closeTo(got, 0.2) {
		t.Errorf("mastery after a wrong answer = %v, want 0.2", got)
	}
	view := s.View(100, 30)
	if !strings.Contains(view, "✗ Not quite") {
		t.Error("feedback should flag the miss")
	}
	if !strings.Contains(view, "30% → 20%") {
		t.Error("feedback should show the drop")
	}
}

func TestReconcileFailureKeepsOptimisticValue(t *testing.T) {
	backend := &stubBackend{updateErr: errors.New("timeout")}
	s, sync, state := newTestQuiz(t, backend)
	startFixture(t, s, fixtureQuiz())

	answer(t, s, '1')

	if got := sync.Mastery("Light Reactions"); !closeTo(got, 0.45) {
		t.Errorf("mastery after a failed sync = %v, want the optimistic 0.45", got)
	}
	if state.Get().LastSyncError == nil {
		t.Error("the failure should land in shared state")
	}
	if sync.SyncErr("Light Reactions") == nil {
		t.Error("the concept should carry a sync error")
	}
	if state.Get().SyncInProgress {
		t.Error("the sync flag should clear even on failure")
	}
	if s.phase != phaseFeedback {
		t.Error("a sync failure must not interrupt the quiz")
	}
}

func TestServerValueWinsOnReconcile(t *testing.T) {
	backend := &stubBackend{update: &api.MasteryUpdate{
		Concept:       "Light Reactions",
		NewMastery:    0.6,
		TotalAttempts: 7,
	}}
	s, sync, state := newTestQuiz(t, backend)
	startFixture(t, s, fixtureQuiz())

	answer(t, s, '1')

	if got := sync.Mastery("Light Reactions"); !closeTo(got, 0.6) {
		t.Errorf("mastery after reconcile = %v, want the server's 0.6", got)
	}
	if got := state.Get().Proficiency["Light Reactions"]; !closeTo(got, 0.6) {
		t.Errorf("shared proficiency = %v, want 0.6", got)
	}
}

func TestFeedbackAdvances(t *testing.T) {
	s, _, _ := newTestQuiz(t, &stubBackend{})
	startFixture(t, s, fixtureQuiz())
	answer(t, s, '1')

	s.Update(tea.KeyPressMsg{Code: ' '})

	if s.phase != phaseQuestion {
		t.Fatal("any key should dismiss the feedback")
	}
	if !strings.Contains(s.View(100, 30), "Which pigment absorbs the light?") {
		t.Error("the second question should render")
	}
}

func TestNumberKeyOutOfRangeDoesNothing(t *testing.T) {
	s, _, _ := newTestQuiz(t, &stubBackend{})
	startFixture(t, s, fixtureQuiz())

	_, cmd := s.Update(tea.KeyPressMsg{Code: '6'})
	if cmd != nil {
		t.Error("a number past the option count should not grade")
	}
	if s.phase != phaseQuestion {
		t.Error("the question should stay open")
	}
}

func TestResultsAfterLastQuestion(t *testing.T) {
	s, _, _ := newTestQuiz(t, &stubBackend{})
	startFixture(t, s, fixtureQuiz())

	answer(t, s, '1')
	_, cmd := s.Update(tea.KeyPressMsg{Code: ' '})
	if cmd != nil {
		t.Fatal("advancing mid-quiz should not fetch anything")
	}
	answer(t, s, '1') // wrong: q2's correct option is "b"
	_, cmd = s.Update(tea.KeyPressMsg{Code: ' '})

	if s.phase != phaseResults {
		t.Fatal("the last feedback should land on results")
	}
	if cmd == nil {
		t.Fatal("results should kick off the recommendation fetch")
	}
	view := s.View(100, 30)
	if !strings.Contains(view, "You got 1 of 2") {
		t.Error("the score line should render")
	}
	if !strings.Contains(view, "working out what to study next") {
		t.Error("the pending marker should render until recommendations land")
	}
}

func TestRecommendationsRendered(t *testing.T) {
	s, _, _ := newTestQuiz(t, &stubBackend{})
	startFixture(t, s, fixtureQuiz())
	answer(t, s, '1')
	s.Update(tea.KeyPressMsg{Code: ' '})
	answer(t, s, '1')
	s.Update(tea.KeyPressMsg{Code: ' '})

	s.Update(recsReadyMsg{Recs: &api.Recommendations{
		PathType: "mixed",
		Summary:  "Solid on the light reactions, shaky on pigments.",
		Remediation: []api.RemediationBlock{{
			Concept: "Chlorophyll",
			Prerequisites: []api.ConceptRecommendation{
				{Name: "Pigments", Mastery: 0.2},
			},
			ReadingMaterials: []api.ReadingMaterial{{Text: "...", Section: "8.2 Pigments"}},
		}},
		Advancement: []api.AdvancementBlock{{
			Concept: "Light Reactions",
			AdvancedTopics: []api.ConceptRecommendation{
				{Name: "Photosystem II"},
			},
		}},
	}})

	view := s.View(100, 40)
	for _, want := range []string{
		"Solid on the light reactions",
		"Shore up Chlorophyll",
		"Pigments (20%)",
		"reread 8.2 Pigments",
		"Push further on Light Reactions",
		"Photosystem II",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("results should contain %q", want)
		}
	}
}

func TestRecommendationFailureAdvisory(t *testing.T) {
	s, _, _ := newTestQuiz(t, &stubBackend{})
	startFixture(t, s, fixtureQuiz())
	answer(t, s, '1')
	s.Update(tea.KeyPressMsg{Code: ' '})
	answer(t, s, '2')
	s.Update(tea.KeyPressMsg{Code: ' '})

	s.Update(recsReadyMsg{Err: errors.New("backend down")})

	if !strings.Contains(s.View(100, 30), "recommendations unavailable") {
		t.Error("the advisory should render in place of recommendations")
	}
}

func TestRetryKeepsTopic(t *testing.T) {
	s, _, _ := newTestQuiz(t, &stubBackend{})
	startFixture(t, s, fixtureQuiz())
	answer(t, s, '1')
	s.Update(tea.KeyPressMsg{Code: ' '})
	answer(t, s, '2')
	s.Update(tea.KeyPressMsg{Code: ' '})

	_, cmd := s.Update(tea.KeyPressMsg{Code: 'r'})

	if s.phase != phaseLoading {
		t.Error("r should start another round")
	}
	if cmd == nil {
		t.Error("the retry should fetch a fresh quiz")
	}
	if s.topic != "photosynthesis" {
		t.Errorf("topic = %q, want the previous one", s.topic)
	}
}

func TestNewTopicResetsPrompt(t *testing.T) {
	s, _, _ := newTestQuiz(t, &stubBackend{})
	startFixture(t, s, fixtureQuiz())
	answer(t, s, '1')
	s.Update(tea.KeyPressMsg{Code: ' '})
	answer(t, s, '2')
	s.Update(tea.KeyPressMsg{Code: ' '})

	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})

	if s.phase != phaseTopic {
		t.Error("enter should return to the topic prompt")
	}
	if s.input.Value() != "" {
		t.Error("the prompt should come back empty")
	}
	if len(s.answers) != 0 {
		t.Error("old answers should not leak into the next round")
	}
}

func TestConceptFallsBackToTopic(t *testing.T) {
	quiz := fixtureQuiz()
	quiz.Questions = quiz.Questions[:1]
	quiz.Questions[0].RelatedConcept = ""

	backend := &stubBackend{}
	s, sync, _ := newTestQuiz(t, backend)
	startFixture(t, s, quiz)

	answer(t, s, '1')

	if got := sync.Mastery("photosynthesis"); !closeTo(got, 0.45) {
		t.Errorf("mastery keyed by topic = %v, want 0.45", got)
	}
	if backend.updates[0] != "photosynthesis" {
		t.Errorf("reconcile concept = %q, want the topic", backend.updates[0])
	}
}
