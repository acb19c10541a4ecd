// Package quiz runs adaptive practice: the backend builds a quiz targeted at
// the student's mastery of a topic, every graded answer updates the ledger
// optimistically and reconciles in the background, and the results close with
// remediation or advancement recommendations.
package quiz

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/abhisek/studiz/internal/api"
	"github.com/abhisek/studiz/internal/appstate"
	"github.com/abhisek/studiz/internal/mastery"
	"github.com/abhisek/studiz/internal/screen"
	"github.com/abhisek/studiz/internal/store"
	"github.com/abhisek/studiz/internal/ui/components"
	"github.com/abhisek/studiz/internal/ui/layout"
)

const (
	questionCount = 5
	fetchTimeout  = 30 * time.Second
	syncTimeout   = 10 * time.Second
)

type phase int

const (
	phaseTopic phase = iota
	phaseLoading
	phaseQuestion
	phaseFeedback
	phaseResults
)

// answered is one graded question, kept for the results view and the
// recommendation request.
type answered struct {
	question api.QuizQuestion
	chosen   int
	correct  bool
	outcome  mastery.Outcome
}

// QuizScreen drives one practice round.
type QuizScreen struct {
	client *api.Client
	sync   *mastery.Synchronizer
	state  *appstate.Store
	db     *store.Store
	logger *zap.Logger

	phase   phase
	topic   string
	input   components.TextInput
	quiz    *api.AdaptiveQuiz
	current int
	mc      components.MultiChoice
	answers []answered
	errMsg  string

	recs        *api.Recommendations
	recsPending bool
	recsErr     string
	recsScroll  int
}

var _ screen.Screen = (*QuizScreen)(nil)
var _ screen.KeyHintProvider = (*QuizScreen)(nil)

// New creates the quiz screen on its topic prompt. db may be nil; graded
// outcomes then skip the cache mirror.
func New(client *api.Client, sync *mastery.Synchronizer, state *appstate.Store, db *store.Store, logger *zap.Logger) *QuizScreen {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizScreen{
		client: client,
		sync:   sync,
		state:  state,
		db:     db,
		logger: logger,
		input:  components.NewTextInput("Topic to practice...", false, 60),
	}
}

func (s *QuizScreen) Init() tea.Cmd {
	return s.input.Init()
}

func (s *QuizScreen) Title() string {
	return "Quiz"
}

func (s *QuizScreen) KeyHints() []layout.KeyHint {
	switch s.phase {
	case phaseTopic:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Start"},
			{Key: "Esc", Description: "Back"},
		}
	case phaseQuestion:
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Choose"},
			{Key: "1-4", Description: "Answer"},
			{Key: "Enter", Description: "Submit"},
		}
	case phaseFeedback:
		return []layout.KeyHint{
			{Key: "any key", Description: "Continue"},
		}
	case phaseResults:
		return []layout.KeyHint{
			{Key: "r", Description: "Same topic"},
			{Key: "Enter", Description: "New topic"},
			{Key: "Esc", Description: "Back"},
		}
	}
	return nil
}

func (s *QuizScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case quizReadyMsg:
		s.handleQuizReady(msg)
		return s, nil

	case outcomeSyncedMsg:
		if msg.Err != nil {
			s.logger.Debug("outcome sync deferred", zap.String("concept", msg.Concept))
		}
		return s, nil

	case recsReadyMsg:
		s.handleRecsReady(msg)
		return s, nil

	case tea.KeyMsg:
		return s, s.handleKey(msg)
	}

	if s.phase == phaseTopic {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *QuizScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch s.phase {
	case phaseTopic:
		if msg.String() == "enter" {
			return s.startQuiz(strings.TrimSpace(s.input.Value()))
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return cmd

	case phaseQuestion:
		return s.handleQuestionKey(msg)

	case phaseFeedback:
		return s.advance()

	case phaseResults:
		return s.handleResultsKey(msg)
	}
	return nil
}

func (s *QuizScreen) handleQuestionKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()

	// Number keys answer directly.
	if len(key) == 1 && key[0] >= '1' && key[0] <= '6' {
		idx := int(key[0] - '1')
		if idx < len(s.mc.Options) {
			s.mc.Selected = idx
			s.mc, _ = s.mc.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
			return s.grade()
		}
		return nil
	}

	s.mc, _ = s.mc.Update(msg)
	if s.mc.Submitted {
		return s.grade()
	}
	return nil
}

func (s *QuizScreen) handleResultsKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		s.resetToTopic()
		return s.input.Init()
	case "r":
		return s.startQuiz(s.topic)
	case "up", "k":
		if s.recsScroll > 0 {
			s.recsScroll--
		}
	case "down", "j":
		s.recsScroll++
	}
	return nil
}

func (s *QuizScreen) startQuiz(topic string) tea.Cmd {
	if topic == "" {
		return nil
	}
	s.topic = topic
	s.phase = phaseLoading
	s.errMsg = ""
	s.quiz = nil
	s.answers = nil
	s.recs = nil
	s.recsErr = ""
	s.recsScroll = 0

	client := s.client
	subject := s.state.Get().Subject
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		quiz, err := client.AdaptiveQuiz(ctx, topic, questionCount, subject)
		return quizReadyMsg{Quiz: quiz, Err: err}
	}
}

func (s *QuizScreen) handleQuizReady(msg quizReadyMsg) {
	if msg.Err != nil {
		s.phase = phaseTopic
		s.errMsg = msg.Err.Error()
		s.logger.Warn("quiz generation failed",
			zap.String("topic", s.topic), zap.Error(msg.Err))
		return
	}
	if len(msg.Quiz.Questions) == 0 {
		s.phase = phaseTopic
		s.errMsg = "the backend returned an empty quiz for this topic"
		return
	}

	s.quiz = msg.Quiz
	s.current = 0
	s.phase = phaseQuestion
	s.loadQuestion()
	s.logger.Debug("quiz started",
		zap.String("topic", s.topic),
		zap.Int("questions", len(msg.Quiz.Questions)),
		zap.String("difficulty", msg.Quiz.TargetDifficulty))
}

func (s *QuizScreen) loadQuestion() {
	q := s.quiz.Questions[s.current]
	options := make([]string, len(q.Options))
	correct := -1
	for i, opt := range q.Options {
		options[i] = opt.Text
		if opt.ID == q.CorrectOptionID {
			correct = i
		}
	}
	s.mc = components.NewMultiChoice(q.Text, options, correct)
}

// grade applies the chosen answer: the ledger moves optimistically on the
// program loop, then the outcome reconciles against the backend in the
// background. A failed reconcile keeps the optimistic value and surfaces as
// a sync advisory, never as an interruption.
func (s *QuizScreen) grade() tea.Cmd {
	q := s.quiz.Questions[s.current]
	correct := s.mc.IsCorrect()
	concept := q.RelatedConcept
	if concept == "" {
		concept = s.topic
	}

	out := s.sync.RecordOutcome(concept, correct)
	s.state.SetProficiency(s.sync.All())
	s.state.SetSyncInProgress(true)
	s.answers = append(s.answers, answered{
		question: q,
		chosen:   s.mc.ChosenIndex,
		correct:  correct,
		outcome:  out,
	})
	s.phase = phaseFeedback

	syncer, state, db, logger := s.sync, s.state, s.db, s.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		defer state.SetSyncInProgress(false)

		_, err := syncer.Reconcile(ctx, concept, correct)
		state.SetProficiency(syncer.All())
		state.SetSyncError(syncer.LastSyncErr())
		mirrorEntry(ctx, db, syncer, concept, logger)
		return outcomeSyncedMsg{Concept: concept, Err: err}
	}
}

// advance moves past the feedback overlay.
func (s *QuizScreen) advance() tea.Cmd {
	s.current++
	if s.current >= len(s.quiz.Questions) {
		return s.finish()
	}
	s.phase = phaseQuestion
	s.loadQuestion()
	return nil
}

func (s *QuizScreen) finish() tea.Cmd {
	s.phase = phaseResults
	s.recsPending = true

	results := make([]api.QuizQuestionResult, 0, len(s.answers))
	for _, a := range s.answers {
		results = append(results, api.QuizQuestionResult{
			QuestionID:     a.question.ID,
			RelatedConcept: a.question.RelatedConcept,
			Correct:        a.correct,
		})
	}
	req := api.RecommendationRequest{
		Topic:           s.topic,
		QuestionResults: results,
		StudentID:       s.client.StudentID(),
		Subject:         s.state.Get().Subject,
	}

	client := s.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		recs, err := client.QuizRecommendations(ctx, req)
		return recsReadyMsg{Recs: recs, Err: err}
	}
}

func (s *QuizScreen) handleRecsReady(msg recsReadyMsg) {
	s.recsPending = false
	if msg.Err != nil {
		s.recsErr = msg.Err.Error()
		s.logger.Warn("recommendations unavailable", zap.Error(msg.Err))
		return
	}
	s.recs = msg.Recs
}

func (s *QuizScreen) resetToTopic() {
	s.phase = phaseTopic
	s.input.Reset()
	s.quiz = nil
	s.answers = nil
	s.errMsg = ""
	s.recs = nil
	s.recsErr = ""
	s.recsScroll = 0
}

func (s *QuizScreen) score() (correct, total int) {
	for _, a := range s.answers {
		if a.correct {
			correct++
		}
	}
	return correct, len(s.answers)
}

var errNoEntry = errors.New("no ledger entry")

// mirrorEntry persists one concept's ledger entry after an outcome.
func mirrorEntry(ctx context.Context, db *store.Store, syncer *mastery.Synchronizer, concept string, logger *zap.Logger) {
	if db == nil {
		return
	}
	e, ok := syncer.Entry(concept)
	if !ok {
		logger.Warn("mastery cache write skipped",
			zap.String("concept", concept), zap.Error(errNoEntry))
		return
	}
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
	if err := db.MasteryRepo().Upsert(ctx, rec); err != nil {
		logger.Warn("mastery cache write failed",
			zap.String("concept", concept), zap.Error(err))
	}
}
