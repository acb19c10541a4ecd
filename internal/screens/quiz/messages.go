package quiz

import "github.com/abhisek/studiz/internal/api"

// quizReadyMsg carries the generated quiz, or the reason there is none.
type quizReadyMsg struct {
	Quiz *api.AdaptiveQuiz
	Err  error
}

// outcomeSyncedMsg reports one reconciled outcome. The ledger and shared
// state are already updated by the command; the message is display-only.
type outcomeSyncedMsg struct {
	Concept string
	Err     error
}

// recsReadyMsg carries the post-quiz recommendations.
type recsReadyMsg struct {
	Recs *api.Recommendations
	Err  error
}
