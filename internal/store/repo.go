package store

import (
	"context"
	"time"
)

// MasteryRecord mirrors one ledger entry. LastAssessed stays nil for
// entries loaded from a backend profile, which carries levels only.
type MasteryRecord struct {
	Concept      string
	Level        float64
	Attempts     int
	LastAssessed *time.Time
	UpdatedAt    time.Time
}

// MasteryRepo mirrors the in-memory mastery ledger so the next start can
// show proficiency before the backend answers.
type MasteryRepo interface {
	// Upsert writes one record, replacing any existing row for the concept.
	Upsert(ctx context.Context, rec MasteryRecord) error

	// All returns every record, ordered by concept name.
	All(ctx context.Context) ([]MasteryRecord, error)

	// Clear removes every record, after a profile reset.
	Clear(ctx context.Context) error
}

// HistoryRecord is one finished question/answer exchange.
type HistoryRecord struct {
	ID             int64
	Question       string
	Answer         string
	Model          string
	RetrievedCount int
	CreatedAt      time.Time
}

// HistoryRepo keeps recent exchanges for replay on the home screen.
type HistoryRepo interface {
	// Append stores a finished exchange and fills in its ID.
	Append(ctx context.Context, rec *HistoryRecord) error

	// Recent returns up to limit exchanges, newest first.
	Recent(ctx context.Context, limit int) ([]HistoryRecord, error)

	// Prune deletes all but the keep most recent exchanges.
	Prune(ctx context.Context, keep int) error
}

// PrefsRepo stores small key/value preferences such as the selected
// subject and the last query.
type PrefsRepo interface {
	// Set writes one preference, replacing any existing value.
	Set(ctx context.Context, key, value string) error

	// Get reads one preference. The bool reports whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Delete removes one preference if present.
	Delete(ctx context.Context, key string) error
}

// Preference keys used by the application.
const (
	PrefSubject = "subject"
)
