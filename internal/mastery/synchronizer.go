// Package mastery tracks per-concept proficiency. Graded outcomes apply
// optimistically to a local ledger so the UI never waits on the network; each
// outcome is then reconciled against the backend, whose value wins on success.
package mastery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/studiz/internal/api"
)

// Ledger constants mirror the backend's update algorithm, so the optimistic
// value and the authoritative one agree in the common case.
const (
	// DefaultLevel is the proficiency reported for a concept that has never
	// been practiced or loaded. It means "no data yet", not a measured low.
	DefaultLevel = 0.3

	// CorrectDelta is added for a correct outcome.
	CorrectDelta = 0.15

	// IncorrectDelta is subtracted for an incorrect outcome.
	IncorrectDelta = 0.10

	// FloorLevel and CeilLevel bound every stored value.
	FloorLevel = 0.1
	CeilLevel  = 1.0
)

// SyncError records a reconciliation failure. It is kept in state for
// advisory display and never interrupts the practice flow.
type SyncError struct {
	Concept string
	Err     error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("mastery sync for %q failed: %v", e.Concept, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Backend is the slice of the tutor API the synchronizer needs.
type Backend interface {
	UpdateMastery(ctx context.Context, concept string, correct bool) (*api.MasteryUpdate, error)
	Profile(ctx context.Context) (*api.Profile, error)
	ResetProfile(ctx context.Context) (*api.Profile, error)
}

// ConceptMastery is one ledger entry, created lazily on the first outcome
// for a concept.
type ConceptMastery struct {
	Concept      string
	Level        float64
	Attempts     int
	LastAssessed time.Time
}

// Outcome reports one optimistic ledger update.
type Outcome struct {
	Concept  string
	Correct  bool
	Previous float64
	Updated  float64
	Attempts int
}

// Synchronizer is the client-side proficiency ledger. Safe for concurrent
// use: reads happen on the program loop while reconciliation runs in
// background commands.
type Synchronizer struct {
	mu      sync.RWMutex
	backend Backend
	logger  *zap.Logger
	entries map[string]*ConceptMastery
	errs    map[string]*SyncError
	lastErr *SyncError
}

// NewSynchronizer creates an empty ledger. A nil logger disables logging.
func NewSynchronizer(backend Backend, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{
		backend: backend,
		logger:  logger,
		entries: make(map[string]*ConceptMastery),
		errs:    make(map[string]*SyncError),
	}
}

// Mastery returns the current local level for a concept. Concepts never
// practiced or loaded report exactly DefaultLevel, without creating an entry.
func (s *Synchronizer) Mastery(concept string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[concept]; ok {
		return e.Level
	}
	return DefaultLevel
}

// Entry returns a copy of the ledger entry for a concept.
func (s *Synchronizer) Entry(concept string) (ConceptMastery, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[concept]; ok {
		return *e, true
	}
	return ConceptMastery{}, false
}

// All returns the concept-to-level map, a copy.
func (s *Synchronizer) All() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.entries))
	for concept, e := range s.entries {
		out[concept] = e.Level
	}
	return out
}

// Entries returns all ledger entries sorted by concept name.
func (s *Synchronizer) Entries() []ConceptMastery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ConceptMastery, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Concept < out[j].Concept })
	return out
}

// RecordOutcome applies one graded outcome optimistically: delta, clamp,
// attempt count and timestamp, all before any network activity. Pair it with
// Reconcile for the backend half.
func (s *Synchronizer) RecordOutcome(concept string, correct bool) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[concept]
	if !ok {
		e = &ConceptMastery{Concept: concept, Level: DefaultLevel}
		s.entries[concept] = e
	}

	prev := e.Level
	next := prev - IncorrectDelta
	if correct {
		next = prev + CorrectDelta
	}
	e.Level = clamp(next)
	e.Attempts++
	e.LastAssessed = time.Now()

	s.logger.Debug("outcome recorded",
		zap.String("concept", concept),
		zap.Bool("correct", correct),
		zap.Float64("previous", prev),
		zap.Float64("updated", e.Level))

	return Outcome{
		Concept:  concept,
		Correct:  correct,
		Previous: prev,
		Updated:  e.Level,
		Attempts: e.Attempts,
	}
}

// Reconcile reports one outcome to the backend. On success the server's level
// and attempt count overwrite the local ones, even if they drifted from the
// optimistic update, and any sync error for the concept clears. On failure
// the optimistic value stands and the failure is recorded; there is no
// automatic retry.
func (s *Synchronizer) Reconcile(ctx context.Context, concept string, correct bool) (*api.MasteryUpdate, error) {
	upd, err := s.backend.UpdateMastery(ctx, concept, correct)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		syncErr := &SyncError{Concept: concept, Err: err}
		s.errs[concept] = syncErr
		s.lastErr = syncErr
		s.logger.Warn("mastery sync failed", zap.String("concept", concept), zap.Error(err))
		return nil, syncErr
	}

	e, ok := s.entries[concept]
	if !ok {
		e = &ConceptMastery{Concept: concept}
		s.entries[concept] = e
	}
	e.Level = clamp(upd.NewMastery)
	e.Attempts = upd.TotalAttempts
	delete(s.errs, concept)
	if s.lastErr != nil && s.lastErr.Concept == concept {
		s.lastErr = nil
	}
	return upd, nil
}

// LoadAuthoritative replaces the whole ledger with the backend's profile.
// The profile payload carries levels only, so attempt counts restart at zero.
// On failure the local ledger is untouched and the fetch error is returned
// for advisory display.
func (s *Synchronizer) LoadAuthoritative(ctx context.Context) error {
	p, err := s.backend.Profile(ctx)
	if err != nil {
		return err
	}
	s.replaceLevels(p.MasteryLevels)
	s.logger.Debug("authoritative mastery loaded", zap.Int("concepts", len(p.MasteryLevels)))
	return nil
}

// Reset wipes mastery on the backend and then locally. The local ledger is
// only cleared after the backend confirms.
func (s *Synchronizer) Reset(ctx context.Context) error {
	p, err := s.backend.ResetProfile(ctx)
	if err != nil {
		return err
	}
	s.replaceLevels(p.MasteryLevels)
	return nil
}

// SeedEntries primes the ledger with persisted entries, for startup display
// before LoadAuthoritative completes. Existing entries are kept.
func (s *Synchronizer) SeedEntries(entries []ConceptMastery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if _, ok := s.entries[e.Concept]; ok {
			continue
		}
		seeded := e
		seeded.Level = clamp(e.Level)
		s.entries[e.Concept] = &seeded
	}
}

// SyncErr returns the recorded sync failure for a concept, or nil.
func (s *Synchronizer) SyncErr(concept string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.errs[concept]; ok {
		return e
	}
	return nil
}

// LastSyncErr returns the most recent unresolved sync failure, or nil.
func (s *Synchronizer) LastSyncErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastErr == nil {
		return nil
	}
	return s.lastErr
}

// ClearLastSyncErr dismisses the advisory without touching per-concept state.
func (s *Synchronizer) ClearLastSyncErr() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
}

func (s *Synchronizer) replaceLevels(levels map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh := make(map[string]*ConceptMastery, len(levels))
	for concept, level := range levels {
		fresh[concept] = &ConceptMastery{Concept: concept, Level: clamp(level)}
	}
	s.entries = fresh
}

func clamp(v float64) float64 {
	if v < FloorLevel {
		return FloorLevel
	}
	if v > CeilLevel {
		return CeilLevel
	}
	return v
}

// TargetDifficulty maps a mastery level to the backend's difficulty bands.
func TargetDifficulty(level float64) string {
	switch {
	case level < 0.4:
		return "easy"
	case level <= 0.7:
		return "medium"
	default:
		return "hard"
	}
}
