// Package appstate holds the session state shared across screens: active
// subject and theme, the last question asked, highlight and expansion sets,
// and the proficiency mirror with its sync bookkeeping.
//
// Writes replace whole fields and a RWMutex guards cross-goroutine access, so
// background commands may write sync bookkeeping directly. That matters for
// flags like SyncInProgress: a done message only reaches the screen that is
// still active, but the command always runs.
package appstate

import (
	"sync"

	"github.com/abhisek/studiz/internal/ui/theme"
)

// Snapshot is a point-in-time copy of the shared state. Slices and maps are
// cloned both on write and on read, so holding a snapshot is always safe.
type Snapshot struct {
	Subject             string
	Theme               theme.Palette
	HighlightedConcepts []string
	LastQuery           string
	ExpandedConcepts    []string
	Proficiency         map[string]float64
	SyncInProgress      bool
	LastSyncError       error
}

// Store guards the shared snapshot.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

// New creates a store seeded with a subject and its palette.
func New(subject string, palette theme.Palette) *Store {
	return &Store{snap: Snapshot{
		Subject:     subject,
		Theme:       palette,
		Proficiency: map[string]float64{},
	}}
}

// Get returns a copy of the current state.
func (s *Store) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.HighlightedConcepts = cloneSlice(s.snap.HighlightedConcepts)
	out.ExpandedConcepts = cloneSlice(s.snap.ExpandedConcepts)
	out.Proficiency = cloneMap(s.snap.Proficiency)
	return out
}

// SetSubject switches the active subject and its palette together.
func (s *Store) SetSubject(subject string, palette theme.Palette) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Subject = subject
	s.snap.Theme = palette
}

// SetHighlightedConcepts replaces the highlight request.
func (s *Store) SetHighlightedConcepts(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.HighlightedConcepts = cloneSlice(names)
}

// SetLastQuery replaces the last submitted question.
func (s *Store) SetLastQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastQuery = q
}

// SetExpandedConcepts replaces the knowledge-graph expansion of the last query.
func (s *Store) SetExpandedConcepts(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.ExpandedConcepts = cloneSlice(names)
}

// SetProficiency replaces the whole proficiency mirror.
func (s *Store) SetProficiency(levels map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Proficiency = cloneMap(levels)
}

// SetSyncInProgress flips the outcome-sync flag.
func (s *Store) SetSyncInProgress(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.SyncInProgress = v
}

// SetSyncError records the most recent sync failure; nil clears it.
func (s *Store) SetSyncError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastSyncError = err
}

func cloneSlice(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneMap(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
