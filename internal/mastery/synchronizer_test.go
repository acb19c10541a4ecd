package mastery

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/abhisek/studiz/internal/api"
)

type mockBackend struct {
	updateResp *api.MasteryUpdate
	updateErr  error
	profile    *api.Profile
	profileErr error
	resetResp  *api.Profile
	resetErr   error

	updateCalls []string
}

func (m *mockBackend) UpdateMastery(_ context.Context, concept string, _ bool) (*api.MasteryUpdate, error) {
	m.updateCalls = append(m.updateCalls, concept)
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return m.updateResp, nil
}

func (m *mockBackend) Profile(_ context.Context) (*api.Profile, error) {
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	return m.profile, nil
}

func (m *mockBackend) ResetProfile(_ context.Context) (*api.Profile, error) {
	if m.resetErr != nil {
		return nil, m.resetErr
	}
	return m.resetResp, nil
}

func closeTo(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestSynchronizer_Mastery_Default(t *testing.T) {
	s := NewSynchronizer(&mockBackend{}, nil)

	if got := s.Mastery("Meiosis"); got != 0.3 {
		t.Fatalf("default mastery = %v, want exactly 0.3", got)
	}
	if _, ok := s.Entry("Meiosis"); ok {
		t.Fatal("reading a concept must not create a ledger entry")
	}
	if n := len(s.All()); n != 0 {
		t.Fatalf("ledger size after read = %d, want 0", n)
	}
}

func TestSynchronizer_RecordOutcome_Correct(t *testing.T) {
	s := NewSynchronizer(&mockBackend{}, nil)

	out := s.RecordOutcome("Mitosis", true)

	if out.Previous != 0.3 {
		t.Fatalf("previous = %v, want 0.3", out.Previous)
	}
	if !closeTo(out.Updated, 0.45) {
		t.Fatalf("updated = %v, want 0.45", out.Updated)
	}
	if out.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", out.Attempts)
	}

	e, ok := s.Entry("Mitosis")
	if !ok {
		t.Fatal("entry missing after outcome")
	}
	if !closeTo(e.Level, 0.45) || e.Attempts != 1 {
		t.Fatalf("entry = {%v, %d}, want {0.45, 1}", e.Level, e.Attempts)
	}
	if e.LastAssessed.IsZero() {
		t.Fatal("last-assessed timestamp not stamped")
	}
}

func TestSynchronizer_RecordOutcome_Clamps(t *testing.T) {
	tests := []struct {
		name    string
		start   float64
		correct bool
		want    float64
	}{
		{"ceiling", 0.95, true, 1.0},
		{"floor", 0.15, false, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSynchronizer(&mockBackend{}, nil)
			s.SeedEntries([]ConceptMastery{{Concept: "Osmosis", Level: tt.start}})

			out := s.RecordOutcome("Osmosis", tt.correct)
			if out.Updated != tt.want {
				t.Fatalf("updated = %v, want exactly %v", out.Updated, tt.want)
			}
		})
	}
}

func TestSynchronizer_RecordOutcome_MonotonicToCeiling(t *testing.T) {
	s := NewSynchronizer(&mockBackend{}, nil)

	for i := 0; i < 10; i++ {
		s.RecordOutcome("Diffusion", true)
	}
	if got := s.Mastery("Diffusion"); got != 1.0 {
		t.Fatalf("after 10 correct outcomes mastery = %v, want exactly 1.0", got)
	}
	e, _ := s.Entry("Diffusion")
	if e.Attempts != 10 {
		t.Fatalf("attempts = %d, want 10", e.Attempts)
	}
}

func TestSynchronizer_Reconcile_ServerValueWins(t *testing.T) {
	backend := &mockBackend{
		updateResp: &api.MasteryUpdate{
			Concept:       "Mitosis",
			NewMastery:    0.52,
			TotalAttempts: 7,
		},
	}
	s := NewSynchronizer(backend, nil)
	s.RecordOutcome("Mitosis", true)

	upd, err := s.Reconcile(context.Background(), "Mitosis", true)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if upd.NewMastery != 0.52 {
		t.Fatalf("update NewMastery = %v, want 0.52", upd.NewMastery)
	}

	e, _ := s.Entry("Mitosis")
	if e.Level != 0.52 {
		t.Fatalf("level after reconcile = %v, want server value 0.52", e.Level)
	}
	if e.Attempts != 7 {
		t.Fatalf("attempts after reconcile = %d, want server value 7", e.Attempts)
	}
}

func TestSynchronizer_Reconcile_FailureKeepsOptimistic(t *testing.T) {
	backend := &mockBackend{updateErr: errors.New("connection refused")}
	s := NewSynchronizer(backend, nil)
	s.RecordOutcome("Mitosis", true)

	_, err := s.Reconcile(context.Background(), "Mitosis", true)
	if err == nil {
		t.Fatal("Reconcile() error = nil, want sync error")
	}
	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("error type = %T, want *SyncError", err)
	}
	if syncErr.Concept != "Mitosis" {
		t.Fatalf("sync error concept = %q, want Mitosis", syncErr.Concept)
	}

	if got := s.Mastery("Mitosis"); !closeTo(got, 0.45) {
		t.Fatalf("mastery after failed sync = %v, want optimistic 0.45", got)
	}
	if s.SyncErr("Mitosis") == nil {
		t.Fatal("per-concept sync error not recorded")
	}
	if s.LastSyncErr() == nil {
		t.Fatal("last sync error not recorded")
	}
}

func TestSynchronizer_Reconcile_SuccessClearsError(t *testing.T) {
	backend := &mockBackend{updateErr: errors.New("timeout")}
	s := NewSynchronizer(backend, nil)
	s.RecordOutcome("Mitosis", true)

	if _, err := s.Reconcile(context.Background(), "Mitosis", true); err == nil {
		t.Fatal("first Reconcile() error = nil, want failure")
	}

	backend.updateErr = nil
	backend.updateResp = &api.MasteryUpdate{Concept: "Mitosis", NewMastery: 0.45, TotalAttempts: 1}
	if _, err := s.Reconcile(context.Background(), "Mitosis", true); err != nil {
		t.Fatalf("second Reconcile() error = %v", err)
	}

	if s.SyncErr("Mitosis") != nil {
		t.Fatal("per-concept sync error not cleared after success")
	}
	if s.LastSyncErr() != nil {
		t.Fatal("last sync error not cleared after success")
	}
}

func TestSynchronizer_LoadAuthoritative(t *testing.T) {
	backend := &mockBackend{
		profile: &api.Profile{
			StudentID:     "default",
			MasteryLevels: map[string]float64{"Mitosis": 0.8, "Meiosis": 0.05},
		},
	}
	s := NewSynchronizer(backend, nil)
	s.RecordOutcome("Osmosis", true)

	if err := s.LoadAuthoritative(context.Background()); err != nil {
		t.Fatalf("LoadAuthoritative() error = %v", err)
	}

	if got := s.Mastery("Mitosis"); got != 0.8 {
		t.Fatalf("Mitosis = %v, want 0.8", got)
	}
	if got := s.Mastery("Meiosis"); got != 0.1 {
		t.Fatalf("Meiosis = %v, want clamped 0.1", got)
	}
	if got := s.Mastery("Osmosis"); got != 0.3 {
		t.Fatalf("Osmosis = %v, want default after replacement", got)
	}
	e, _ := s.Entry("Mitosis")
	if e.Attempts != 0 {
		t.Fatalf("attempts after profile load = %d, want 0", e.Attempts)
	}
}

func TestSynchronizer_LoadAuthoritative_FailureLeavesLedger(t *testing.T) {
	backend := &mockBackend{profileErr: errors.New("service unavailable")}
	s := NewSynchronizer(backend, nil)
	s.RecordOutcome("Mitosis", true)

	if err := s.LoadAuthoritative(context.Background()); err == nil {
		t.Fatal("LoadAuthoritative() error = nil, want failure")
	}
	if got := s.Mastery("Mitosis"); !closeTo(got, 0.45) {
		t.Fatalf("mastery after failed load = %v, want 0.45 untouched", got)
	}
}

func TestSynchronizer_Reset(t *testing.T) {
	backend := &mockBackend{
		resetResp: &api.Profile{StudentID: "default", MasteryLevels: map[string]float64{}},
	}
	s := NewSynchronizer(backend, nil)
	s.RecordOutcome("Mitosis", true)

	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if got := s.Mastery("Mitosis"); got != 0.3 {
		t.Fatalf("mastery after reset = %v, want default 0.3", got)
	}
	if n := len(s.All()); n != 0 {
		t.Fatalf("ledger size after reset = %d, want 0", n)
	}
}

func TestSynchronizer_Reset_FailureRetainsLedger(t *testing.T) {
	backend := &mockBackend{resetErr: errors.New("forbidden")}
	s := NewSynchronizer(backend, nil)
	s.RecordOutcome("Mitosis", true)

	if err := s.Reset(context.Background()); err == nil {
		t.Fatal("Reset() error = nil, want failure")
	}
	if got := s.Mastery("Mitosis"); !closeTo(got, 0.45) {
		t.Fatalf("mastery after failed reset = %v, want 0.45 retained", got)
	}
}

func TestSynchronizer_SeedEntries(t *testing.T) {
	s := NewSynchronizer(&mockBackend{}, nil)
	s.RecordOutcome("Mitosis", true)

	stamp := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.SeedEntries([]ConceptMastery{
		{Concept: "Mitosis", Level: 0.9, Attempts: 4},
		{Concept: "Meiosis", Level: 0.6, Attempts: 2, LastAssessed: stamp},
		{Concept: "Osmosis", Level: 1.7},
	})

	if got := s.Mastery("Mitosis"); !closeTo(got, 0.45) {
		t.Fatalf("seed overwrote live entry: %v, want 0.45", got)
	}
	e, _ := s.Entry("Meiosis")
	if e.Level != 0.6 || e.Attempts != 2 || !e.LastAssessed.Equal(stamp) {
		t.Fatalf("seeded entry = %+v, want {0.6, 2, %v}", e, stamp)
	}
	if got := s.Mastery("Osmosis"); got != 1.0 {
		t.Fatalf("seeded out-of-range level = %v, want clamped 1.0", got)
	}
}

func TestSynchronizer_Entries_Sorted(t *testing.T) {
	s := NewSynchronizer(&mockBackend{}, nil)
	s.RecordOutcome("Osmosis", true)
	s.RecordOutcome("Diffusion", false)
	s.RecordOutcome("Mitosis", true)

	entries := s.Entries()
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	want := []string{"Diffusion", "Mitosis", "Osmosis"}
	for i, e := range entries {
		if e.Concept != want[i] {
			t.Fatalf("entries[%d] = %q, want %q", i, e.Concept, want[i])
		}
	}
}

func TestTargetDifficulty(t *testing.T) {
	tests := []struct {
		level float64
		want  string
	}{
		{0.1, "easy"},
		{0.39, "easy"},
		{0.4, "medium"},
		{0.7, "medium"},
		{0.71, "hard"},
		{1.0, "hard"},
	}
	for _, tt := range tests {
		if got := TargetDifficulty(tt.level); got != tt.want {
			t.Errorf("TargetDifficulty(%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}
