package store

import (
	"context"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil database handle")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here. It is tested with file-based DBs.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	for _, table := range []string{"mastery", "history", "prefs"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestMasteryRepo_UpsertAndAll(t *testing.T) {
	s := openTestStore(t)
	repo := s.MasteryRepo()
	ctx := context.Background()

	records, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("all (empty): %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("fresh store has %d mastery records", len(records))
	}

	assessed := time.Now().UTC().Truncate(time.Second)
	err = repo.Upsert(ctx, MasteryRecord{
		Concept:      "Mitosis",
		Level:        0.45,
		Attempts:     1,
		LastAssessed: &assessed,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Upsert(ctx, MasteryRecord{Concept: "Meiosis", Level: 0.3}); err != nil {
		t.Fatalf("upsert second: %v", err)
	}

	records, err = repo.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	// Ordered by concept name.
	if records[0].Concept != "Meiosis" || records[1].Concept != "Mitosis" {
		t.Fatalf("order = [%s %s], want [Meiosis Mitosis]", records[0].Concept, records[1].Concept)
	}
	if records[0].LastAssessed != nil {
		t.Error("Meiosis has a last-assessed timestamp, want nil")
	}
	got := records[1]
	if got.Level != 0.45 || got.Attempts != 1 {
		t.Fatalf("Mitosis = {%v, %d}, want {0.45, 1}", got.Level, got.Attempts)
	}
	if got.LastAssessed == nil || !got.LastAssessed.Equal(assessed) {
		t.Fatalf("Mitosis last-assessed = %v, want %v", got.LastAssessed, assessed)
	}
}

func TestMasteryRepo_UpsertReplaces(t *testing.T) {
	s := openTestStore(t)
	repo := s.MasteryRepo()
	ctx := context.Background()

	if err := repo.Upsert(ctx, MasteryRecord{Concept: "Osmosis", Level: 0.3, Attempts: 1}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Upsert(ctx, MasteryRecord{Concept: "Osmosis", Level: 0.45, Attempts: 2}); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	records, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Level != 0.45 || records[0].Attempts != 2 {
		t.Fatalf("record = {%v, %d}, want {0.45, 2}", records[0].Level, records[0].Attempts)
	}
}

func TestMasteryRepo_Clear(t *testing.T) {
	s := openTestStore(t)
	repo := s.MasteryRepo()
	ctx := context.Background()

	if err := repo.Upsert(ctx, MasteryRecord{Concept: "Mitosis", Level: 0.45}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	records, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("len(records) after clear = %d, want 0", len(records))
	}
}

func TestHistoryRepo_AppendAndRecent(t *testing.T) {
	s := openTestStore(t)
	repo := s.HistoryRepo()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, q := range []string{"What is DNA?", "What is RNA?", "What is ATP?"} {
		rec := HistoryRecord{
			Question:       q,
			Answer:         "an answer",
			Model:          "m1",
			RetrievedCount: i,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Append(ctx, &rec); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if rec.ID == 0 {
			t.Fatalf("append %d left ID unset", i)
		}
	}

	recent, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[0].Question != "What is ATP?" || recent[1].Question != "What is RNA?" {
		t.Fatalf("recent order = [%s, %s], want newest first", recent[0].Question, recent[1].Question)
	}
}

func TestHistoryRepo_Prune(t *testing.T) {
	s := openTestStore(t)
	repo := s.HistoryRepo()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		rec := HistoryRecord{Question: "q", Answer: "a"}
		if err := repo.Append(ctx, &rec); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	if err := repo.Prune(ctx, 5); err != nil {
		t.Fatalf("prune: %v", err)
	}

	recent, err := repo.Recent(ctx, 100)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 5 {
		t.Fatalf("remaining history = %d, want 5", len(recent))
	}

	// Prune with fewer rows than keep is a no-op.
	if err := repo.Prune(ctx, 50); err != nil {
		t.Fatalf("prune noop: %v", err)
	}
	recent, err = repo.Recent(ctx, 100)
	if err != nil {
		t.Fatalf("recent after noop: %v", err)
	}
	if len(recent) != 5 {
		t.Fatalf("remaining history after noop prune = %d, want 5", len(recent))
	}
}

func TestPrefsRepo_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.PrefsRepo()
	ctx := context.Background()

	if _, ok, err := repo.Get(ctx, PrefSubject); err != nil || ok {
		t.Fatalf("get missing pref = ok %v err %v, want absent", ok, err)
	}

	if err := repo.Set(ctx, PrefSubject, "biology"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.Set(ctx, PrefSubject, "chemistry"); err != nil {
		t.Fatalf("set again: %v", err)
	}

	value, ok, err := repo.Get(ctx, PrefSubject)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || value != "chemistry" {
		t.Fatalf("get = (%q, %v), want latest value", value, ok)
	}

	if err := repo.Delete(ctx, PrefSubject); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := repo.Get(ctx, PrefSubject); ok {
		t.Fatal("pref still present after delete")
	}
}
