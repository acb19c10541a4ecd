package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// masteryRepo implements MasteryRepo on the mastery table.
type masteryRepo struct {
	db *sql.DB
}

func (r *masteryRepo) Upsert(ctx context.Context, rec MasteryRecord) error {
	var last sql.NullTime
	if rec.LastAssessed != nil {
		last = sql.NullTime{Time: *rec.LastAssessed, Valid: true}
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mastery (concept, level, attempts, last_assessed, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(concept) DO UPDATE SET
			level = excluded.level,
			attempts = excluded.attempts,
			last_assessed = excluded.last_assessed,
			updated_at = excluded.updated_at`,
		rec.Concept, rec.Level, rec.Attempts, last, updated)
	if err != nil {
		return fmt.Errorf("upsert mastery %q: %w", rec.Concept, err)
	}
	return nil
}

func (r *masteryRepo) All(ctx context.Context) ([]MasteryRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT concept, level, attempts, last_assessed, updated_at
		FROM mastery
		ORDER BY concept`)
	if err != nil {
		return nil, fmt.Errorf("query mastery: %w", err)
	}
	defer rows.Close()

	var out []MasteryRecord
	for rows.Next() {
		var rec MasteryRecord
		var last sql.NullTime
		if err := rows.Scan(&rec.Concept, &rec.Level, &rec.Attempts, &last, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan mastery row: %w", err)
		}
		if last.Valid {
			t := last.Time
			rec.LastAssessed = &t
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mastery rows: %w", err)
	}
	return out, nil
}

func (r *masteryRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM mastery`); err != nil {
		return fmt.Errorf("clear mastery: %w", err)
	}
	return nil
}
