package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// historyRepo implements HistoryRepo on the history table.
type historyRepo struct {
	db *sql.DB
}

func (r *historyRepo) Append(ctx context.Context, rec *HistoryRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
		rec.CreatedAt = created
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO history (question, answer, model, retrieved_count, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.Question, rec.Answer, rec.Model, rec.RetrievedCount, created)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("history insert id: %w", err)
	}
	rec.ID = id
	return nil
}

func (r *historyRepo) Recent(ctx context.Context, limit int) ([]HistoryRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, question, answer, model, retrieved_count, created_at
		FROM history
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRecord
	for rows.Next() {
		var rec HistoryRecord
		if err := rows.Scan(&rec.ID, &rec.Question, &rec.Answer, &rec.Model, &rec.RetrievedCount, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return out, nil
}

func (r *historyRepo) Prune(ctx context.Context, keep int) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM history
		WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}
