package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// prefsRepo implements PrefsRepo on the prefs table.
type prefsRepo struct {
	db *sql.DB
}

func (r *prefsRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO prefs (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("set pref %q: %w", key, err)
	}
	return nil
}

func (r *prefsRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get pref %q: %w", key, err)
	}
	return value, true, nil
}

func (r *prefsRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM prefs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete pref %q: %w", key, err)
	}
	return nil
}
