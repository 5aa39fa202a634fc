package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"goldroom/internal/application/port"
	"goldroom/internal/domain"
	"goldroom/internal/infrastructure/storage"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r, err := NewWithDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// NewWithDB wraps an open handle and runs the migration.
func NewWithDB(db *sql.DB) (*Repo, error) {
	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS state_kv (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
	return err
}

func (r *Repo) LoadState(ctx context.Context) (*domain.PersistedState, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM state_kv`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	kv := make(map[string]string, len(storage.Keys))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		kv[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return storage.Decode(kv)
}

func (r *Repo) SaveState(ctx context.Context, st *domain.PersistedState) error {
	kv, err := storage.Encode(st)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, k := range storage.Keys {
		if _, err := tx.ExecContext(ctx, `INSERT INTO state_kv(key, value, updated_at) VALUES($1, $2, now())
ON CONFLICT(key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, k, kv[k]); err != nil {
			return fmt.Errorf("upsert %s: %w", k, err)
		}
	}
	return tx.Commit()
}

var _ port.StateRepository = (*Repo)(nil)
