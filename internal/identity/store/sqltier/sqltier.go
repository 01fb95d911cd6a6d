// Package sqltier stores identity keys in a SQL table. It is the durable
// tier: SQLite on a single device, PostgreSQL when the store is shared.
package sqltier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"attendance/pkg/platform/sentinel"
)

const schema = `
CREATE TABLE IF NOT EXISTS device_identity_kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at_ms BIGINT NOT NULL
)`

type Tier struct {
	db    *sql.DB
	clock func() time.Time
}

type Option func(*Tier)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(t *Tier) {
		if clock != nil {
			t.clock = clock
		}
	}
}

func New(db *sql.DB, opts ...Option) *Tier {
	t := &Tier{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// EnsureSchema creates the backing table if it does not exist.
func (t *Tier) EnsureSchema(ctx context.Context) error {
	if _, err := t.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create identity table: %w", err)
	}
	return nil
}

func (t *Tier) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := t.db.QueryRowContext(ctx, `SELECT value FROM device_identity_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return value, nil
}

func (t *Tier) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO device_identity_kv (key, value, updated_at_ms)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at_ms = excluded.updated_at_ms
	`
	if _, err := t.db.ExecContext(ctx, query, key, value, t.clock().UnixMilli()); err != nil {
		return fmt.Errorf("write %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}

func (t *Tier) Delete(ctx context.Context, key string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM device_identity_kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}
