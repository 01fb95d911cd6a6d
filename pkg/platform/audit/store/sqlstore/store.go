// Package sqlstore keeps the audit trail in the same SQL database as the
// durable identity tier (SQLite locally, PostgreSQL when shared).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"attendance/pkg/platform/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	occurred_at_ms BIGINT NOT NULL,
	action TEXT NOT NULL,
	trigger_name TEXT NOT NULL,
	device_code TEXT NOT NULL,
	device_id TEXT NOT NULL,
	classification TEXT NOT NULL,
	reason TEXT NOT NULL,
	message TEXT NOT NULL,
	correlation_id TEXT NOT NULL,
	latency_ms BIGINT NOT NULL
)`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}
	return nil
}

// Append inserts event. Re-appending an event with the same ID is a no-op.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	query := `
		INSERT INTO audit_events (
			id, occurred_at_ms, action, trigger_name, device_code, device_id,
			classification, reason, message, correlation_id, latency_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Timestamp.UnixMilli(),
		string(event.Action),
		event.Trigger,
		event.DeviceCode,
		event.DeviceID,
		event.Classification,
		event.Reason,
		event.Message,
		event.CorrelationID,
		event.Latency.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByDevice(ctx context.Context, deviceID string) ([]audit.Event, error) {
	return s.query(ctx, selectColumns+` WHERE device_id = $1 ORDER BY occurred_at_ms ASC, id ASC`, deviceID)
}

// ListRecent returns the last limit events, oldest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	events, err := s.query(ctx, selectColumns+` ORDER BY occurred_at_ms DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

const selectColumns = `
	SELECT id, occurred_at_ms, action, trigger_name, device_code, device_id,
		classification, reason, message, correlation_id, latency_ms
	FROM audit_events`

func (s *Store) query(ctx context.Context, query string, args ...any) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e         audit.Event
			action    string
			occurred  int64
			latencyMs int64
		)
		if err := rows.Scan(&e.ID, &occurred, &action, &e.Trigger, &e.DeviceCode, &e.DeviceID,
			&e.Classification, &e.Reason, &e.Message, &e.CorrelationID, &latencyMs); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = audit.Action(action)
		e.Timestamp = time.UnixMilli(occurred).UTC()
		e.Latency = time.Duration(latencyMs) * time.Millisecond
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
