// Package audit keeps an append-only trail of membership and invitation
// changes per farm. Records answer "who gave this user access, and when"
// long after the membership rows themselves have changed.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Logger writes audit events to the database
type Logger struct {
	db *sql.DB
}

// NewLogger creates a database-backed audit logger and ensures its table
func NewLogger(db *sql.DB) (*Logger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	l := &Logger{db: db}
	if err := l.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure audit_events table: %w", err)
	}
	return l, nil
}

// ensureTable creates the audit_events table if it doesn't exist.
// The DDL is deliberately portable across sqlite and postgres.
func (l *Logger) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TIMESTAMP NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		status VARCHAR(20) NOT NULL,
		actor_id BIGINT NOT NULL,
		farm_id BIGINT NOT NULL,
		target_user_id BIGINT,
		detail TEXT,
		request_id VARCHAR(100)
	);

	CREATE INDEX IF NOT EXISTS idx_audit_events_farm_id ON audit_events(farm_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_events_actor_id ON audit_events(actor_id);
	`
	if _, err := l.db.Exec(query); err == nil {
		return nil
	}
	// Postgres rejects AUTOINCREMENT; retry with its serial form
	query = `
	CREATE TABLE IF NOT EXISTS audit_events (
		id BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		status VARCHAR(20) NOT NULL,
		actor_id BIGINT NOT NULL,
		farm_id BIGINT NOT NULL,
		target_user_id BIGINT,
		detail TEXT,
		request_id VARCHAR(100)
	);

	CREATE INDEX IF NOT EXISTS idx_audit_events_farm_id ON audit_events(farm_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_events_actor_id ON audit_events(actor_id);
	`
	_, err := l.db.Exec(query)
	return err
}

// Record appends an event. Timestamp defaults to now.
func (l *Logger) Record(ctx context.Context, event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	err := l.db.QueryRowContext(ctx, `
		INSERT INTO audit_events (timestamp, event_type, status, actor_id, farm_id, target_user_id, detail, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, event.Timestamp, event.Type, event.Status, event.ActorID,
		event.FarmID, event.TargetUserID, event.Detail, event.RequestID,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// ListForFarm returns a farm's trail, newest first
func (l *Logger) ListForFarm(ctx context.Context, farmID int64, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, timestamp, event_type, status, actor_id, farm_id, target_user_id, detail, request_id
		FROM audit_events
		WHERE farm_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`, farmID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var targetUserID sql.NullInt64
		var detail, requestID sql.NullString
		err := rows.Scan(&e.ID, &e.Timestamp, &e.Type, &e.Status, &e.ActorID,
			&e.FarmID, &targetUserID, &detail, &requestID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if targetUserID.Valid {
			id := targetUserID.Int64
			e.TargetUserID = &id
		}
		e.Detail = detail.String
		e.RequestID = requestID.String
		events = append(events, &e)
	}
	return events, rows.Err()
}
