// Package audit provides the append-only action log consumed by the
// generation engine. Every guardrail block/sanitize decision and every
// cross-validation result is recorded here.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/complyforge/complyforge/errors"
)

// Event is a single audit record. Metadata is free-form and stored as JSON.
type Event struct {
	ID         string                 `json:"id"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	UserID     string                 `json:"user_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Well-known audit actions.
const (
	ActionGuardrailCheck  = "guardrail_check"
	ActionGenerateDoc     = "generate_document"
	ActionCrossValidation = "cross_validation"
)

// Sink is an append-only destination for audit events.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// SQLSink persists audit events to the audit_log table.
type SQLSink struct {
	db *sql.DB
}

// NewSQLSink creates a sink backed by the given database.
func NewSQLSink(db *sql.DB) *SQLSink {
	return &SQLSink{db: db}
}

// Record appends an event. ID and CreatedAt are filled in when empty.
func (s *SQLSink) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var metadata sql.NullString
	if event.Metadata != nil {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return errors.Wrap(err, "failed to marshal audit metadata")
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO audit_log (id, action, entity_type, entity_id, user_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.Action, event.EntityType, event.EntityID,
		event.UserID, metadata, event.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to record audit event")
	}

	return nil
}

// ActionCount holds the number of events recorded for one action.
type ActionCount struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// Stats returns per-action event counts since the given time.
func (s *SQLSink) Stats(ctx context.Context, since time.Time) ([]ActionCount, error) {
	query := `
		SELECT action, COUNT(*)
		FROM audit_log
		WHERE created_at >= ?
		GROUP BY action
		ORDER BY action`

	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query audit stats")
	}
	defer rows.Close()

	var counts []ActionCount
	for rows.Next() {
		var ac ActionCount
		if err := rows.Scan(&ac.Action, &ac.Count); err != nil {
			return nil, errors.Wrap(err, "failed to scan audit stats row")
		}
		counts = append(counts, ac)
	}
	return counts, rows.Err()
}

// ListByEntity returns events for one entity, newest first.
func (s *SQLSink) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]Event, error) {
	query := `
		SELECT id, action, entity_type, entity_id, user_id, metadata, created_at
		FROM audit_log
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, entityType, entityID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list audit events")
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var metadata sql.NullString
		if err := rows.Scan(&event.ID, &event.Action, &event.EntityType,
			&event.EntityID, &event.UserID, &metadata, &event.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan audit event")
		}
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &event.Metadata); err != nil {
				return nil, errors.Wrapf(err, "failed to unmarshal metadata for audit event %s", event.ID)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
