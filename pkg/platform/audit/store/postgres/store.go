package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "sglgb/pkg/platform/audit"
	"sglgb/pkg/platform/tx"
)

// Store implements audit.Store on the audit_events table. Appends join the
// transaction carried by ctx, so an entry commits or rolls back together
// with the assessment row it describes.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts event. Replays of the same id are ignored.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, assessment_id, unit_id, year, action,
			actor_id, actor_role, from_status, to_status, area, subject,
			detail, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := tx.Execer(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		string(event.Category),
		event.Timestamp,
		event.AssessmentID,
		event.UnitID,
		event.Year,
		event.Action,
		event.ActorID,
		event.ActorRole,
		event.FromStatus,
		event.ToStatus,
		event.Area,
		event.Subject,
		event.Detail,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByAssessment returns one assessment's entries in insertion order.
func (s *Store) ListByAssessment(ctx context.Context, assessmentID string) ([]audit.Event, error) {
	query := `
		SELECT id, category, timestamp, assessment_id, unit_id, year, action,
			   actor_id, actor_role, from_status, to_status, area, subject,
			   detail, request_id
		FROM audit_events
		WHERE assessment_id = $1
		ORDER BY seq
	`
	rows, err := tx.Execer(ctx, s.db).QueryContext(ctx, query, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			category string
			event    audit.Event
		)
		err := rows.Scan(
			&event.ID,
			&category,
			&event.Timestamp,
			&event.AssessmentID,
			&event.UnitID,
			&event.Year,
			&event.Action,
			&event.ActorID,
			&event.ActorRole,
			&event.FromStatus,
			&event.ToStatus,
			&event.Area,
			&event.Subject,
			&event.Detail,
			&event.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.Category(category)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
