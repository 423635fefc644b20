package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore appends events to the audit_events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (occurred_at, resource, resource_id, action, reason, request_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.Timestamp, event.Resource, event.ResourceID, string(event.Action), event.Reason, event.RequestID)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByResource(ctx context.Context, resource string, resourceID int64) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT occurred_at, resource, resource_id, action, reason, request_id
		FROM audit_events
		WHERE resource = $1 AND resource_id = $2
		ORDER BY id
	`, resource, resourceID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var action string
		if err := rows.Scan(&e.Timestamp, &e.Resource, &e.ResourceID, &action, &e.Reason, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = Action(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
