package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// PostgresStore persists audit events in PostgreSQL. The table is
// insert-only; no update statement exists anywhere in this package.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	var details []byte
	if len(event.Details) > 0 {
		var err error
		details, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_events (
			id, actor_id, action, resource_type, resource_id,
			outcome, timestamp, request_id, details
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.ActorID,
		event.Action,
		event.ResourceType,
		event.ResourceID,
		string(event.Outcome),
		event.Timestamp,
		event.RequestID,
		details,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, query Query) ([]Event, error) {
	sqlQuery := `
		SELECT id, actor_id, action, resource_type, resource_id,
			   outcome, timestamp, request_id, details
		FROM audit_events
	`
	var (
		conditions []string
		args       []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, clause+"$"+strconv.Itoa(len(args)))
	}
	if query.ActorID != "" {
		add("actor_id = ", query.ActorID)
	}
	if query.Action != "" {
		add("action = ", query.Action)
	}
	if query.Outcome != "" {
		add("outcome = ", string(query.Outcome))
	}
	if !query.From.IsZero() {
		add("timestamp >= ", query.From)
	}
	if !query.To.IsZero() {
		add("timestamp <= ", query.To)
	}
	if !query.Since.IsZero() {
		add("timestamp > ", query.Since)
	}
	for i, c := range conditions {
		if i == 0 {
			sqlQuery += " WHERE " + c
		} else {
			sqlQuery += " AND " + c
		}
	}
	sqlQuery += " ORDER BY timestamp DESC"
	if query.Limit > 0 {
		args = append(args, query.Limit)
		sqlQuery += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event   Event
			outcome string
			details []byte
		)
		err := rows.Scan(
			&event.ID,
			&event.ActorID,
			&event.Action,
			&event.ResourceType,
			&event.ResourceID,
			&outcome,
			&event.Timestamp,
			&event.RequestID,
			&details,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Outcome = Outcome(outcome)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &event.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_events WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	return purged, nil
}
