package consent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hl7bridge/pkg/domain"
	"hl7bridge/pkg/platform/sentinel"
)

// PostgresStore persists consent records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, record Record) error {
	query := `
		INSERT INTO consent_records (
			id, patient_id, organization_id, status, categories,
			denied_categories, policy_reference, effective_at, expires_at,
			granted_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.PatientID,
		record.OrganizationID,
		string(record.Status),
		joinCategories(record.Categories),
		joinCategories(record.DeniedCategories),
		record.PolicyReference,
		record.EffectiveAt,
		record.ExpiresAt,
		record.GrantedBy,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert consent record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindActive(ctx context.Context, patientID, organizationID string, now time.Time) (Record, error) {
	query := `
		SELECT id, patient_id, organization_id, status, categories,
			   denied_categories, policy_reference, effective_at, expires_at,
			   granted_by, created_at, revoked_at
		FROM consent_records
		WHERE patient_id = $1
		  AND organization_id = $2
		  AND status IN ('ACTIVE', 'PENDING')
		  AND effective_at <= $3
		  AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := s.db.QueryRowContext(ctx, query, patientID, organizationID, now)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, sentinel.ErrNotFound
		}
		return Record{}, fmt.Errorf("find active consent: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByPatient(ctx context.Context, patientID string) ([]Record, error) {
	query := `
		SELECT id, patient_id, organization_id, status, categories,
			   denied_categories, policy_reference, effective_at, expires_at,
			   granted_by, created_at, revoked_at
		FROM consent_records
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("query consent records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Revoke(ctx context.Context, patientID, organizationID string, revokedAt time.Time) error {
	query := `
		UPDATE consent_records
		SET status = 'REVOKED', revoked_at = $3
		WHERE patient_id = $1 AND organization_id = $2 AND status <> 'REVOKED'
	`
	result, err := s.db.ExecContext(ctx, query, patientID, organizationID, revokedAt)
	if err != nil {
		return fmt.Errorf("revoke consent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke consent: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		record     Record
		status     string
		categories string
		denied     string
		revokedAt  sql.NullTime
	)
	err := row.Scan(
		&record.ID,
		&record.PatientID,
		&record.OrganizationID,
		&status,
		&categories,
		&denied,
		&record.PolicyReference,
		&record.EffectiveAt,
		&record.ExpiresAt,
		&record.GrantedBy,
		&record.CreatedAt,
		&revokedAt,
	)
	if err != nil {
		return Record{}, err
	}
	record.Status = Status(status)
	record.Categories = splitCategories(categories)
	record.DeniedCategories = splitCategories(denied)
	if revokedAt.Valid {
		record.RevokedAt = &revokedAt.Time
	}
	return record, nil
}

func joinCategories(categories []domain.DataCategory) string {
	parts := make([]string, 0, len(categories))
	for _, c := range categories {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ",")
}

func splitCategories(value string) []domain.DataCategory {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	categories := make([]domain.DataCategory, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			categories = append(categories, domain.DataCategory(p))
		}
	}
	return categories
}
