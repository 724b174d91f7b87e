package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"alumreg/internal/audit/models"
	"alumreg/pkg/domain"
)

// Schema is the audit trail DDL. No UPDATE or DELETE is ever issued against
// this table.
const Schema = `
CREATE TABLE IF NOT EXISTS registration_audit (
	id              UUID PRIMARY KEY,
	registration_id UUID NOT NULL,
	action          TEXT NOT NULL,
	actor           TEXT NOT NULL DEFAULT '',
	prev_status     TEXT NOT NULL DEFAULT '',
	new_status      TEXT NOT NULL DEFAULT '',
	reason          TEXT NOT NULL DEFAULT '',
	notes           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS registration_audit_registration_idx
	ON registration_audit (registration_id, created_at);
`

// PostgresStore persists audit entries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the audit table and index if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

// Append records an entry.
func (s *PostgresStore) Append(ctx context.Context, entry *models.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registration_audit
			(id, registration_id, action, actor, prev_status, new_status, reason, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, uuid.UUID(entry.RegistrationID), string(entry.Action), entry.Actor,
		entry.PrevStatus, entry.NewStatus, entry.Reason, entry.Notes, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByRegistration returns a registration's trail, oldest first.
func (s *PostgresStore) ListByRegistration(ctx context.Context, id domain.RegistrationID) ([]*models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, registration_id, action, actor, prev_status, new_status, reason, notes, created_at
		FROM registration_audit
		WHERE registration_id = $1
		ORDER BY created_at ASC`,
		uuid.UUID(id),
	)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var result []*models.Entry
	for rows.Next() {
		var (
			e      models.Entry
			entID  uuid.UUID
			regID  uuid.UUID
			action string
		)
		if err := rows.Scan(&entID, &regID, &action, &e.Actor,
			&e.PrevStatus, &e.NewStatus, &e.Reason, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ID = entID
		e.RegistrationID = domain.RegistrationID(regID)
		e.Action = models.Action(action)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return result, nil
}
