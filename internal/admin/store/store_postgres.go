package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"alumreg/internal/admin/models"
	"alumreg/pkg/domain"
	"alumreg/pkg/platform/sentinel"
)

// Schema is the admin users DDL.
const Schema = `
CREATE TABLE IF NOT EXISTS admins (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL,
	full_name     TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS admins_email_key ON admins (LOWER(email));
`

// PostgresStore persists admin users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed admin store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the admins table if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure admins schema: %w", err)
	}
	return nil
}

// Create persists an admin user.
func (s *PostgresStore) Create(ctx context.Context, admin *models.Admin) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (id, email, full_name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(admin.ID), admin.Email, admin.FullName, admin.PasswordHash, admin.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

// FindByEmail retrieves an admin by email, case-insensitively.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var (
		admin models.Admin
		id    uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, password_hash, created_at
		FROM admins WHERE LOWER(email) = LOWER($1)`, email,
	).Scan(&id, &admin.Email, &admin.FullName, &admin.PasswordHash, &admin.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	admin.ID = domain.AdminID(id)
	return &admin, nil
}
