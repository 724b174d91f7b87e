package models

import (
	"time"

	"alumreg/pkg/domain"
)

// Admin is one HR dashboard user. Password hashes never leave this package's
// consumers; the JSON tag keeps them out of every response.
type Admin struct {
	ID           domain.AdminID `json:"id"`
	Email        string         `json:"email"`
	FullName     string         `json:"full_name"`
	PasswordHash string         `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
}
