// Package secrets handles admin credential hashing.
package secrets

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hash derives a bcrypt hash from a plaintext password.
func Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Verify reports whether the plaintext matches the stored hash.
func Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
