package storage

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a summary already exists for the same tenant and period
	ErrDuplicateKey = errors.New("duplicate key")
)

// isUniqueViolation checks if the error is a SQLite unique constraint violation
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
