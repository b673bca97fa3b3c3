package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsMissingTableErr reports a query against a table that was never migrated.
func IsMissingTableErr(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	// PostgreSQL (error code 42P01)
	if strings.Contains(msg, "does not exist") && strings.Contains(msg, "relation") {
		return true
	}

	// MySQL (error code 1146)
	if strings.Contains(msg, "Error 1146") {
		return true
	}

	// SQLite
	if strings.Contains(msg, "no such table") {
		return true
	}

	return false
}
