package persistence

import (
	"errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a row does not exist or no longer matches
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert violates a unique constraint
	ErrDuplicate = errors.New("record already exists")
)

// isUniqueViolation recognizes unique constraint errors from both drivers
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
