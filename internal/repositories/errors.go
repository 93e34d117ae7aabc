package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when an insert violates a uniqueness
	// constraint. The engagement service depends on this signal for the
	// like toggle; every other caller must propagate it as a conflict.
	ErrDuplicateKey = errors.New("duplicate key violation")
)

// IsNotFoundError reports whether err represents a missing record, either
// from this package or from the underlying gorm layer.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err represents a uniqueness violation.
// It understands gorm's translated error as well as the raw PostgreSQL
// unique_violation code, so detection does not depend on driver settings.
func IsDuplicateError(err error) bool {
	if errors.Is(err, ErrDuplicateKey) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
