package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Sentinel errors returned by EntityService operations. Anything not covered
// here (connectivity, timeouts) is wrapped and propagated as-is.
var (
	// ErrNotFound is returned when an operation references an id that does
	// not exist in storage.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a uniqueness constraint is violated.
	ErrConflict = errors.New("unique constraint violated")

	// ErrForeignKey is returned when a record references a missing parent.
	ErrForeignKey = errors.New("foreign key constraint violated")
)

// Postgres error codes, used when GORM's error translation does not cover
// the driver in use.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translate maps driver/ORM errors onto the store error taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %v", ErrForeignKey, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %v", ErrForeignKey, err)
		}
	}

	return err
}
