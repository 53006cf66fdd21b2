package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a unique constraint.
var ErrConflict = errors.New("conflict")

// ErrInvalidInput is returned when a value does not fit its column.
var ErrInvalidInput = errors.New("invalid input")

const (
	uniqueViolation = "23505"
	// Class 22 covers data exceptions such as overflow and truncation.
	dataExceptionClass = "22"
)

// mapWriteError turns driver unique violations into ErrConflict and data
// exceptions into ErrInvalidInput. Both lib/pq and pgx report SQLSTATE codes.
func mapWriteError(err error) error {
	var code string
	var pqErr *pq.Error
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pqErr):
		code = string(pqErr.Code)
	case errors.As(err, &pgErr):
		code = pgErr.Code
	default:
		return err
	}

	switch {
	case code == uniqueViolation:
		return ErrConflict
	case strings.HasPrefix(code, dataExceptionClass):
		return fmt.Errorf("%w: value out of range", ErrInvalidInput)
	}
	return err
}
