package services

import (
	"errors"

	"github.com/orderdesk/apiserver/internal/store"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized covers every reason a bearer token is rejected.
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	// ErrAlreadyInvalid is returned when revoking a token that is unknown or already revoked.
	ErrAlreadyInvalid       = errors.New("token already invalid")
	ErrConfirmationRequired = errors.New("confirmation required")

	ErrNotFound     = store.ErrNotFound
	ErrConflict     = store.ErrConflict
	ErrInvalidInput = store.ErrInvalidInput
)
