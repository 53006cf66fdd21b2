package types

import "time"

// User represents an account in the system.
// It contains identity, preference, and privilege metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display name.
	Name string `json:"name" db:"name"`

	// Email is the user's unique login address.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Active marks whether the account is enabled.
	Active bool `json:"active" db:"active"`

	// Remember selects the long-lived session lifetime on login
	// when the login request does not override it.
	Remember bool `json:"remember" db:"remember"`

	// Admin grants unrestricted access to every user's resources.
	Admin bool `json:"admin" db:"admin"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
