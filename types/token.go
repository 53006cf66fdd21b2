package types

import "time"

// Token is a persisted bearer credential issued on login.
type Token struct {
	// Token is the literal signed string handed to the client.
	Token string `json:"-" db:"token"`

	// UserID identifies the user the credential was issued to.
	UserID int `json:"user_id" db:"user_id"`

	// ExpiresAt is the instant after which the credential is rejected.
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`

	// IsActive is cleared on logout.
	IsActive bool `json:"is_active" db:"is_active"`

	// CreatedAt is the timestamp when the credential was issued.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Valid reports whether the credential is active and unexpired at now.
func (t Token) Valid(now time.Time) bool {
	return t.IsActive && t.ExpiresAt.After(now)
}
