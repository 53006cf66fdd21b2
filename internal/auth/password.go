package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned for passwords bcrypt cannot hash.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

func normalizeCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

func HashPassword(password string, cost int) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), normalizeCost(cost))
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var dummyHashes sync.Map

// dummyHash is computed once per cost, so the burn matches real hashes.
func dummyHash(cost int) []byte {
	cost = normalizeCost(cost)
	if hashed, ok := dummyHashes.Load(cost); ok {
		return hashed.([]byte)
	}
	hashed, _ := bcrypt.GenerateFromPassword([]byte("orderdesk-dummy-password"), cost)
	actual, _ := dummyHashes.LoadOrStore(cost, hashed)
	return actual.([]byte)
}

// BurnCompare runs a bcrypt comparison at cost that always fails, so an
// unknown account costs the same as a wrong password.
func BurnCompare(password string, cost int) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(cost), []byte(password))
}
