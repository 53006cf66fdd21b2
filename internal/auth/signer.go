// Package auth signs and verifies bearer tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrEmptySecret          = errors.New("signing secret is empty")
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	ErrInvalidToken         = errors.New("invalid token")
)

// Claims are the verified contents of a signed token.
type Claims struct {
	UserID    int
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// Signer issues and verifies HMAC-signed JWTs.
type Signer struct {
	secret []byte
	method jwt.SigningMethod
}

// NewSigner validates the secret and algorithm once, at start-up.
func NewSigner(secret, algorithm string) (*Signer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	return &Signer{secret: []byte(secret), method: method}, nil
}

// Algorithm returns the JWT alg header value this signer uses.
func (s *Signer) Algorithm() string {
	return s.method.Alg()
}

func (s *Signer) Sign(userID int, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(s.method, claims)
	return token.SignedString(s.secret)
}

// Parse verifies the signature and expiry of tokenString as of now.
func (s *Signer) Parse(tokenString string, now time.Time) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)

	claims := jwt.RegisteredClaims{}
	token, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	userID, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || userID < 1 {
		return Claims{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	out := Claims{
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt.Time,
		ID:        claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
