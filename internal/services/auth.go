package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/orderdesk/apiserver/internal/auth"
	"github.com/orderdesk/apiserver/internal/clock"
	"github.com/orderdesk/apiserver/internal/dbx"
	"github.com/orderdesk/apiserver/internal/store"
	"github.com/orderdesk/apiserver/types"
)

// Default token lifetimes.
const (
	DefaultShortTTL = 30 * time.Minute
	DefaultLongTTL  = 30 * 24 * time.Hour
)

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      types.User
}

// AuthService authenticates users and manages the bearer tokens issued to them.
type AuthService struct {
	runner   dbx.Runner
	repos    store.Repositories
	signer   *auth.Signer
	clock    clock.Clock
	shortTTL time.Duration
	longTTL  time.Duration
	// bcryptCost matches the unknown-account burn to real password hashes.
	bcryptCost int
}

func NewAuthService(runner dbx.Runner, repos store.Repositories, signer *auth.Signer, clk clock.Clock, shortTTL, longTTL time.Duration, bcryptCost int) *AuthService {
	if clk == nil {
		clk = clock.Real()
	}
	if shortTTL <= 0 {
		shortTTL = DefaultShortTTL
	}
	if longTTL <= 0 {
		longTTL = DefaultLongTTL
	}
	return &AuthService{
		runner:     runner,
		repos:      repos,
		signer:     signer,
		clock:      clk,
		shortTTL:   shortTTL,
		longTTL:    longTTL,
		bcryptCost: bcryptCost,
	}
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate returns the user owning email if password matches their hash.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	var user types.User
	err := s.runner.Conn(ctx, func(ctx context.Context, q dbx.DBTX) error {
		var err error
		user, err = s.repos.Users(q).GetByEmail(ctx, NormalizeEmail(email))
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			auth.BurnCompare(password, s.bcryptCost)
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, fmt.Errorf("load user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Issue signs and persists a new token for userID.
func (s *AuthService) Issue(ctx context.Context, userID int, remember bool) (types.Token, error) {
	// JWT times have second precision; truncating keeps exp and expires_at identical.
	issuedAt := s.clock.Now().UTC().Truncate(time.Second)
	ttl := s.shortTTL
	if remember {
		ttl = s.longTTL
	}
	expiresAt := issuedAt.Add(ttl)

	signed, err := s.signer.Sign(userID, issuedAt, expiresAt)
	if err != nil {
		return types.Token{}, fmt.Errorf("sign token: %w", err)
	}

	token := types.Token{
		Token:     signed,
		UserID:    userID,
		ExpiresAt: expiresAt,
		IsActive:  true,
		CreatedAt: issuedAt,
	}
	err = s.runner.Conn(ctx, func(ctx context.Context, q dbx.DBTX) error {
		return s.repos.Tokens(q).Create(ctx, token)
	})
	if err != nil {
		return types.Token{}, fmt.Errorf("store token: %w", err)
	}
	return token, nil
}

// Login authenticates and issues a token. A nil remember falls back to the
// user's stored preference.
func (s *AuthService) Login(ctx context.Context, email, password string, remember *bool) (LoginResult, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return LoginResult{}, err
	}

	longLived := user.Remember
	if remember != nil {
		longLived = *remember
	}

	token, err := s.Issue(ctx, user.ID, longLived)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token.Token, ExpiresAt: token.ExpiresAt, User: user}, nil
}

// Validate resolves a bearer token to its user. Every rejection is ErrUnauthorized.
func (s *AuthService) Validate(ctx context.Context, token string) (types.User, error) {
	now := s.clock.Now()
	claims, err := s.signer.Parse(token, now)
	if err != nil {
		return types.User{}, ErrUnauthorized
	}

	var (
		row  types.Token
		user types.User
	)
	err = s.runner.Conn(ctx, func(ctx context.Context, q dbx.DBTX) error {
		var err error
		row, user, err = s.repos.Tokens(q).GetWithUser(ctx, token)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUnauthorized
		}
		return types.User{}, fmt.Errorf("load token: %w", err)
	}

	if !row.Valid(now) || claims.UserID != user.ID {
		return types.User{}, ErrUnauthorized
	}
	return user, nil
}

// Revoke deactivates token permanently. Revoking an unknown or already
// revoked token returns ErrAlreadyInvalid.
func (s *AuthService) Revoke(ctx context.Context, token string) error {
	err := s.runner.Conn(ctx, func(ctx context.Context, q dbx.DBTX) error {
		return s.repos.Tokens(q).Deactivate(ctx, token)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAlreadyInvalid
		}
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.Revoke(ctx, token)
}
