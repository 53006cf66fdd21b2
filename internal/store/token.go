package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/orderdesk/apiserver/internal/dbx"
	"github.com/orderdesk/apiserver/types"
)

// TokenRepository handles persistence for issued bearer tokens.
type TokenRepository struct {
	db dbx.DBTX
}

func NewTokenRepository(db dbx.DBTX) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, token types.Token) error {
	const query = `
		INSERT INTO tokens (token, user_id, expires_at, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		token.Token,
		token.UserID,
		token.ExpiresAt,
		token.IsActive,
		token.CreatedAt,
	); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *TokenRepository) GetWithUser(ctx context.Context, token string) (types.Token, types.User, error) {
	const query = `
		SELECT t.token, t.user_id, t.expires_at, t.is_active, t.created_at,
			u.id, u.name, u.email, u.password_hash, u.active, u.remember, u.admin, u.created_at, u.updated_at
		FROM tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token = $1`

	var (
		tok  types.Token
		user types.User
	)
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&tok.Token,
		&tok.UserID,
		&tok.ExpiresAt,
		&tok.IsActive,
		&tok.CreatedAt,
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Active,
		&user.Remember,
		&user.Admin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Token{}, types.User{}, ErrNotFound
		}
		return types.Token{}, types.User{}, err
	}
	return tok, user, nil
}

func (r *TokenRepository) Deactivate(ctx context.Context, token string) error {
	const query = `UPDATE tokens SET is_active = FALSE WHERE token = $1 AND is_active = TRUE`
	result, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
