package store

import (
	"context"

	"github.com/orderdesk/apiserver/internal/dbx"
	"github.com/orderdesk/apiserver/types"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int) error
	SetAdmin(ctx context.Context, email string, admin bool) error
}

// TokenStore defines persistence operations for issued tokens.
type TokenStore interface {
	Create(ctx context.Context, token types.Token) error
	// GetWithUser loads a token row and its owner in one lookup.
	GetWithUser(ctx context.Context, token string) (types.Token, types.User, error)
	// Deactivate clears is_active on an active token, or returns ErrNotFound.
	Deactivate(ctx context.Context, token string) error
}

// OrderStore defines persistence operations for orders.
type OrderStore interface {
	Get(ctx context.Context, id int) (types.Order, error)
	List(ctx context.Context, offset, limit int) ([]types.Order, int, error)
	ListByUser(ctx context.Context, userID, offset, limit int) ([]types.Order, int, error)
	Create(ctx context.Context, order types.Order) (types.Order, error)
	Update(ctx context.Context, order types.Order) (types.Order, error)
	Delete(ctx context.Context, id int) error
}

// Repositories binds stores to a store handle acquired by a dbx.Runner.
type Repositories interface {
	Users(q dbx.DBTX) UserStore
	Tokens(q dbx.DBTX) TokenStore
	Orders(q dbx.DBTX) OrderStore
}

// Postgres hands out the SQL-backed repositories.
type Postgres struct{}

func (Postgres) Users(q dbx.DBTX) UserStore {
	return NewUserRepository(q)
}

func (Postgres) Tokens(q dbx.DBTX) TokenStore {
	return NewTokenRepository(q)
}

func (Postgres) Orders(q dbx.DBTX) OrderStore {
	return NewOrderRepository(q)
}
