// Package memory is an in-process implementation of the store repositories.
// It backs DB_DRIVER=memory and the service and HTTP tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/orderdesk/apiserver/internal/dbx"
	"github.com/orderdesk/apiserver/internal/store"
	"github.com/orderdesk/apiserver/types"
)

// Store holds users, tokens and orders behind one mutex.
type Store struct {
	mu        sync.RWMutex
	users     map[int]types.User
	tokens    map[string]types.Token
	orders    map[int]types.Order
	nextUser  int
	nextOrder int
}

func New() *Store {
	return &Store{
		users:  make(map[int]types.User),
		tokens: make(map[string]types.Token),
		orders: make(map[int]types.Order),
	}
}

func (s *Store) Users(dbx.DBTX) store.UserStore   { return userStore{s} }
func (s *Store) Tokens(dbx.DBTX) store.TokenStore { return tokenStore{s} }
func (s *Store) Orders(dbx.DBTX) store.OrderStore { return orderStore{s} }

// Runner satisfies dbx.Runner without a database; fn receives a nil handle.
type Runner struct{}

func (Runner) Conn(ctx context.Context, fn func(ctx context.Context, q dbx.DBTX) error) error {
	return fn(ctx, nil)
}

func (Runner) Tx(ctx context.Context, fn func(ctx context.Context, q dbx.DBTX) error) error {
	return fn(ctx, nil)
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]T{}, items[offset:end]...)
}

type userStore struct{ s *Store }

func (u userStore) GetByID(_ context.Context, id int) (types.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	user, ok := u.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (u userStore) GetByEmail(_ context.Context, email string) (types.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	for _, user := range u.s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (u userStore) List(_ context.Context, offset, limit int) ([]types.User, int, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	all := make([]types.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		all = append(all, user)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, offset, limit), len(all), nil
}

// emailTaken reports whether another user already holds email. Callers hold mu.
func (s *Store) emailTaken(email string, exceptID int) bool {
	for _, user := range s.users {
		if user.Email == email && user.ID != exceptID {
			return true
		}
	}
	return false
}

func (u userStore) Create(_ context.Context, user types.User) (types.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.emailTaken(user.Email, 0) {
		return types.User{}, store.ErrConflict
	}
	u.s.nextUser++
	now := time.Now().UTC()
	user.ID = u.s.nextUser
	user.CreatedAt = now
	user.UpdatedAt = now
	u.s.users[user.ID] = user
	return user, nil
}

func (u userStore) Update(_ context.Context, user types.User) (types.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	current, ok := u.s.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if u.s.emailTaken(user.Email, user.ID) {
		return types.User{}, store.ErrConflict
	}
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = time.Now().UTC()
	u.s.users[user.ID] = user
	return user, nil
}

// Delete removes the user together with their tokens and orders.
func (u userStore) Delete(_ context.Context, id int) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, ok := u.s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(u.s.users, id)
	for key, tok := range u.s.tokens {
		if tok.UserID == id {
			delete(u.s.tokens, key)
		}
	}
	for key, order := range u.s.orders {
		if order.UserID == id {
			delete(u.s.orders, key)
		}
	}
	return nil
}

func (u userStore) SetAdmin(_ context.Context, email string, admin bool) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for id, user := range u.s.users {
		if user.Email == email {
			user.Admin = admin
			user.UpdatedAt = time.Now().UTC()
			u.s.users[id] = user
			return nil
		}
	}
	return store.ErrNotFound
}

type tokenStore struct{ s *Store }

func (t tokenStore) Create(_ context.Context, token types.Token) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, exists := t.s.tokens[token.Token]; exists {
		return store.ErrConflict
	}
	t.s.tokens[token.Token] = token
	return nil
}

func (t tokenStore) GetWithUser(_ context.Context, token string) (types.Token, types.User, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	tok, ok := t.s.tokens[token]
	if !ok {
		return types.Token{}, types.User{}, store.ErrNotFound
	}
	user, ok := t.s.users[tok.UserID]
	if !ok {
		return types.Token{}, types.User{}, store.ErrNotFound
	}
	return tok, user, nil
}

func (t tokenStore) Deactivate(_ context.Context, token string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	tok, ok := t.s.tokens[token]
	if !ok || !tok.IsActive {
		return store.ErrNotFound
	}
	tok.IsActive = false
	t.s.tokens[token] = tok
	return nil
}

type orderStore struct{ s *Store }

func (o orderStore) Get(_ context.Context, id int) (types.Order, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	order, ok := o.s.orders[id]
	if !ok {
		return types.Order{}, store.ErrNotFound
	}
	return order, nil
}

func (o orderStore) List(_ context.Context, offset, limit int) ([]types.Order, int, error) {
	return o.filter(func(types.Order) bool { return true }, offset, limit)
}

func (o orderStore) ListByUser(_ context.Context, userID, offset, limit int) ([]types.Order, int, error) {
	return o.filter(func(order types.Order) bool { return order.UserID == userID }, offset, limit)
}

func (o orderStore) filter(keep func(types.Order) bool, offset, limit int) ([]types.Order, int, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	var all []types.Order
	for _, order := range o.s.orders {
		if keep(order) {
			all = append(all, order)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, offset, limit), len(all), nil
}

func (o orderStore) Create(_ context.Context, order types.Order) (types.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if _, ok := o.s.users[order.UserID]; !ok {
		return types.Order{}, store.ErrNotFound
	}
	o.s.nextOrder++
	now := time.Now().UTC()
	order.ID = o.s.nextOrder
	order.CreatedAt = now
	order.UpdatedAt = now
	o.s.orders[order.ID] = order
	return order, nil
}

func (o orderStore) Update(_ context.Context, order types.Order) (types.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	current, ok := o.s.orders[order.ID]
	if !ok {
		return types.Order{}, store.ErrNotFound
	}
	order.UserID = current.UserID
	order.CreatedAt = current.CreatedAt
	order.UpdatedAt = time.Now().UTC()
	o.s.orders[order.ID] = order
	return order, nil
}

func (o orderStore) Delete(_ context.Context, id int) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if _, ok := o.s.orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(o.s.orders, id)
	return nil
}
