package services

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/orderdesk/apiserver/internal/auth"
	"github.com/orderdesk/apiserver/internal/clock"
	"github.com/orderdesk/apiserver/internal/storage"
	"github.com/orderdesk/apiserver/internal/store/memory"
	"github.com/orderdesk/apiserver/types"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testEpoch = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type recordedEvent struct {
	Type  types.EventType
	Order types.Order
	User  types.User
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) PublishOrder(_ context.Context, eventType types.EventType, order types.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Order: order})
}

func (p *fakePublisher) PublishUser(_ context.Context, eventType types.EventType, user types.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, User: user})
}

func (p *fakePublisher) eventTypes() []types.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeReceipts struct {
	objects map[string][]byte
}

func (f *fakeReceipts) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fixture struct {
	clock  *clock.Fake
	events *fakePublisher
	auth   *AuthService
	users  *UserService
	orders *OrderService
}

func newFixture(t *testing.T, receipts ReceiptReader) *fixture {
	t.Helper()
	signer, err := auth.NewSigner("test-secret", "HS256")
	require.NoError(t, err)

	db := memory.New()
	runner := memory.Runner{}
	clk := clock.NewFake(testEpoch)
	events := &fakePublisher{}

	return &fixture{
		clock:  clk,
		events: events,
		auth:   NewAuthService(runner, db, signer, clk, DefaultShortTTL, DefaultLongTTL, bcrypt.MinCost),
		users:  NewUserService(runner, db, events, bcrypt.MinCost),
		orders: NewOrderService(runner, db, events, receipts),
	}
}

func (f *fixture) signup(t *testing.T, email, password string) types.User {
	t.Helper()
	user, err := f.users.Signup(context.Background(), SignupInput{Name: "n", Email: email, Password: password})
	require.NoError(t, err)
	return user
}
