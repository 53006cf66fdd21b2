package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/orderdesk/apiserver/internal/dbx"
	"github.com/orderdesk/apiserver/internal/storage"
	"github.com/orderdesk/apiserver/internal/store"
	"github.com/orderdesk/apiserver/types"
)

const (
	maxItemLength = 100
	// maxQuantity is the largest value the INTEGER column holds.
	maxQuantity = math.MaxInt32
)

// OrderInput carries the mutable fields of an order.
type OrderInput struct {
	Item     string
	Quantity int
	Price    float64
}

func (in OrderInput) validate() error {
	item := strings.TrimSpace(in.Item)
	switch {
	case item == "":
		return fmt.Errorf("%w: item is required", ErrInvalidInput)
	case utf8.RuneCountInString(item) > maxItemLength:
		return fmt.Errorf("%w: item is too long", ErrInvalidInput)
	case in.Quantity < 0:
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	case in.Quantity > maxQuantity:
		return fmt.Errorf("%w: quantity is out of range", ErrInvalidInput)
	case in.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	return nil
}

// ReceiptReader opens archived order receipts.
type ReceiptReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// OrderService encapsulates order use-cases.
type OrderService struct {
	runner   dbx.Runner
	repos    store.Repositories
	events   EventPublisher
	receipts ReceiptReader
}

// NewOrderService builds the service. receipts may be nil when no object
// storage is configured.
func NewOrderService(runner dbx.Runner, repos store.Repositories, events EventPublisher, receipts ReceiptReader) *OrderService {
	return &OrderService{
		runner:   runner,
		repos:    repos,
		events:   publisherOrNop(events),
		receipts: receipts,
	}
}

// Create places an order owned by actor.
func (s *OrderService) Create(ctx context.Context, actor types.User, in OrderInput) (types.Order, error) {
	if err := in.validate(); err != nil {
		return types.Order{}, err
	}

	var order types.Order
	err := s.runner.Conn(ctx, func(ctx context.Context, q dbx.DBTX) error {
		var err error
		order, err = s.repos.Orders(q).Create(ctx, types.Order{
			UserID:   actor.ID,
			Item:     strings.TrimSpace(in.Item),
			Quantity: in.Quantity,
			Price:    in.Price,
		})
		return err
	})
	if err != nil {
		return types.Order{}, err
	}

	s.events.PublishOrder(ctx, types.EventOrderCreated, order)
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, actor types.User, id int) (types.Order, error) {
	var order types.Order
	err := s.runner.Conn(ctx, func(ctx context.Context, q dbx.DBTX) error {
		var err error
		order, err = s.repos.Orders(q).Get(ctx, id)
		return err
	})
	if err != nil {
		return types.Order{}, err
	}
	if err := Authorize(actor, order.UserID); err != nil {
		return types.Order{}, err
	}
	return order, nil
}

// List returns every order to admins and only their own to everyone else.
func (s *OrderService) List(ctx context.Context, actor types.User, offset, limit int) (Page[types.Order], error) {
	if actor.Admin {
		return s.list(ctx, offset, limit, func(orders store.OrderStore, offset, limit int) ([]types.Order, int, error) {
			return orders.List(ctx, offset, limit)
		})
	}
	return s.ListMine(ctx, actor, offset, limit)
}

// ListMine returns actor's own orders regardless of role.
func (s *OrderService) ListMine(ctx context.Context, actor types.User, offset, limit int) (Page[types.Order], error) {
	return s.list(ctx, offset, limit, func(orders store.OrderStore, offset, limit int) ([]types.Order, int, error) {
		return orders.ListByUser(ctx, actor.ID, offset, limit)
	})
}

func (s *OrderService) list(ctx context.Context, offset, limit int, fetch func(store.OrderStore, int, int) ([]types.Order, int, error)) (Page[types.Order], error) {
	offset, limit = clampPage(offset, limit)
	page := Page[types.Order]{Limit: limit, Offset: offset}
	err := s.runner.Conn(ctx, func(ctx context.Context, q dbx.DBTX) error {
		var err error
		page.Items, page.Total, err = fetch(s.repos.Orders(q), offset, limit)
		return err
	})
	if err != nil {
		return Page[types.Order]{}, err
	}
	return page, nil
}

// Update replaces item, quantity and price. The owner never changes.
func (s *OrderService) Update(ctx context.Context, actor types.User, id int, in OrderInput) (types.Order, error) {
	if err := in.validate(); err != nil {
		return types.Order{}, err
	}

	var order types.Order
	err := s.runner.Tx(ctx, func(ctx context.Context, q dbx.DBTX) error {
		orders := s.repos.Orders(q)
		current, err := orders.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := Authorize(actor, current.UserID); err != nil {
			return err
		}

		current.Item = strings.TrimSpace(in.Item)
		current.Quantity = in.Quantity
		current.Price = in.Price
		order, err = orders.Update(ctx, current)
		return err
	})
	if err != nil {
		return types.Order{}, err
	}

	s.events.PublishOrder(ctx, types.EventOrderUpdated, order)
	return order, nil
}

func (s *OrderService) Delete(ctx context.Context, actor types.User, id int) error {
	var order types.Order
	err := s.runner.Tx(ctx, func(ctx context.Context, q dbx.DBTX) error {
		orders := s.repos.Orders(q)
		var err error
		order, err = orders.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := Authorize(actor, order.UserID); err != nil {
			return err
		}
		return orders.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.events.PublishOrder(ctx, types.EventOrderDeleted, order)
	return nil
}

// Receipt opens the archived snapshot of an order the actor may read.
func (s *OrderService) Receipt(ctx context.Context, actor types.User, id int) (io.ReadCloser, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	if s.receipts == nil {
		return nil, ErrNotFound
	}

	rc, err := s.receipts.Get(ctx, storage.ReceiptKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open receipt: %w", err)
	}
	return rc, nil
}
