package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/orderdesk/apiserver/internal/dbx"
	"github.com/orderdesk/apiserver/types"
)

const orderColumns = `id, user_id, item, quantity, price, created_at, updated_at`

// OrderRepository handles persistence for orders.
type OrderRepository struct {
	db dbx.DBTX
}

func NewOrderRepository(db dbx.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func scanOrder(row rowScanner) (types.Order, error) {
	var order types.Order
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Item,
		&order.Quantity,
		&order.Price,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	return order, err
}

func (r *OrderRepository) Get(ctx context.Context, id int) (types.Order, error) {
	const query = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1`
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Order{}, ErrNotFound
		}
		return types.Order{}, mapWriteError(err)
	}
	return order, nil
}

func (r *OrderRepository) List(ctx context.Context, offset, limit int) ([]types.Order, int, error) {
	const countQuery = `SELECT COUNT(1) FROM orders`
	const listQuery = `
		SELECT ` + orderColumns + `
		FROM orders
		ORDER BY id
		OFFSET $1 LIMIT $2`
	return r.list(ctx, countQuery, listQuery, nil, offset, limit)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID, offset, limit int) ([]types.Order, int, error) {
	const countQuery = `SELECT COUNT(1) FROM orders WHERE user_id = $1`
	const listQuery = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY id
		OFFSET $2 LIMIT $3`
	return r.list(ctx, countQuery, listQuery, []any{userID}, offset, limit)
}

func (r *OrderRepository) list(ctx context.Context, countQuery, listQuery string, filter []any, offset, limit int) ([]types.Order, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, filter...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args := append(append([]any{}, filter...), offset, limit)
	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]types.Order, 0, limit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *OrderRepository) Create(ctx context.Context, order types.Order) (types.Order, error) {
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	const query = `
		INSERT INTO orders (user_id, item, quantity, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		order.UserID,
		order.Item,
		order.Quantity,
		order.Price,
		order.CreatedAt,
		order.UpdatedAt,
	).Scan(&order.ID); err != nil {
		return types.Order{}, mapWriteError(err)
	}
	return order, nil
}

func (r *OrderRepository) Update(ctx context.Context, order types.Order) (types.Order, error) {
	order.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE orders
		SET item = $1,
			quantity = $2,
			price = $3,
			updated_at = $4
		WHERE id = $5
		RETURNING user_id, created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		order.Item,
		order.Quantity,
		order.Price,
		order.UpdatedAt,
		order.ID,
	).Scan(&order.UserID, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Order{}, ErrNotFound
		}
		return types.Order{}, err
	}
	return order, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM orders WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
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
