package types

import "time"

// Order is a single purchased item placed by a user.
type Order struct {
	// ID is the unique identifier of the order.
	ID int `json:"id" db:"id"`

	// UserID identifies the user who owns the order.
	UserID int `json:"user_id" db:"user_id"`

	// Item is the identifier of the ordered product.
	Item string `json:"item" db:"item"`

	// Quantity is the number of units ordered. Never negative.
	Quantity int `json:"quantity" db:"quantity"`

	// Price is the unit price. Never negative.
	Price float64 `json:"price" db:"price"`

	// CreatedAt is the timestamp when the order was placed.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent change to the order.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
