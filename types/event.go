package types

import "time"

// Channels events are published on.
const (
	ChannelOrders = "orders"
	ChannelUsers  = "users"
)

// EventType names a lifecycle change.
type EventType string

const (
	EventOrderCreated EventType = "order.created"
	EventOrderUpdated EventType = "order.updated"
	EventOrderDeleted EventType = "order.deleted"
	EventUserCreated  EventType = "user.created"
	EventUserDeleted  EventType = "user.deleted"
)

// Event is the JSON payload published for order and user lifecycle changes.
// Exactly one of Order or User is set, matching the channel.
type Event struct {
	Type       EventType `json:"type"`
	Order      *Order    `json:"order,omitempty"`
	User       *User     `json:"user,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
