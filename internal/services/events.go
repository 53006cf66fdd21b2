package services

import (
	"context"

	"github.com/orderdesk/apiserver/types"
)

// EventPublisher announces lifecycle changes after the store write succeeded.
// Implementations handle their own failures; a lost event never fails a request.
type EventPublisher interface {
	PublishOrder(ctx context.Context, eventType types.EventType, order types.Order)
	PublishUser(ctx context.Context, eventType types.EventType, user types.User)
}

type nopPublisher struct{}

func (nopPublisher) PublishOrder(context.Context, types.EventType, types.Order) {}
func (nopPublisher) PublishUser(context.Context, types.EventType, types.User)   {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
