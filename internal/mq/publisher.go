package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orderdesk/apiserver/internal/clock"
	"github.com/orderdesk/apiserver/internal/logging"
	"github.com/orderdesk/apiserver/types"
)

// Sender is the publishing half of a broker.
type Sender interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Publisher turns lifecycle changes into JSON events. Failures are logged
// and swallowed; callers have already committed the change being announced.
type Publisher struct {
	sender Sender
	logger logging.Logger
	clock  clock.Clock
}

// NewPublisher returns a Publisher over sender. A nil sender disables
// publishing.
func NewPublisher(sender Sender, logger logging.Logger, clk clock.Clock) *Publisher {
	if logger == nil {
		logger = logging.Discard()
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Publisher{sender: sender, logger: logger, clock: clk}
}

func (p *Publisher) PublishOrder(ctx context.Context, eventType types.EventType, order types.Order) {
	p.publish(ctx, types.ChannelOrders, fmt.Sprintf("order-%d", order.ID), types.Event{Type: eventType, Order: &order})
}

func (p *Publisher) PublishUser(ctx context.Context, eventType types.EventType, user types.User) {
	p.publish(ctx, types.ChannelUsers, fmt.Sprintf("user-%d", user.ID), types.Event{Type: eventType, User: &user})
}

// publish keys each message by entity so one order's events stay in sequence.
func (p *Publisher) publish(ctx context.Context, channel, key string, event types.Event) {
	if p.sender == nil {
		p.logger.Debug(ctx, "event publishing disabled", "type", event.Type)
		return
	}

	event.OccurredAt = p.clock.Now().UTC()
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn(ctx, "encode event failed", "type", event.Type, "error", err)
		return
	}

	id, err := p.sender.Publish(ctx, channel, data, map[string]string{
		AttrType:        string(event.Type),
		AttrOrderingKey: key,
	})
	if err != nil {
		p.logger.Warn(ctx, "publish event failed", "channel", channel, "type", event.Type, "error", err)
		return
	}
	p.logger.Debug(ctx, "event published", "channel", channel, "type", event.Type, "message_id", id)
}
