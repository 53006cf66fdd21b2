// Package worker runs background consumers of lifecycle events.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orderdesk/apiserver/internal/logging"
	"github.com/orderdesk/apiserver/internal/mq"
	"github.com/orderdesk/apiserver/internal/storage"
	"github.com/orderdesk/apiserver/types"
)

// Subscriber is the consuming half of a broker.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

// ObjectWriter is the part of object storage the archiver writes through.
type ObjectWriter interface {
	Put(ctx context.Context, obj storage.Object) error
	Delete(ctx context.Context, key string) error
}

// ReceiptArchiver mirrors order events into object storage: created and
// updated orders are written as JSON snapshots, deleted orders are removed.
type ReceiptArchiver struct {
	objects ObjectWriter
	logger  logging.Logger
}

func NewReceiptArchiver(objects ObjectWriter, logger logging.Logger) *ReceiptArchiver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ReceiptArchiver{objects: objects, logger: logger}
}

// Run consumes the orders channel until ctx is done.
func (a *ReceiptArchiver) Run(ctx context.Context, sub Subscriber) error {
	a.logger.Info(ctx, "receipt archiver started", "channel", types.ChannelOrders)
	return sub.Subscribe(ctx, types.ChannelOrders, a.Handle)
}

// Handle processes one message. Undecodable messages are dropped so they are
// not redelivered forever; storage failures are returned for redelivery.
func (a *ReceiptArchiver) Handle(ctx context.Context, msg mq.Message) error {
	var event types.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		a.logger.Warn(ctx, "dropping malformed event", "message_id", msg.ID, "error", err)
		return nil
	}
	if event.Order == nil || event.Order.ID < 1 {
		a.logger.Warn(ctx, "dropping event without order", "message_id", msg.ID, "type", event.Type)
		return nil
	}

	key := storage.ReceiptKey(event.Order.ID)
	switch event.Type {
	case types.EventOrderCreated, types.EventOrderUpdated:
		receipt, err := storage.NewReceipt(*event.Order)
		if err != nil {
			return err
		}
		if err := a.objects.Put(ctx, receipt); err != nil {
			return fmt.Errorf("write receipt %s: %w", key, err)
		}
		a.logger.Info(ctx, "receipt archived", "order_id", event.Order.ID, "key", key)
	case types.EventOrderDeleted:
		if err := a.objects.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete receipt %s: %w", key, err)
		}
		a.logger.Info(ctx, "receipt removed", "order_id", event.Order.ID, "key", key)
	default:
		a.logger.Debug(ctx, "ignoring event", "message_id", msg.ID, "type", event.Type)
	}
	return nil
}
