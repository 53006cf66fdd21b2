package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

const rabbitAppID = "orderdesk"

// RabbitMQClient publishes to and consumes from queues on the default
// exchange, one queue per logical channel. Publishing shares one AMQP
// channel under a mutex; each subscription opens its own.
type RabbitMQClient struct {
	conn   *amqp.Connection
	cfg    config.RabbitMQConfig
	pubMu  sync.Mutex
	pubCh  *amqp.Channel
	queues sync.Map
}

func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	pubCh, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &RabbitMQClient{conn: conn, cfg: cfg, pubCh: pubCh}, nil
}

// Publish copies attrs into headers; the event type is also set as the AMQP
// type property and the ordering key as the correlation id.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Transient,
		MessageId:     uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		AppId:         rabbitAppID,
		Type:          attrs[AttrType],
		CorrelationId: attrs[AttrOrderingKey],
		Headers:       make(amqp.Table, len(attrs)),
		Body:          data,
	}
	if r.cfg.QueueDurable {
		msg.DeliveryMode = amqp.Persistent
	}
	for key, value := range attrs {
		msg.Headers[key] = value
	}

	r.pubMu.Lock()
	defer r.pubMu.Unlock()
	if err := r.declareQueue(r.pubCh, channel); err != nil {
		return "", err
	}
	if err := r.pubCh.PublishWithContext(ctx, "", channel, false, false, msg); err != nil {
		return "", err
	}
	return msg.MessageId, nil
}

// Subscribe consumes on a dedicated channel until ctx is done. A handler
// error requeues the delivery.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if r.cfg.PrefetchCount > 0 {
		if err := ch.Qos(r.cfg.PrefetchCount, 0, false); err != nil {
			return err
		}
	}
	if err := r.declareQueue(ch, channel); err != nil {
		return err
	}

	tag := fmt.Sprintf("%s-%s-%s", rabbitAppID, channel, uuid.NewString())
	deliveries, err := ch.ConsumeWithContext(ctx, channel, tag, false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			r.dispatch(ctx, d, handler)
		}
	}
}

func (r *RabbitMQClient) dispatch(ctx context.Context, d amqp.Delivery, handler Handler) {
	attrs := headersToAttributes(d.Headers)
	if d.Type != "" {
		if attrs == nil {
			attrs = map[string]string{}
		}
		attrs[AttrType] = d.Type
	}

	if err := handler(ctx, Message{ID: d.MessageId, Data: d.Body, Attributes: attrs}); err != nil {
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func (r *RabbitMQClient) Close() error {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()
	_ = r.pubCh.Close()
	return r.conn.Close()
}

// declareQueue is idempotent on the broker; the cache only saves round trips.
func (r *RabbitMQClient) declareQueue(ch *amqp.Channel, name string) error {
	if _, ok := r.queues.Load(name); ok {
		return nil
	}
	if _, err := ch.QueueDeclare(name, r.cfg.QueueDurable, r.cfg.QueueAutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	r.queues.Store(name, struct{}{})
	return nil
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch v := value.(type) {
		case string:
			attrs[key] = v
		case []byte:
			attrs[key] = string(v)
		default:
			attrs[key] = fmt.Sprint(v)
		}
	}
	return attrs
}
