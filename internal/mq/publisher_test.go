package mq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/orderdesk/apiserver/internal/clock"
	"github.com/orderdesk/apiserver/internal/logging"
	"github.com/orderdesk/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type fakeSender struct {
	messages []sent
	err      error
}

func (f *fakeSender) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.messages = append(f.messages, sent{channel: channel, data: data, attrs: attrs})
	return "id-1", nil
}

func TestPublisher_PublishOrder(t *testing.T) {
	at := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	sender := &fakeSender{}
	p := NewPublisher(sender, logging.Discard(), clock.NewFake(at))

	p.PublishOrder(context.Background(), types.EventOrderCreated, types.Order{ID: 3, UserID: 1, Item: "coffee"})

	require.Len(t, sender.messages, 1)
	msg := sender.messages[0]
	assert.Equal(t, types.ChannelOrders, msg.channel)
	assert.Equal(t, map[string]string{"type": "order.created", "ordering_key": "order-3"}, msg.attrs)

	var event types.Event
	require.NoError(t, json.Unmarshal(msg.data, &event))
	assert.Equal(t, types.EventOrderCreated, event.Type)
	require.NotNil(t, event.Order)
	assert.Equal(t, 3, event.Order.ID)
	assert.Nil(t, event.User)
	assert.True(t, event.OccurredAt.Equal(at))
}

func TestPublisher_PublishUserOmitsPasswordHash(t *testing.T) {
	sender := &fakeSender{}
	p := NewPublisher(sender, nil, nil)

	p.PublishUser(context.Background(), types.EventUserCreated, types.User{ID: 1, Email: "a@x.com", PasswordHash: "secret-hash"})

	require.Len(t, sender.messages, 1)
	assert.Equal(t, types.ChannelUsers, sender.messages[0].channel)
	assert.Equal(t, "user-1", sender.messages[0].attrs[AttrOrderingKey])
	assert.NotContains(t, string(sender.messages[0].data), "secret-hash")
}

func TestPublisher_FailureIsLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	p := NewPublisher(&fakeSender{err: errors.New("broker down")}, logger, nil)

	assert.NotPanics(t, func() {
		p.PublishOrder(context.Background(), types.EventOrderDeleted, types.Order{ID: 1})
	})
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "broker down")
}

func TestPublisher_NilSenderIsNoop(t *testing.T) {
	p := NewPublisher(nil, nil, nil)
	assert.NotPanics(t, func() {
		p.PublishOrder(context.Background(), types.EventOrderCreated, types.Order{})
	})
}
