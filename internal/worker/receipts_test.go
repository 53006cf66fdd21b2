package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/orderdesk/apiserver/internal/mq"
	"github.com/orderdesk/apiserver/internal/storage"
	"github.com/orderdesk/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObjects struct {
	objects      map[string][]byte
	contentTypes map[string]string
	err          error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memObjects) Put(_ context.Context, obj storage.Object) error {
	if m.err != nil {
		return m.err
	}
	m.objects[obj.Key] = obj.Body
	m.contentTypes[obj.Key] = obj.ContentType
	return nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.objects, key)
	return nil
}

func eventMessage(t *testing.T, event types.Event) mq.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return mq.Message{ID: "m", Data: data}
}

func TestReceiptArchiver_CreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	objects := newMemObjects()
	a := NewReceiptArchiver(objects, nil)
	key := storage.ReceiptKey(5)

	order := types.Order{ID: 5, UserID: 1, Item: "coffee", Quantity: 1, Price: 3.5}
	require.NoError(t, a.Handle(ctx, eventMessage(t, types.Event{Type: types.EventOrderCreated, Order: &order})))

	var stored types.Order
	require.NoError(t, json.Unmarshal(objects.objects[key], &stored))
	assert.Equal(t, "coffee", stored.Item)
	assert.Equal(t, storage.ReceiptContentType, objects.contentTypes[key])

	order.Item = "tea"
	require.NoError(t, a.Handle(ctx, eventMessage(t, types.Event{Type: types.EventOrderUpdated, Order: &order})))
	require.NoError(t, json.Unmarshal(objects.objects[key], &stored))
	assert.Equal(t, "tea", stored.Item)

	require.NoError(t, a.Handle(ctx, eventMessage(t, types.Event{Type: types.EventOrderDeleted, Order: &order})))
	assert.NotContains(t, objects.objects, key)
}

func TestReceiptArchiver_DropsMalformed(t *testing.T) {
	ctx := context.Background()
	objects := newMemObjects()
	a := NewReceiptArchiver(objects, nil)

	assert.NoError(t, a.Handle(ctx, mq.Message{ID: "bad", Data: []byte("{not json")}))
	assert.NoError(t, a.Handle(ctx, eventMessage(t, types.Event{Type: types.EventOrderCreated})))
	assert.NoError(t, a.Handle(ctx, eventMessage(t, types.Event{Type: "order.shipped", Order: &types.Order{ID: 1}})))
	assert.Empty(t, objects.objects)
}

func TestReceiptArchiver_StorageErrorRequestsRedelivery(t *testing.T) {
	objects := newMemObjects()
	objects.err = errors.New("bucket unavailable")
	a := NewReceiptArchiver(objects, nil)

	err := a.Handle(context.Background(), eventMessage(t, types.Event{Type: types.EventOrderCreated, Order: &types.Order{ID: 1}}))
	require.Error(t, err)
	assert.ErrorIs(t, err, objects.err)
}

type fakeSubscriber struct {
	channel  string
	messages []mq.Message
	results  []error
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, channel string, handler mq.Handler) error {
	f.channel = channel
	for _, msg := range f.messages {
		f.results = append(f.results, handler(ctx, msg))
	}
	return nil
}

func TestReceiptArchiver_RunSubscribesToOrders(t *testing.T) {
	objects := newMemObjects()
	sub := &fakeSubscriber{messages: []mq.Message{
		eventMessage(t, types.Event{Type: types.EventOrderCreated, Order: &types.Order{ID: 2}}),
	}}

	require.NoError(t, NewReceiptArchiver(objects, nil).Run(context.Background(), sub))
	assert.Equal(t, types.ChannelOrders, sub.channel)
	assert.Equal(t, []error{nil}, sub.results)
	assert.Contains(t, objects.objects, storage.ReceiptKey(2))
}
