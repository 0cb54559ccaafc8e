package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisherEnvelope(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w, producer: "marketplace-api"}

	err := p.Publish(context.Background(), EventOrderPaid, "order_1", OrderPayload{OrderID: 3, GatewayOrderID: "order_1", Amount: "499.00", Status: "PAID"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "order_1", string(msg.Key))

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, EventOrderPaid, env.EventType)
	assert.Equal(t, "marketplace-api", env.Producer)
	assert.Equal(t, "order_1", env.CorrelationID)
	assert.NotEmpty(t, env.EventID)

	var payload OrderPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, uint(3), payload.OrderID)
	assert.Equal(t, "499.00", payload.Amount)
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	p := &KafkaPublisher{w: &fakeWriter{err: errors.New("no brokers")}}
	err := p.Publish(context.Background(), EventOrderFailed, "k", OrderPayload{})
	assert.ErrorContains(t, err, "no brokers")
}

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func envelopeMessage(t *testing.T, offset int64, eventType string, payload interface{}) kafka.Message {
	t.Helper()
	env, err := NewEnvelope("test", eventType, "k", payload)
	require.NoError(t, err)
	value, err := json.Marshal(env)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: value}
}

func receiptOrderID(t *testing.T, env Envelope) uint {
	t.Helper()
	var p ReceiptFailedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	return p.OrderID
}

func TestConsumerDispatchesMatchingEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeReader{cancel: cancel, msgs: []kafka.Message{
		envelopeMessage(t, 1, EventReceiptFailed, ReceiptFailedPayload{OrderID: 10}),
		envelopeMessage(t, 2, EventOrderPaid, OrderPayload{OrderID: 11}),
		{Offset: 3, Value: []byte("{broken")},
		envelopeMessage(t, 4, EventReceiptFailed, ReceiptFailedPayload{OrderID: 12}),
	}}
	c := &Consumer{r: r, backoff: time.Millisecond}

	var handled []uint
	err := c.Run(ctx, EventReceiptFailed, func(_ context.Context, env Envelope) error {
		handled = append(handled, receiptOrderID(t, env))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []uint{10, 12}, handled)
	assert.Equal(t, []int64{1, 2, 3, 4}, r.committed)
}

func TestConsumerRetriesFailedEventBeforeMovingOn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeReader{cancel: cancel, msgs: []kafka.Message{
		envelopeMessage(t, 1, EventReceiptFailed, ReceiptFailedPayload{OrderID: 10}),
		envelopeMessage(t, 2, EventReceiptFailed, ReceiptFailedPayload{OrderID: 11}),
	}}
	c := &Consumer{r: r, backoff: time.Millisecond}

	calls := map[uint]int{}
	var order []uint
	err := c.Run(ctx, EventReceiptFailed, func(_ context.Context, env Envelope) error {
		id := receiptOrderID(t, env)
		calls[id]++
		order = append(order, id)
		if id == 10 && calls[id] < 3 {
			return errors.New("storage unavailable")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, map[uint]int{10: 3, 11: 1}, calls)
	assert.Equal(t, []uint{10, 10, 10, 11}, order)
	assert.Equal(t, []int64{1, 2}, r.committed)
}

func TestConsumerGivesUpAfterMaxAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeReader{cancel: cancel, msgs: []kafka.Message{
		envelopeMessage(t, 1, EventReceiptFailed, ReceiptFailedPayload{OrderID: 10}),
		envelopeMessage(t, 2, EventReceiptFailed, ReceiptFailedPayload{OrderID: 11}),
	}}
	c := &Consumer{r: r, backoff: time.Millisecond, maxAttempts: 2}

	calls := map[uint]int{}
	err := c.Run(ctx, EventReceiptFailed, func(_ context.Context, env Envelope) error {
		id := receiptOrderID(t, env)
		calls[id]++
		if id == 10 {
			return errors.New("still broken")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, map[uint]int{10: 2, 11: 1}, calls)
	assert.Equal(t, []int64{1, 2}, r.committed)
}

func TestConsumerStopsRetryingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeReader{cancel: cancel, msgs: []kafka.Message{
		envelopeMessage(t, 1, EventReceiptFailed, ReceiptFailedPayload{OrderID: 10}),
	}}
	c := &Consumer{r: r, backoff: time.Millisecond}

	calls := 0
	err := c.Run(ctx, EventReceiptFailed, func(context.Context, Envelope) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return errors.New("down")
	})
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
	assert.Empty(t, r.committed)
}
