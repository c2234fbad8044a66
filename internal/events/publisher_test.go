package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cedra_checkout/internal/models"
	"cedra_checkout/internal/reconcile"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestNewClient(t *testing.T) {
	assert.False(t, NewClient("").Enabled())
	c := NewClient(" kafka1:9092, ,kafka2:9092 ")
	assert.Equal(t, []string{"kafka1:9092", "kafka2:9092"}, c.Brokers)
	assert.True(t, c.Enabled())

	w := c.NewWriter(DefaultTopic)
	assert.Equal(t, DefaultTopic, w.Topic)
}

func TestPublisher_KeysByPaymentRef(t *testing.T) {
	w := &recordingWriter{}
	p := NewPublisher(w)

	err := p.OnOrderMaterialized(context.Background(), reconcile.OrderEvent{
		Order:  models.Order{ID: "ord-1", UserID: "u1", PaymentRef: "CEDRA-1-abc", Payable: decimal.RequireFromString("196.2")},
		Items:  []models.OrderItem{{Quantity: 2}, {Quantity: 1}},
		Record: models.TransactionRecord{Currency: "EUR"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "CEDRA-1-abc", string(w.msgs[0].Key))

	var msg OrderMaterialized
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &msg))
	assert.Equal(t, "ord-1", msg.OrderID)
	assert.Equal(t, "196.20", msg.Payable)
	assert.Equal(t, 3, msg.Items)
}

func TestPublisher_PropagatesError(t *testing.T) {
	p := NewPublisher(&recordingWriter{err: errors.New("broker down")})
	err := p.OnOrderMaterialized(context.Background(), reconcile.OrderEvent{})
	assert.Error(t, err)
}
