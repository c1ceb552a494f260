package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/backorder/internal/config"
)

func TestNewClientFallsBackToNoop(t *testing.T) {
	var cfg config.Config
	cfg.Messaging.Driver = "noop"
	cfg.Messaging.Kafka.Topic = "backorder.audit"

	client, err := NewClient(fxtest.NewLifecycle(t), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, noopClient{}, client)
	assert.Equal(t, "backorder.audit", client.Topic())
	assert.NoError(t, client.Publish(context.Background(), Event{Name: "audit.entry_recorded", Key: []byte("k"), Value: []byte("v")}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = client.Consume(ctx, func(context.Context, Message) error {
		t.Fatal("noop client delivered a message")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClientRejectsUnknownDriver(t *testing.T) {
	var cfg config.Config
	cfg.Messaging.Enabled = true
	cfg.Messaging.Driver = "nats"

	_, err := NewClient(fxtest.NewLifecycle(t), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestFromKafkaCopiesHeaders(t *testing.T) {
	at := time.Date(2024, time.May, 2, 10, 0, 0, 0, time.UTC)
	msg := fromKafka(kafka.Message{
		Topic:   "backorder.audit",
		Key:     []byte("customer-7"),
		Value:   []byte("{}"),
		Offset:  42,
		Time:    at,
		Headers: []kafka.Header{{Key: HeaderEvent, Value: []byte("audit.entry_recorded")}},
	})

	assert.Equal(t, "audit.entry_recorded", msg.Event())
	assert.Equal(t, int64(42), msg.Offset)
	assert.Equal(t, []byte("customer-7"), msg.Key)
	assert.Equal(t, at, msg.Time)

	assert.Empty(t, fromKafka(kafka.Message{Topic: "backorder.audit"}).Event())
}
