package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/backorder/internal/config"
	"github.com/Additional-Code/backorder/internal/messaging"
)

type replayClient struct {
	msgs []messaging.Message
}

func (c *replayClient) Publish(context.Context, messaging.Event) error { return nil }
func (c *replayClient) Topic() string                                  { return "backorder.audit" }

func (c *replayClient) Consume(ctx context.Context, handler messaging.Handler) error {
	for _, m := range c.msgs {
		if err := handler(ctx, m); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func enabledConfig() config.Config {
	var cfg config.Config
	cfg.Messaging.Enabled = true
	cfg.Messaging.Workers = config.Worker{Enabled: true, Concurrency: 1, MaxAttempts: 3, RetryDelay: time.Millisecond}
	return cfg
}

func event(name string) map[string]string {
	return map[string]string{messaging.HeaderEvent: name}
}

func TestEngineDispatchesByEventThenTopic(t *testing.T) {
	seen := make(chan string, 3)
	record := func(tag string) messaging.Handler {
		return func(_ context.Context, m messaging.Message) error {
			seen <- tag + ":" + string(m.Value)
			return nil
		}
	}
	client := &replayClient{msgs: []messaging.Message{
		{Topic: "backorder.audit", Headers: event("audit.entry_recorded"), Value: []byte("a")},
		{Topic: "backorder.audit", Value: []byte("b")},
		{Topic: "unknown", Value: []byte("c")},
	}}
	engine := NewEngine(Params{
		Client: client,
		Logger: zap.NewNop(),
		Config: enabledConfig(),
		Registrations: []HandlerRegistration{
			{Event: "audit.entry_recorded", Handler: record("event")},
			{Topic: "backorder.audit", Handler: record("topic")},
		},
	})

	require.NoError(t, engine.start(context.Background()))
	for _, want := range []string{"event:a", "topic:b"} {
		select {
		case v := <-seen:
			assert.Equal(t, want, v)
		case <-time.After(2 * time.Second):
			t.Fatal("handler not invoked")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, engine.stop(ctx))
	assert.Empty(t, seen)
}

func TestDispatchRetriesThenGivesUp(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	calls := 0
	engine := NewEngine(Params{
		Client: &replayClient{},
		Logger: zap.New(core),
		Config: enabledConfig(),
		Registrations: []HandlerRegistration{{
			Topic: "backorder.audit",
			Handler: func(context.Context, messaging.Message) error {
				calls++
				return errors.New("database unavailable")
			},
		}},
	})

	err := engine.dispatch(context.Background(), 0, messaging.Message{Topic: "backorder.audit"})
	require.NoError(t, err, "exhausted messages are acknowledged")
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, logs.FilterMessage("message handler failed; retrying").Len())
	assert.Equal(t, 1, logs.FilterMessage("giving up on message").Len())
}

func TestDispatchRecoversOnRetry(t *testing.T) {
	calls := 0
	engine := NewEngine(Params{
		Client: &replayClient{},
		Logger: zap.NewNop(),
		Config: enabledConfig(),
		Registrations: []HandlerRegistration{{
			Topic: "backorder.audit",
			Handler: func(context.Context, messaging.Message) error {
				calls++
				if calls == 1 {
					return errors.New("transient")
				}
				return nil
			},
		}},
	})

	require.NoError(t, engine.dispatch(context.Background(), 0, messaging.Message{Topic: "backorder.audit"}))
	assert.Equal(t, 2, calls)
}

func TestDispatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	engine := NewEngine(Params{
		Client: &replayClient{},
		Logger: zap.NewNop(),
		Config: enabledConfig(),
		Registrations: []HandlerRegistration{{
			Topic: "backorder.audit",
			Handler: func(context.Context, messaging.Message) error {
				cancel()
				return errors.New("interrupted")
			},
		}},
	})

	err := engine.dispatch(ctx, 0, messaging.Message{Topic: "backorder.audit"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineSkipsWhenDisabled(t *testing.T) {
	engine := NewEngine(Params{
		Client: &replayClient{},
		Logger: zap.NewNop(),
		Config: config.Config{},
		Registrations: []HandlerRegistration{{
			Topic:   "backorder.audit",
			Handler: func(context.Context, messaging.Message) error { return nil },
		}},
	})

	require.NoError(t, engine.start(context.Background()))
	assert.Nil(t, engine.cancel)
	require.NoError(t, engine.stop(context.Background()))
}
