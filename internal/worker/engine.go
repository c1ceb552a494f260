package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/backorder/internal/config"
	"github.com/Additional-Code/backorder/internal/messaging"
)

// HandlerRegistration binds an event name, or a whole topic when Event is
// empty, to a handler.
type HandlerRegistration struct {
	Topic   string
	Event   string
	Handler messaging.Handler
}

// Params collects dependencies via Fx.
type Params struct {
	fx.In

	Client        messaging.Client
	Logger        *zap.Logger
	Config        config.Config
	Registrations []HandlerRegistration `group:"worker.handlers"`
}

// Engine orchestrates background message consumption.
type Engine struct {
	client   messaging.Client
	logger   *zap.Logger
	cfg      config.Worker
	enabled  bool
	byEvent  map[string]messaging.Handler
	byTopic  map[string]messaging.Handler
	messages metric.Int64Counter
	cancel   context.CancelFunc
	wg       *sync.WaitGroup
}

// NewEngine constructs the worker Engine.
func NewEngine(p Params) *Engine {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	byEvent := make(map[string]messaging.Handler)
	byTopic := make(map[string]messaging.Handler)
	for _, r := range p.Registrations {
		switch {
		case r.Handler == nil:
			continue
		case r.Event != "":
			byEvent[r.Event] = r.Handler
		case r.Topic != "":
			byTopic[r.Topic] = r.Handler
		}
	}

	counter, err := otel.Meter("github.com/Additional-Code/backorder/worker").Int64Counter("worker.messages",
		metric.WithDescription("Consumed messages by outcome"))
	if err != nil {
		logger.Warn("worker counter unavailable", zap.Error(err))
	}

	return &Engine{
		client:   p.Client,
		logger:   logger,
		cfg:      p.Config.Messaging.Workers,
		enabled:  p.Config.Messaging.Enabled && p.Config.Messaging.Workers.Enabled,
		byEvent:  byEvent,
		byTopic:  byTopic,
		messages: counter,
	}
}

// Module wires the engine into Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Invoke(func(lc fx.Lifecycle, engine *Engine) {
		lc.Append(fx.Hook{
			OnStart: engine.start,
			OnStop:  engine.stop,
		})
	}),
)

func (e *Engine) start(ctx context.Context) error {
	if !e.enabled {
		e.logger.Info("worker engine disabled")

		return nil
	}
	if len(e.byEvent)+len(e.byTopic) == 0 {
		e.logger.Info("worker engine has no handlers; skipping")

		return nil
	}

	concurrency := e.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.wg = &sync.WaitGroup{}

	for i := 0; i < concurrency; i++ {
		workerID := i
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.consumeLoop(runCtx, workerID)
		}()
	}

	e.logger.Info("worker engine started", zap.Int("workers", concurrency), zap.String("topic", e.client.Topic()))

	return nil
}

func (e *Engine) stop(ctx context.Context) error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()
	done := make(chan struct{})
	go func() {
		if e.wg != nil {
			e.wg.Wait()
		}
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		e.logger.Info("worker engine stopped")

		return nil
	}
}

func (e *Engine) consumeLoop(ctx context.Context, workerID int) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		err := e.client.Consume(ctx, func(msgCtx context.Context, msg messaging.Message) error {
			return e.dispatch(msgCtx, workerID, msg)
		})

		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}

		e.logger.Error("consume loop error", zap.Error(err))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (e *Engine) route(msg messaging.Message) (messaging.Handler, bool) {
	if h, ok := e.byEvent[msg.Event()]; ok {
		return h, true
	}
	h, ok := e.byTopic[msg.Topic]
	return h, ok
}

// dispatch runs the routed handler up to MaxAttempts times. A message that still
// fails is logged and acknowledged so one bad event cannot stall its partition;
// only cancellation is reported back to the client.
func (e *Engine) dispatch(ctx context.Context, workerID int, msg messaging.Message) error {
	handler, ok := e.route(msg)
	if !ok {
		e.logger.Warn("no handler for message", zap.String("topic", msg.Topic), zap.String("event", msg.Event()))
		e.count(ctx, "unrouted")

		return nil
	}

	attempts := e.cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	log := e.logger.With(
		zap.String("topic", msg.Topic),
		zap.String("event", msg.Event()),
		zap.Int64("offset", msg.Offset),
		zap.Int("worker", workerID),
	)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		log.Debug("processing message", zap.Int("attempt", attempt))
		if err = handler(ctx, msg); err == nil {
			e.count(ctx, "handled")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == attempts {
			break
		}
		log.Warn("message handler failed; retrying", zap.Error(err), zap.Int("attempt", attempt))
		select {
		case <-time.After(e.cfg.RetryDelay * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	log.Error("giving up on message", zap.Error(err), zap.Int("attempts", attempts))
	e.count(ctx, "failed")

	return nil
}

func (e *Engine) count(ctx context.Context, outcome string) {
	if e.messages == nil {
		return
	}
	e.messages.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
