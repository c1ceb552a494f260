package audit

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/backorder/internal/config"
	"github.com/Additional-Code/backorder/internal/entity"
	"github.com/Additional-Code/backorder/internal/messaging"
	"github.com/Additional-Code/backorder/internal/repository/auditlog"
	auditsvc "github.com/Additional-Code/backorder/internal/service/audit"
	"github.com/Additional-Code/backorder/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/backorder/worker/audit")

// Module registers the audit persistence handler.
var Module = fx.Module("worker_audit",
	fx.Provide(
		fx.Annotate(
			NewEntryRecordedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewEntryRecordedHandler persists audit entries published by the recorder.
func NewEntryRecordedHandler(repo *auditlog.Repository, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Event:   auditsvc.EntryRecordedEvent,
		Handler: Handle(repo, logger),
	}
}

// Handle decodes an EntryRecorded event and appends it to the log table.
// Undecodable messages and storage failures are returned as errors so the engine
// retries them; well-formed events naming an unknown target are dropped.
func Handle(repo *auditlog.Repository, logger *zap.Logger) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.audit.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.Int64("messaging.offset", msg.Offset),
		))
		defer span.End()

		var event auditsvc.EntryRecorded
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode audit entry", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		entry := event.Entry()
		if !entry.Table.Valid() || entry.UserID <= 0 {
			logger.Warn("dropping audit entry",
				zap.String("target", string(entry.Table)),
				zap.Int64("user_id", entry.UserID),
			)
			span.SetStatus(codes.Error, "invalid entry")
			return nil
		}

		if err := repo.Append(ctx, entry); err != nil {
			logger.Error("failed to persist audit entry", zap.Error(err), zap.String("target", string(entry.Table)))

			span.RecordError(err)
			span.SetStatus(codes.Error, "append failed")
			return err
		}

		logger.Debug("audit entry persisted",
			zap.Int64("id", entry.ID),
			zap.String("action", entity.Action(event.Action).Text()),
			zap.String("target", string(entry.Table)),
		)
		return nil
	}
}
