package observability

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/Additional-Code/backorder/internal/database"
)

// RegisterPoolMetrics reports writer and reader pool usage as observable gauges.
// Instruments come from the global meter, so they follow the provider installed
// at start.
func RegisterPoolMetrics(conns *database.Connections, logger *zap.Logger) error {
	if conns == nil {
		return nil
	}
	meter := otel.Meter("github.com/Additional-Code/backorder/database")

	open, err := meter.Int64ObservableGauge("db.pool.open", metric.WithDescription("Open connections"))
	if err != nil {
		return err
	}
	inUse, err := meter.Int64ObservableGauge("db.pool.in_use", metric.WithDescription("Connections in use"))
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("db.pool.waits", metric.WithDescription("Waits for a free connection"))
	if err != nil {
		return err
	}

	pools := map[string]func() sql.DBStats{
		"writer": conns.Writer.DB.Stats,
	}
	if conns.Reader != nil && conns.Reader != conns.Writer {
		pools["reader"] = conns.Reader.DB.Stats
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for role, stats := range pools {
			s := stats()
			attrs := metric.WithAttributes(attribute.String("db.role", role))
			o.ObserveInt64(open, int64(s.OpenConnections), attrs)
			o.ObserveInt64(inUse, int64(s.InUse), attrs)
			o.ObserveInt64(waits, s.WaitCount, attrs)
		}
		return nil
	}, open, inUse, waits)
	if err != nil {
		logger.Warn("pool metrics unavailable", zap.Error(err))
	}
	return nil
}
