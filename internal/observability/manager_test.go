package observability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/backorder/internal/config"
	"github.com/Additional-Code/backorder/internal/database/dbtest"
	"github.com/Additional-Code/backorder/internal/observability"
)

func obsConfig(metrics string) config.Config {
	return config.Config{Observability: config.Observability{
		ServiceName:      "backorder",
		ServiceVersion:   "test",
		Environment:      "test",
		TraceSampleRatio: 1,
		EnableMetrics:    metrics != "",
		MetricsExporter:  metrics,
		PrometheusPath:   "/metrics",
	}}
}

func TestPrometheusManagersDoNotCollide(t *testing.T) {
	for i := 0; i < 2; i++ {
		mgr, err := observability.NewManager(fxtest.NewLifecycle(t), obsConfig("prometheus"), zap.NewNop())
		require.NoError(t, err)
		assert.True(t, mgr.MetricsEnabled())
		assert.False(t, mgr.TracingEnabled())
		require.NotNil(t, mgr.MetricsHandler())

		rec := httptest.NewRecorder()
		mgr.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "go_goroutines")
	}
}

func TestUnsupportedExportersDisable(t *testing.T) {
	cfg := obsConfig("statsd")
	cfg.Observability.EnableTracing = true
	cfg.Observability.TraceExporter = "jaeger"

	mgr, err := observability.NewManager(fxtest.NewLifecycle(t), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, mgr.MetricsEnabled())
	assert.False(t, mgr.TracingEnabled())
	assert.Nil(t, mgr.MetricsHandler())
}

func TestStdoutTracingLifecycle(t *testing.T) {
	cfg := obsConfig("")
	cfg.Observability.EnableTracing = true
	cfg.Observability.TraceExporter = "stdout"

	lc := fxtest.NewLifecycle(t)
	mgr, err := observability.NewManager(lc, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, mgr.TracingEnabled())

	require.NoError(t, lc.Start(context.Background()))
	require.NoError(t, lc.Stop(context.Background()))
}

func TestRegisterPoolMetrics(t *testing.T) {
	conns := dbtest.Open(t)
	assert.NoError(t, observability.RegisterPoolMetrics(conns, zap.NewNop()))
	assert.NoError(t, observability.RegisterPoolMetrics(nil, zap.NewNop()))
}
