package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/backorder/internal/config"
	"github.com/Additional-Code/backorder/internal/logger"
)

func TestNewAppliesLevel(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := config.Config{Observability: config.Observability{
		ServiceName: "backorder",
		Environment: "test",
		LogLevel:    "warn",
		LogEncoding: "json",
	}}

	l, err := logger.New(lc, cfg)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestPrintfAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	adapter := logger.PrintfAdapter{Logger: zap.New(core), Level: zapcore.InfoLevel}

	adapter.Printf("applied %d migrations", 3)
	logger.PrintfAdapter{Logger: zap.New(core), Level: zapcore.DebugLevel}.Printf("below threshold")
	adapter.Fatalf("goose: %s", "boom")
	logger.PrintfAdapter{}.Printf("no logger")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "applied 3 migrations", entries[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "goose: boom", entries[1].Message)
}
