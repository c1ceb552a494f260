package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestQueryLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	hook := newQueryLogger(zap.New(core), "writer", 100*time.Millisecond)
	ctx := context.Background()

	hook.AfterQuery(ctx, &bun.QueryEvent{StartTime: time.Now(), Query: "SELECT 1"})
	assert.Zero(t, logs.Len(), "fast queries are silent")

	hook.AfterQuery(ctx, &bun.QueryEvent{StartTime: time.Now().Add(-time.Second), Query: "SELECT * FROM orders"})
	assert.Equal(t, 1, logs.FilterMessage("slow query").Len())

	hook.AfterQuery(ctx, &bun.QueryEvent{StartTime: time.Now(), Query: "SELECT 1", Err: sql.ErrNoRows})
	hook.AfterQuery(ctx, &bun.QueryEvent{StartTime: time.Now(), Query: "INSERT INTO customers", Err: errors.New("locked")})
	assert.Equal(t, 1, logs.FilterMessage("query failed").Len())
}

func TestQueryLoggerSlowDisabled(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	hook := newQueryLogger(zap.New(core), "reader", 0)

	hook.AfterQuery(context.Background(), &bun.QueryEvent{StartTime: time.Now().Add(-time.Hour), Query: "SELECT 1"})
	assert.Zero(t, logs.Len())
}
