package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/backorder/internal/config"
	"github.com/Additional-Code/backorder/internal/database/dbtest"
	"github.com/Additional-Code/backorder/internal/entity"
	"github.com/Additional-Code/backorder/internal/messaging"
	"github.com/Additional-Code/backorder/internal/repository/auditlog"
	auditsvc "github.com/Additional-Code/backorder/internal/service/audit"
	"github.com/Additional-Code/backorder/internal/worker/audit"
)

func message(t *testing.T, e *entity.LogEntry) messaging.Message {
	t.Helper()
	payload, err := json.Marshal(auditsvc.EntryRecordedFrom(e))
	require.NoError(t, err)
	return messaging.Message{
		Topic:   "backorder.audit",
		Headers: map[string]string{messaging.HeaderEvent: auditsvc.EntryRecordedEvent},
		Value:   payload,
	}
}

func TestHandlePersistsEntry(t *testing.T) {
	conns := dbtest.Open(t)
	repo := auditlog.NewRepository(conns, dbtest.Executor(t, conns))
	handle := audit.Handle(repo, zap.NewNop())
	ctx := context.Background()

	when := time.Date(2024, time.June, 3, 8, 0, 0, 0, time.UTC)
	require.NoError(t, handle(ctx, message(t, &entity.LogEntry{
		UserID:  1,
		Action:  entity.ActionCompleted,
		Table:   entity.TargetBackorder,
		Details: "Widget for Acme",
		Date:    when,
	})))

	rows, err := repo.Between(ctx, when.Add(-time.Hour), when.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, entity.ActionCompleted, rows[0].Action)
	assert.Equal(t, "Widget for Acme", rows[0].Details)
}

func TestHandleRejectsGarbageAndDropsUnknownTargets(t *testing.T) {
	conns := dbtest.Open(t)
	repo := auditlog.NewRepository(conns, dbtest.Executor(t, conns))
	core, logs := observer.New(zapcore.WarnLevel)
	handle := audit.Handle(repo, zap.New(core))
	ctx := context.Background()

	err := handle(ctx, messaging.Message{Value: []byte("{not json")})
	assert.Error(t, err)

	require.NoError(t, handle(ctx, message(t, &entity.LogEntry{UserID: 1, Action: entity.ActionCreated, Table: "orders"})))
	assert.Equal(t, 1, logs.FilterMessage("dropping audit entry").Len())

	rows, err := repo.Between(ctx, time.Time{}, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRegistrationRoutesByEvent(t *testing.T) {
	var cfg config.Config
	cfg.Messaging.Kafka.Topic = "backorder.audit"

	reg := audit.NewEntryRecordedHandler(nil, zap.NewNop(), cfg)
	assert.Equal(t, auditsvc.EntryRecordedEvent, reg.Event)
	assert.Equal(t, "backorder.audit", reg.Topic)
	assert.NotNil(t, reg.Handler)
}
