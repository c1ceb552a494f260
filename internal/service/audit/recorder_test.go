package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/backorder/internal/entity"
	"github.com/Additional-Code/backorder/internal/messaging"
	"github.com/Additional-Code/backorder/internal/service/audit"
	"github.com/Additional-Code/backorder/internal/service/servicetest"
)

type failingSink struct{}

func (failingSink) Write(context.Context, *entity.LogEntry) error {
	return errors.New("log table unavailable")
}

type captureSink struct {
	entries []*entity.LogEntry
}

func (s *captureSink) Write(_ context.Context, e *entity.LogEntry) error {
	s.entries = append(s.entries, e)
	return nil
}

func TestRecordWritesLabelledEntries(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	actor := env.Actor(t, "alice")

	c := env.Customer(t, actor, "Acme", "ACME")
	p := env.Product(t, actor, "Widget", "W1", nil)
	env.Backorder(t, actor, p.ID, c.ID, 1)

	feed, err := env.Recorder.Latest(ctx, 5, 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	entries := feed[0].Entries
	require.Len(t, entries, 3)

	assert.Equal(t, "Widget for Acme", entries[0].Details)
	assert.Equal(t, entity.TargetBackorder, entries[0].Target)
	assert.Equal(t, "Widget (W1)", entries[1].Details)
	assert.Equal(t, "Acme (ACME)", entries[2].Details)
	for _, e := range entries {
		assert.Equal(t, actor, e.UserID)
		assert.Equal(t, "Test", e.FirstName)
		assert.Equal(t, "created", e.ActionText)
	}
}

func TestSinkFailureIsAbsorbed(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	actor := env.Actor(t, "alice")
	c := env.Customer(t, actor, "Acme", "ACME")

	core, logs := observer.New(zapcore.WarnLevel)
	rec := audit.New(env.AuditLog, failingSink{}, zap.New(core))

	assert.NotPanics(t, func() {
		rec.Record(ctx, actor, entity.ActionUpdated, entity.TargetCustomer, c.ID)
	})
	require.Equal(t, 1, logs.FilterMessage("write audit entry").Len())
}

func TestUnknownTargetOrActorIsLoggedNotWritten(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	actor := env.Actor(t, "alice")
	c := env.Customer(t, actor, "Acme", "ACME")

	core, logs := observer.New(zapcore.WarnLevel)
	sink := &captureSink{}
	rec := audit.New(env.AuditLog, sink, zap.New(core))

	rec.Record(ctx, actor, entity.ActionUpdated, entity.TargetCustomer, 999)
	rec.Record(ctx, 0, entity.ActionUpdated, entity.TargetCustomer, c.ID)
	assert.Empty(t, sink.entries)
	assert.Equal(t, 2, logs.Len())

	rec.Record(ctx, actor, entity.ActionUpdated, entity.TargetCustomer, c.ID)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, "Acme (ACME)", sink.entries[0].Details)
	assert.Equal(t, entity.ActionUpdated, sink.entries[0].Action)
}

func TestPrepareDeleteSurvivesRemoval(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	actor := env.Actor(t, "alice")
	c := env.Customer(t, actor, "Acme", "ACME")
	p := env.Product(t, actor, "Widget", "W1", nil)
	b := env.Backorder(t, actor, p.ID, c.ID, 1)

	sink := &captureSink{}
	rec := audit.New(env.AuditLog, sink, zap.NewNop())

	pending := rec.PrepareDelete(ctx, entity.TargetBackorder, b.ID)
	_, err := env.Conns.Writer.NewDelete().Model((*entity.Backorder)(nil)).Where("id = ?", b.ID).Exec(ctx)
	require.NoError(t, err)
	pending.Record(ctx, actor, entity.ActionDeleted)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, "Widget for Acme", sink.entries[0].Details)
	assert.Equal(t, entity.ActionDeleted, sink.entries[0].Action)
}

func TestEventRoundTripKeepsEntry(t *testing.T) {
	when := time.Date(2024, time.May, 2, 10, 30, 0, 0, time.UTC)
	e := &entity.LogEntry{UserID: 7, Action: entity.ActionCancelled, Table: entity.TargetBackorder, Details: "Widget for Acme", Date: when}

	back := audit.EntryRecordedFrom(e).Entry()
	assert.Equal(t, e.UserID, back.UserID)
	assert.Equal(t, e.Action, back.Action)
	assert.Equal(t, e.Table, back.Table)
	assert.Equal(t, e.Details, back.Details)
	assert.True(t, when.Equal(back.Date))
}

type publishedClient struct {
	events []messaging.Event
}

func (c *publishedClient) Publish(_ context.Context, ev messaging.Event) error {
	c.events = append(c.events, ev)
	return nil
}

func (c *publishedClient) Consume(ctx context.Context, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (c *publishedClient) Topic() string { return "backorder.audit" }

func TestPublishSinkNamesEvent(t *testing.T) {
	client := &publishedClient{}
	sink := audit.PublishSink{Client: client}
	e := &entity.LogEntry{UserID: 3, Action: entity.ActionUpdated, Table: entity.TargetProduct, Details: "Widget (W1)", Date: time.Now().UTC()}

	require.NoError(t, sink.Write(context.Background(), e))
	require.Len(t, client.events, 1)
	ev := client.events[0]
	assert.Equal(t, audit.EntryRecordedEvent, ev.Name)
	assert.Equal(t, "product-3", string(ev.Key))

	var decoded audit.EntryRecorded
	require.NoError(t, json.Unmarshal(ev.Value, &decoded))
	assert.Equal(t, "Widget (W1)", decoded.Details)
}

func TestLatestGroupsByDay(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	actor := env.Actor(t, "alice")

	day := func(d int) time.Time { return time.Date(2024, time.March, d, 9, 0, 0, 0, time.UTC) }
	for _, e := range []*entity.LogEntry{
		{UserID: actor, Action: entity.ActionCreated, Table: entity.TargetCustomer, Details: "A (A)", Date: day(1)},
		{UserID: actor, Action: entity.ActionUpdated, Table: entity.TargetCustomer, Details: "A (A)", Date: day(1).Add(time.Hour)},
		{UserID: actor, Action: entity.ActionRemoved, Table: entity.TargetCustomer, Details: "A (A)", Date: day(3)},
		{UserID: actor, Action: entity.ActionCreated, Table: entity.TargetProduct, Details: "P (P)", Date: day(5)},
	} {
		require.NoError(t, env.AuditLog.Append(ctx, e))
	}

	feed, err := env.Recorder.Latest(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, day(5).Truncate(24*time.Hour), feed[0].Date)
	assert.Equal(t, day(3).Truncate(24*time.Hour), feed[1].Date)
	assert.Equal(t, "removed", feed[1].Entries[0].ActionText)

	all, err := env.Recorder.Latest(ctx, 10, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Len(t, all[2].Entries, 2)
	assert.Equal(t, entity.ActionUpdated, all[2].Entries[0].Action)
}
