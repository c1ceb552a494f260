package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/backorder/internal/config"
	"github.com/Additional-Code/backorder/internal/entity"
	"github.com/Additional-Code/backorder/internal/messaging"
	"github.com/Additional-Code/backorder/internal/repository/auditlog"
)

const instrumentation = "github.com/Additional-Code/backorder/service/audit"

var serviceTracer = otel.Tracer(instrumentation)

// Sink delivers a finished entry to durable storage.
type Sink interface {
	Write(ctx context.Context, e *entity.LogEntry) error
}

// DirectSink appends entries through the repository.
type DirectSink struct {
	Repo *auditlog.Repository
}

func (s DirectSink) Write(ctx context.Context, e *entity.LogEntry) error {
	return s.Repo.Append(ctx, e)
}

// PublishSink hands entries to the message bus; the audit worker persists them.
type PublishSink struct {
	Client messaging.Client
}

func (s PublishSink) Write(ctx context.Context, e *entity.LogEntry) error {
	payload, err := json.Marshal(EntryRecordedFrom(e))
	if err != nil {
		return err
	}
	return s.Client.Publish(ctx, messaging.Event{
		Name:  EntryRecordedEvent,
		Key:   []byte(fmt.Sprintf("%s-%d", e.Table, e.UserID)),
		Value: payload,
	})
}

// EntryRecordedEvent names EntryRecorded messages on the bus.
const EntryRecordedEvent = "audit.entry_recorded"

// EntryRecorded is published when an entry is dispatched through the bus.
type EntryRecorded struct {
	UserID  int64     `json:"user_id"`
	Action  int       `json:"action"`
	Table   string    `json:"table"`
	Details string    `json:"details"`
	Date    time.Time `json:"date"`
}

// EntryRecordedFrom converts an entry into its event form.
func EntryRecordedFrom(e *entity.LogEntry) EntryRecorded {
	return EntryRecorded{
		UserID:  e.UserID,
		Action:  int(e.Action),
		Table:   string(e.Table),
		Details: e.Details,
		Date:    e.Date.UTC(),
	}
}

// Entry converts the event back into an entry ready for Append.
func (ev EntryRecorded) Entry() *entity.LogEntry {
	return &entity.LogEntry{
		UserID:  ev.UserID,
		Action:  entity.Action(ev.Action),
		Table:   entity.Target(ev.Table),
		Details: ev.Details,
		Date:    ev.Date.UTC(),
	}
}

// Recorder writes best-effort audit entries. Failures are logged and counted, never returned.
type Recorder struct {
	repo    *auditlog.Repository
	sink    Sink
	logger  *zap.Logger
	entries metric.Int64Counter
	now     func() time.Time
}

// Params defines dependencies for constructing Recorder.
type Params struct {
	fx.In

	Repository *auditlog.Repository
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewRecorder wires a Recorder; entries go through kafka when messaging is enabled.
func NewRecorder(p Params) *Recorder {
	var sink Sink = DirectSink{Repo: p.Repository}
	if p.Config.Messaging.Enabled && p.Publisher != nil {
		sink = PublishSink{Client: p.Publisher}
	}
	return New(p.Repository, sink, p.Logger)
}

// New builds a Recorder around an explicit sink.
func New(repo *auditlog.Repository, sink Sink, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	counter, err := otel.Meter(instrumentation).Int64Counter("audit.entries",
		metric.WithDescription("Audit entries by outcome"))
	if err != nil {
		logger.Warn("audit counter unavailable", zap.Error(err))
	}
	return &Recorder{
		repo:    repo,
		sink:    sink,
		logger:  logger,
		entries: counter,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Record resolves the label of target id and writes an entry attributed to actorID.
// It must run after the mutation it describes has succeeded.
func (r *Recorder) Record(ctx context.Context, actorID int64, action entity.Action, target entity.Target, id int64) {
	ctx, span := serviceTracer.Start(ctx, "AuditRecorder.Record")
	defer span.End()

	label, err := r.repo.Label(ctx, target, id)
	if err != nil {
		r.fail(ctx, "resolve audit label", err, action, target, id)
		return
	}
	r.write(ctx, actorID, action, target, id, label)
}

// Prepared is a label captured before the entity disappears.
type Prepared struct {
	recorder *Recorder
	target   entity.Target
	id       int64
	label    string
	ok       bool
}

// PrepareDelete captures the label of target id so the entry can be written after a hard delete.
func (r *Recorder) PrepareDelete(ctx context.Context, target entity.Target, id int64) Prepared {
	p := Prepared{recorder: r, target: target, id: id}
	label, err := r.repo.Label(ctx, target, id)
	if err != nil {
		r.fail(ctx, "resolve audit label", err, entity.ActionDeleted, target, id)
		return p
	}
	p.label, p.ok = label, true
	return p
}

// Record writes the prepared entry; it is a no-op when the label could not be resolved.
func (p Prepared) Record(ctx context.Context, actorID int64, action entity.Action) {
	if !p.ok || p.recorder == nil {
		return
	}
	p.recorder.write(ctx, actorID, action, p.target, p.id, p.label)
}

func (r *Recorder) write(ctx context.Context, actorID int64, action entity.Action, target entity.Target, id int64, label string) {
	if actorID <= 0 {
		r.fail(ctx, "audit entry without actor", fmt.Errorf("actor id %d", actorID), action, target, id)
		return
	}
	e := &entity.LogEntry{
		UserID:  actorID,
		Action:  action,
		Table:   target,
		Details: strings.TrimSpace(label),
		Date:    r.now(),
	}
	if err := r.sink.Write(ctx, e); err != nil {
		r.fail(ctx, "write audit entry", err, action, target, id)
		return
	}
	r.count(ctx, "written")
}

func (r *Recorder) fail(ctx context.Context, msg string, err error, action entity.Action, target entity.Target, id int64) {
	r.logger.Warn(msg,
		zap.Error(err),
		zap.String("target", string(target)),
		zap.Int64("target_id", id),
		zap.String("action", action.Text()),
	)
	r.count(ctx, "failed")
}

func (r *Recorder) count(ctx context.Context, outcome string) {
	if r.entries == nil {
		return
	}
	r.entries.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
