package auditlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/backorder/internal/database"
	"github.com/Additional-Code/backorder/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/backorder/repository/auditlog")

// ErrNotFound is returned when the entity an entry refers to cannot be resolved.
var ErrNotFound = errors.New("audit target not found")

const table = "log"

var labelQueries = map[entity.Target]string{
	entity.TargetCustomer: "SELECT customer_name AS name, customer_code AS code FROM customers WHERE id = ?",
	entity.TargetSupplier: "SELECT supplier_name AS name, supplier_code AS code FROM suppliers WHERE id = ?",
	entity.TargetProduct:  "SELECT item_name AS name, item_code AS code FROM products WHERE id = ?",
	entity.TargetBackorder: "SELECT p.item_name AS item, c.customer_name AS customer FROM orders o " +
		"LEFT JOIN products p ON p.id = o.item_id " +
		"LEFT JOIN customers c ON c.id = o.customer_id WHERE o.id = ?",
}

// Repository appends and reads audit entries.
type Repository struct {
	reader *bun.DB
	exec   *database.Executor
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections, exec *database.Executor) *Repository {
	return &Repository{reader: conns.Reader, exec: exec}
}

// Label builds the human readable description of an entity:
// "Name (CODE)" for parties and products, "Item for Customer" for backorders.
func (r *Repository) Label(ctx context.Context, target entity.Target, id int64) (string, error) {
	ctx, span := repoTracer.Start(ctx, "AuditLogRepository.Label", trace.WithAttributes(
		attribute.String("audit.target", string(target)),
		attribute.Int64("audit.target_id", id),
	))
	defer span.End()

	query, ok := labelQueries[target]
	if !ok {
		return "", fmt.Errorf("unknown audit target %q", target)
	}
	res := r.exec.Query(ctx, query, id)
	if !res.OK() {
		span.SetStatus(codes.Error, "label lookup failed")
		return "", res.Err
	}
	row, ok := res.First()
	if !ok {
		span.SetStatus(codes.Error, "not found")
		return "", ErrNotFound
	}
	if target == entity.TargetBackorder {
		return row.String("item") + " for " + row.String("customer"), nil
	}
	return fmt.Sprintf("%s (%s)", row.String("name"), row.String("code")), nil
}

// Append stores e and sets its id.
func (r *Repository) Append(ctx context.Context, e *entity.LogEntry) error {
	if e == nil {
		return errors.New("nil log entry")
	}
	ctx, span := repoTracer.Start(ctx, "AuditLogRepository.Append", trace.WithAttributes(
		attribute.String("audit.target", string(e.Table)),
		attribute.Int("audit.action", int(e.Action)),
	))
	defer span.End()

	if e.Date.IsZero() {
		e.Date = time.Now().UTC()
	}
	res := r.exec.Insert(ctx, table, database.Fields{
		"user_id":     e.UserID,
		"log_action":  int(e.Action),
		"log_table":   string(e.Table),
		"log_details": e.Details,
		"log_date":    e.Date.UTC(),
	})
	if !res.OK() {
		span.SetStatus(codes.Error, "append failed")
		return res.Err
	}
	e.ID = res.ID
	return nil
}

// LatestBefore returns the newest entry time strictly before cutoff, or any entry when cutoff is nil.
func (r *Repository) LatestBefore(ctx context.Context, cutoff *time.Time) (time.Time, bool, error) {
	ctx, span := repoTracer.Start(ctx, "AuditLogRepository.LatestBefore")
	defer span.End()

	var entries []entity.LogEntry
	q := r.reader.NewSelect().Model(&entries).OrderExpr("l.log_date DESC").OrderExpr("l.id DESC").Limit(1)
	if cutoff != nil {
		q = q.Where("l.log_date < ?", cutoff.UTC())
	}
	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return time.Time{}, false, err
	}
	if len(entries) == 0 {
		return time.Time{}, false, nil
	}
	return entries[0].Date.UTC(), true, nil
}

// Between returns up to limit entries in [from, to) with actor names, newest id first.
func (r *Repository) Between(ctx context.Context, from, to time.Time, limit int) ([]entity.LogEntryView, error) {
	ctx, span := repoTracer.Start(ctx, "AuditLogRepository.Between")
	defer span.End()

	var out []entity.LogEntryView
	q := r.reader.NewSelect().Model(&out).
		ColumnExpr("l.*").
		ColumnExpr("u.name AS user_name").
		Join("LEFT JOIN users AS u ON u.id = l.user_id").
		Where("l.log_date >= ?", from.UTC()).
		Where("l.log_date < ?", to.UTC()).
		OrderExpr("l.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return out, nil
}
