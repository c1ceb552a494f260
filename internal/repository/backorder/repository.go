package backorder

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/backorder/internal/database"
	"github.com/Additional-Code/backorder/internal/entity"
	"github.com/Additional-Code/backorder/internal/repository/filter"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/backorder/repository/backorder")

// ErrNotFound is returned when a backorder is missing.
var ErrNotFound = errors.New("backorder not found")

const table = "orders"

var sorts = map[string]string{
	"id":       "o.id",
	"placed":   "o.date_placed",
	"status":   "o.order_status",
	"quantity": "o.quantity",
	"customer": "c.customer_name",
	"item":     "p.item_name",
	"supplier": "s.supplier_name",
}

// ListFilter narrows List and Count. Relationship queries set one of the id scopes.
// PlacedTo is an inclusive bound, PlacedBefore an exclusive one.
type ListFilter struct {
	Completion   *entity.CompletionStatus
	Status       string
	CustomerID   *int64
	ItemID       *int64
	SupplierID   *int64
	PlacedFrom   *time.Time
	PlacedTo     *time.Time
	PlacedBefore *time.Time
	Search       string
	OrderBy      string
	Limit        int
	Offset       int
}

// Changes is a partial update; nil fields are left untouched.
type Changes struct {
	ItemID     *int64     `json:"item_id"`
	CustomerID *int64     `json:"customer_id"`
	Quantity   *int       `json:"quantity"`
	Status     *string    `json:"status"`
	DatePlaced *time.Time `json:"date_placed"`
	Notes      *string    `json:"notes"`
}

// Fields returns the columns present in c.
func (c Changes) Fields() database.Fields {
	f := database.Fields{}
	if c.ItemID != nil {
		f["item_id"] = *c.ItemID
	}
	if c.CustomerID != nil {
		f["customer_id"] = *c.CustomerID
	}
	if c.Quantity != nil {
		f["quantity"] = *c.Quantity
	}
	if c.Status != nil {
		f["order_status"] = *c.Status
	}
	if c.DatePlaced != nil {
		f["date_placed"] = c.DatePlaced.UTC()
	}
	if c.Notes != nil {
		f["notes"] = *c.Notes
	}
	return f
}

// Repository encapsulates read/write access for backorders.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
	exec   *database.Executor
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections, exec *database.Executor) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
		exec:   exec,
	}
}

// FindByID fetches a backorder in any completion state.
func (r *Repository) FindByID(ctx context.Context, id int64) (*entity.Backorder, error) {
	ctx, span := repoTracer.Start(ctx, "BackorderRepository.FindByID", trace.WithAttributes(attribute.Int64("backorder.id", id)))
	defer span.End()

	b := new(entity.Backorder)
	err := r.reader.NewSelect().Model(b).Where("o.id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return b, nil
}

// Details fetches a backorder with item, customer and supplier labels.
func (r *Repository) Details(ctx context.Context, id int64) (*entity.BackorderView, error) {
	ctx, span := repoTracer.Start(ctx, "BackorderRepository.Details", trace.WithAttributes(attribute.Int64("backorder.id", id)))
	defer span.End()

	v := new(entity.BackorderView)
	err := r.viewQuery(v).Where("o.id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return v, nil
}

func (r *Repository) viewQuery(model any) *bun.SelectQuery {
	return joins(r.reader.NewSelect().Model(model)).
		ColumnExpr("o.*").
		ColumnExpr("p.item_name AS item_name").
		ColumnExpr("p.item_code AS item_code").
		ColumnExpr("c.customer_name AS customer_name").
		ColumnExpr("c.customer_code AS customer_code").
		ColumnExpr("p.supplier_id AS supplier_id").
		ColumnExpr("s.supplier_name AS supplier_name")
}

func joins(q *bun.SelectQuery) *bun.SelectQuery {
	return q.
		Join("LEFT JOIN products AS p ON p.id = o.item_id").
		Join("LEFT JOIN customers AS c ON c.id = o.customer_id").
		Join("LEFT JOIN suppliers AS s ON s.id = p.supplier_id")
}

// List returns denormalised backorders, newest placed first unless f.OrderBy says otherwise.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]entity.BackorderView, error) {
	ctx, span := repoTracer.Start(ctx, "BackorderRepository.List")
	defer span.End()

	var out []entity.BackorderView
	q := applyFilter(r.viewQuery(&out), f)
	q = filter.Order(q, f.OrderBy, sorts, "o.date_placed DESC", "o.id DESC")
	q = filter.Page(q, f.Limit, f.Offset)
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return out, nil
}

// Count returns the number of backorders matching f.
func (r *Repository) Count(ctx context.Context, f ListFilter) (int, error) {
	ctx, span := repoTracer.Start(ctx, "BackorderRepository.Count")
	defer span.End()

	q := joins(r.reader.NewSelect().Model((*entity.Backorder)(nil)))
	n, err := applyFilter(q, f).Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
	}
	return n, err
}

func applyFilter(q *bun.SelectQuery, f ListFilter) *bun.SelectQuery {
	if f.Completion != nil {
		q = q.Where("o.order_completion_status = ?", int(*f.Completion))
	}
	if f.Status != "" {
		q = q.Where("o.order_status = ?", f.Status)
	}
	if f.CustomerID != nil {
		q = q.Where("o.customer_id = ?", *f.CustomerID)
	}
	if f.ItemID != nil {
		q = q.Where("o.item_id = ?", *f.ItemID)
	}
	if f.SupplierID != nil {
		q = q.Where("p.supplier_id = ?", *f.SupplierID)
	}
	if f.PlacedFrom != nil {
		q = q.Where("o.date_placed >= ?", f.PlacedFrom.UTC())
	}
	if f.PlacedTo != nil {
		q = q.Where("o.date_placed <= ?", f.PlacedTo.UTC())
	}
	if f.PlacedBefore != nil {
		q = q.Where("o.date_placed < ?", f.PlacedBefore.UTC())
	}
	return filter.Search(q, f.Search, "p.item_name", "p.item_code", "c.customer_name", "c.customer_code", "o.order_status")
}

// Latest returns the newest active backorders.
func (r *Repository) Latest(ctx context.Context, limit int) ([]entity.BackorderView, error) {
	active := entity.CompletionActive
	return r.List(ctx, ListFilter{Completion: &active, Limit: limit})
}

// Create inserts b and sets its generated id.
func (r *Repository) Create(ctx context.Context, b *entity.Backorder) error {
	if b == nil {
		return errors.New("nil backorder")
	}
	ctx, span := repoTracer.Start(ctx, "BackorderRepository.Create", trace.WithAttributes(
		attribute.Int64("backorder.item_id", b.ItemID),
		attribute.Int64("backorder.customer_id", b.CustomerID),
	))
	defer span.End()

	_, err := r.writer.NewInsert().Model(b).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// Update writes the present fields of ch.
func (r *Repository) Update(ctx context.Context, id int64, ch Changes) error {
	ctx, span := repoTracer.Start(ctx, "BackorderRepository.Update", trace.WithAttributes(attribute.Int64("backorder.id", id)))
	defer span.End()

	res := r.exec.Update(ctx, table, id, ch.Fields())
	if !res.OK() {
		span.SetStatus(codes.Error, "update failed")
	}
	return res.Err
}

// SetCompletion moves the backorder to status and stamps the completion time.
func (r *Repository) SetCompletion(ctx context.Context, id int64, status entity.CompletionStatus, at time.Time) error {
	ctx, span := repoTracer.Start(ctx, "BackorderRepository.SetCompletion", trace.WithAttributes(
		attribute.Int64("backorder.id", id),
		attribute.String("backorder.completion", status.String()),
	))
	defer span.End()

	res := r.exec.Update(ctx, table, id, database.Fields{
		"order_completion_status": int(status),
		"date_completed":          at.UTC(),
	})
	if !res.OK() {
		span.SetStatus(codes.Error, "update failed")
	}
	return res.Err
}

// Delete removes the row permanently.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "BackorderRepository.Delete", trace.WithAttributes(attribute.Int64("backorder.id", id)))
	defer span.End()

	res := r.exec.Delete(ctx, table, database.Eq("id", id))
	if !res.OK() {
		span.SetStatus(codes.Error, "delete failed")
		return res.Err
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
