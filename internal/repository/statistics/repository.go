package statistics

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/backorder/internal/database"
	"github.com/Additional-Code/backorder/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/backorder/repository/statistics")

// Scope restricts aggregates to one customer or supplier; the zero value is global.
type Scope struct {
	CustomerID *int64
	SupplierID *int64
}

// Totals counts backorders per completion state.
type Totals struct {
	Active    int `bun:"active" json:"active"`
	Completed int `bun:"completed" json:"completed"`
	Cancelled int `bun:"cancelled" json:"cancelled"`
	Total     int `bun:"total" json:"total"`
}

// StatusCount is the number of active backorders carrying a workflow label.
type StatusCount struct {
	Status string `bun:"status" json:"status"`
	Count  int    `bun:"count" json:"count"`
}

// MonthCount is the number of backorders placed in a calendar month (1-12).
type MonthCount struct {
	Month int `bun:"month" json:"month"`
	Count int `bun:"count" json:"count"`
}

// Counts holds the dashboard headline numbers.
type Counts struct {
	Backorders int
	Products   int
	Customers  int
	Suppliers  int
}

// Repository computes backorder aggregates. Every call reads fresh data.
type Repository struct {
	reader *bun.DB
	exec   *database.Executor
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections, exec *database.Executor) *Repository {
	return &Repository{reader: conns.Reader, exec: exec}
}

func (r *Repository) scoped(s Scope) *bun.SelectQuery {
	q := r.reader.NewSelect().Model((*entity.Backorder)(nil))
	if s.CustomerID != nil {
		q = q.Where("o.customer_id = ?", *s.CustomerID)
	}
	if s.SupplierID != nil {
		q = q.Join("JOIN products AS p ON p.id = o.item_id").Where("p.supplier_id = ?", *s.SupplierID)
	}
	return q
}

// Totals counts active, completed and cancelled backorders in scope.
func (r *Repository) Totals(ctx context.Context, s Scope) (Totals, error) {
	ctx, span := repoTracer.Start(ctx, "StatisticsRepository.Totals")
	defer span.End()

	var t Totals
	err := r.scoped(s).
		ColumnExpr("COALESCE(SUM(CASE WHEN o.order_completion_status = 0 THEN 1 ELSE 0 END), 0) AS active").
		ColumnExpr("COALESCE(SUM(CASE WHEN o.order_completion_status = 1 THEN 1 ELSE 0 END), 0) AS completed").
		ColumnExpr("COALESCE(SUM(CASE WHEN o.order_completion_status = 2 THEN 1 ELSE 0 END), 0) AS cancelled").
		ColumnExpr("COUNT(*) AS total").
		Scan(ctx, &t)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "totals failed")
		return Totals{}, err
	}
	return t, nil
}

// ByStatus groups active backorders in scope by workflow label, largest first.
func (r *Repository) ByStatus(ctx context.Context, s Scope) ([]StatusCount, error) {
	ctx, span := repoTracer.Start(ctx, "StatisticsRepository.ByStatus")
	defer span.End()

	var out []StatusCount
	err := r.scoped(s).
		ColumnExpr("o.order_status AS status").
		ColumnExpr("COUNT(*) AS count").
		Where("o.order_completion_status = ?", int(entity.CompletionActive)).
		GroupExpr("o.order_status").
		OrderExpr("count DESC").
		OrderExpr("status ASC").
		Scan(ctx, &out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "by status failed")
		return nil, err
	}
	return out, nil
}

// ByMonth counts backorders in scope placed during year, one entry per month that has any.
func (r *Repository) ByMonth(ctx context.Context, s Scope, year int) ([]MonthCount, error) {
	ctx, span := repoTracer.Start(ctx, "StatisticsRepository.ByMonth", trace.WithAttributes(attribute.Int("year", year)))
	defer span.End()

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	month := monthExpr(r.reader.Dialect().Name())

	var out []MonthCount
	err := r.scoped(s).
		ColumnExpr(month+" AS month").
		ColumnExpr("COUNT(*) AS count").
		Where("o.date_placed >= ?", from).
		Where("o.date_placed < ?", to).
		GroupExpr(month).
		OrderExpr("month ASC").
		Scan(ctx, &out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "by month failed")
		return nil, err
	}
	return out, nil
}

func monthExpr(name dialect.Name) string {
	switch name {
	case dialect.MySQL:
		return "MONTH(o.date_placed)"
	case dialect.SQLite:
		return "CAST(strftime('%m', o.date_placed) AS INTEGER)"
	default:
		return "CAST(EXTRACT(MONTH FROM o.date_placed) AS INTEGER)"
	}
}

// ActiveProducts counts the supplier's active products.
func (r *Repository) ActiveProducts(ctx context.Context, supplierID int64) (int, error) {
	return r.exec.Count(ctx, "products", database.Eq("supplier_id", supplierID), database.Eq("active", true))
}

// Counts returns active backorders plus active products, customers and suppliers.
func (r *Repository) Counts(ctx context.Context) (Counts, error) {
	ctx, span := repoTracer.Start(ctx, "StatisticsRepository.Counts")
	defer span.End()

	var c Counts
	var err error
	if c.Backorders, err = r.exec.Count(ctx, "orders", database.Eq("order_completion_status", int(entity.CompletionActive))); err != nil {
		span.SetStatus(codes.Error, "count failed")
		return Counts{}, err
	}
	for _, t := range []struct {
		table string
		dst   *int
	}{
		{"products", &c.Products},
		{"customers", &c.Customers},
		{"suppliers", &c.Suppliers},
	} {
		if *t.dst, err = r.exec.Count(ctx, t.table, database.Eq("active", true)); err != nil {
			span.SetStatus(codes.Error, "count failed")
			return Counts{}, err
		}
	}
	return c, nil
}
