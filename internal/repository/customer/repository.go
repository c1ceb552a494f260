package customer

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/backorder/internal/database"
	"github.com/Additional-Code/backorder/internal/entity"
	"github.com/Additional-Code/backorder/internal/repository/filter"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/backorder/repository/customer")

// ErrNotFound is returned when a customer is missing.
var ErrNotFound = errors.New("customer not found")

const table = "customers"

var sorts = map[string]string{
	"id":      "c.id",
	"name":    "c.customer_name",
	"code":    "c.customer_code",
	"contact": "c.contact_name",
}

// ListFilter narrows List and Count.
type ListFilter struct {
	Active  *bool
	Search  string
	OrderBy string
	Limit   int
	Offset  int
}

// Changes is a partial update; nil fields are left untouched.
type Changes struct {
	Name          *string `json:"name"`
	Code          *string `json:"code"`
	ContactName   *string `json:"contact_name"`
	ContactNumber *string `json:"contact_number"`
	Email         *string `json:"email"`
	Address       *string `json:"address"`
	Active        *bool   `json:"active"`
	Notes         *string `json:"notes"`
}

// Fields returns the columns present in c.
func (c Changes) Fields() database.Fields {
	f := database.Fields{}
	set := func(col string, v *string) {
		if v != nil {
			f[col] = *v
		}
	}
	set("customer_name", c.Name)
	set("customer_code", c.Code)
	set("contact_name", c.ContactName)
	set("contact_number", c.ContactNumber)
	set("email", c.Email)
	set("address", c.Address)
	set("notes", c.Notes)
	if c.Active != nil {
		f["active"] = *c.Active
	}
	return f
}

// Repository encapsulates read/write access for customers.
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

// FindByID fetches a customer regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, id int64) (*entity.Customer, error) {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.FindByID", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()

	return r.findOne(ctx, span, "c.id = ?", id)
}

// FindByCode fetches a customer by exact, case-sensitive code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*entity.Customer, error) {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.FindByCode", trace.WithAttributes(attribute.String("customer.code", code)))
	defer span.End()

	return r.findOne(ctx, span, "c.customer_code = ?", code)
}

func (r *Repository) findOne(ctx context.Context, span trace.Span, where string, arg any) (*entity.Customer, error) {
	c := new(entity.Customer)
	err := r.reader.NewSelect().Model(c).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return c, nil
}

// List returns customers matching f, ordered by name unless f.OrderBy names another sort.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]entity.Customer, error) {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.List")
	defer span.End()

	var out []entity.Customer
	q := r.reader.NewSelect().Model(&out)
	q = applyFilter(q, f)
	q = filter.Order(q, f.OrderBy, sorts, "c.customer_name ASC", "c.id ASC")
	q = filter.Page(q, f.Limit, f.Offset)
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return out, nil
}

// Count returns the number of customers matching f, ignoring order and paging.
func (r *Repository) Count(ctx context.Context, f ListFilter) (int, error) {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.Count")
	defer span.End()

	q := r.reader.NewSelect().Model((*entity.Customer)(nil))
	n, err := applyFilter(q, f).Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
	}
	return n, err
}

func applyFilter(q *bun.SelectQuery, f ListFilter) *bun.SelectQuery {
	if f.Active != nil {
		q = q.Where("c.active = ?", *f.Active)
	}
	return filter.Search(q, f.Search, "c.customer_name", "c.customer_code", "c.contact_name")
}

// Create inserts c and sets its generated id.
func (r *Repository) Create(ctx context.Context, c *entity.Customer) error {
	if c == nil {
		return errors.New("nil customer")
	}
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.Create", trace.WithAttributes(attribute.String("customer.code", c.Code)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(c).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// Update writes the present fields of ch.
func (r *Repository) Update(ctx context.Context, id int64, ch Changes) error {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.Update", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()

	res := r.exec.Update(ctx, table, id, ch.Fields())
	if !res.OK() {
		span.SetStatus(codes.Error, "update failed")
	}
	return res.Err
}

// Delete marks the customer inactive; the row and its backorders are kept.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.Delete", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()

	res := r.exec.Update(ctx, table, id, database.Fields{"active": false})
	if !res.OK() {
		span.SetStatus(codes.Error, "soft delete failed")
	}
	return res.Err
}

// Search returns active customers whose name, code or contact contains term.
func (r *Repository) Search(ctx context.Context, term string, limit int) ([]entity.SearchResult, error) {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.Search", trace.WithAttributes(attribute.String("search.term", term)))
	defer span.End()

	var out []entity.SearchResult
	q := r.reader.NewSelect().Model((*entity.Customer)(nil)).
		ColumnExpr("c.id AS id").
		ColumnExpr("c.customer_name AS name").
		ColumnExpr("c.customer_code AS code").
		ColumnExpr("c.contact_name AS contact").
		ColumnExpr("c.contact_number AS extra").
		Where("c.active = ?", true)
	q = filter.Search(q, term, "c.customer_name", "c.customer_code", "c.contact_name")
	q = filter.Page(q.OrderExpr("c.customer_name ASC"), limit, 0)
	if err := q.Scan(ctx, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}
	return out, nil
}
