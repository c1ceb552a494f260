package supplier

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

var repoTracer = otel.Tracer("github.com/Additional-Code/backorder/repository/supplier")

// ErrNotFound is returned when a supplier is missing.
var ErrNotFound = errors.New("supplier not found")

const table = "suppliers"

var sorts = map[string]string{
	"id":      "s.id",
	"name":    "s.supplier_name",
	"code":    "s.supplier_code",
	"contact": "s.contact_name",
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
	set("supplier_name", c.Name)
	set("supplier_code", c.Code)
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

// Repository encapsulates read/write access for suppliers.
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

// FindByID fetches a supplier regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, id int64) (*entity.Supplier, error) {
	ctx, span := repoTracer.Start(ctx, "SupplierRepository.FindByID", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	return r.findOne(ctx, span, "s.id = ?", id)
}

// FindByCode fetches a supplier by exact, case-sensitive code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*entity.Supplier, error) {
	ctx, span := repoTracer.Start(ctx, "SupplierRepository.FindByCode", trace.WithAttributes(attribute.String("supplier.code", code)))
	defer span.End()

	return r.findOne(ctx, span, "s.supplier_code = ?", code)
}

func (r *Repository) findOne(ctx context.Context, span trace.Span, where string, arg any) (*entity.Supplier, error) {
	s := new(entity.Supplier)
	err := r.reader.NewSelect().Model(s).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return s, nil
}

// List returns suppliers matching f, ordered by name unless f.OrderBy names another sort.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]entity.Supplier, error) {
	ctx, span := repoTracer.Start(ctx, "SupplierRepository.List")
	defer span.End()

	var out []entity.Supplier
	q := r.reader.NewSelect().Model(&out)
	q = applyFilter(q, f)
	q = filter.Order(q, f.OrderBy, sorts, "s.supplier_name ASC", "s.id ASC")
	q = filter.Page(q, f.Limit, f.Offset)
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return out, nil
}

// Count returns the number of suppliers matching f, ignoring order and paging.
func (r *Repository) Count(ctx context.Context, f ListFilter) (int, error) {
	ctx, span := repoTracer.Start(ctx, "SupplierRepository.Count")
	defer span.End()

	q := r.reader.NewSelect().Model((*entity.Supplier)(nil))
	n, err := applyFilter(q, f).Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
	}
	return n, err
}

func applyFilter(q *bun.SelectQuery, f ListFilter) *bun.SelectQuery {
	if f.Active != nil {
		q = q.Where("s.active = ?", *f.Active)
	}
	return filter.Search(q, f.Search, "s.supplier_name", "s.supplier_code", "s.contact_name")
}

// Create inserts s and sets its generated id.
func (r *Repository) Create(ctx context.Context, s *entity.Supplier) error {
	if s == nil {
		return errors.New("nil supplier")
	}
	ctx, span := repoTracer.Start(ctx, "SupplierRepository.Create", trace.WithAttributes(attribute.String("supplier.code", s.Code)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(s).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// Update writes the present fields of ch.
func (r *Repository) Update(ctx context.Context, id int64, ch Changes) error {
	ctx, span := repoTracer.Start(ctx, "SupplierRepository.Update", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	res := r.exec.Update(ctx, table, id, ch.Fields())
	if !res.OK() {
		span.SetStatus(codes.Error, "update failed")
	}
	return res.Err
}

// Delete marks the supplier inactive; its products keep their reference.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "SupplierRepository.Delete", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	res := r.exec.Update(ctx, table, id, database.Fields{"active": false})
	if !res.OK() {
		span.SetStatus(codes.Error, "soft delete failed")
	}
	return res.Err
}

// Search returns active suppliers whose name, code or contact contains term.
func (r *Repository) Search(ctx context.Context, term string, limit int) ([]entity.SearchResult, error) {
	ctx, span := repoTracer.Start(ctx, "SupplierRepository.Search", trace.WithAttributes(attribute.String("search.term", term)))
	defer span.End()

	var out []entity.SearchResult
	q := r.reader.NewSelect().Model((*entity.Supplier)(nil)).
		ColumnExpr("s.id AS id").
		ColumnExpr("s.supplier_name AS name").
		ColumnExpr("s.supplier_code AS code").
		ColumnExpr("s.contact_name AS contact").
		ColumnExpr("s.contact_number AS extra").
		Where("s.active = ?", true)
	q = filter.Search(q, term, "s.supplier_name", "s.supplier_code", "s.contact_name")
	q = filter.Page(q.OrderExpr("s.supplier_name ASC"), limit, 0)
	if err := q.Scan(ctx, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}
	return out, nil
}
