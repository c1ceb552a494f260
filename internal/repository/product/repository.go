package product

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/backorder/internal/database"
	"github.com/Additional-Code/backorder/internal/entity"
	"github.com/Additional-Code/backorder/internal/repository/filter"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/backorder/repository/product")

// ErrNotFound is returned when a product is missing.
var ErrNotFound = errors.New("product not found")

const table = "products"

var sorts = map[string]string{
	"id":       "p.id",
	"name":     "p.item_name",
	"code":     "p.item_code",
	"price":    "p.price",
	"category": "p.category",
	"supplier": "s.supplier_name",
}

// ListFilter narrows List and Count.
type ListFilter struct {
	Active     *bool
	SupplierID *int64
	Category   string
	Search     string
	OrderBy    string
	Limit      int
	Offset     int
}

// Changes is a partial update; nil fields are left untouched.
// A present SupplierID <= 0 clears the supplier reference.
type Changes struct {
	Name        *string          `json:"name"`
	Code        *string          `json:"code"`
	SupplierID  *int64           `json:"supplier_id"`
	Price       *decimal.Decimal `json:"price"`
	Active      *bool            `json:"active"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
}

// Fields returns the columns present in c.
func (c Changes) Fields() database.Fields {
	f := database.Fields{}
	if c.Name != nil {
		f["item_name"] = *c.Name
	}
	if c.Code != nil {
		f["item_code"] = *c.Code
	}
	if c.SupplierID != nil {
		if *c.SupplierID > 0 {
			f["supplier_id"] = *c.SupplierID
		} else {
			f["supplier_id"] = nil
		}
	}
	if c.Price != nil {
		f["price"] = c.Price.StringFixed(2)
	}
	if c.Active != nil {
		f["active"] = *c.Active
	}
	if c.Description != nil {
		f["description"] = *c.Description
	}
	if c.Category != nil {
		f["category"] = *c.Category
	}
	return f
}

// Repository encapsulates read/write access for products.
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

// FindByID fetches a product regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, id int64) (*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.FindByID", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	return r.findOne(ctx, span, "p.id = ?", id)
}

// FindByCode fetches a product by exact, case-sensitive item code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.FindByCode", trace.WithAttributes(attribute.String("product.code", code)))
	defer span.End()

	return r.findOne(ctx, span, "p.item_code = ?", code)
}

func (r *Repository) findOne(ctx context.Context, span trace.Span, where string, arg any) (*entity.Product, error) {
	p := new(entity.Product)
	err := r.reader.NewSelect().Model(p).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return p, nil
}

// Details fetches a product with its supplier's contact details.
func (r *Repository) Details(ctx context.Context, id int64) (*entity.ProductView, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.Details", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	v := new(entity.ProductView)
	err := r.viewQuery(v).Where("p.id = ?", id).Limit(1).Scan(ctx)
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
	return r.reader.NewSelect().Model(model).
		ColumnExpr("p.*").
		ColumnExpr("s.supplier_name AS supplier_name").
		ColumnExpr("s.supplier_code AS supplier_code").
		ColumnExpr("s.contact_name AS supplier_contact").
		ColumnExpr("s.contact_number AS supplier_number").
		ColumnExpr("s.email AS supplier_email").
		Join("LEFT JOIN suppliers AS s ON s.id = p.supplier_id")
}

// List returns products with supplier names, ordered by item name by default.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]entity.ProductView, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.List")
	defer span.End()

	var out []entity.ProductView
	q := applyFilter(r.viewQuery(&out), f)
	q = filter.Order(q, f.OrderBy, sorts, "p.item_name ASC", "p.id ASC")
	q = filter.Page(q, f.Limit, f.Offset)
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return out, nil
}

// Count returns the number of products matching f.
func (r *Repository) Count(ctx context.Context, f ListFilter) (int, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.Count")
	defer span.End()

	q := r.reader.NewSelect().Model((*entity.Product)(nil))
	n, err := applyFilter(q, f).Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
	}
	return n, err
}

func applyFilter(q *bun.SelectQuery, f ListFilter) *bun.SelectQuery {
	if f.Active != nil {
		q = q.Where("p.active = ?", *f.Active)
	}
	if f.SupplierID != nil {
		q = q.Where("p.supplier_id = ?", *f.SupplierID)
	}
	if f.Category != "" {
		q = q.Where("p.category = ?", f.Category)
	}
	return filter.Search(q, f.Search, "p.item_name", "p.item_code", "p.category")
}

// Create inserts p and sets its generated id.
func (r *Repository) Create(ctx context.Context, p *entity.Product) error {
	if p == nil {
		return errors.New("nil product")
	}
	ctx, span := repoTracer.Start(ctx, "ProductRepository.Create", trace.WithAttributes(attribute.String("product.code", p.Code)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(p).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// Update writes the present fields of ch.
func (r *Repository) Update(ctx context.Context, id int64, ch Changes) error {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.Update", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	res := r.exec.Update(ctx, table, id, ch.Fields())
	if !res.OK() {
		span.SetStatus(codes.Error, "update failed")
	}
	return res.Err
}

// Delete marks the product inactive; backorders keep referencing it.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.Delete", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	res := r.exec.Update(ctx, table, id, database.Fields{"active": false})
	if !res.OK() {
		span.SetStatus(codes.Error, "soft delete failed")
	}
	return res.Err
}

// Categories returns the distinct non-empty categories in use.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.Categories")
	defer span.End()

	var out []string
	err := r.reader.NewSelect().Model((*entity.Product)(nil)).
		ColumnExpr("DISTINCT p.category").
		Where("p.category <> ''").
		OrderExpr("p.category ASC").
		Scan(ctx, &out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return out, nil
}

// Search returns active products whose name, code or category contains term.
func (r *Repository) Search(ctx context.Context, term string, limit int) ([]entity.ProductSearchResult, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.Search", trace.WithAttributes(attribute.String("search.term", term)))
	defer span.End()

	var out []entity.ProductSearchResult
	q := r.reader.NewSelect().Model((*entity.Product)(nil)).
		ColumnExpr("p.id AS id").
		ColumnExpr("p.item_name AS name").
		ColumnExpr("p.item_code AS code").
		ColumnExpr("s.supplier_name AS supplier").
		ColumnExpr("p.price AS price").
		Join("LEFT JOIN suppliers AS s ON s.id = p.supplier_id").
		Where("p.active = ?", true)
	q = filter.Search(q, term, "p.item_name", "p.item_code", "p.category")
	q = filter.Page(q.OrderExpr("p.item_name ASC"), limit, 0)
	if err := q.Scan(ctx, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}
	return out, nil
}
