package product

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/backorder/internal/entity"
	backorderrepo "github.com/Additional-Code/backorder/internal/repository/backorder"
	repo "github.com/Additional-Code/backorder/internal/repository/product"
	"github.com/Additional-Code/backorder/internal/service/audit"
	"github.com/Additional-Code/backorder/internal/service/guard"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/backorder/service/product")

const duplicateCode = "product code already exists"

// Service encapsulates business rules around products.
type Service struct {
	repo       *repo.Repository
	backorders *backorderrepo.Repository
	audit      *audit.Recorder
	logger     *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Backorders *backorderrepo.Repository
	Audit      *audit.Recorder
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:       p.Repository,
		backorders: p.Backorders,
		audit:      p.Audit,
		logger:     p.Logger,
	}
}

// FindByID returns the product or a not-found error.
func (s *Service) FindByID(ctx context.Context, id int64) (*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "ProductService.FindByID", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	p, err := s.repo.FindByID(ctx, id)
	return p, s.lookupErr(span, err)
}

// FindByCode returns the product with exactly this item code.
func (s *Service) FindByCode(ctx context.Context, code string) (*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "ProductService.FindByCode", trace.WithAttributes(attribute.String("product.code", code)))
	defer span.End()

	p, err := s.repo.FindByCode(ctx, code)
	return p, s.lookupErr(span, err)
}

// Details returns the product joined with its supplier's contact fields.
func (s *Service) Details(ctx context.Context, id int64) (*entity.ProductView, error) {
	ctx, span := serviceTracer.Start(ctx, "ProductService.Details", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	v, err := s.repo.Details(ctx, id)
	return v, s.lookupErr(span, err)
}

func (s *Service) lookupErr(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return errorbank.NotFound("product not found")
	}
	return guard.Storage(span, "failed to load product", "", err)
}

// List returns a page of products with supplier names.
func (s *Service) List(ctx context.Context, f repo.ListFilter) ([]entity.ProductView, error) {
	ctx, span := serviceTracer.Start(ctx, "ProductService.List")
	defer span.End()

	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, guard.Storage(span, "failed to list products", "", err)
	}
	return out, nil
}

// Count returns the total number of products matching f.
func (s *Service) Count(ctx context.Context, f repo.ListFilter) (int, error) {
	ctx, span := serviceTracer.Start(ctx, "ProductService.Count")
	defer span.End()

	n, err := s.repo.Count(ctx, f)
	if err != nil {
		return 0, guard.Storage(span, "failed to count products", "", err)
	}
	return n, nil
}

// Create validates p, checks its code is unused and inserts it as active.
func (s *Service) Create(ctx context.Context, actorID int64, p *entity.Product) error {
	if p == nil {
		return errorbank.BadRequest("product payload is required")
	}
	if err := guard.Actor(actorID); err != nil {
		return err
	}
	ctx, span := serviceTracer.Start(ctx, "ProductService.Create", trace.WithAttributes(attribute.String("product.code", p.Code)))
	defer span.End()

	p.Name = strings.TrimSpace(p.Name)
	p.Code = strings.TrimSpace(p.Code)
	p.Category = strings.TrimSpace(p.Category)
	p.Active = true
	if p.SupplierID != nil && *p.SupplierID <= 0 {
		p.SupplierID = nil
	}
	if err := guard.Struct(p); err != nil {
		return err
	}
	if p.Price.IsNegative() {
		return errorbank.Validation("price must not be negative", errorbank.WithDetail("price", "gte=0"))
	}
	if err := s.ensureCodeFree(ctx, span, p.Code); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return guard.Storage(span, "failed to create product", duplicateCode, err)
	}

	s.audit.Record(ctx, actorID, entity.ActionCreated, entity.TargetProduct, p.ID)
	return nil
}

func (s *Service) ensureCodeFree(ctx context.Context, span trace.Span, code string) error {
	_, err := s.repo.FindByCode(ctx, code)
	switch {
	case err == nil:
		span.SetStatus(codes.Error, "duplicate code")
		return errorbank.Validation(duplicateCode, errorbank.WithDetail("code", code))
	case errors.Is(err, repo.ErrNotFound):
		return nil
	default:
		return guard.Storage(span, "failed to check product code", "", err)
	}
}

// Update applies the present fields of ch to the product.
func (s *Service) Update(ctx context.Context, actorID, id int64, ch repo.Changes) error {
	if err := guard.Actor(actorID); err != nil {
		return err
	}
	ctx, span := serviceTracer.Start(ctx, "ProductService.Update", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	if len(ch.Fields()) == 0 {
		return errorbank.Validation("no changes supplied")
	}
	if err := guard.Required("name", ch.Name); err != nil {
		return err
	}
	if err := guard.Required("code", ch.Code); err != nil {
		return err
	}
	if ch.Price != nil && ch.Price.IsNegative() {
		return errorbank.Validation("price must not be negative", errorbank.WithDetail("price", "gte=0"))
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.lookupErr(span, err)
	}
	if ch.Code != nil {
		code := strings.TrimSpace(*ch.Code)
		ch.Code = &code
		if code != current.Code {
			if err := s.ensureCodeFree(ctx, span, code); err != nil {
				return err
			}
		}
	}
	if err := s.repo.Update(ctx, id, ch); err != nil {
		return guard.Storage(span, "failed to update product", duplicateCode, err)
	}

	s.audit.Record(ctx, actorID, entity.ActionUpdated, entity.TargetProduct, id)
	return nil
}

// Delete deactivates the product; existing backorders keep referencing it.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := guard.Actor(actorID); err != nil {
		return err
	}
	ctx, span := serviceTracer.Start(ctx, "ProductService.Delete", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return s.lookupErr(span, err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return guard.Storage(span, "failed to delete product", "", err)
	}

	s.audit.Record(ctx, actorID, entity.ActionDeleted, entity.TargetProduct, id)
	return nil
}

// Categories lists the distinct non-empty categories in use.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	ctx, span := serviceTracer.Start(ctx, "ProductService.Categories")
	defer span.End()

	out, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, guard.Storage(span, "failed to list categories", "", err)
	}
	return out, nil
}

// Search returns up to limit active products matching term.
func (s *Service) Search(ctx context.Context, term string, limit int) ([]entity.ProductSearchResult, error) {
	ctx, span := serviceTracer.Start(ctx, "ProductService.Search")
	defer span.End()

	out, err := s.repo.Search(ctx, term, limit)
	if err != nil {
		return nil, guard.Storage(span, "failed to search products", "", err)
	}
	return out, nil
}

// Backorders lists the backorders placed for the product.
func (s *Service) Backorders(ctx context.Context, id int64, f backorderrepo.ListFilter) ([]entity.BackorderView, error) {
	ctx, span := serviceTracer.Start(ctx, "ProductService.Backorders", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, s.lookupErr(span, err)
	}
	f.ItemID = &id
	out, err := s.backorders.List(ctx, f)
	if err != nil {
		return nil, guard.Storage(span, "failed to list product backorders", "", err)
	}
	return out, nil
}
