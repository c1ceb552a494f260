package supplier

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
	productrepo "github.com/Additional-Code/backorder/internal/repository/product"
	repo "github.com/Additional-Code/backorder/internal/repository/supplier"
	"github.com/Additional-Code/backorder/internal/service/audit"
	"github.com/Additional-Code/backorder/internal/service/guard"
	"github.com/Additional-Code/backorder/internal/service/statistics"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/backorder/service/supplier")

const duplicateCode = "supplier code already exists"

// Service encapsulates business rules around suppliers.
type Service struct {
	repo       *repo.Repository
	backorders *backorderrepo.Repository
	products   *productrepo.Repository
	stats      *statistics.Service
	audit      *audit.Recorder
	logger     *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Backorders *backorderrepo.Repository
	Products   *productrepo.Repository
	Statistics *statistics.Service
	Audit      *audit.Recorder
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:       p.Repository,
		backorders: p.Backorders,
		products:   p.Products,
		stats:      p.Statistics,
		audit:      p.Audit,
		logger:     p.Logger,
	}
}

// FindByID returns the supplier or a not-found error.
func (s *Service) FindByID(ctx context.Context, id int64) (*entity.Supplier, error) {
	ctx, span := serviceTracer.Start(ctx, "SupplierService.FindByID", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	c, err := s.repo.FindByID(ctx, id)
	return c, s.lookupErr(span, err)
}

// FindByCode returns the supplier with exactly this code.
func (s *Service) FindByCode(ctx context.Context, code string) (*entity.Supplier, error) {
	ctx, span := serviceTracer.Start(ctx, "SupplierService.FindByCode", trace.WithAttributes(attribute.String("supplier.code", code)))
	defer span.End()

	c, err := s.repo.FindByCode(ctx, code)
	return c, s.lookupErr(span, err)
}

func (s *Service) lookupErr(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return errorbank.NotFound("supplier not found")
	}
	return guard.Storage(span, "failed to load supplier", "", err)
}

// List returns a page of suppliers.
func (s *Service) List(ctx context.Context, f repo.ListFilter) ([]entity.Supplier, error) {
	ctx, span := serviceTracer.Start(ctx, "SupplierService.List")
	defer span.End()

	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, guard.Storage(span, "failed to list suppliers", "", err)
	}
	return out, nil
}

// Count returns the total number of suppliers matching f.
func (s *Service) Count(ctx context.Context, f repo.ListFilter) (int, error) {
	ctx, span := serviceTracer.Start(ctx, "SupplierService.Count")
	defer span.End()

	n, err := s.repo.Count(ctx, f)
	if err != nil {
		return 0, guard.Storage(span, "failed to count suppliers", "", err)
	}
	return n, nil
}

// Create validates c, checks its code is unused and inserts it as active.
func (s *Service) Create(ctx context.Context, actorID int64, c *entity.Supplier) error {
	if c == nil {
		return errorbank.BadRequest("supplier payload is required")
	}
	if err := guard.Actor(actorID); err != nil {
		return err
	}
	ctx, span := serviceTracer.Start(ctx, "SupplierService.Create", trace.WithAttributes(attribute.String("supplier.code", c.Code)))
	defer span.End()

	c.Name = strings.TrimSpace(c.Name)
	c.Code = strings.TrimSpace(c.Code)
	c.Active = true
	if err := guard.Struct(c); err != nil {
		return err
	}
	if err := s.ensureCodeFree(ctx, span, c.Code); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return guard.Storage(span, "failed to create supplier", duplicateCode, err)
	}

	s.audit.Record(ctx, actorID, entity.ActionCreated, entity.TargetSupplier, c.ID)
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
		return guard.Storage(span, "failed to check supplier code", "", err)
	}
}

// Update applies the present fields of ch to the supplier.
func (s *Service) Update(ctx context.Context, actorID, id int64, ch repo.Changes) error {
	if err := guard.Actor(actorID); err != nil {
		return err
	}
	ctx, span := serviceTracer.Start(ctx, "SupplierService.Update", trace.WithAttributes(attribute.Int64("supplier.id", id)))
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
		return guard.Storage(span, "failed to update supplier", duplicateCode, err)
	}

	s.audit.Record(ctx, actorID, entity.ActionUpdated, entity.TargetSupplier, id)
	return nil
}

// Delete deactivates the supplier; it stays resolvable by id.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := guard.Actor(actorID); err != nil {
		return err
	}
	ctx, span := serviceTracer.Start(ctx, "SupplierService.Delete", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return s.lookupErr(span, err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return guard.Storage(span, "failed to delete supplier", "", err)
	}

	s.audit.Record(ctx, actorID, entity.ActionDeleted, entity.TargetSupplier, id)
	return nil
}

// Search returns up to limit active suppliers matching term.
func (s *Service) Search(ctx context.Context, term string, limit int) ([]entity.SearchResult, error) {
	ctx, span := serviceTracer.Start(ctx, "SupplierService.Search")
	defer span.End()

	out, err := s.repo.Search(ctx, term, limit)
	if err != nil {
		return nil, guard.Storage(span, "failed to search suppliers", "", err)
	}
	return out, nil
}

// Backorders lists backorders for the supplier's products, newest placed first by default.
func (s *Service) Backorders(ctx context.Context, id int64, f backorderrepo.ListFilter) ([]entity.BackorderView, error) {
	ctx, span := serviceTracer.Start(ctx, "SupplierService.Backorders", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, s.lookupErr(span, err)
	}
	f.SupplierID = &id
	out, err := s.backorders.List(ctx, f)
	if err != nil {
		return nil, guard.Storage(span, "failed to list supplier backorders", "", err)
	}
	return out, nil
}

// Statistics aggregates backorders for the supplier's products.
func (s *Service) Statistics(ctx context.Context, id int64) (*statistics.Statistics, error) {
	ctx, span := serviceTracer.Start(ctx, "SupplierService.Statistics", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, s.lookupErr(span, err)
	}
	return s.stats.ForSupplier(ctx, id)
}

// Products lists the supplier's products, ordered by item name by default.
func (s *Service) Products(ctx context.Context, id int64, f productrepo.ListFilter) ([]entity.ProductView, error) {
	ctx, span := serviceTracer.Start(ctx, "SupplierService.Products", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, s.lookupErr(span, err)
	}
	f.SupplierID = &id
	out, err := s.products.List(ctx, f)
	if err != nil {
		return nil, guard.Storage(span, "failed to list supplier products", "", err)
	}
	return out, nil
}
