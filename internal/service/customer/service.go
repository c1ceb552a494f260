package customer

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
	repo "github.com/Additional-Code/backorder/internal/repository/customer"
	"github.com/Additional-Code/backorder/internal/service/audit"
	"github.com/Additional-Code/backorder/internal/service/guard"
	"github.com/Additional-Code/backorder/internal/service/statistics"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/backorder/service/customer")

const duplicateCode = "customer code already exists"

// Service encapsulates business rules around customers.
type Service struct {
	repo       *repo.Repository
	backorders *backorderrepo.Repository
	stats      *statistics.Service
	audit      *audit.Recorder
	logger     *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Backorders *backorderrepo.Repository
	Statistics *statistics.Service
	Audit      *audit.Recorder
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:       p.Repository,
		backorders: p.Backorders,
		stats:      p.Statistics,
		audit:      p.Audit,
		logger:     p.Logger,
	}
}

// FindByID returns the customer or a not-found error.
func (s *Service) FindByID(ctx context.Context, id int64) (*entity.Customer, error) {
	ctx, span := serviceTracer.Start(ctx, "CustomerService.FindByID", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()

	c, err := s.repo.FindByID(ctx, id)
	return c, s.lookupErr(span, err)
}

// FindByCode returns the customer with exactly this code.
func (s *Service) FindByCode(ctx context.Context, code string) (*entity.Customer, error) {
	ctx, span := serviceTracer.Start(ctx, "CustomerService.FindByCode", trace.WithAttributes(attribute.String("customer.code", code)))
	defer span.End()

	c, err := s.repo.FindByCode(ctx, code)
	return c, s.lookupErr(span, err)
}

func (s *Service) lookupErr(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return errorbank.NotFound("customer not found")
	}
	return guard.Storage(span, "failed to load customer", "", err)
}

// List returns a page of customers.
func (s *Service) List(ctx context.Context, f repo.ListFilter) ([]entity.Customer, error) {
	ctx, span := serviceTracer.Start(ctx, "CustomerService.List")
	defer span.End()

	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, guard.Storage(span, "failed to list customers", "", err)
	}
	return out, nil
}

// Count returns the total number of customers matching f.
func (s *Service) Count(ctx context.Context, f repo.ListFilter) (int, error) {
	ctx, span := serviceTracer.Start(ctx, "CustomerService.Count")
	defer span.End()

	n, err := s.repo.Count(ctx, f)
	if err != nil {
		return 0, guard.Storage(span, "failed to count customers", "", err)
	}
	return n, nil
}

// Create validates c, checks its code is unused and inserts it as active.
func (s *Service) Create(ctx context.Context, actorID int64, c *entity.Customer) error {
	if c == nil {
		return errorbank.BadRequest("customer payload is required")
	}
	if err := guard.Actor(actorID); err != nil {
		return err
	}
	ctx, span := serviceTracer.Start(ctx, "CustomerService.Create", trace.WithAttributes(attribute.String("customer.code", c.Code)))
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
		return guard.Storage(span, "failed to create customer", duplicateCode, err)
	}

	s.audit.Record(ctx, actorID, entity.ActionCreated, entity.TargetCustomer, c.ID)
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
		return guard.Storage(span, "failed to check customer code", "", err)
	}
}

// Update applies the present fields of ch to the customer.
func (s *Service) Update(ctx context.Context, actorID, id int64, ch repo.Changes) error {
	if err := guard.Actor(actorID); err != nil {
		return err
	}
	ctx, span := serviceTracer.Start(ctx, "CustomerService.Update", trace.WithAttributes(attribute.Int64("customer.id", id)))
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
		return guard.Storage(span, "failed to update customer", duplicateCode, err)
	}

	s.audit.Record(ctx, actorID, entity.ActionUpdated, entity.TargetCustomer, id)
	return nil
}

// Delete deactivates the customer; it stays resolvable by id.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := guard.Actor(actorID); err != nil {
		return err
	}
	ctx, span := serviceTracer.Start(ctx, "CustomerService.Delete", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return s.lookupErr(span, err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return guard.Storage(span, "failed to delete customer", "", err)
	}

	s.audit.Record(ctx, actorID, entity.ActionDeleted, entity.TargetCustomer, id)
	return nil
}

// Search returns up to limit active customers matching term.
func (s *Service) Search(ctx context.Context, term string, limit int) ([]entity.SearchResult, error) {
	ctx, span := serviceTracer.Start(ctx, "CustomerService.Search")
	defer span.End()

	out, err := s.repo.Search(ctx, term, limit)
	if err != nil {
		return nil, guard.Storage(span, "failed to search customers", "", err)
	}
	return out, nil
}

// Backorders lists the customer's backorders, newest placed first by default.
func (s *Service) Backorders(ctx context.Context, id int64, f backorderrepo.ListFilter) ([]entity.BackorderView, error) {
	ctx, span := serviceTracer.Start(ctx, "CustomerService.Backorders", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, s.lookupErr(span, err)
	}
	f.CustomerID = &id
	out, err := s.backorders.List(ctx, f)
	if err != nil {
		return nil, guard.Storage(span, "failed to list customer backorders", "", err)
	}
	return out, nil
}

// Statistics aggregates the customer's backorders.
func (s *Service) Statistics(ctx context.Context, id int64) (*statistics.Statistics, error) {
	ctx, span := serviceTracer.Start(ctx, "CustomerService.Statistics", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, s.lookupErr(span, err)
	}
	return s.stats.ForCustomer(ctx, id)
}
