package backorder

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/backorder/internal/entity"
	repo "github.com/Additional-Code/backorder/internal/repository/backorder"
	customerrepo "github.com/Additional-Code/backorder/internal/repository/customer"
	productrepo "github.com/Additional-Code/backorder/internal/repository/product"
	"github.com/Additional-Code/backorder/internal/service/audit"
	"github.com/Additional-Code/backorder/internal/service/guard"
	"github.com/Additional-Code/backorder/internal/service/statistics"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/backorder/service/backorder")

// Service encapsulates business rules around backorders.
type Service struct {
	repo      *repo.Repository
	products  *productrepo.Repository
	customers *customerrepo.Repository
	stats     *statistics.Service
	audit     *audit.Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Products   *productrepo.Repository
	Customers  *customerrepo.Repository
	Statistics *statistics.Service
	Audit      *audit.Recorder
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:      p.Repository,
		products:  p.Products,
		customers: p.Customers,
		stats:     p.Statistics,
		audit:     p.Audit,
		logger:    p.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// FindByID returns the backorder in any completion state.
func (s *Service) FindByID(ctx context.Context, id int64) (*entity.Backorder, error) {
	ctx, span := serviceTracer.Start(ctx, "BackorderService.FindByID", trace.WithAttributes(attribute.Int64("backorder.id", id)))
	defer span.End()

	b, err := s.repo.FindByID(ctx, id)
	return b, s.lookupErr(span, err)
}

// Details returns the backorder with item, customer and supplier labels.
func (s *Service) Details(ctx context.Context, id int64) (*entity.BackorderView, error) {
	ctx, span := serviceTracer.Start(ctx, "BackorderService.Details", trace.WithAttributes(attribute.Int64("backorder.id", id)))
	defer span.End()

	v, err := s.repo.Details(ctx, id)
	return v, s.lookupErr(span, err)
}

func (s *Service) lookupErr(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return errorbank.NotFound("backorder not found")
	}
	return guard.Storage(span, "failed to load backorder", "", err)
}

// List returns a page of denormalised backorders.
func (s *Service) List(ctx context.Context, f repo.ListFilter) ([]entity.BackorderView, error) {
	ctx, span := serviceTracer.Start(ctx, "BackorderService.List")
	defer span.End()

	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, guard.Storage(span, "failed to list backorders", "", err)
	}
	return out, nil
}

// Count returns the total number of backorders matching f.
func (s *Service) Count(ctx context.Context, f repo.ListFilter) (int, error) {
	ctx, span := serviceTracer.Start(ctx, "BackorderService.Count")
	defer span.End()

	n, err := s.repo.Count(ctx, f)
	if err != nil {
		return 0, guard.Storage(span, "failed to count backorders", "", err)
	}
	return n, nil
}

// Latest returns up to limit active backorders, newest placed first.
func (s *Service) Latest(ctx context.Context, limit int) ([]entity.BackorderView, error) {
	ctx, span := serviceTracer.Start(ctx, "BackorderService.Latest")
	defer span.End()

	out, err := s.repo.Latest(ctx, limit)
	if err != nil {
		return nil, guard.Storage(span, "failed to list latest backorders", "", err)
	}
	return out, nil
}

// Create validates b against existing product and customer rows and inserts it as active.
// A blank status becomes "Noted" and a zero placement date becomes now.
func (s *Service) Create(ctx context.Context, actorID int64, b *entity.Backorder) error {
	if b == nil {
		return errorbank.BadRequest("backorder payload is required")
	}
	if err := guard.Actor(actorID); err != nil {
		return err
	}
	ctx, span := serviceTracer.Start(ctx, "BackorderService.Create", trace.WithAttributes(
		attribute.Int64("backorder.item_id", b.ItemID),
		attribute.Int64("backorder.customer_id", b.CustomerID),
	))
	defer span.End()

	b.Status = strings.TrimSpace(b.Status)
	if b.Status == "" {
		b.Status = entity.DefaultBackorderStatus
	}
	if b.DatePlaced.IsZero() {
		b.DatePlaced = s.now()
	}
	b.DatePlaced = b.DatePlaced.UTC()
	b.CompletionStatus = entity.CompletionActive
	b.DateCompleted = nil
	if err := guard.Struct(b); err != nil {
		return err
	}
	if err := s.ensureReferences(ctx, span, &b.ItemID, &b.CustomerID); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return guard.Storage(span, "failed to create backorder", "", err)
	}

	s.audit.Record(ctx, actorID, entity.ActionCreated, entity.TargetBackorder, b.ID)
	return nil
}

// ensureReferences checks that the present item and customer ids resolve.
func (s *Service) ensureReferences(ctx context.Context, span trace.Span, itemID, customerID *int64) error {
	if itemID != nil {
		_, err := s.products.FindByID(ctx, *itemID)
		if errors.Is(err, productrepo.ErrNotFound) {
			return errorbank.Validation("product does not exist", errorbank.WithDetail("item_id", *itemID))
		}
		if err != nil {
			return guard.Storage(span, "failed to check product", "", err)
		}
	}
	if customerID != nil {
		_, err := s.customers.FindByID(ctx, *customerID)
		if errors.Is(err, customerrepo.ErrNotFound) {
			return errorbank.Validation("customer does not exist", errorbank.WithDetail("customer_id", *customerID))
		}
		if err != nil {
			return guard.Storage(span, "failed to check customer", "", err)
		}
	}
	return nil
}

// Update applies the present fields of ch to the backorder.
func (s *Service) Update(ctx context.Context, actorID, id int64, ch repo.Changes) error {
	if err := guard.Actor(actorID); err != nil {
		return err
	}
	ctx, span := serviceTracer.Start(ctx, "BackorderService.Update", trace.WithAttributes(attribute.Int64("backorder.id", id)))
	defer span.End()

	if len(ch.Fields()) == 0 {
		return errorbank.Validation("no changes supplied")
	}
	if ch.Quantity != nil && *ch.Quantity <= 0 {
		return errorbank.Validation("quantity must be positive", errorbank.WithDetail("quantity", "gt"))
	}
	if err := guard.Required("status", ch.Status); err != nil {
		return err
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return s.lookupErr(span, err)
	}
	if err := s.ensureReferences(ctx, span, ch.ItemID, ch.CustomerID); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, ch); err != nil {
		return guard.Storage(span, "failed to update backorder", "", err)
	}

	s.audit.Record(ctx, actorID, entity.ActionUpdated, entity.TargetBackorder, id)
	return nil
}

// Complete marks the backorder completed and stamps the completion time.
// Terminal states are not guarded; a repeat call re-stamps.
func (s *Service) Complete(ctx context.Context, actorID, id int64) error {
	return s.transition(ctx, actorID, id, entity.CompletionCompleted, entity.ActionCompleted)
}

// Cancel marks the backorder cancelled and stamps the completion time.
func (s *Service) Cancel(ctx context.Context, actorID, id int64) error {
	return s.transition(ctx, actorID, id, entity.CompletionCancelled, entity.ActionCancelled)
}

func (s *Service) transition(ctx context.Context, actorID, id int64, status entity.CompletionStatus, action entity.Action) error {
	if err := guard.Actor(actorID); err != nil {
		return err
	}
	ctx, span := serviceTracer.Start(ctx, "BackorderService.Transition", trace.WithAttributes(
		attribute.Int64("backorder.id", id),
		attribute.String("backorder.completion", status.String()),
	))
	defer span.End()

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return s.lookupErr(span, err)
	}
	if err := s.repo.SetCompletion(ctx, id, status, s.now()); err != nil {
		return guard.Storage(span, "failed to update backorder completion", "", err)
	}

	s.audit.Record(ctx, actorID, action, entity.TargetBackorder, id)
	return nil
}

// Delete removes the backorder permanently. Its audit label is resolved first.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := guard.Actor(actorID); err != nil {
		return err
	}
	ctx, span := serviceTracer.Start(ctx, "BackorderService.Delete", trace.WithAttributes(attribute.Int64("backorder.id", id)))
	defer span.End()

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return s.lookupErr(span, err)
	}
	pending := s.audit.PrepareDelete(ctx, entity.TargetBackorder, id)
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.lookupErr(span, err)
	}

	pending.Record(ctx, actorID, entity.ActionDeleted)
	return nil
}

// Statistics aggregates over every backorder.
func (s *Service) Statistics(ctx context.Context) (*statistics.Statistics, error) {
	return s.stats.Global(ctx)
}
