package statistics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	repo "github.com/Additional-Code/backorder/internal/repository/statistics"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/backorder/service/statistics")

// Statistics bundles the backorder aggregates for one scope.
type Statistics struct {
	ByStatus       []repo.StatusCount
	ByMonth        []repo.MonthCount
	Totals         repo.Totals
	ActiveProducts *int
}

// Service computes backorder statistics on demand.
type Service struct {
	repo *repo.Repository
	now  func() time.Time
}

// NewService wires a statistics Service.
func NewService(r *repo.Repository) *Service {
	return &Service{repo: r, now: func() time.Time { return time.Now().UTC() }}
}

// Global aggregates over every backorder; ByMonth covers the current year.
func (s *Service) Global(ctx context.Context) (*Statistics, error) {
	ctx, span := serviceTracer.Start(ctx, "StatisticsService.Global")
	defer span.End()

	return s.compute(ctx, span, repo.Scope{})
}

// ForCustomer aggregates the customer's backorders.
func (s *Service) ForCustomer(ctx context.Context, customerID int64) (*Statistics, error) {
	ctx, span := serviceTracer.Start(ctx, "StatisticsService.ForCustomer", trace.WithAttributes(attribute.Int64("customer.id", customerID)))
	defer span.End()

	return s.compute(ctx, span, repo.Scope{CustomerID: &customerID})
}

// ForSupplier aggregates backorders for the supplier's products and counts its active products.
func (s *Service) ForSupplier(ctx context.Context, supplierID int64) (*Statistics, error) {
	ctx, span := serviceTracer.Start(ctx, "StatisticsService.ForSupplier", trace.WithAttributes(attribute.Int64("supplier.id", supplierID)))
	defer span.End()

	stats, err := s.compute(ctx, span, repo.Scope{SupplierID: &supplierID})
	if err != nil {
		return nil, err
	}
	n, err := s.repo.ActiveProducts(ctx, supplierID)
	if err != nil {
		return nil, s.storage(span, err)
	}
	stats.ActiveProducts = &n
	return stats, nil
}

func (s *Service) compute(ctx context.Context, span trace.Span, scope repo.Scope) (*Statistics, error) {
	totals, err := s.repo.Totals(ctx, scope)
	if err != nil {
		return nil, s.storage(span, err)
	}
	byStatus, err := s.repo.ByStatus(ctx, scope)
	if err != nil {
		return nil, s.storage(span, err)
	}
	byMonth, err := s.repo.ByMonth(ctx, scope, s.now().Year())
	if err != nil {
		return nil, s.storage(span, err)
	}
	return &Statistics{ByStatus: byStatus, ByMonth: byMonth, Totals: totals}, nil
}

// MonthlySeries returns twelve placed-backorder counts for year, January first, zero-filled.
func (s *Service) MonthlySeries(ctx context.Context, year int) ([]int, error) {
	ctx, span := serviceTracer.Start(ctx, "StatisticsService.MonthlySeries", trace.WithAttributes(attribute.Int("year", year)))
	defer span.End()

	months, err := s.repo.ByMonth(ctx, repo.Scope{}, year)
	if err != nil {
		return nil, s.storage(span, err)
	}
	series := make([]int, 12)
	for _, m := range months {
		if m.Month >= 1 && m.Month <= 12 {
			series[m.Month-1] = m.Count
		}
	}
	return series, nil
}

// Counts returns the dashboard headline counters.
func (s *Service) Counts(ctx context.Context) (repo.Counts, error) {
	ctx, span := serviceTracer.Start(ctx, "StatisticsService.Counts")
	defer span.End()

	c, err := s.repo.Counts(ctx)
	if err != nil {
		return repo.Counts{}, s.storage(span, err)
	}
	return c, nil
}

func (s *Service) storage(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "aggregate failed")
	return errorbank.Storage("failed to compute statistics", errorbank.WithCause(err))
}
