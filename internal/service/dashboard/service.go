package dashboard

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.uber.org/fx"

	"github.com/Additional-Code/backorder/internal/config"
	"github.com/Additional-Code/backorder/internal/entity"
	statsrepo "github.com/Additional-Code/backorder/internal/repository/statistics"
	"github.com/Additional-Code/backorder/internal/service/audit"
	"github.com/Additional-Code/backorder/internal/service/backorder"
	"github.com/Additional-Code/backorder/internal/service/statistics"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/backorder/service/dashboard")

// perDay caps the entries shown for one day of activity.
const perDay = 50

// Series is one year of monthly placed-backorder counts.
type Series struct {
	Year   int
	Months []int
}

// Overview is everything the landing page shows.
type Overview struct {
	Counts     statsrepo.Counts
	Charts     []Series
	Activity   []audit.FeedDay
	Backorders []entity.BackorderView
}

// Service assembles the dashboard.
type Service struct {
	stats      *statistics.Service
	audit      *audit.Recorder
	backorders *backorder.Service
	cfg        config.Dashboard
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Statistics *statistics.Service
	Audit      *audit.Recorder
	Backorders *backorder.Service
	Config     config.Config
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		stats:      p.Statistics,
		audit:      p.Audit,
		backorders: p.Backorders,
		cfg:        p.Config.Dashboard,
	}
}

// Overview gathers the counters, chart series, activity feed and latest backorders.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	ctx, span := serviceTracer.Start(ctx, "DashboardService.Overview")
	defer span.End()

	counts, err := s.stats.Counts(ctx)
	if err != nil {
		return nil, err
	}

	charts := make([]Series, 0, len(s.cfg.ChartYears))
	for _, year := range s.cfg.ChartYears {
		months, err := s.stats.MonthlySeries(ctx, year)
		if err != nil {
			return nil, err
		}
		charts = append(charts, Series{Year: year, Months: months})
	}

	activity, err := s.audit.Latest(ctx, s.cfg.LogDays, perDay)
	if err != nil {
		return nil, err
	}

	latest, err := s.backorders.Latest(ctx, s.cfg.LatestBackorders)
	if err != nil {
		return nil, err
	}

	return &Overview{
		Counts:     counts,
		Charts:     charts,
		Activity:   activity,
		Backorders: latest,
	}, nil
}
