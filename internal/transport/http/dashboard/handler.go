package dashboard

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"

	"github.com/Additional-Code/backorder/internal/dto"
	"github.com/Additional-Code/backorder/internal/presentation/http/response"
	service "github.com/Additional-Code/backorder/internal/service/dashboard"
	"github.com/Additional-Code/backorder/internal/transport/http/gate"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/backorder/transport/http/dashboard")

// Handler exposes the dashboard overview.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a dashboard Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler, g *gate.Gate) {
	e.GET("/dashboard", h.overview, g.RequireAuth)
}

func (h *Handler) overview(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "dashboard.overview")
	defer span.End()

	o, err := h.svc.Overview(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOverview(o)).Build()
}
