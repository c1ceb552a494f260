package backorder

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/backorder/internal/config"
	"github.com/Additional-Code/backorder/internal/dto"
	"github.com/Additional-Code/backorder/internal/presentation/http/request"
	"github.com/Additional-Code/backorder/internal/presentation/http/response"
	repo "github.com/Additional-Code/backorder/internal/repository/backorder"
	service "github.com/Additional-Code/backorder/internal/service/backorder"
	"github.com/Additional-Code/backorder/internal/transport/http/gate"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/backorder/transport/http/backorder")

// Handler exposes backorder endpoints over HTTP.
type Handler struct {
	svc      *service.Service
	pageSize int
}

// NewHandler constructs a backorder Handler.
func NewHandler(svc *service.Service, cfg config.Config) *Handler {
	return &Handler{svc: svc, pageSize: cfg.Listing.PageSize}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler, g *gate.Gate) {
	grp := e.Group("/backorders", g.RequireAuth)
	grp.GET("", h.list)
	grp.POST("", h.create)
	grp.GET("/statistics", h.statistics)
	grp.GET("/:id", h.getByID)
	grp.PUT("/:id", h.update)
	grp.DELETE("/:id", h.delete)
	grp.POST("/:id/complete", h.complete)
	grp.POST("/:id/cancel", h.cancel)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	page, err := request.Paging(c, h.pageSize)
	if err != nil {
		return b.WithError(err).Build()
	}
	f, err := ParseFilter(c, page)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "backorders.list", trace.WithAttributes(attribute.Int("page", page.Number)))
	defer span.End()

	orders, err := h.svc.List(ctx, f)
	if err != nil {
		return b.WithError(err).Build()
	}

	total, err := Total(ctx, h.svc, page, f)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithPage(page.Number, page.Size, total).WithData(dto.FromBackorderViews(orders)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "backorders.getByID", trace.WithAttributes(attribute.Int64("backorder.id", id)))
	defer span.End()

	v, err := h.svc.Details(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromBackorderView(v)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.BackorderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	order := payload.Backorder()

	ctx, span := httpTracer.Start(c.Request().Context(), "backorders.create")
	span.SetAttributes(
		attribute.Int64("backorder.item_id", order.ItemID),
		attribute.Int64("backorder.customer_id", order.CustomerID),
	)
	defer span.End()

	if err := h.svc.Create(ctx, gate.ActorID(c), order); err != nil {
		return b.WithError(err).Build()
	}

	v, err := h.svc.Details(ctx, order.ID)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.FromBackorderView(v)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)

	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload repo.Changes
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "backorders.update", trace.WithAttributes(attribute.Int64("backorder.id", id)))
	defer span.End()

	if err := h.svc.Update(ctx, gate.ActorID(c), id, payload); err != nil {
		return b.WithError(err).Build()
	}

	v, err := h.svc.Details(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromBackorderView(v)).Build()
}

func (h *Handler) complete(c echo.Context) error {
	return h.transition(c, "backorders.complete", h.svc.Complete)
}

func (h *Handler) cancel(c echo.Context) error {
	return h.transition(c, "backorders.cancel", h.svc.Cancel)
}

func (h *Handler) transition(c echo.Context, name string, apply func(ctx context.Context, actorID, id int64) error) error {
	b := response.New(c)

	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), name, trace.WithAttributes(attribute.Int64("backorder.id", id)))
	defer span.End()

	if err := apply(ctx, gate.ActorID(c), id); err != nil {
		return b.WithError(err).Build()
	}

	v, err := h.svc.Details(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromBackorderView(v)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)

	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "backorders.delete", trace.WithAttributes(attribute.Int64("backorder.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, gate.ActorID(c), id); err != nil {
		return b.WithError(err).Build()
	}

	return b.Build()
}

func (h *Handler) statistics(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "backorders.statistics")
	defer span.End()

	stats, err := h.svc.Statistics(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromStatistics(stats)).Build()
}
