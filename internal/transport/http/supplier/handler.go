package supplier

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/backorder/internal/config"
	"github.com/Additional-Code/backorder/internal/dto"
	"github.com/Additional-Code/backorder/internal/presentation/http/request"
	"github.com/Additional-Code/backorder/internal/presentation/http/response"
	productrepo "github.com/Additional-Code/backorder/internal/repository/product"
	repo "github.com/Additional-Code/backorder/internal/repository/supplier"
	backordersvc "github.com/Additional-Code/backorder/internal/service/backorder"
	productsvc "github.com/Additional-Code/backorder/internal/service/product"
	service "github.com/Additional-Code/backorder/internal/service/supplier"
	backordertransport "github.com/Additional-Code/backorder/internal/transport/http/backorder"
	"github.com/Additional-Code/backorder/internal/transport/http/gate"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/backorder/transport/http/supplier")

// Handler exposes supplier endpoints over HTTP.
type Handler struct {
	svc         *service.Service
	backorders  *backordersvc.Service
	products    *productsvc.Service
	pageSize    int
	searchLimit int
}

// NewHandler constructs a supplier Handler.
func NewHandler(svc *service.Service, backorders *backordersvc.Service, products *productsvc.Service, cfg config.Config) *Handler {
	return &Handler{
		svc:         svc,
		backorders:  backorders,
		products:    products,
		pageSize:    cfg.Listing.PageSize,
		searchLimit: cfg.Listing.SearchLimit,
	}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler, g *gate.Gate) {
	grp := e.Group("/suppliers", g.RequireAuth)
	grp.GET("", h.list)
	grp.POST("", h.create)
	grp.GET("/search", h.search)
	grp.GET("/code/:code", h.getByCode)
	grp.GET("/:id", h.getByID)
	grp.PUT("/:id", h.update)
	grp.DELETE("/:id", h.delete)
	grp.GET("/:id/backorders", h.backorderList)
	grp.GET("/:id/statistics", h.statistics)
	grp.GET("/:id/products", h.productList)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	page, err := request.Paging(c, h.pageSize)
	if err != nil {
		return b.WithError(err).Build()
	}
	active, err := request.Bool(c, "active")
	if err != nil {
		return b.WithError(err).Build()
	}
	f := repo.ListFilter{
		Active:  active,
		Search:  c.QueryParam("q"),
		OrderBy: c.QueryParam("order"),
		Limit:   page.Size,
		Offset:  page.Offset(),
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "suppliers.list", trace.WithAttributes(attribute.Int("page", page.Number)))
	defer span.End()

	suppliers, err := h.svc.List(ctx, f)
	if err != nil {
		return b.WithError(err).Build()
	}

	var total *int
	if page.Total {
		n, err := h.svc.Count(ctx, f)
		if err != nil {
			return b.WithError(err).Build()
		}
		total = &n
	}

	return b.WithPage(page.Number, page.Size, total).WithData(dto.FromSuppliers(suppliers)).Build()
}

func (h *Handler) search(c echo.Context) error {
	b := response.New(c)

	limit, err := request.SearchLimit(c, h.searchLimit)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "suppliers.search")
	defer span.End()

	results, err := h.svc.Search(ctx, c.QueryParam("q"), limit)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromSearchResults(results)).Build()
}

func (h *Handler) getByCode(c echo.Context) error {
	b := response.New(c)

	code := c.Param("code")
	ctx, span := httpTracer.Start(c.Request().Context(), "suppliers.getByCode", trace.WithAttributes(attribute.String("supplier.code", code)))
	defer span.End()

	supplier, err := h.svc.FindByCode(ctx, code)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromSupplier(supplier)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "suppliers.getByID", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	supplier, err := h.svc.FindByID(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromSupplier(supplier)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.PartyRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	supplier := payload.Supplier()

	ctx, span := httpTracer.Start(c.Request().Context(), "suppliers.create")
	span.SetAttributes(
		attribute.String("supplier.code", supplier.Code),
	)
	defer span.End()

	if err := h.svc.Create(ctx, gate.ActorID(c), supplier); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.FromSupplier(supplier)).Build()
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

	ctx, span := httpTracer.Start(c.Request().Context(), "suppliers.update", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	if err := h.svc.Update(ctx, gate.ActorID(c), id, payload); err != nil {
		return b.WithError(err).Build()
	}

	supplier, err := h.svc.FindByID(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromSupplier(supplier)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)

	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "suppliers.delete", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, gate.ActorID(c), id); err != nil {
		return b.WithError(err).Build()
	}

	return b.Build()
}

func (h *Handler) backorderList(c echo.Context) error {
	b := response.New(c)

	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}
	page, err := request.Paging(c, h.pageSize)
	if err != nil {
		return b.WithError(err).Build()
	}
	f, err := backordertransport.ParseFilter(c, page)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "suppliers.backorders", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	orders, err := h.svc.Backorders(ctx, id, f)
	if err != nil {
		return b.WithError(err).Build()
	}

	f.SupplierID = &id
	total, err := backordertransport.Total(ctx, h.backorders, page, f)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithPage(page.Number, page.Size, total).WithData(dto.FromBackorderViews(orders)).Build()
}

func (h *Handler) statistics(c echo.Context) error {
	b := response.New(c)

	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "suppliers.statistics", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	stats, err := h.svc.Statistics(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromStatistics(stats)).Build()
}

func (h *Handler) productList(c echo.Context) error {
	b := response.New(c)

	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}
	page, err := request.Paging(c, h.pageSize)
	if err != nil {
		return b.WithError(err).Build()
	}
	active, err := request.Bool(c, "active")
	if err != nil {
		return b.WithError(err).Build()
	}
	f := productrepo.ListFilter{
		Active:   active,
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("q"),
		OrderBy:  c.QueryParam("order"),
		Limit:    page.Size,
		Offset:   page.Offset(),
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "suppliers.products", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	products, err := h.svc.Products(ctx, id, f)
	if err != nil {
		return b.WithError(err).Build()
	}

	var total *int
	if page.Total {
		f.SupplierID = &id
		n, err := h.products.Count(ctx, f)
		if err != nil {
			return b.WithError(err).Build()
		}
		total = &n
	}

	return b.WithPage(page.Number, page.Size, total).WithData(dto.FromProductViews(products)).Build()
}
