package product

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
	repo "github.com/Additional-Code/backorder/internal/repository/product"
	backordersvc "github.com/Additional-Code/backorder/internal/service/backorder"
	service "github.com/Additional-Code/backorder/internal/service/product"
	backordertransport "github.com/Additional-Code/backorder/internal/transport/http/backorder"
	"github.com/Additional-Code/backorder/internal/transport/http/gate"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/backorder/transport/http/product")

// Handler exposes product endpoints over HTTP.
type Handler struct {
	svc         *service.Service
	backorders  *backordersvc.Service
	pageSize    int
	searchLimit int
}

// NewHandler constructs a product Handler.
func NewHandler(svc *service.Service, backorders *backordersvc.Service, cfg config.Config) *Handler {
	return &Handler{
		svc:         svc,
		backorders:  backorders,
		pageSize:    cfg.Listing.PageSize,
		searchLimit: cfg.Listing.SearchLimit,
	}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler, g *gate.Gate) {
	grp := e.Group("/products", g.RequireAuth)
	grp.GET("", h.list)
	grp.POST("", h.create)
	grp.GET("/search", h.search)
	grp.GET("/categories", h.categories)
	grp.GET("/code/:code", h.getByCode)
	grp.GET("/:id", h.getByID)
	grp.PUT("/:id", h.update)
	grp.DELETE("/:id", h.delete)
	grp.GET("/:id/backorders", h.backorderList)
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
	supplierID, err := request.Int64(c, "supplier_id")
	if err != nil {
		return b.WithError(err).Build()
	}
	f := repo.ListFilter{
		Active:     active,
		SupplierID: supplierID,
		Category:   c.QueryParam("category"),
		Search:     c.QueryParam("q"),
		OrderBy:    c.QueryParam("order"),
		Limit:      page.Size,
		Offset:     page.Offset(),
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "products.list", trace.WithAttributes(attribute.Int("page", page.Number)))
	defer span.End()

	products, err := h.svc.List(ctx, f)
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

	return b.WithPage(page.Number, page.Size, total).WithData(dto.FromProductViews(products)).Build()
}

func (h *Handler) search(c echo.Context) error {
	b := response.New(c)

	limit, err := request.SearchLimit(c, h.searchLimit)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "products.search")
	defer span.End()

	results, err := h.svc.Search(ctx, c.QueryParam("q"), limit)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromProductSearch(results)).Build()
}

func (h *Handler) categories(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "products.categories")
	defer span.End()

	cats, err := h.svc.Categories(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	if cats == nil {
		cats = []string{}
	}

	return b.WithData(cats).Build()
}

func (h *Handler) getByCode(c echo.Context) error {
	b := response.New(c)

	code := c.Param("code")
	ctx, span := httpTracer.Start(c.Request().Context(), "products.getByCode", trace.WithAttributes(attribute.String("product.code", code)))
	defer span.End()

	p, err := h.svc.FindByCode(ctx, code)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromProduct(p)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "products.getByID", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	v, err := h.svc.Details(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromProductView(v)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.ProductRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	p := payload.Product()

	ctx, span := httpTracer.Start(c.Request().Context(), "products.create")
	span.SetAttributes(
		attribute.String("product.code", p.Code),
	)
	defer span.End()

	if err := h.svc.Create(ctx, gate.ActorID(c), p); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.FromProduct(p)).Build()
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

	ctx, span := httpTracer.Start(c.Request().Context(), "products.update", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	if err := h.svc.Update(ctx, gate.ActorID(c), id, payload); err != nil {
		return b.WithError(err).Build()
	}

	v, err := h.svc.Details(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromProductView(v)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)

	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "products.delete", trace.WithAttributes(attribute.Int64("product.id", id)))
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

	ctx, span := httpTracer.Start(c.Request().Context(), "products.backorders", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	orders, err := h.svc.Backorders(ctx, id, f)
	if err != nil {
		return b.WithError(err).Build()
	}

	f.ItemID = &id
	total, err := backordertransport.Total(ctx, h.backorders, page, f)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithPage(page.Number, page.Size, total).WithData(dto.FromBackorderViews(orders)).Build()
}
