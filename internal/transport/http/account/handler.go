package account

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
	userrepo "github.com/Additional-Code/backorder/internal/repository/user"
	"github.com/Additional-Code/backorder/internal/service/auth"
	"github.com/Additional-Code/backorder/internal/transport/http/gate"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/backorder/transport/http/account")

// Handler exposes login, registration and profile endpoints.
type Handler struct {
	svc      *auth.Service
	gate     *gate.Gate
	pageSize int
}

// NewHandler constructs an account Handler.
func NewHandler(svc *auth.Service, g *gate.Gate, cfg config.Config) *Handler {
	return &Handler{svc: svc, gate: g, pageSize: cfg.Listing.PageSize}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.POST("/login", h.login, h.gate.RequireGuest)
	e.POST("/register", h.register, h.gate.RequireGuest)
	e.POST("/logout", h.logout)

	me := e.Group("/me", h.gate.RequireAuth)
	me.GET("", h.profile)
	me.PUT("", h.updateProfile)
	me.PUT("/password", h.changePassword)

	e.GET("/users", h.listUsers, h.gate.RequireAdmin)
}

func (h *Handler) login(c echo.Context) error {
	b := response.New(c)

	var payload dto.LoginRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "account.login", trace.WithAttributes(
		attribute.String("user.username", payload.Username),
		attribute.Bool("login.remember", payload.Remember),
	))
	defer span.End()

	res, err := h.svc.Login(ctx, payload.Username, payload.Password, payload.Remember)
	if err != nil {
		return b.WithError(err).Build()
	}

	h.gate.SetSession(c, res.Session)
	if res.RememberToken != "" {
		h.gate.SetRemember(c, res.RememberToken)
	}

	return b.WithData(dto.SessionResponse{
		Token:      res.Session.Token,
		ExpiresAt:  res.Session.ExpiresAt,
		User:       res.Session.Identity,
		FirstLogin: res.FirstLogin,
	}).Build()
}

func (h *Handler) register(c echo.Context) error {
	b := response.New(c)

	var payload dto.RegisterRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "account.register", trace.WithAttributes(attribute.String("user.username", payload.Username)))
	defer span.End()

	u, err := h.svc.Register(ctx, payload.Registration())
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.FromUser(u)).Build()
}

func (h *Handler) logout(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "account.logout")
	defer span.End()

	if err := h.svc.Logout(ctx, h.gate.Credentials(c)); err != nil {
		return b.WithError(err).Build()
	}
	h.gate.Clear(c)

	return b.Build()
}

func (h *Handler) profile(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "account.profile")
	defer span.End()

	p, err := h.svc.Profile(ctx, gate.ActorID(c))
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromProfile(p)).Build()
}

func (h *Handler) updateProfile(c echo.Context) error {
	b := response.New(c)

	var payload userrepo.ProfileChanges
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "account.updateProfile")
	defer span.End()

	userID := gate.ActorID(c)
	if err := h.svc.UpdateProfile(ctx, userID, payload); err != nil {
		return b.WithError(err).Build()
	}

	p, err := h.svc.Profile(ctx, userID)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromProfile(p)).Build()
}

func (h *Handler) changePassword(c echo.Context) error {
	b := response.New(c)

	var payload dto.PasswordChangeRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.New == "" {
		return b.WithError(errorbank.Validation("new password is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "account.changePassword")
	defer span.End()

	if err := h.svc.ChangePassword(ctx, gate.ActorID(c), payload.Current, payload.New); err != nil {
		return b.WithError(err).Build()
	}
	// Remember tokens are revoked with the old password.
	h.gate.ClearRemember(c)

	return b.Build()
}

func (h *Handler) listUsers(c echo.Context) error {
	b := response.New(c)

	page, err := request.Paging(c, h.pageSize)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "account.listUsers", trace.WithAttributes(attribute.Int("page", page.Number)))
	defer span.End()

	users, err := h.svc.ListUsers(ctx, page.Size, page.Offset())
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithPage(page.Number, page.Size, nil).WithData(dto.FromProfiles(users)).Build()
}
