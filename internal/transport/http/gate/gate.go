// Package gate holds the authentication middleware shared by the HTTP handlers.
package gate

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"

	"github.com/Additional-Code/backorder/internal/config"
	"github.com/Additional-Code/backorder/internal/presentation/http/response"
	"github.com/Additional-Code/backorder/internal/service/auth"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/backorder/transport/http/gate")

const identityKey = "auth.identity"

// Module provides the Gate.
var Module = fx.Provide(New)

// Gate resolves credentials from cookies or bearer tokens.
type Gate struct {
	svc *auth.Service
	cfg config.Auth
}

// New constructs a Gate.
func New(svc *auth.Service, cfg config.Config) *Gate {
	return &Gate{svc: svc, cfg: cfg.Auth}
}

// Credentials collects the session assertion and remember token from the request.
// A bearer token takes precedence over the session cookie.
func (g *Gate) Credentials(c echo.Context) auth.Credentials {
	var creds auth.Credentials
	if h := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		creds.SessionToken = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	} else if ck, err := c.Cookie(g.cfg.SessionCookie); err == nil {
		creds.SessionToken = ck.Value
	}
	if ck, err := c.Cookie(g.cfg.RememberCookie); err == nil {
		creds.RememberToken = ck.Value
	}
	return creds
}

// RequireAuth rejects requests without a valid session or remember token.
// A session restored from the remember token is sent back as a fresh cookie.
func (g *Gate) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := httpTracer.Start(c.Request().Context(), "gate.RequireAuth")
		res, err := g.svc.ResolveSession(ctx, g.Credentials(c))
		span.End()
		if err != nil {
			return response.New(c).WithError(err).Build()
		}
		if res.Restored != nil {
			g.SetSession(c, *res.Restored)
		}
		c.Set(identityKey, res.Identity)
		return next(c)
	}
}

// RequireGuest rejects requests that already carry a live session.
func (g *Gate) RequireGuest(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !g.svc.IsGuest(c.Request().Context(), g.Credentials(c).SessionToken) {
			return response.New(c).WithError(errorbank.Unauthorized("already authenticated")).Build()
		}
		return next(c)
	}
}

// RequireAdmin authenticates the request and then checks the admin group.
func (g *Gate) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return g.RequireAuth(func(c echo.Context) error {
		ctx, span := httpTracer.Start(c.Request().Context(), "gate.RequireAdmin")
		err := g.svc.RequireAdmin(ctx, ActorID(c))
		span.End()
		if err != nil {
			return response.New(c).WithError(err).Build()
		}
		return next(c)
	})
}

// SetSession writes the session cookie.
func (g *Gate) SetSession(c echo.Context, s auth.Session) {
	c.SetCookie(g.cookie(g.cfg.SessionCookie, s.Token, s.ExpiresAt))
}

// SetRemember writes the remember-me cookie.
func (g *Gate) SetRemember(c echo.Context, token string) {
	c.SetCookie(g.cookie(g.cfg.RememberCookie, token, time.Now().Add(g.cfg.RememberTTL)))
}

// ClearRemember expires the remember-me cookie.
func (g *Gate) ClearRemember(c echo.Context) {
	ck := g.cookie(g.cfg.RememberCookie, "", time.Unix(0, 0))
	ck.MaxAge = -1
	c.SetCookie(ck)
}

// Clear expires both cookies.
func (g *Gate) Clear(c echo.Context) {
	ck := g.cookie(g.cfg.SessionCookie, "", time.Unix(0, 0))
	ck.MaxAge = -1
	c.SetCookie(ck)
	g.ClearRemember(c)
}

func (g *Gate) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   g.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// Identity returns the identity stored by RequireAuth.
func Identity(c echo.Context) (auth.Identity, bool) {
	id, ok := c.Get(identityKey).(auth.Identity)
	return id, ok
}

// ActorID returns the authenticated user's id, or 0 outside RequireAuth.
func ActorID(c echo.Context) int64 {
	id, _ := Identity(c)
	return id.UserID
}
