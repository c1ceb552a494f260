package customer

import (
	"go.uber.org/fx"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/backorder/internal/transport/http/gate"
)

// Module wires HTTP customer handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(e *echo.Echo, h *Handler, g *gate.Gate) {
		Register(e, h, g)
	}),
)
