package backorder

import "go.uber.org/fx"

// Module provides the backorder service to Fx.
var Module = fx.Provide(NewService)
