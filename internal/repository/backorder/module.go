package backorder

import "go.uber.org/fx"

// Module provides the backorder repository to Fx.
var Module = fx.Provide(NewRepository)
