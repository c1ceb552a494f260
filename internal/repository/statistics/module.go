package statistics

import "go.uber.org/fx"

// Module provides the statistics repository to Fx.
var Module = fx.Provide(NewRepository)
