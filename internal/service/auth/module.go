package auth

import "go.uber.org/fx"

// Module provides the authentication service to Fx.
var Module = fx.Provide(NewService)
