package auditlog

import "go.uber.org/fx"

// Module provides the audit log repository to Fx.
var Module = fx.Provide(NewRepository)
