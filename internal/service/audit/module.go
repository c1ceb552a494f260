package audit

import "go.uber.org/fx"

// Module provides the audit recorder to Fx.
var Module = fx.Provide(NewRecorder)
