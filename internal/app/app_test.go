package app_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/Additional-Code/backorder/internal/app"
	"github.com/Additional-Code/backorder/internal/seeder"
)

func TestGraphsResolve(t *testing.T) {
	for name, opts := range map[string]fx.Option{
		"http":   app.HTTP,
		"worker": app.Worker,
		"seed":   fx.Options(app.Core, seeder.Module, fx.Invoke(func(*seeder.Seeder) {})),
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, fx.ValidateApp(opts))
		})
	}
}
