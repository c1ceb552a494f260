package seeder_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	backorderrepo "github.com/Additional-Code/backorder/internal/repository/backorder"
	"github.com/Additional-Code/backorder/internal/seeder"
	"github.com/Additional-Code/backorder/internal/service/servicetest"
)

func newSeeder(env *servicetest.Env) *seeder.Seeder {
	return seeder.New(seeder.Params{
		Auth:       env.Auth,
		Customers:  env.Customers,
		Suppliers:  env.Suppliers,
		Products:   env.Products,
		Backorders: env.Backorders,
		Logger:     env.Logger,
	})
}

func TestSeedIsRepeatable(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	s := newSeeder(env)

	adminID, err := s.Admin(ctx, "admin", "changeme", "Administrator")
	require.NoError(t, err)
	require.NoError(t, env.Auth.RequireAdmin(ctx, adminID))

	again, err := s.Admin(ctx, "admin", "changeme", "Administrator")
	require.NoError(t, err)
	assert.Equal(t, adminID, again)

	_, err = s.Admin(ctx, "admin", "other", "Administrator")
	assert.Error(t, err)

	require.NoError(t, s.Samples(ctx, adminID))
	require.NoError(t, s.Samples(ctx, adminID))

	n, err := env.Backorders.Count(ctx, backorderrepo.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	acme, err := env.Customers.FindByCode(ctx, "ACME")
	require.NoError(t, err)
	orders, err := env.Customers.Backorders(ctx, acme.ID, backorderrepo.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}
