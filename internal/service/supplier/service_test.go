package supplier_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/backorder/internal/entity"
	backorderrepo "github.com/Additional-Code/backorder/internal/repository/backorder"
	productrepo "github.com/Additional-Code/backorder/internal/repository/product"
	repo "github.com/Additional-Code/backorder/internal/repository/supplier"
	"github.com/Additional-Code/backorder/internal/service/servicetest"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

func TestSupplierLifecycle(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	actor := env.Actor(t, "alice")

	s := env.Supplier(t, actor, "Parts Inc", "PARTS")
	got, err := env.Suppliers.FindByCode(ctx, "PARTS")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	err = env.Suppliers.Create(ctx, actor, &entity.Supplier{Name: "Copy", Code: "PARTS"})
	assert.True(t, errorbank.Is(err, errorbank.KindValidation))

	email := "sales@parts.test"
	require.NoError(t, env.Suppliers.Update(ctx, actor, s.ID, repo.Changes{Email: &email}))
	got, err = env.Suppliers.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, email, got.Email)
	assert.Equal(t, "Parts Inc", got.Name)

	require.NoError(t, env.Suppliers.Delete(ctx, actor, s.ID))
	got, err = env.Suppliers.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestSupplierRelations(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	actor := env.Actor(t, "alice")

	s := env.Supplier(t, actor, "Parts Inc", "PARTS")
	other := env.Supplier(t, actor, "Other", "OTH")
	c := env.Customer(t, actor, "Acme", "ACME")
	bolt := env.Product(t, actor, "Bolt", "B1", &s.ID)
	nut := env.Product(t, actor, "Nut", "N1", &s.ID)
	env.Product(t, actor, "Gear", "G1", &other.ID)
	require.NoError(t, env.Products.Delete(ctx, actor, nut.ID))

	b := env.Backorder(t, actor, bolt.ID, c.ID, 4)
	env.Backorder(t, actor, nut.ID, c.ID, 1)
	require.NoError(t, env.Backorders.Cancel(ctx, actor, b.ID))

	products, err := env.Suppliers.Products(ctx, s.ID, productrepo.ListFilter{})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Bolt", products[0].Name)
	assert.Equal(t, "Parts Inc", products[0].SupplierName)

	orders, err := env.Suppliers.Backorders(ctx, s.ID, backorderrepo.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	stats, err := env.Suppliers.Statistics(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Totals.Active)
	assert.Equal(t, 1, stats.Totals.Cancelled)
	require.NotNil(t, stats.ActiveProducts)
	assert.Equal(t, 1, *stats.ActiveProducts)

	_, err = env.Suppliers.Products(ctx, 999, productrepo.ListFilter{})
	assert.True(t, errorbank.Is(err, errorbank.KindNotFound))
}

func TestSupplierSearchSkipsInactive(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	actor := env.Actor(t, "alice")
	env.Supplier(t, actor, "Widget Works", "WW")
	gone := env.Supplier(t, actor, "Widget World", "WX")
	require.NoError(t, env.Suppliers.Delete(ctx, actor, gone.ID))

	results, err := env.Suppliers.Search(ctx, "widget", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "WW", results[0].Code)
}
