package product_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/backorder/internal/entity"
	backorderrepo "github.com/Additional-Code/backorder/internal/repository/backorder"
	repo "github.com/Additional-Code/backorder/internal/repository/product"
	"github.com/Additional-Code/backorder/internal/service/servicetest"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

func TestSearchMatchesSubstringCaseInsensitive(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	actor := env.Actor(t, "alice")
	s := env.Supplier(t, actor, "Parts Inc", "PARTS")

	widget := &entity.Product{Name: "Widget A", Code: "WA", SupplierID: &s.ID, Price: decimal.RequireFromString("12.50")}
	require.NoError(t, env.Products.Create(ctx, actor, widget))
	env.Product(t, actor, "Gadget B", "GB", nil)

	results, err := env.Products.Search(ctx, "wid", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, widget.ID, results[0].ID)
	assert.Equal(t, "Widget A", results[0].Name)
	assert.Equal(t, "WA", results[0].Code)
	assert.Equal(t, "Parts Inc", results[0].Supplier)
	assert.True(t, decimal.RequireFromString("12.5").Equal(results[0].Price))
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	actor := env.Actor(t, "alice")
	env.Product(t, actor, "Widget", "W1", nil)
	env.Product(t, actor, "50% Off Sign", "S1", nil)

	results, err := env.Products.Search(ctx, "%", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "S1", results[0].Code)
}

func TestCreateRules(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	actor := env.Actor(t, "alice")
	env.Product(t, actor, "Widget", "W1", nil)

	err := env.Products.Create(ctx, actor, &entity.Product{Name: "Copy", Code: "W1"})
	assert.True(t, errorbank.Is(err, errorbank.KindValidation))

	err = env.Products.Create(ctx, actor, &entity.Product{Name: "Cheap", Code: "C1", Price: decimal.NewFromInt(-1)})
	assert.True(t, errorbank.Is(err, errorbank.KindValidation))

	err = env.Products.Create(ctx, actor, &entity.Product{Code: "N1"})
	assert.True(t, errorbank.Is(err, errorbank.KindValidation))
}

func TestUpdateAndDetails(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	actor := env.Actor(t, "alice")
	s := env.Supplier(t, actor, "Parts Inc", "PARTS")
	p := env.Product(t, actor, "Widget", "W1", nil)

	price := decimal.RequireFromString("3.99")
	category := "Hardware"
	require.NoError(t, env.Products.Update(ctx, actor, p.ID, repo.Changes{
		SupplierID: &s.ID,
		Price:      &price,
		Category:   &category,
	}))

	v, err := env.Products.Details(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", v.Name)
	assert.Equal(t, "Parts Inc", v.SupplierName)
	assert.Equal(t, "Contact PARTS", v.SupplierContact)
	assert.True(t, price.Equal(v.Price))

	none := int64(0)
	require.NoError(t, env.Products.Update(ctx, actor, p.ID, repo.Changes{SupplierID: &none}))
	got, err := env.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SupplierID)
	assert.Equal(t, "Hardware", got.Category)

	negative := decimal.NewFromInt(-5)
	err = env.Products.Update(ctx, actor, p.ID, repo.Changes{Price: &negative})
	assert.True(t, errorbank.Is(err, errorbank.KindValidation))

	_, err = env.Products.Details(ctx, 999)
	assert.True(t, errorbank.Is(err, errorbank.KindNotFound))
}

func TestCategoriesAndFilters(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	actor := env.Actor(t, "alice")
	for i, c := range []string{"Tools", "Hardware", "Tools", ""} {
		p := &entity.Product{Name: "Item", Code: string(rune('A' + i)), Category: c}
		require.NoError(t, env.Products.Create(ctx, actor, p))
	}

	cats, err := env.Products.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hardware", "Tools"}, cats)

	n, err := env.Products.Count(ctx, repo.ListFilter{Category: "Tools"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDeleteKeepsBackorders(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	actor := env.Actor(t, "alice")
	c := env.Customer(t, actor, "Acme", "ACME")
	p := env.Product(t, actor, "Widget", "W1", nil)
	env.Backorder(t, actor, p.ID, c.ID, 2)

	require.NoError(t, env.Products.Delete(ctx, actor, p.ID))

	got, err := env.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	orders, err := env.Products.Backorders(ctx, p.ID, backorderrepo.ListFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "Widget", orders[0].ItemName)
}
