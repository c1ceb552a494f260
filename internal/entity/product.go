package entity

import (
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Product is a stock item. SupplierID may reference a missing or inactive supplier.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          int64           `bun:"id,pk,autoincrement"`
	Name        string          `bun:"item_name" validate:"required,max=255"`
	Code        string          `bun:"item_code" validate:"required,max=64"`
	SupplierID  *int64          `bun:"supplier_id"`
	Price       decimal.Decimal `bun:"price"`
	Active      bool            `bun:"active"`
	Description string          `bun:"description"`
	Category    string          `bun:"category" validate:"max=128"`
}

// ProductView joins a product with its supplier's display and contact fields.
type ProductView struct {
	Product `bun:",extend"`

	SupplierName    string `bun:"supplier_name"`
	SupplierCode    string `bun:"supplier_code"`
	SupplierContact string `bun:"supplier_contact"`
	SupplierNumber  string `bun:"supplier_number"`
	SupplierEmail   string `bun:"supplier_email"`
}

// ProductSearchResult is the type-ahead projection for products.
type ProductSearchResult struct {
	ID       int64           `bun:"id"`
	Name     string          `bun:"name"`
	Code     string          `bun:"code"`
	Supplier string          `bun:"supplier"`
	Price    decimal.Decimal `bun:"price"`
}
