package entity

import "github.com/uptrace/bun"

// Customer is a party placing backorders. Code is unique across active and inactive rows.
type Customer struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID            int64  `bun:"id,pk,autoincrement"`
	Name          string `bun:"customer_name" validate:"required,max=255"`
	Code          string `bun:"customer_code" validate:"required,max=64"`
	ContactName   string `bun:"contact_name"`
	ContactNumber string `bun:"contact_number"`
	Email         string `bun:"email" validate:"omitempty,max=255"`
	Address       string `bun:"address"`
	Active        bool   `bun:"active"`
	Notes         string `bun:"notes"`
}

// Supplier mirrors Customer for the vendors products are sourced from.
type Supplier struct {
	bun.BaseModel `bun:"table:suppliers,alias:s"`

	ID            int64  `bun:"id,pk,autoincrement"`
	Name          string `bun:"supplier_name" validate:"required,max=255"`
	Code          string `bun:"supplier_code" validate:"required,max=64"`
	ContactName   string `bun:"contact_name"`
	ContactNumber string `bun:"contact_number"`
	Email         string `bun:"email" validate:"omitempty,max=255"`
	Address       string `bun:"address"`
	Active        bool   `bun:"active"`
	Notes         string `bun:"notes"`
}

// SearchResult is the reduced projection used for type-ahead lookups.
type SearchResult struct {
	ID      int64  `bun:"id"`
	Name    string `bun:"name"`
	Code    string `bun:"code"`
	Contact string `bun:"contact"`
	Extra   string `bun:"extra"`
}
