package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// CompletionStatus is the terminal outcome of a backorder.
type CompletionStatus int

const (
	CompletionActive    CompletionStatus = 0
	CompletionCompleted CompletionStatus = 1
	CompletionCancelled CompletionStatus = 2
)

// DefaultBackorderStatus is the workflow label assigned when none is supplied.
const DefaultBackorderStatus = "Noted"

// String returns a lowercase label for the status.
func (s CompletionStatus) String() string {
	switch s {
	case CompletionActive:
		return "active"
	case CompletionCompleted:
		return "completed"
	case CompletionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Backorder is a customer's outstanding request for a product.
type Backorder struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID               int64            `bun:"id,pk,autoincrement"`
	ItemID           int64            `bun:"item_id" validate:"gt=0"`
	CustomerID       int64            `bun:"customer_id" validate:"gt=0"`
	Quantity         int              `bun:"quantity" validate:"gt=0"`
	Status           string           `bun:"order_status" validate:"max=64"`
	DatePlaced       time.Time        `bun:"date_placed"`
	CompletionStatus CompletionStatus `bun:"order_completion_status"`
	DateCompleted    *time.Time       `bun:"date_completed"`
	Notes            string           `bun:"notes"`
}

// BackorderView denormalises a backorder with item, customer and supplier labels.
type BackorderView struct {
	Backorder `bun:",extend"`

	ItemName     string `bun:"item_name"`
	ItemCode     string `bun:"item_code"`
	CustomerName string `bun:"customer_name"`
	CustomerCode string `bun:"customer_code"`
	SupplierID   *int64 `bun:"supplier_id"`
	SupplierName string `bun:"supplier_name"`
}
