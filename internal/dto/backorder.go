package dto

import (
	"time"

	"github.com/Additional-Code/backorder/internal/entity"
)

// BackorderRequest is the create payload for backorders.
type BackorderRequest struct {
	ItemID     int64      `json:"item_id"`
	CustomerID int64      `json:"customer_id"`
	Quantity   int        `json:"quantity"`
	Status     string     `json:"status"`
	DatePlaced *time.Time `json:"date_placed"`
	Notes      string     `json:"notes"`
}

// Backorder converts the payload into a backorder entity.
func (r BackorderRequest) Backorder() *entity.Backorder {
	b := &entity.Backorder{
		ItemID:     r.ItemID,
		CustomerID: r.CustomerID,
		Quantity:   r.Quantity,
		Status:     r.Status,
		Notes:      r.Notes,
	}
	if r.DatePlaced != nil {
		b.DatePlaced = r.DatePlaced.UTC()
	}
	return b
}

// BackorderResponse exposes a backorder; the label fields are set on joined reads.
type BackorderResponse struct {
	ID            int64      `json:"id"`
	ItemID        int64      `json:"item_id"`
	ItemName      string     `json:"item_name,omitempty"`
	ItemCode      string     `json:"item_code,omitempty"`
	CustomerID    int64      `json:"customer_id"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerCode  string     `json:"customer_code,omitempty"`
	SupplierID    *int64     `json:"supplier_id,omitempty"`
	SupplierName  string     `json:"supplier_name,omitempty"`
	Quantity      int        `json:"quantity"`
	Status        string     `json:"status"`
	Completion    string     `json:"completion"`
	DatePlaced    time.Time  `json:"date_placed"`
	DateCompleted *time.Time `json:"date_completed"`
	Notes         string     `json:"notes"`
}

// FromBackorder maps a bare backorder.
func FromBackorder(b *entity.Backorder) BackorderResponse {
	return BackorderResponse{
		ID:            b.ID,
		ItemID:        b.ItemID,
		CustomerID:    b.CustomerID,
		Quantity:      b.Quantity,
		Status:        b.Status,
		Completion:    b.CompletionStatus.String(),
		DatePlaced:    b.DatePlaced,
		DateCompleted: b.DateCompleted,
		Notes:         b.Notes,
	}
}

// FromBackorderView maps a denormalised backorder.
func FromBackorderView(v *entity.BackorderView) BackorderResponse {
	out := FromBackorder(&v.Backorder)
	out.ItemName = v.ItemName
	out.ItemCode = v.ItemCode
	out.CustomerName = v.CustomerName
	out.CustomerCode = v.CustomerCode
	out.SupplierID = v.SupplierID
	out.SupplierName = v.SupplierName
	return out
}

// FromBackorderViews maps a backorder listing.
func FromBackorderViews(vs []entity.BackorderView) []BackorderResponse {
	out := make([]BackorderResponse, 0, len(vs))
	for i := range vs {
		out = append(out, FromBackorderView(&vs[i]))
	}
	return out
}
