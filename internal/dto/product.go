package dto

import (
	"github.com/shopspring/decimal"

	"github.com/Additional-Code/backorder/internal/entity"
)

// ProductRequest is the create payload for products.
type ProductRequest struct {
	Name        string          `json:"name"`
	Code        string          `json:"code"`
	SupplierID  *int64          `json:"supplier_id"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
}

// Product converts the payload into a product entity.
func (r ProductRequest) Product() *entity.Product {
	return &entity.Product{
		Name:        r.Name,
		Code:        r.Code,
		SupplierID:  r.SupplierID,
		Price:       r.Price,
		Description: r.Description,
		Category:    r.Category,
	}
}

// ProductResponse exposes a product. Price is rendered as a fixed two-decimal string.
type ProductResponse struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Code        string           `json:"code"`
	SupplierID  *int64           `json:"supplier_id"`
	Supplier    *ProductSupplier `json:"supplier,omitempty"`
	Price       string           `json:"price"`
	Active      bool             `json:"active"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
}

// ProductSupplier carries the supplier fields joined onto a product.
type ProductSupplier struct {
	Name    string `json:"name"`
	Code    string `json:"code"`
	Contact string `json:"contact,omitempty"`
	Number  string `json:"number,omitempty"`
	Email   string `json:"email,omitempty"`
}

// FromProduct maps a bare product.
func FromProduct(p *entity.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Code:        p.Code,
		SupplierID:  p.SupplierID,
		Price:       p.Price.StringFixed(2),
		Active:      p.Active,
		Description: p.Description,
		Category:    p.Category,
	}
}

// FromProductView maps a product joined with its supplier.
func FromProductView(v *entity.ProductView) ProductResponse {
	out := FromProduct(&v.Product)
	if v.SupplierName != "" || v.SupplierCode != "" {
		out.Supplier = &ProductSupplier{
			Name:    v.SupplierName,
			Code:    v.SupplierCode,
			Contact: v.SupplierContact,
			Number:  v.SupplierNumber,
			Email:   v.SupplierEmail,
		}
	}
	return out
}

// FromProductViews maps a product listing.
func FromProductViews(vs []entity.ProductView) []ProductResponse {
	out := make([]ProductResponse, 0, len(vs))
	for i := range vs {
		out = append(out, FromProductView(&vs[i]))
	}
	return out
}

// ProductSearchResponse is a product type-ahead match.
type ProductSearchResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Supplier string `json:"supplier,omitempty"`
	Price    string `json:"price"`
}

// FromProductSearch maps product type-ahead matches.
func FromProductSearch(rs []entity.ProductSearchResult) []ProductSearchResponse {
	out := make([]ProductSearchResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, ProductSearchResponse{ID: r.ID, Name: r.Name, Code: r.Code, Supplier: r.Supplier, Price: r.Price.StringFixed(2)})
	}
	return out
}
