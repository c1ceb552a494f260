package dto

import "github.com/Additional-Code/backorder/internal/entity"

// PartyRequest is the create payload shared by customers and suppliers.
type PartyRequest struct {
	Name          string `json:"name"`
	Code          string `json:"code"`
	ContactName   string `json:"contact_name"`
	ContactNumber string `json:"contact_number"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	Notes         string `json:"notes"`
}

// Customer converts the payload into a customer entity.
func (r PartyRequest) Customer() *entity.Customer {
	return &entity.Customer{
		Name:          r.Name,
		Code:          r.Code,
		ContactName:   r.ContactName,
		ContactNumber: r.ContactNumber,
		Email:         r.Email,
		Address:       r.Address,
		Notes:         r.Notes,
	}
}

// Supplier converts the payload into a supplier entity.
func (r PartyRequest) Supplier() *entity.Supplier {
	return &entity.Supplier{
		Name:          r.Name,
		Code:          r.Code,
		ContactName:   r.ContactName,
		ContactNumber: r.ContactNumber,
		Email:         r.Email,
		Address:       r.Address,
		Notes:         r.Notes,
	}
}

// PartyResponse exposes a customer or supplier.
type PartyResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	ContactName   string `json:"contact_name"`
	ContactNumber string `json:"contact_number"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	Active        bool   `json:"active"`
	Notes         string `json:"notes"`
}

// FromCustomer maps a customer entity.
func FromCustomer(c *entity.Customer) PartyResponse {
	return PartyResponse{
		ID:            c.ID,
		Name:          c.Name,
		Code:          c.Code,
		ContactName:   c.ContactName,
		ContactNumber: c.ContactNumber,
		Email:         c.Email,
		Address:       c.Address,
		Active:        c.Active,
		Notes:         c.Notes,
	}
}

// FromCustomers maps a customer slice.
func FromCustomers(cs []entity.Customer) []PartyResponse {
	out := make([]PartyResponse, 0, len(cs))
	for i := range cs {
		out = append(out, FromCustomer(&cs[i]))
	}
	return out
}

// FromSupplier maps a supplier entity.
func FromSupplier(s *entity.Supplier) PartyResponse {
	return PartyResponse{
		ID:            s.ID,
		Name:          s.Name,
		Code:          s.Code,
		ContactName:   s.ContactName,
		ContactNumber: s.ContactNumber,
		Email:         s.Email,
		Address:       s.Address,
		Active:        s.Active,
		Notes:         s.Notes,
	}
}

// FromSuppliers maps a supplier slice.
func FromSuppliers(ss []entity.Supplier) []PartyResponse {
	out := make([]PartyResponse, 0, len(ss))
	for i := range ss {
		out = append(out, FromSupplier(&ss[i]))
	}
	return out
}

// SearchResultResponse is a type-ahead match.
type SearchResultResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	Contact string `json:"contact,omitempty"`
	Extra   string `json:"extra,omitempty"`
}

// FromSearchResults maps type-ahead matches.
func FromSearchResults(rs []entity.SearchResult) []SearchResultResponse {
	out := make([]SearchResultResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, SearchResultResponse{ID: r.ID, Name: r.Name, Code: r.Code, Contact: r.Contact, Extra: r.Extra})
	}
	return out
}
