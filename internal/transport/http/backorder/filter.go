package backorder

import (
	"context"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/backorder/internal/entity"
	"github.com/Additional-Code/backorder/internal/presentation/http/request"
	repo "github.com/Additional-Code/backorder/internal/repository/backorder"
	service "github.com/Additional-Code/backorder/internal/service/backorder"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

// ParseFilter reads the backorder list query parameters for page p.
// Relationship endpoints reuse it and then pin their own id scope.
func ParseFilter(c echo.Context, p request.Page) (repo.ListFilter, error) {
	f := repo.ListFilter{
		Status:  strings.TrimSpace(c.QueryParam("status")),
		Search:  c.QueryParam("q"),
		OrderBy: c.QueryParam("order"),
		Limit:   p.Size,
		Offset:  p.Offset(),
	}

	completion, err := parseCompletion(c.QueryParam("completion"))
	if err != nil {
		return repo.ListFilter{}, err
	}
	f.Completion = completion

	if f.CustomerID, err = request.Int64(c, "customer_id"); err != nil {
		return repo.ListFilter{}, err
	}
	if f.ItemID, err = request.Int64(c, "item_id"); err != nil {
		return repo.ListFilter{}, err
	}
	if f.SupplierID, err = request.Int64(c, "supplier_id"); err != nil {
		return repo.ListFilter{}, err
	}
	if f.PlacedFrom, err = request.Time(c, "placed_from"); err != nil {
		return repo.ListFilter{}, err
	}
	if f.PlacedTo, f.PlacedBefore, err = request.Until(c, "placed_to"); err != nil {
		return repo.ListFilter{}, err
	}
	return f, nil
}

// parseCompletion accepts a status label or its numeric code.
func parseCompletion(raw string) (*entity.CompletionStatus, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == "all" {
		return nil, nil
	}
	for _, s := range []entity.CompletionStatus{entity.CompletionActive, entity.CompletionCompleted, entity.CompletionCancelled} {
		if raw == s.String() || raw == strconv.Itoa(int(s)) {
			return &s, nil
		}
	}
	return nil, errorbank.BadRequest("invalid completion", errorbank.WithDetail("completion", raw))
}

// Total counts the rows matching f when the page asks for an explicit total.
func Total(ctx context.Context, svc *service.Service, p request.Page, f repo.ListFilter) (*int, error) {
	if !p.Total {
		return nil, nil
	}
	n, err := svc.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
