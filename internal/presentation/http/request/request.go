// Package request parses path and query parameters into the shapes the services expect.
package request

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/backorder/internal/repository/filter"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

// ID parses the named path parameter as a positive identifier.
func ID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errorbank.BadRequest("invalid "+name, errorbank.WithCause(err))
	}
	return id, nil
}

// Page is a 1-based page position.
type Page struct {
	Number int
	Size   int
	Total  bool
}

// Offset returns the number of rows before the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Paging reads page, per_page and with_total. per_page defaults to size and is
// capped at filter.MaxLimit.
func Paging(c echo.Context, size int) (Page, error) {
	p := Page{Number: 1, Size: size}
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Page{}, errorbank.BadRequest("invalid page", errorbank.WithDetail("page", raw))
		}
		p.Number = n
	}
	if raw := c.QueryParam("per_page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Page{}, errorbank.BadRequest("invalid per_page", errorbank.WithDetail("per_page", raw))
		}
		p.Size = n
	}
	if p.Size > filter.MaxLimit {
		p.Size = filter.MaxLimit
	}
	if p.Number-1 > math.MaxInt/p.Size {
		return Page{}, errorbank.BadRequest("page out of range", errorbank.WithDetail("page", p.Number))
	}
	p.Total = strings.EqualFold(c.QueryParam("with_total"), "true")
	return p, nil
}

// Bool parses an optional boolean query parameter.
func Bool(c echo.Context, name string) (*bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errorbank.BadRequest("invalid "+name, errorbank.WithCause(err))
	}
	return &v, nil
}

// Int64 parses an optional integer query parameter.
func Int64(c echo.Context, name string) (*int64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errorbank.BadRequest("invalid "+name, errorbank.WithCause(err))
	}
	return &v, nil
}

// Time parses an optional RFC 3339 timestamp or YYYY-MM-DD date, read as UTC.
func Time(c echo.Context, name string) (*time.Time, error) {
	t, _, err := parseTime(c, name)
	return t, err
}

// Until parses an upper time bound. A timestamp is returned as an inclusive
// bound; a bare date covers the whole day and comes back as the exclusive
// start of the next day.
func Until(c echo.Context, name string) (inclusive, exclusive *time.Time, err error) {
	t, day, err := parseTime(c, name)
	if err != nil || t == nil {
		return nil, nil, err
	}
	if day {
		next := t.AddDate(0, 0, 1)
		return nil, &next, nil
	}
	return t, nil, nil
}

func parseTime(c echo.Context, name string) (*time.Time, bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, false, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, false, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return &t, true, nil
	}
	return nil, false, errorbank.BadRequest("invalid "+name, errorbank.WithDetail(name, raw))
}

// SearchLimit reads limit, falling back to def.
func SearchLimit(c echo.Context, def int) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errorbank.BadRequest("invalid limit", errorbank.WithDetail("limit", raw))
	}
	if n > filter.MaxLimit {
		n = filter.MaxLimit
	}
	return n, nil
}
