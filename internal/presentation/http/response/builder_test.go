package response_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/backorder/internal/presentation/http/response"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

func newContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	return echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), rec
}

func TestPageMeta(t *testing.T) {
	c, rec := newContext(t)
	total := 41
	require.NoError(t, response.New(c).WithData([]int{1}).WithPage(2, 20, &total).Build())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":[1],"meta":{"page":2,"per_page":20,"total":41,"pages":3}}`, rec.Body.String())

	c, rec = newContext(t)
	require.NoError(t, response.New(c).WithData([]int{}).WithPage(1, 20, nil).Build())
	assert.JSONEq(t, `{"success":true,"data":[],"meta":{"page":1,"per_page":20}}`, rec.Body.String())
}

func TestErrorEnvelope(t *testing.T) {
	c, rec := newContext(t)
	c.Response().Header().Set(echo.HeaderXRequestID, "req-1")
	err := errorbank.Validation("customer code already exists", errorbank.WithDetail("code", "ACME"))
	require.NoError(t, response.New(c).WithError(err).Build())

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{
		"success": false,
		"error": {"kind": "validation_failed", "message": "customer code already exists", "details": {"code": "ACME"}},
		"meta": {"request_id": "req-1"}
	}`, rec.Body.String())
}

func TestErrorStatusOverride(t *testing.T) {
	c, rec := newContext(t)
	require.NoError(t, response.New(c).WithStatus(http.StatusServiceUnavailable).WithError(errorbank.Internal("down")).Build())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
