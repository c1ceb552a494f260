package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/backorder/internal/entity"
	"github.com/Additional-Code/backorder/internal/service/auth"
	"github.com/Additional-Code/backorder/internal/service/servicetest"
	"github.com/Additional-Code/backorder/internal/transport/http/account"
	backordertransport "github.com/Additional-Code/backorder/internal/transport/http/backorder"
	customertransport "github.com/Additional-Code/backorder/internal/transport/http/customer"
	dashboardtransport "github.com/Additional-Code/backorder/internal/transport/http/dashboard"
	"github.com/Additional-Code/backorder/internal/transport/http/gate"
	producttransport "github.com/Additional-Code/backorder/internal/transport/http/product"
	suppliertransport "github.com/Additional-Code/backorder/internal/transport/http/supplier"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]any `json:"meta"`
}

type harness struct {
	t   *testing.T
	env *servicetest.Env
	e   *echo.Echo
}

func newHarness(t *testing.T) *harness {
	env := servicetest.New(t)
	e := echo.New()
	g := gate.New(env.Auth, env.Config)

	account.Register(e, account.NewHandler(env.Auth, g, env.Config))
	dashboardtransport.Register(e, dashboardtransport.NewHandler(env.Dashboard), g)
	customertransport.Register(e, customertransport.NewHandler(env.Customers, env.Backorders, env.Config), g)
	suppliertransport.Register(e, suppliertransport.NewHandler(env.Suppliers, env.Backorders, env.Products, env.Config), g)
	producttransport.Register(e, producttransport.NewHandler(env.Products, env.Backorders, env.Config), g)
	backordertransport.Register(e, backordertransport.NewHandler(env.Backorders, env.Config), g)

	return &harness{t: t, env: env, e: e}
}

func (h *harness) do(method, path string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func (h *harness) login(username string, remember bool) []*http.Cookie {
	h.t.Helper()
	rec, _ := h.do(http.MethodPost, "/login", map[string]any{
		"username": username,
		"password": "secret123",
		"remember": remember,
	})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	return rec.Result().Cookies()
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/customers", "/suppliers", "/products", "/backorders", "/dashboard", "/me"} {
		rec, env := h.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.False(t, env.Success)
		assert.Equal(t, "unauthenticated", env.Error.Kind)
	}
}

func TestRegisterLoginAndGuestGate(t *testing.T) {
	h := newHarness(t)

	rec, env := h.do(http.MethodPost, "/register", map[string]any{
		"username":         "alice",
		"password":         "secret123",
		"password_confirm": "secret123",
		"name":             "Alice Smith",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.Success)

	rec, env = h.do(http.MethodPost, "/login", map[string]any{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid username or password", env.Error.Message)

	cookies := h.login("alice", false)
	session := cookieNamed(cookies, h.env.Config.Auth.SessionCookie)
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Nil(t, cookieNamed(cookies, h.env.Config.Auth.RememberCookie))

	rec, env = h.do(http.MethodPost, "/login", map[string]any{"username": "alice", "password": "secret123"}, session)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "already authenticated", env.Error.Message)

	rec, env = h.do(http.MethodGet, "/me", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		Admin    bool   `json:"admin"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "Alice Smith", me.Name)
	assert.False(t, me.Admin)
}

func TestBearerTokenAuthenticates(t *testing.T) {
	h := newHarness(t)
	h.env.Actor(t, "alice")

	rec, env := h.do(http.MethodPost, "/login", map[string]any{"username": "alice", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var session struct {
		Token string        `json:"token"`
		User  auth.Identity `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.Token)
	assert.Equal(t, "alice", session.User.Username)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+session.Token)
	out := httptest.NewRecorder()
	h.e.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)
}

func TestRememberCookieRestoresSession(t *testing.T) {
	h := newHarness(t)
	h.env.Actor(t, "alice")

	cookies := h.login("alice", true)
	remember := cookieNamed(cookies, h.env.Config.Auth.RememberCookie)
	require.NotNil(t, remember)
	assert.Len(t, remember.Value, 128)

	rec, _ := h.do(http.MethodGet, "/me", nil, remember)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, cookieNamed(rec.Result().Cookies(), h.env.Config.Auth.SessionCookie), "restored session is sent back")

	rec, _ = h.do(http.MethodPost, "/logout", nil, cookies...)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = h.do(http.MethodGet, "/me", nil, remember)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCustomerEndpoints(t *testing.T) {
	h := newHarness(t)
	h.env.Actor(t, "alice")
	session := h.login("alice", false)

	rec, env := h.do(http.MethodPost, "/customers", map[string]any{"name": "Acme", "code": "ACME", "email": "ops@acme.test"}, session...)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID     int64  `json:"id"`
		Code   string `json:"code"`
		Active bool   `json:"active"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "ACME", created.Code)
	assert.True(t, created.Active)

	rec, env = h.do(http.MethodPost, "/customers", map[string]any{"name": "Copy", "code": "ACME"}, session...)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation_failed", env.Error.Kind)

	h.do(http.MethodPost, "/customers", map[string]any{"name": "Beta", "code": "BETA"}, session...)

	rec, env = h.do(http.MethodGet, "/customers?with_total=true&per_page=1&order=name", nil, session...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, env.Meta["total"])
	assert.EqualValues(t, 1, env.Meta["per_page"])
	var page []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page, 1)
	assert.Equal(t, "Acme", page[0].Name)

	_, env = h.do(http.MethodGet, "/customers", nil, session...)
	assert.NotContains(t, env.Meta, "total")

	rec, env = h.do(http.MethodPut, fmt.Sprintf("/customers/%d", created.ID), map[string]any{"contact_name": "Road Runner"}, session...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated struct {
		Name        string `json:"name"`
		ContactName string `json:"contact_name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "Acme", updated.Name)
	assert.Equal(t, "Road Runner", updated.ContactName)

	rec, _ = h.do(http.MethodGet, "/customers/code/ACME", nil, session...)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = h.do(http.MethodGet, "/customers/search?q=acm", nil, session...)
	require.Equal(t, http.StatusOK, rec.Code)
	var matches []struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "ACME", matches[0].Code)

	rec, _ = h.do(http.MethodDelete, fmt.Sprintf("/customers/%d", created.ID), nil, session...)
	require.Equal(t, http.StatusOK, rec.Code)

	_, env = h.do(http.MethodGet, fmt.Sprintf("/customers/%d", created.ID), nil, session...)
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.False(t, created.Active)

	rec, env = h.do(http.MethodGet, "/customers/abc", nil, session...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", env.Error.Kind)

	rec, _ = h.do(http.MethodGet, "/customers/999", nil, session...)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBackorderEndpoints(t *testing.T) {
	h := newHarness(t)
	actor := h.env.Actor(t, "alice")
	session := h.login("alice", false)
	c := h.env.Customer(t, actor, "Acme", "ACME")
	p := h.env.Product(t, actor, "Widget", "W1", nil)

	rec, env := h.do(http.MethodPost, "/backorders", map[string]any{"item_id": p.ID, "customer_id": c.ID, "quantity": 3}, session...)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order struct {
		ID           int64  `json:"id"`
		ItemName     string `json:"item_name"`
		CustomerName string `json:"customer_name"`
		Status       string `json:"status"`
		Completion   string `json:"completion"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "Widget", order.ItemName)
	assert.Equal(t, "Acme", order.CustomerName)
	assert.Equal(t, entity.DefaultBackorderStatus, order.Status)
	assert.Equal(t, "active", order.Completion)

	rec, _ = h.do(http.MethodPost, "/backorders", map[string]any{"item_id": p.ID, "customer_id": c.ID, "quantity": 0}, session...)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, env = h.do(http.MethodPost, fmt.Sprintf("/backorders/%d/complete", order.ID), nil, session...)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "completed", order.Completion)

	_, env = h.do(http.MethodGet, "/backorders?completion=completed&with_total=true", nil, session...)
	assert.EqualValues(t, 1, env.Meta["total"])
	_, env = h.do(http.MethodGet, "/backorders?completion=active&with_total=true", nil, session...)
	assert.EqualValues(t, 0, env.Meta["total"])

	rec, _ = h.do(http.MethodGet, "/backorders?completion=bogus", nil, session...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = h.do(http.MethodGet, fmt.Sprintf("/customers/%d/backorders?with_total=true", c.ID), nil, session...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, env.Meta["total"])

	rec, env = h.do(http.MethodGet, "/backorders/statistics", nil, session...)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Totals struct {
			Completed int `json:"completed"`
			Total     int `json:"total"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.Totals.Completed)
	assert.Equal(t, 1, stats.Totals.Total)

	rec, _ = h.do(http.MethodDelete, fmt.Sprintf("/backorders/%d", order.ID), nil, session...)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = h.do(http.MethodGet, fmt.Sprintf("/backorders/%d", order.ID), nil, session...)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductAndSupplierEndpoints(t *testing.T) {
	h := newHarness(t)
	actor := h.env.Actor(t, "alice")
	session := h.login("alice", false)
	s := h.env.Supplier(t, actor, "Parts Inc", "PARTS")

	rec, env := h.do(http.MethodPost, "/products", map[string]any{
		"name":        "Widget",
		"code":        "W1",
		"supplier_id": s.ID,
		"price":       "12.5",
		"category":    "Tools",
	}, session...)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var product struct {
		ID    int64  `json:"id"`
		Price string `json:"price"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &product))
	assert.Equal(t, "12.50", product.Price)

	rec, env = h.do(http.MethodGet, fmt.Sprintf("/products/%d", product.ID), nil, session...)
	require.Equal(t, http.StatusOK, rec.Code)
	var details struct {
		Supplier struct {
			Name string `json:"name"`
		} `json:"supplier"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &details))
	assert.Equal(t, "Parts Inc", details.Supplier.Name)

	_, env = h.do(http.MethodGet, "/products/categories", nil, session...)
	var cats []string
	require.NoError(t, json.Unmarshal(env.Data, &cats))
	assert.Equal(t, []string{"Tools"}, cats)

	rec, env = h.do(http.MethodGet, fmt.Sprintf("/suppliers/%d/products?with_total=true", s.ID), nil, session...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, env.Meta["total"])

	rec, _ = h.do(http.MethodGet, "/suppliers/999/products", nil, session...)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = h.do(http.MethodGet, fmt.Sprintf("/suppliers/%d/statistics", s.ID), nil, session...)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		ActiveProducts *int `json:"active_products"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	require.NotNil(t, stats.ActiveProducts)
	assert.Equal(t, 1, *stats.ActiveProducts)
}

func TestUsersRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	h.env.Actor(t, "alice")
	_, err := h.env.Auth.CreateUser(t.Context(), auth.Registration{Username: "root", Password: "secret123", Name: "Root"}, entity.GroupAdmin)
	require.NoError(t, err)

	rec, env := h.do(http.MethodGet, "/users", nil, h.login("alice", false)...)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "unauthorized", env.Error.Kind)

	rec, env = h.do(http.MethodGet, "/users", nil, h.login("root", false)...)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []struct {
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &users))
	assert.Len(t, users, 2)
}

func TestDashboardEndpoint(t *testing.T) {
	h := newHarness(t)
	actor := h.env.Actor(t, "alice")
	session := h.login("alice", false)
	c := h.env.Customer(t, actor, "Acme", "ACME")
	p := h.env.Product(t, actor, "Widget", "W1", nil)
	h.env.Backorder(t, actor, p.ID, c.ID, 1)

	rec, env := h.do(http.MethodGet, "/dashboard", nil, session...)
	require.Equal(t, http.StatusOK, rec.Code)
	var overview struct {
		Counts struct {
			Backorders int `json:"backorders"`
		} `json:"counts"`
		Charts     []struct{ Months []int }  `json:"charts"`
		Activity   []struct{ Entries []any } `json:"activity"`
		Backorders []any                     `json:"backorders"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &overview))
	assert.Equal(t, 1, overview.Counts.Backorders)
	require.Len(t, overview.Charts, 1)
	assert.Len(t, overview.Charts[0].Months, 12)
	require.Len(t, overview.Activity, 1)
	assert.Len(t, overview.Activity[0].Entries, 3)
	assert.Len(t, overview.Backorders, 1)
}
