// Package servicetest wires the domain services over a migrated in-memory database.
package servicetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/backorder/internal/cache"
	"github.com/Additional-Code/backorder/internal/config"
	"github.com/Additional-Code/backorder/internal/database"
	"github.com/Additional-Code/backorder/internal/database/dbtest"
	"github.com/Additional-Code/backorder/internal/entity"
	"github.com/Additional-Code/backorder/internal/repository/auditlog"
	backorderrepo "github.com/Additional-Code/backorder/internal/repository/backorder"
	customerrepo "github.com/Additional-Code/backorder/internal/repository/customer"
	productrepo "github.com/Additional-Code/backorder/internal/repository/product"
	statsrepo "github.com/Additional-Code/backorder/internal/repository/statistics"
	supplierrepo "github.com/Additional-Code/backorder/internal/repository/supplier"
	userrepo "github.com/Additional-Code/backorder/internal/repository/user"
	"github.com/Additional-Code/backorder/internal/service/audit"
	"github.com/Additional-Code/backorder/internal/service/auth"
	"github.com/Additional-Code/backorder/internal/service/backorder"
	"github.com/Additional-Code/backorder/internal/service/customer"
	"github.com/Additional-Code/backorder/internal/service/dashboard"
	"github.com/Additional-Code/backorder/internal/service/product"
	"github.com/Additional-Code/backorder/internal/service/statistics"
	"github.com/Additional-Code/backorder/internal/service/supplier"
)

// Env holds one fully wired set of services.
type Env struct {
	Conns  *database.Connections
	Exec   *database.Executor
	Logger *zap.Logger
	Store  *cache.MemoryStore
	Config config.Config

	Users      *userrepo.Repository
	AuditLog   *auditlog.Repository
	Recorder   *audit.Recorder
	Statistics *statistics.Service
	Customers  *customer.Service
	Suppliers  *supplier.Service
	Products   *product.Service
	Backorders *backorder.Service
	Auth       *auth.Service
	Dashboard  *dashboard.Service
}

// Config returns settings suitable for tests: cheap bcrypt and small pages.
func Config() config.Config {
	year := time.Now().UTC().Year()
	return config.Config{
		Cache: config.Cache{
			Driver:     "memory",
			DefaultTTL: time.Hour,
			Memory:     config.Memory{MaxCost: 1 << 20, NumCounters: 1000},
		},
		Auth: config.Auth{
			SessionSecret:  "test-secret",
			SessionTTL:     time.Hour,
			SessionCookie:  "backorder_session",
			RememberCookie: "backorder_remember",
			RememberTTL:    24 * time.Hour,
			BcryptCost:     4,
		},
		Listing:   config.Listing{PageSize: 20, SearchLimit: 10},
		Dashboard: config.Dashboard{ChartYears: []int{year}, LogDays: 5, LatestBackorders: 12},
	}
}

// New builds an Env on a fresh database.
func New(t testing.TB) *Env {
	t.Helper()

	cfg := Config()
	conns := dbtest.Open(t)
	logger := zaptest.NewLogger(t)
	exec := database.NewExecutor(conns, logger)

	store, err := cache.NewMemoryStore(cfg.Cache)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	users := userrepo.NewRepository(conns, exec)
	logs := auditlog.NewRepository(conns, exec)
	customers := customerrepo.NewRepository(conns, exec)
	suppliers := supplierrepo.NewRepository(conns, exec)
	products := productrepo.NewRepository(conns, exec)
	backorders := backorderrepo.NewRepository(conns, exec)

	recorder := audit.New(logs, audit.DirectSink{Repo: logs}, logger)
	stats := statistics.NewService(statsrepo.NewRepository(conns, exec))
	backorderSvc := backorder.NewService(backorder.Params{
		Repository: backorders,
		Products:   products,
		Customers:  customers,
		Statistics: stats,
		Audit:      recorder,
		Logger:     logger,
	})

	return &Env{
		Conns:      conns,
		Exec:       exec,
		Logger:     logger,
		Store:      store,
		Config:     cfg,
		Users:      users,
		AuditLog:   logs,
		Recorder:   recorder,
		Statistics: stats,
		Customers: customer.NewService(customer.Params{
			Repository: customers,
			Backorders: backorders,
			Statistics: stats,
			Audit:      recorder,
			Logger:     logger,
		}),
		Suppliers: supplier.NewService(supplier.Params{
			Repository: suppliers,
			Backorders: backorders,
			Products:   products,
			Statistics: stats,
			Audit:      recorder,
			Logger:     logger,
		}),
		Products: product.NewService(product.Params{
			Repository: products,
			Backorders: backorders,
			Audit:      recorder,
			Logger:     logger,
		}),
		Backorders: backorderSvc,
		Auth:       auth.New(users, store, cfg.Auth, logger),
		Dashboard: dashboard.NewService(dashboard.Params{
			Statistics: stats,
			Audit:      recorder,
			Backorders: backorderSvc,
			Config:     cfg,
		}),
	}
}

// Actor registers a user to attribute mutations to and returns its id.
func (e *Env) Actor(t testing.TB, username string) int64 {
	t.Helper()
	u, err := e.Auth.Register(context.Background(), auth.Registration{
		Username: username,
		Password: "secret123",
		Name:     "Test " + username,
	})
	require.NoError(t, err)
	return u.ID
}

// Customer creates an active customer.
func (e *Env) Customer(t testing.TB, actorID int64, name, code string) *entity.Customer {
	t.Helper()
	c := &entity.Customer{Name: name, Code: code, ContactName: "Contact " + code}
	require.NoError(t, e.Customers.Create(context.Background(), actorID, c))
	return c
}

// Supplier creates an active supplier.
func (e *Env) Supplier(t testing.TB, actorID int64, name, code string) *entity.Supplier {
	t.Helper()
	s := &entity.Supplier{Name: name, Code: code, ContactName: "Contact " + code}
	require.NoError(t, e.Suppliers.Create(context.Background(), actorID, s))
	return s
}

// Product creates an active product, optionally tied to a supplier.
func (e *Env) Product(t testing.TB, actorID int64, name, code string, supplierID *int64) *entity.Product {
	t.Helper()
	p := &entity.Product{Name: name, Code: code, SupplierID: supplierID}
	require.NoError(t, e.Products.Create(context.Background(), actorID, p))
	return p
}

// Backorder places a backorder for quantity units.
func (e *Env) Backorder(t testing.TB, actorID, itemID, customerID int64, quantity int) *entity.Backorder {
	t.Helper()
	b := &entity.Backorder{ItemID: itemID, CustomerID: customerID, Quantity: quantity}
	require.NoError(t, e.Backorders.Create(context.Background(), actorID, b))
	return b
}
