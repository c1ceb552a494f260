package seeder

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/backorder/internal/entity"
	"github.com/Additional-Code/backorder/internal/service/auth"
	"github.com/Additional-Code/backorder/internal/service/backorder"
	"github.com/Additional-Code/backorder/internal/service/customer"
	"github.com/Additional-Code/backorder/internal/service/product"
	"github.com/Additional-Code/backorder/internal/service/supplier"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

// Module provides the Seeder to Fx.
var Module = fx.Provide(New)

// Params defines dependencies for constructing Seeder.
type Params struct {
	fx.In

	Auth       *auth.Service
	Customers  *customer.Service
	Suppliers  *supplier.Service
	Products   *product.Service
	Backorders *backorder.Service
	Logger     *zap.Logger
}

// Seeder performs database seeding for local/dev setups. It goes through the
// services, so seeded rows are validated and audited like any other write.
type Seeder struct {
	auth       *auth.Service
	customers  *customer.Service
	suppliers  *supplier.Service
	products   *product.Service
	backorders *backorder.Service
	logger     *zap.Logger
}

// New constructs a Seeder.
func New(p Params) *Seeder {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		auth:       p.Auth,
		customers:  p.Customers,
		suppliers:  p.Suppliers,
		products:   p.Products,
		backorders: p.Backorders,
		logger:     logger,
	}
}

// Admin creates an admin account unless the username is taken, and returns its id.
func (s *Seeder) Admin(ctx context.Context, username, password, name string) (int64, error) {
	u, err := s.auth.CreateUser(ctx, auth.Registration{Username: username, Password: password, Name: name}, entity.GroupAdmin)
	if err == nil {
		s.logger.Info("seeded admin user", zap.String("username", username))
		return u.ID, nil
	}
	if !errorbank.Is(err, errorbank.KindValidation) {
		return 0, err
	}
	res, loginErr := s.auth.Login(ctx, username, password, false)
	if loginErr != nil {
		return 0, fmt.Errorf("admin %q exists with a different password: %w", username, err)
	}
	return res.Session.Identity.UserID, nil
}

// Samples seeds example customers, suppliers, products and backorders, attributing
// them to actorID. Rows whose code already exists are reused.
func (s *Seeder) Samples(ctx context.Context, actorID int64) error {
	supplierIDs := make(map[string]int64)
	for _, sample := range []entity.Supplier{
		{Name: "Northwind Parts", Code: "NWP", ContactName: "Dana Reyes", ContactNumber: "555-0100", Email: "orders@northwind.test"},
		{Name: "Harbor Tools", Code: "HBT", ContactName: "Lee Park", ContactNumber: "555-0111"},
	} {
		sup := sample
		existing, err := s.suppliers.FindByCode(ctx, sup.Code)
		switch {
		case err == nil:
			supplierIDs[sup.Code] = existing.ID
			continue
		case !errorbank.Is(err, errorbank.KindNotFound):
			return err
		}
		if err := s.suppliers.Create(ctx, actorID, &sup); err != nil {
			return err
		}
		supplierIDs[sup.Code] = sup.ID
	}

	customerIDs := make(map[string]int64)
	for _, sample := range []entity.Customer{
		{Name: "Acme Hardware", Code: "ACME", ContactName: "Ada Stone", Email: "buying@acme.test"},
		{Name: "Bayside Builders", Code: "BAY", ContactName: "Sam Ortiz", ContactNumber: "555-0190"},
	} {
		cust := sample
		existing, err := s.customers.FindByCode(ctx, cust.Code)
		switch {
		case err == nil:
			customerIDs[cust.Code] = existing.ID
			continue
		case !errorbank.Is(err, errorbank.KindNotFound):
			return err
		}
		if err := s.customers.Create(ctx, actorID, &cust); err != nil {
			return err
		}
		customerIDs[cust.Code] = cust.ID
	}

	type productSample struct {
		product  entity.Product
		supplier string
	}
	productIDs := make(map[string]int64)
	created := 0
	for _, sample := range []productSample{
		{product: entity.Product{Name: "Hex Bolt M8", Code: "HB-M8", Price: decimal.RequireFromString("0.35"), Category: "Fasteners"}, supplier: "NWP"},
		{product: entity.Product{Name: "Cordless Drill", Code: "CD-18V", Price: decimal.RequireFromString("129.00"), Category: "Power Tools"}, supplier: "HBT"},
		{product: entity.Product{Name: "Tape Measure 5m", Code: "TM-5", Price: decimal.RequireFromString("8.50"), Category: "Hand Tools"}},
	} {
		p := sample.product
		existing, err := s.products.FindByCode(ctx, p.Code)
		switch {
		case err == nil:
			productIDs[p.Code] = existing.ID
			continue
		case !errorbank.Is(err, errorbank.KindNotFound):
			return err
		}
		if id, ok := supplierIDs[sample.supplier]; ok {
			p.SupplierID = &id
		}
		if err := s.products.Create(ctx, actorID, &p); err != nil {
			return err
		}
		productIDs[p.Code] = p.ID
		created++
	}

	// Backorders have no natural key; only seed them alongside freshly created products.
	if created == 0 {
		s.logger.Info("sample data already present")
		return nil
	}
	for _, sample := range []struct {
		item, customer string
		quantity       int
		status         string
	}{
		{item: "HB-M8", customer: "ACME", quantity: 500, status: "Ordered"},
		{item: "CD-18V", customer: "BAY", quantity: 3},
		{item: "TM-5", customer: "ACME", quantity: 12, status: "Awaiting supplier"},
	} {
		b := &entity.Backorder{
			ItemID:     productIDs[sample.item],
			CustomerID: customerIDs[sample.customer],
			Quantity:   sample.quantity,
			Status:     sample.status,
		}
		if err := s.backorders.Create(ctx, actorID, b); err != nil {
			return err
		}
	}

	s.logger.Info("seeded sample data",
		zap.Int("suppliers", len(supplierIDs)),
		zap.Int("customers", len(customerIDs)),
		zap.Int("products", len(productIDs)),
	)
	return nil
}
