package http

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/backorder/internal/transport/http/account"
	backordertransport "github.com/Additional-Code/backorder/internal/transport/http/backorder"
	customertransport "github.com/Additional-Code/backorder/internal/transport/http/customer"
	dashboardtransport "github.com/Additional-Code/backorder/internal/transport/http/dashboard"
	"github.com/Additional-Code/backorder/internal/transport/http/gate"
	producttransport "github.com/Additional-Code/backorder/internal/transport/http/product"
	suppliertransport "github.com/Additional-Code/backorder/internal/transport/http/supplier"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	gate.Module,
	account.Module,
	dashboardtransport.Module,
	customertransport.Module,
	suppliertransport.Module,
	producttransport.Module,
	backordertransport.Module,
)
