package app

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/Additional-Code/backorder/internal/cache"
	"github.com/Additional-Code/backorder/internal/config"
	"github.com/Additional-Code/backorder/internal/database"
	"github.com/Additional-Code/backorder/internal/logger"
	"github.com/Additional-Code/backorder/internal/messaging"
	"github.com/Additional-Code/backorder/internal/observability"
	repositoryauditlog "github.com/Additional-Code/backorder/internal/repository/auditlog"
	repositorybackorder "github.com/Additional-Code/backorder/internal/repository/backorder"
	repositorycustomer "github.com/Additional-Code/backorder/internal/repository/customer"
	repositoryproduct "github.com/Additional-Code/backorder/internal/repository/product"
	repositorystatistics "github.com/Additional-Code/backorder/internal/repository/statistics"
	repositorysupplier "github.com/Additional-Code/backorder/internal/repository/supplier"
	repositoryuser "github.com/Additional-Code/backorder/internal/repository/user"
	grpcserver "github.com/Additional-Code/backorder/internal/server/grpc"
	httpserver "github.com/Additional-Code/backorder/internal/server/http"
	serviceaudit "github.com/Additional-Code/backorder/internal/service/audit"
	serviceauth "github.com/Additional-Code/backorder/internal/service/auth"
	servicebackorder "github.com/Additional-Code/backorder/internal/service/backorder"
	servicecustomer "github.com/Additional-Code/backorder/internal/service/customer"
	servicedashboard "github.com/Additional-Code/backorder/internal/service/dashboard"
	serviceproduct "github.com/Additional-Code/backorder/internal/service/product"
	servicestatistics "github.com/Additional-Code/backorder/internal/service/statistics"
	servicesupplier "github.com/Additional-Code/backorder/internal/service/supplier"
	transporthttp "github.com/Additional-Code/backorder/internal/transport/http"
	"github.com/Additional-Code/backorder/internal/worker"
	workeraudit "github.com/Additional-Code/backorder/internal/worker/audit"
)

// Repositories groups the Bun-backed data access modules.
var Repositories = fx.Options(
	repositoryauditlog.Module,
	repositorybackorder.Module,
	repositorycustomer.Module,
	repositoryproduct.Module,
	repositorystatistics.Module,
	repositorysupplier.Module,
	repositoryuser.Module,
)

// Services groups the domain services.
var Services = fx.Options(
	serviceaudit.Module,
	serviceauth.Module,
	servicebackorder.Module,
	servicecustomer.Module,
	servicedashboard.Module,
	serviceproduct.Module,
	servicestatistics.Module,
	servicesupplier.Module,
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	Repositories,
	Services,
)

// Logging routes Fx lifecycle events through the service logger.
var Logging = fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: logger.Named("fx")}
})

// HTTP wires the HTTP transport, plus the gRPC health endpoint when enabled,
// on top of the core modules.
var HTTP = fx.Options(
	Core,
	Logging,
	httpserver.Module,
	transporthttp.Module,
	grpcserver.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	Logging,
	worker.Module,
	workeraudit.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
