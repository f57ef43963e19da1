//go:build wireinject
// +build wireinject

package di

import (
	"AstroTransit/internal/domain/repository"
	mid "AstroTransit/internal/middleware"
	"AstroTransit/pkg/config"
	"AstroTransit/pkg/server"

	"github.com/google/wire"
)

var coreSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideMatchers,
	ProvideCache,
	ProvideEphemeris,
	ProvideScanner,
	ProvideChartService,
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		coreSet,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories and event pipeline
		ProvideReportStore,
		ProvideEventPipeline,

		// Use cases
		ProvideReportGenerator,
		ProvideReportJobHandler,

		// Transport and application
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeEngine wires the core without network infrastructure.
func InitializeEngine(cfg *config.Config) (*Engine, error) {
	wire.Build(
		coreSet,
		wire.Value(repository.ReportStore(nil)),
		wire.Value((*mid.EventPipeline)(nil)),
		ProvideReportGenerator,
		ProvideEngine,
	)
	return &Engine{}, nil
}
