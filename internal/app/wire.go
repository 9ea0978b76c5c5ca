//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/trogers1052/stock-signal-service/internal/config"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(
		ProvideLogger,

		// Infrastructure
		ProvideDatabase,
		ProvideRecordStore,
		ProvideProviderClient,
		ProvideSeriesCache,
		ProvideRegistry,
		ProvideMetrics,
		ProvideProducer,
		ProvideConsumer,

		// Pipeline
		ProvideOrchestrator,
		ProvideTrigger,

		// HTTP
		ProvideHandler,
		ProvideHTTPServer,

		New,
	)
	return nil, nil, nil
}
