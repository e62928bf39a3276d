//go:build wireinject
// +build wireinject

package di

import (
	"T0Pilot/pkg/config"
	"T0Pilot/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideTradeStore,
		ProvideMarketFeed,
		ProvideHistorySource,
		ProvideMarketCache,
		ProvideCacheService,

		// Trading core
		ProvideExecutor,
		ProvideClassifier,
		ProvideExtractor,
		ProvideRiskGate,
		ProvideSignalGenerator,
		ProvideEventSinks,
		ProvideEngine,

		// Use cases
		ProvidePoller,

		// HTTP surface
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
