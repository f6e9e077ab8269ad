//go:build wireinject
// +build wireinject

package di

import (
	"SignalRelay/pkg/config"
	"SignalRelay/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideEventPublisher,
		ProvideNotifier,

		// Repositories
		ProvideTradeStore,
		ProvideClusterStore,

		// Enrichment
		ProvideRiskProvider,
		ProvideConfluenceProvider,
		ProvideNarrator,

		// Use cases
		ProvideDispatcher,

		// Transport and application server
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
