//go:build wireinject
// +build wireinject

package di

import (
	"SpikeWatch/pkg/config"
	"SpikeWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideBaselines,
		ProvideMarketStream,
		ProvideAlertStore,
		ProvideBarRecorder,
		ProvideAlertPublisher,
		ProvideNotifier,
		ProvideCooldown,

		// Engine and use cases
		ProvideEngine,
		ProvideAlertEmitter,
		ProvideScanner,

		// Delivery
		ProvideCache,
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
