package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"SpikeWatch/internal/domain/repository"
	"SpikeWatch/internal/usecase"
	pkgch "SpikeWatch/pkg/clickhouse"
	"SpikeWatch/pkg/config"
	xhttp "SpikeWatch/pkg/http"
	pkgkafka "SpikeWatch/pkg/kafka"
	applogger "SpikeWatch/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	scanner    *usecase.Scanner
	notifier   repository.Notifier
	alertStore repository.AlertStore
	producer   *pkgkafka.Producer
	chClient   *pkgch.Client
	httpServer *xhttp.Server
	handler    xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	scanner *usecase.Scanner,
	notifier repository.Notifier,
	alertStore repository.AlertStore,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		scanner:    scanner,
		notifier:   notifier,
		alertStore: alertStore,
		producer:   producer,
		chClient:   chClient,
		handler:    handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	go func() {
		if err := a.scanner.Start(ctx); err != nil {
			a.log.Error("scanner error", applogger.Error(err))
		}
	}()
	a.log.Info("scanner started",
		applogger.Bool("subscribe_all", a.cfg.Polygon.SubscribeAll),
		applogger.Strings("symbols", a.cfg.Polygon.Symbols),
		applogger.Strings("sessions", a.cfg.Scanner.Sessions))

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if err := a.scanner.Stop(); err != nil {
		a.log.Warn("scanner stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	// Notifier drains its queue before the alert sinks close.
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.log.Warn("notifier close error", applogger.Error(err))
		}
	}
	if a.alertStore != nil {
		if err := a.alertStore.Close(); err != nil {
			a.log.Warn("alert store close error", applogger.Error(err))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
