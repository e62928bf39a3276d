package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	drepo "T0Pilot/internal/domain/repository"
	"T0Pilot/internal/marketdata"
	"T0Pilot/internal/usecase"
	"T0Pilot/pkg/config"
	xhttp "T0Pilot/pkg/http"
	applogger "T0Pilot/pkg/logger"
)

// App owns the process lifecycle: market-data cache, trade store, poll loop,
// and HTTP server, started in dependency order and stopped in reverse.
type App struct {
	cfg    *config.Config
	log    *applogger.Logger
	cache  *marketdata.Cache
	poller *usecase.Poller
	store  drepo.TradeStore
	sinks  []drepo.EventSink

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates an App. Dependencies come fully wired from DI.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	cache *marketdata.Cache,
	poller *usecase.Poller,
	store drepo.TradeStore,
	sinks []drepo.EventSink,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		cache:       cache,
		poller:      poller,
		store:       store,
		sinks:       sinks,
		httpHandler: handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.store.Init(ctx); err != nil {
		return err
	}

	if err := a.cache.Start(ctx, a.cfg.Feed.ConnectTimeout); err != nil {
		return err
	}
	a.log.Info("market data cache connected",
		applogger.String("url", a.cfg.Feed.WebSocketURL))

	for _, symbol := range a.cfg.Engine.Symbols {
		if err := a.poller.Watch(ctx, symbol); err != nil {
			a.log.Error("initial watch failed",
				applogger.String("symbol", symbol),
				applogger.Error(err))
		}
	}

	a.poller.Start(ctx)
	a.log.Info("poll loop started",
		applogger.Strings("symbols", a.cfg.Engine.Symbols),
		applogger.Duration("interval", a.cfg.Market.PollInterval))

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server listening", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	a.poller.Stop()
	a.cache.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	for _, sink := range a.sinks {
		if closer, ok := sink.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				a.log.Warn("sink close error", applogger.Error(err))
			}
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("store close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
