package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"transcript-calculator/internal/calculator"
	"transcript-calculator/internal/config"
	"transcript-calculator/internal/observability"
	"transcript-calculator/internal/server"
	"transcript-calculator/internal/store"
)

func main() {

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}

	// Logger, tracing, metrics, log export
	telemetryShutdown, err := initTelemetry(ctx, cfg)
	if err != nil {
		config.Exitf("telemetry: %v", err)
	}
	defer observability.SyncLogger()
	defer telemetryShutdown(ctx)

	// Last-value store
	values, err := store.Open(cfg.Store)
	if err != nil {
		observability.Logger.Fatal("opening store failed", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer values.Close()

	sessions := calculator.NewManager(values, cfg.Slot, observability.Logger,
		calculator.WithIdleTimeout(cfg.Sessions.IdleTimeout),
		calculator.WithMaxSessions(cfg.Sessions.Max),
	)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go sessions.RunSweeper(sweepCtx, cfg.Sessions.SweepInterval)

	// Router
	router := server.NewRouter(calculator.NewHandler(sessions))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	go func() {
		observability.Logger.Info("server started",
			zap.String("addr", cfg.Addr),
			zap.String("store", cfg.Store.Driver),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.Logger.Fatal("server failed", zap.Error(err))
		}
	}()

	waitForShutdown(srv, sessions, cfg)
}

func waitForShutdown(srv *http.Server, sessions *calculator.Manager, cfg config.Config) {

	stop := make(chan os.Signal, 1)

	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		observability.Logger.Warn("server shutdown failed", zap.Error(err))
	}

	// live sessions persist their last value like a closing window would
	if err := sessions.Shutdown(ctx); err != nil {
		observability.Logger.Warn("ending sessions failed", zap.Error(err))
	}

	observability.Logger.Info("server stopped")
}
