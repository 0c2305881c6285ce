package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ashwin12159/Control-Plane/app"
	"github.com/Ashwin12159/Control-Plane/config"
	"github.com/Ashwin12159/Control-Plane/internal/observability"
	"github.com/Ashwin12159/Control-Plane/routes"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api-gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := initLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.New(ctx)
	if err != nil {
		logger.Error("failed to load configuration", zap.Error(err))
		return err
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingOptions{
		ServiceName: cfg.Observability.ServiceName,
		Enabled:     cfg.Observability.TracingEnabled,
		Endpoint:    cfg.Observability.TracingEndpoint,
		Insecure:    cfg.Observability.TracingInsecure,
		SampleRate:  cfg.Observability.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", zap.Error(err))
		return err
	}
	if err := deps.Start(); err != nil {
		_ = deps.Close(context.Background())
		return fmt.Errorf("start background workers: %w", err)
	}

	srv := newServer(cfg, routes.SetupRoutes(deps))
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api-gateway listening",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Environment),
			zap.Bool("tls", cfg.Server.TLS.Enabled))
		errCh <- serve(srv, cfg)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr = <-errCh:
		logger.Error("server error", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}
	if err := deps.Close(shutdownCtx); err != nil {
		logger.Error("dependency shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown failed", zap.Error(err))
	}

	logger.Info("api-gateway stopped")
	return serveErr
}

// initLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
// It runs before configuration so config errors are logged too.
func initLogger() (*zap.Logger, error) {
	return observability.NewLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
}

func serve(srv *http.Server, cfg *config.Config) error {
	var err error
	if cfg.Server.TLS.Enabled {
		err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
