// negotiatord publishes this peer's component advertisement and negotiates
// component versions with clients over HTTP and MCP.
// Designed for Cloud Run deployment with stateless operation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"netneg/internal/config"
	"netneg/internal/handler"
	"netneg/internal/middleware"
	"netneg/internal/negotiation"
	"netneg/internal/observability"
	"netneg/internal/source"
	"netneg/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := initLogger()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Registered, namespace-checked and sorted by id
	components, err := cfg.BuildAdvertisement()
	if err != nil {
		return fmt.Errorf("building advertisement: %w", err)
	}
	src, err := source.NewStatic(components)
	if err != nil {
		return fmt.Errorf("creating advertisement source: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("namespace", cfg.Namespace),
		slog.String("environment", cfg.Environment),
		slog.String("protocol_version", cfg.ProtocolVersion),
		slog.String("fetch_transport", string(cfg.FetchTransport)),
		slog.Int("components", len(components)),
	)

	rt, err := transport.New(cfg.FetchTransport, cfg.FetchTimeout)
	if err != nil {
		return fmt.Errorf("creating fetch transport: %w", err)
	}
	fetcher := negotiation.NewHTTPAdvertisementFetcherWithConfig(negotiation.FetcherConfig{
		CacheTTL:     cfg.ProfileCacheTTL,
		FetchTimeout: cfg.FetchTimeout,
		Transport:    rt,
	})

	metrics := observability.NewMetrics()
	negotiator := negotiation.NewNegotiator(fetcher, src, cfg.ProtocolVersion,
		negotiation.WithObserver(metrics),
		negotiation.WithLogger(logger),
	)

	h := handler.New(negotiator, metrics, logger)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery → request id → logging → negotiation → handler
	// Recovery must be outermost to catch panics from logging middleware
	// Negotiation enforces a handshake header on all requests (except exempt paths)
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
		negotiation.Middleware(negotiator, logger),
	)(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// SIGHUP re-reads the advertisement without dropping connections
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	for {
		select {
		case err := <-serverErr:
			if err != http.ErrServerClosed {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("server stopped")
			return nil

		case <-reload:
			if err := reloadAdvertisement(ctx, src, logger); err != nil {
				logger.Error("advertisement reload failed", slog.String("error", err.Error()))
			}

		case sig := <-shutdown:
			logger.Info("shutdown signal received", slog.String("signal", sig.String()))

			// Give outstanding requests time to complete
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				server.Close()
				return fmt.Errorf("shutdown error: %w", err)
			}
			logger.Info("server stopped")
			return nil
		}
	}
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger() *slog.Logger {
	var level slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
