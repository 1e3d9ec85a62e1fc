// Package main is the entry point for the variantz server.
//
// The bootstrap sequence is:
//  1. Load configuration from environment variables.
//  2. Build the evaluation registry and load the configuration file.
//  3. Optionally start the file watcher for hot reloads.
//  4. Start the HTTP server and wait for SIGINT/SIGTERM.
//  5. Gracefully shut down.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/matt-riley/variantz"
	"github.com/matt-riley/variantz/internal/config"
	"github.com/matt-riley/variantz/internal/logging"
	"github.com/matt-riley/variantz/internal/metrics"
	"github.com/matt-riley/variantz/internal/middleware"
	"github.com/matt-riley/variantz/internal/server"
	"github.com/matt-riley/variantz/internal/tracing"
	"github.com/matt-riley/variantz/internal/watcher"
)

const (
	httpReadHeaderTimeout = 5 * time.Second
	httpReadTimeout       = 30 * time.Second
	httpIdleTimeout       = 2 * time.Minute
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)

	shutdownTracer, err := tracing.Init(context.Background())
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	registry := variantz.New()
	if err := registry.LoadConfig(cfg.ConfigPath); err != nil {
		return fmt.Errorf("load flag config %q: %w", cfg.ConfigPath, err)
	}
	m.ConfigLoadsTotal.Inc()
	m.ObserveRegistry(len(registry.Flags()), len(registry.Variants()))
	log.Info("flag config loaded",
		"path", cfg.ConfigPath,
		"flags", len(registry.Flags()),
		"variants", len(registry.Variants()))

	if cfg.WatchConfig {
		_, err := watcher.New(ctx, registry, cfg.ConfigPath,
			logging.WithComponent(log, "watcher"),
			watcher.WithOnReload(func(err error) {
				if err != nil {
					m.ConfigReloadFailures.Inc()
					return
				}
				m.ConfigLoadsTotal.Inc()
				m.ObserveRegistry(len(registry.Flags()), len(registry.Variants()))
			}))
		if err != nil {
			return fmt.Errorf("watch flag config %q: %w", cfg.ConfigPath, err)
		}
		log.Info("watching flag config for changes", "path", cfg.ConfigPath)
	}

	handler := server.NewHandler(registry, m, server.WithMaxJSONBodySize(cfg.MaxJSONBodySize))
	handler = middleware.RequestLogging(logging.WithComponent(log, "http"))(handler)
	handler = otelhttp.NewHandler(handler, "variantz.http")

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: httpReadHeaderTimeout,
		ReadTimeout:       httpReadTimeout,
		IdleTimeout:       httpIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
