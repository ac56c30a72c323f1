// Package main is the entry point for the astro weather read API.
//
// It loads configuration, connects to PostgreSQL, wires the repositories into
// the HTTP handlers and serves the read endpoints until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"astroweather/internal/api/handlers"
	"astroweather/internal/cloudwatcher"
	"astroweather/internal/config"
	"astroweather/internal/core"
	"astroweather/internal/db"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("astro weather API starting",
		"environment", cfg.Environment,
		"site", cfg.Site.Name,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := newPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	forecastRepo := db.NewForecastRepository(pool)
	windowRepo := db.NewWindowRepository(pool)
	sensorRepo := db.NewSensorRepository(pool)
	accuracyRepo := db.NewAccuracyRepository(pool)
	apiLogRepo := db.NewAPILogRepository(pool, logger)

	sensorProbe := cloudwatcher.New(
		cfg.CloudWatcher.Host, cfg.CloudWatcher.Port, cfg.CloudWatcher.Timeout, logger)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	forecastHandler := handlers.NewForecastHandler(forecastRepo, logger)
	windowHandler := handlers.NewWindowHandler(windowRepo, logger)
	sensorHandler := handlers.NewSensorHandler(sensorRepo, logger)
	statusHandler := handlers.NewStatusHandler(
		apiLogRepo, accuracyRepo, sensorProbe, cfg.Site.Name, logger)

	srv.Router().Route("/v1", func(r chi.Router) {
		r.Route("/forecast", forecastHandler.RegisterRoutes)
		r.Route("/windows", windowHandler.RegisterRoutes)
		r.Route("/sensor", sensorHandler.RegisterRoutes)
		r.Route("/status", statusHandler.RegisterRoutes)
	})
	srv.Router().Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	addr := net.JoinHostPort("", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newPool creates and pings the PostgreSQL connection pool.
func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// newLogger creates a JSON slog.Logger for the given level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
