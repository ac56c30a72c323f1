// Package main is the entry point for the astro weather scheduler daemon.
//
// It wires the forecast client, the sky sensor client, the repositories and
// the notifier into the recurring jobs and runs them until SIGINT or SIGTERM.
// With -once it performs a single fetch-score-notify cycle and exits, for
// cron-style deployments.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"astroweather/internal/cloudwatcher"
	"astroweather/internal/config"
	"astroweather/internal/db"
	"astroweather/internal/external"
	"astroweather/internal/meteoblue"
	"astroweather/internal/notifications"
	"astroweather/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	once := flag.Bool("once", false, "run a single cycle and exit instead of the daemon loop")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("astro weather scheduler starting",
		"environment", cfg.Environment,
		"site", cfg.Site.Name,
		"once", *once,
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

	meteoblueClient := meteoblue.NewClient(
		external.NewClient(
			&http.Client{Timeout: cfg.Meteoblue.Timeout},
			"meteoblue",
			external.DefaultRetryPolicy(),
			userAgent,
		),
		cfg.Meteoblue, cfg.Site, logger)

	sensorClient := cloudwatcher.New(
		cfg.CloudWatcher.Host, cfg.CloudWatcher.Port, cfg.CloudWatcher.Timeout, logger)

	location, err := time.LoadLocation(cfg.Site.Timezone)
	if err != nil {
		return fmt.Errorf("loading site timezone %q: %w", cfg.Site.Timezone, err)
	}

	pushover := notifications.NewPushoverClient(
		external.NewClient(
			&http.Client{Timeout: 15 * time.Second},
			"pushover",
			external.DefaultRetryPolicy(),
			userAgent,
		),
		cfg.Notify, logger)
	notifier := notifications.NewNotifier(windowRepo, pushover, cfg.Notify, location, logger)

	forecastPoller := scheduler.NewForecastPoller(scheduler.ForecastPollerConfig{
		Source:   meteoblueClient,
		Store:    forecastRepo,
		Windows:  windowRepo,
		CallLog:  apiLogRepo,
		Notifier: notifier,
		Criteria: cfg.Windows,
		Logger:   logger,
	})
	sensorPoller := scheduler.NewSensorPoller(sensorClient, sensorRepo, logger)
	accuracyJob := scheduler.NewAccuracyJob(forecastRepo, sensorRepo, accuracyRepo, 0, logger)
	maintenanceJob := scheduler.NewMaintenanceJob(sensorRepo, cfg.Archive, logger)

	daemon := scheduler.NewDaemon(scheduler.DaemonConfig{
		Forecast:         forecastPoller,
		Sensor:           sensorPoller,
		Accuracy:         accuracyJob,
		Maintenance:      maintenanceJob,
		ForecastInterval: cfg.Meteoblue.PollInterval,
		SensorInterval:   cfg.CloudWatcher.PollInterval,
		ArchiveInterval:  cfg.Archive.Interval,
		Logger:           logger,
	})

	if *once {
		if err := daemon.RunOnce(ctx); err != nil {
			return fmt.Errorf("single cycle failed: %w", err)
		}
		logger.Info("single cycle complete")
		return nil
	}

	err = daemon.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("daemon error: %w", err)
	}
	logger.Info("scheduler stopped cleanly")
	return nil
}

const userAgent = "astroweather-scheduler/1.0"

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
