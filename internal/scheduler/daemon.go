package scheduler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// accuracyInterval is how often forecast verification runs. Verification
// re-examines a full lookback range each pass, so the cadence is not
// correctness-critical.
const accuracyInterval = time.Hour

// Daemon runs all recurring jobs on their configured intervals until the
// context is cancelled. Each job runs in its own goroutine; a job error is
// logged and the job keeps its cadence, since a transient upstream failure
// must not take the whole daemon down.
type Daemon struct {
	forecast    *ForecastPoller
	sensor      *SensorPoller
	accuracy    *AccuracyJob
	maintenance *MaintenanceJob

	forecastInterval time.Duration
	sensorInterval   time.Duration
	archiveInterval  time.Duration

	logger *slog.Logger
}

// DaemonConfig holds the jobs and their cadences. Nil jobs are skipped.
type DaemonConfig struct {
	Forecast    *ForecastPoller
	Sensor      *SensorPoller
	Accuracy    *AccuracyJob
	Maintenance *MaintenanceJob

	ForecastInterval time.Duration
	SensorInterval   time.Duration
	ArchiveInterval  time.Duration

	Logger *slog.Logger
}

// NewDaemon creates a Daemon.
func NewDaemon(cfg DaemonConfig) *Daemon {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Daemon{
		forecast:         cfg.Forecast,
		sensor:           cfg.Sensor,
		accuracy:         cfg.Accuracy,
		maintenance:      cfg.Maintenance,
		forecastInterval: cfg.ForecastInterval,
		sensorInterval:   cfg.SensorInterval,
		archiveInterval:  cfg.ArchiveInterval,
		logger:           logger,
	}
}

// Run blocks until ctx is cancelled. Every job runs once immediately and
// then on its interval.
func (d *Daemon) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if d.forecast != nil {
		g.Go(func() error {
			return d.loop(ctx, "forecast", d.forecastInterval, func(ctx context.Context) error {
				_, err := d.forecast.Poll(ctx)
				return err
			})
		})
	}

	if d.sensor != nil {
		g.Go(func() error {
			return d.loop(ctx, "sensor", d.sensorInterval, func(ctx context.Context) error {
				_, err := d.sensor.Poll(ctx)
				return err
			})
		})
	}

	if d.accuracy != nil {
		g.Go(func() error {
			return d.loop(ctx, "accuracy", accuracyInterval, func(ctx context.Context) error {
				_, err := d.accuracy.Run(ctx)
				return err
			})
		})
	}

	if d.maintenance != nil {
		g.Go(func() error {
			return d.loop(ctx, "maintenance", d.archiveInterval, func(ctx context.Context) error {
				_, err := d.maintenance.Run(ctx)
				return err
			})
		})
	}

	return g.Wait()
}

// loop runs fn immediately and then on every tick until the context ends.
// Context cancellation is the only way out; job errors are logged.
func (d *Daemon) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) error {
	if interval <= 0 {
		interval = time.Hour
	}

	run := func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			d.logger.ErrorContext(ctx, "job failed", "job", name, "error", err)
		}
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.InfoContext(ctx, "job stopped", "job", name)
			return ctx.Err()
		case <-ticker.C:
			run()
		}
	}
}

// RunOnce executes a single forecast cycle, sensor poll and verification
// pass, then returns. Used for cron-style invocation instead of the daemon
// loop. A sensor failure is tolerated (the device may be powered off); a
// forecast failure is not.
func (d *Daemon) RunOnce(ctx context.Context) error {
	if d.sensor != nil {
		if _, err := d.sensor.Poll(ctx); err != nil {
			d.logger.WarnContext(ctx, "sensor poll failed", "error", err)
		}
	}

	if d.forecast != nil {
		if _, err := d.forecast.Poll(ctx); err != nil {
			return err
		}
	}

	if d.accuracy != nil {
		if _, err := d.accuracy.Run(ctx); err != nil {
			d.logger.WarnContext(ctx, "verification failed", "error", err)
		}
	}

	return nil
}
