// Package scheduler implements the recurring jobs of the astro weather
// service: forecast polling, sensor polling, forecast verification and
// sensor data retention.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"astroweather/internal/astro"
	"astroweather/internal/config"
	"astroweather/internal/meteoblue"
	"astroweather/internal/types"
)

// ForecastSource abstracts the meteoblue client.
type ForecastSource interface {
	FetchForecast(ctx context.Context) (*meteoblue.Result, error)
}

// ForecastStore abstracts the forecast repository operations the poller needs.
type ForecastStore interface {
	UpsertHourly(ctx context.Context, samples []types.ForecastSample) (int, error)
}

// WindowWriter abstracts the window repository operations the poller needs.
type WindowWriter interface {
	ReplaceUpcoming(ctx context.Context, now time.Time, windows []types.ObservationWindow) error
}

// CallRecorder logs upstream API calls for credit accounting.
type CallRecorder interface {
	Record(ctx context.Context, rec types.APICallRecord)
}

// AlertService sends alerts for newly found windows.
type AlertService interface {
	NotifyEligible(ctx context.Context) (int, error)
}

// ForecastPoller runs one full forecast cycle: fetch the forecast, persist
// the hours, recompute observation windows and trigger alerts.
type ForecastPoller struct {
	source   ForecastSource
	store    ForecastStore
	windows  WindowWriter
	callLog  CallRecorder
	notifier AlertService

	criteria astro.WindowCriteria
	logger   *slog.Logger
	now      func() time.Time
}

// ForecastPollerConfig holds the dependencies for creating a ForecastPoller.
type ForecastPollerConfig struct {
	Source   ForecastSource
	Store    ForecastStore
	Windows  WindowWriter
	CallLog  CallRecorder
	Notifier AlertService
	Criteria config.WindowConfig
	Logger   *slog.Logger
}

// NewForecastPoller creates a ForecastPoller with the given configuration.
func NewForecastPoller(cfg ForecastPollerConfig) *ForecastPoller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastPoller{
		source:   cfg.Source,
		store:    cfg.Store,
		windows:  cfg.Windows,
		callLog:  cfg.CallLog,
		notifier: cfg.Notifier,
		criteria: astro.WindowCriteria{
			MinScore:  cfg.Criteria.MinScore,
			MinHours:  cfg.Criteria.MinHours,
			OnlyNight: cfg.Criteria.OnlyNight,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Poll executes one forecast cycle. The upstream call is always recorded in
// the call log, success or not. Returns the number of windows found.
func (p *ForecastPoller) Poll(ctx context.Context) (int, error) {
	started := p.now()

	result, err := p.source.FetchForecast(ctx)
	elapsed := p.now().Sub(started)

	rec := types.APICallRecord{
		API:            types.APIMeteoblue,
		Endpoint:       meteoblue.AstroPackage,
		Success:        err == nil,
		ResponseTimeMS: int(elapsed.Milliseconds()),
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
	} else {
		rec.CreditsUsed = result.CreditsUsed
	}
	p.callLog.Record(ctx, rec)

	if err != nil {
		return 0, err
	}

	written, err := p.store.UpsertHourly(ctx, result.Samples)
	if err != nil {
		return 0, err
	}

	windows := astro.FindWindows(result.Samples, p.criteria)
	if err := p.windows.ReplaceUpcoming(ctx, p.now().UTC(), windows); err != nil {
		return 0, err
	}

	p.logger.InfoContext(ctx, "forecast cycle complete",
		"hours_written", written,
		"windows_found", len(windows),
	)

	if p.notifier != nil {
		sent, err := p.notifier.NotifyEligible(ctx)
		if err != nil {
			// Alerts are retried on the next cycle; the forecast data is
			// already persisted, so the cycle itself succeeded.
			p.logger.ErrorContext(ctx, "window notification failed", "error", err)
		} else if sent > 0 {
			p.logger.InfoContext(ctx, "window alerts sent", "count", sent)
		}
	}

	return len(windows), nil
}
