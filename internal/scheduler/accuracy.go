package scheduler

import (
	"context"
	"log/slog"
	"time"

	"astroweather/internal/db"
	"astroweather/internal/types"
)

// cloudClearThreshold is the forecast cloud cover percentage below which an
// hour counts as a "clear" prediction for verification purposes.
const cloudClearThreshold = 30

// ForecastReader abstracts the forecast repository read the verifier needs.
type ForecastReader interface {
	GetRange(ctx context.Context, from, to time.Time, filter db.ForecastFilter) ([]types.ForecastSample, error)
}

// SensorReader abstracts the sensor repository read the verifier needs.
type SensorReader interface {
	GetRange(ctx context.Context, from, to time.Time) ([]types.SensorReading, error)
}

// PairStore abstracts the accuracy repository write.
type PairStore interface {
	UpsertPairs(ctx context.Context, pairs []types.AccuracyPair) (int, error)
}

// AccuracyJob matches stored forecast hours against what the sky sensor
// actually measured, producing one verification pair per hour with data on
// both sides.
type AccuracyJob struct {
	forecasts ForecastReader
	readings  SensorReader
	pairs     PairStore

	lookback time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewAccuracyJob creates an AccuracyJob that examines the last lookback of
// completed hours. A non-positive lookback defaults to 24 hours.
func NewAccuracyJob(forecasts ForecastReader, readings SensorReader, pairs PairStore, lookback time.Duration, logger *slog.Logger) *AccuracyJob {
	if logger == nil {
		logger = slog.Default()
	}
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &AccuracyJob{
		forecasts: forecasts,
		readings:  readings,
		pairs:     pairs,
		lookback:  lookback,
		logger:    logger,
		now:       time.Now,
	}
}

// hourAggregate accumulates all sensor readings within one clock hour.
type hourAggregate struct {
	skyTempSum float64
	smaSum     float64
	count      int
	clear      int
	cloudy     int
}

func (h *hourAggregate) quality() types.SkyQuality {
	switch {
	case h.clear > h.cloudy:
		return types.SkyClear
	case h.cloudy > h.clear:
		return types.SkyCloudy
	default:
		return types.SkyUnknown
	}
}

// Run builds verification pairs for the completed hours in the lookback
// range. Hours without sensor data, without a forecast, or with a tied cloud
// vote are skipped. Returns the number of pairs written.
func (j *AccuracyJob) Run(ctx context.Context) (int, error) {
	to := j.now().UTC().Truncate(time.Hour)
	from := to.Add(-j.lookback)

	readings, err := j.readings.GetRange(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if len(readings) == 0 {
		j.logger.DebugContext(ctx, "no sensor readings in verification range")
		return 0, nil
	}

	byHour := make(map[time.Time]*hourAggregate)
	for _, r := range readings {
		hour := r.Timestamp.UTC().Truncate(time.Hour)
		agg := byHour[hour]
		if agg == nil {
			agg = &hourAggregate{}
			byHour[hour] = agg
		}
		agg.skyTempSum += r.SkyTemp
		agg.smaSum += r.SkyMinusAmbient
		agg.count++
		switch r.SkyQuality() {
		case types.SkyClear:
			agg.clear++
		case types.SkyCloudy:
			agg.cloudy++
		}
	}

	samples, err := j.forecasts.GetRange(ctx, from, to, db.ForecastFilter{})
	if err != nil {
		return 0, err
	}

	var pairs []types.AccuracyPair
	for _, s := range samples {
		hour := s.Timestamp.UTC().Truncate(time.Hour)
		agg, ok := byHour[hour]
		if !ok {
			continue
		}

		quality := agg.quality()
		if quality == types.SkyUnknown {
			continue
		}

		forecastClear := s.TotalCloud < cloudClearThreshold
		pairs = append(pairs, types.AccuracyPair{
			Timestamp:             hour,
			ForecastSeeingArcsec:  s.SeeingArcsec,
			ForecastTotalCloud:    s.TotalCloud,
			ForecastAstroScore:    s.AstroScore,
			ActualSkyTemp:         agg.skyTempSum / float64(agg.count),
			ActualSkyQuality:      quality,
			ActualSkyMinusAmbient: agg.smaSum / float64(agg.count),
			CloudMatch:            forecastClear == (quality == types.SkyClear),
			HourOfDay:             hour.Hour(),
			DayOfYear:             hour.YearDay(),
		})
	}

	if len(pairs) == 0 {
		j.logger.DebugContext(ctx, "no overlapping forecast and sensor hours")
		return 0, nil
	}

	written, err := j.pairs.UpsertPairs(ctx, pairs)
	if err != nil {
		return written, err
	}

	j.logger.InfoContext(ctx, "verification pairs written",
		"pairs", written,
		"hours_with_readings", len(byHour),
	)
	return written, nil
}
