package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astroweather/internal/db"
	"astroweather/internal/types"
)

type fakeForecastReader struct {
	samples []types.ForecastSample
	err     error
}

func (f *fakeForecastReader) GetRange(ctx context.Context, from, to time.Time, filter db.ForecastFilter) ([]types.ForecastSample, error) {
	return f.samples, f.err
}

type fakeSensorReader struct {
	readings []types.SensorReading
	err      error
}

func (f *fakeSensorReader) GetRange(ctx context.Context, from, to time.Time) ([]types.SensorReading, error) {
	return f.readings, f.err
}

type fakePairStore struct {
	pairs []types.AccuracyPair
	err   error
}

func (f *fakePairStore) UpsertPairs(ctx context.Context, pairs []types.AccuracyPair) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.pairs = pairs
	return len(pairs), nil
}

func readingAt(ts time.Time, cloudsSafe int, skyTemp, sma float64) types.SensorReading {
	return types.SensorReading{
		Timestamp:       ts,
		CloudsSafe:      cloudsSafe,
		SkyTemp:         skyTemp,
		SkyMinusAmbient: sma,
	}
}

func accuracyFixture(forecasts *fakeForecastReader, readings *fakeSensorReader) (*AccuracyJob, *fakePairStore) {
	pairs := &fakePairStore{}
	j := NewAccuracyJob(forecasts, readings, pairs, 24*time.Hour, nil)
	j.now = func() time.Time { return time.Date(2026, 7, 15, 6, 30, 0, 0, time.UTC) }
	return j, pairs
}

func TestAccuracyJob_Run_BuildsPairs(t *testing.T) {
	hour := time.Date(2026, 7, 14, 22, 0, 0, 0, time.UTC)

	readings := &fakeSensorReader{readings: []types.SensorReading{
		// Three readings in the same hour: two clear, one cloudy.
		readingAt(hour.Add(5*time.Minute), 1, -15.0, -27.0),
		readingAt(hour.Add(25*time.Minute), 1, -14.0, -29.0),
		readingAt(hour.Add(45*time.Minute), 2, -6.0, -10.0),
	}}
	forecasts := &fakeForecastReader{samples: []types.ForecastSample{
		{Timestamp: hour, SeeingArcsec: 1.2, TotalCloud: 10, AstroScore: 85},
	}}

	j, pairs := accuracyFixture(forecasts, readings)
	written, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	require.Len(t, pairs.pairs, 1)
	p := pairs.pairs[0]
	assert.Equal(t, hour, p.Timestamp)
	assert.Equal(t, types.SkyClear, p.ActualSkyQuality)
	assert.InDelta(t, -35.0/3, p.ActualSkyTemp, 1e-9)
	assert.InDelta(t, -22.0, p.ActualSkyMinusAmbient, 1e-9)
	// Forecast said clear (10% < 30), sensor majority said clear.
	assert.True(t, p.CloudMatch)
	assert.Equal(t, 22, p.HourOfDay)
	assert.Equal(t, hour.YearDay(), p.DayOfYear)
}

func TestAccuracyJob_Run_CloudMismatch(t *testing.T) {
	hour := time.Date(2026, 7, 14, 23, 0, 0, 0, time.UTC)

	readings := &fakeSensorReader{readings: []types.SensorReading{
		readingAt(hour.Add(10*time.Minute), 2, -4.0, -8.0),
	}}
	forecasts := &fakeForecastReader{samples: []types.ForecastSample{
		// Forecast said clear, sensor saw clouds.
		{Timestamp: hour, TotalCloud: 5, AstroScore: 90},
	}}

	j, pairs := accuracyFixture(forecasts, readings)
	_, err := j.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, pairs.pairs, 1)
	assert.Equal(t, types.SkyCloudy, pairs.pairs[0].ActualSkyQuality)
	assert.False(t, pairs.pairs[0].CloudMatch)
}

func TestAccuracyJob_Run_SkipsTiedVote(t *testing.T) {
	hour := time.Date(2026, 7, 14, 22, 0, 0, 0, time.UTC)

	readings := &fakeSensorReader{readings: []types.SensorReading{
		readingAt(hour.Add(10*time.Minute), 1, -15.0, -27.0),
		readingAt(hour.Add(40*time.Minute), 2, -5.0, -9.0),
	}}
	forecasts := &fakeForecastReader{samples: []types.ForecastSample{
		{Timestamp: hour, TotalCloud: 10},
	}}

	j, pairs := accuracyFixture(forecasts, readings)
	written, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Empty(t, pairs.pairs)
}

func TestAccuracyJob_Run_SkipsHoursWithoutReadings(t *testing.T) {
	hour := time.Date(2026, 7, 14, 22, 0, 0, 0, time.UTC)

	readings := &fakeSensorReader{readings: []types.SensorReading{
		readingAt(hour.Add(10*time.Minute), 1, -15.0, -27.0),
	}}
	forecasts := &fakeForecastReader{samples: []types.ForecastSample{
		{Timestamp: hour, TotalCloud: 10},
		{Timestamp: hour.Add(time.Hour), TotalCloud: 10}, // no sensor data
	}}

	j, pairs := accuracyFixture(forecasts, readings)
	written, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	require.Len(t, pairs.pairs, 1)
	assert.Equal(t, hour, pairs.pairs[0].Timestamp)
}

func TestAccuracyJob_Run_NoReadings(t *testing.T) {
	j, pairs := accuracyFixture(&fakeForecastReader{}, &fakeSensorReader{})
	written, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Empty(t, pairs.pairs)
}

func TestAccuracyJob_Run_ReadError(t *testing.T) {
	readings := &fakeSensorReader{err: errors.New("db gone")}
	j, _ := accuracyFixture(&fakeForecastReader{}, readings)

	_, err := j.Run(context.Background())
	require.Error(t, err)
}
