package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astroweather/internal/cloudwatcher"
	"astroweather/internal/db"
	"astroweather/internal/types"
)

// TestProductionTypesSatisfyHandlerInterfaces verifies at compile time that
// the repositories and clients the API binary wires in implement the handler
// interfaces the tests below fake.
func TestProductionTypesSatisfyHandlerInterfaces(t *testing.T) {
	var _ ForecastReader = (*db.ForecastRepository)(nil)
	var _ WindowReader = (*db.WindowRepository)(nil)
	var _ SensorReader = (*db.SensorRepository)(nil)
	var _ CreditsReader = (*db.APILogRepository)(nil)
	var _ MatchRateReader = (*db.AccuracyRepository)(nil)
	var _ SensorProbe = (*cloudwatcher.Client)(nil)
}

// --- Fakes ---

type fakeForecastRepo struct {
	samples    []types.ForecastSample
	summaries  []types.DailySummary
	err        error
	lastFilter db.ForecastFilter
}

func (f *fakeForecastRepo) GetRange(ctx context.Context, from, to time.Time, filter db.ForecastFilter) ([]types.ForecastSample, error) {
	f.lastFilter = filter
	return f.samples, f.err
}

func (f *fakeForecastRepo) GetBestUpcoming(ctx context.Context, now time.Time, limit int) ([]types.ForecastSample, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.samples) {
		return f.samples[:limit], nil
	}
	return f.samples, nil
}

func (f *fakeForecastRepo) DailySummaries(ctx context.Context, from time.Time, days int, goodScore int) ([]types.DailySummary, error) {
	return f.summaries, f.err
}

type fakeWindowRepo struct {
	windows []types.ObservationWindow
	err     error
}

func (f *fakeWindowRepo) GetUpcoming(ctx context.Context, now time.Time, limit int) ([]types.ObservationWindow, error) {
	return f.windows, f.err
}

type fakeSensorRepo struct {
	latest   *types.SensorReading
	readings []types.SensorReading
	err      error
}

func (f *fakeSensorRepo) GetLatest(ctx context.Context) (*types.SensorReading, error) {
	return f.latest, f.err
}

func (f *fakeSensorRepo) GetRange(ctx context.Context, from, to time.Time) ([]types.SensorReading, error) {
	return f.readings, f.err
}

type fakeCredits struct{ credits int }

func (f *fakeCredits) CreditsUsedSince(ctx context.Context, since time.Time) (int, error) {
	return f.credits, nil
}

type fakeMatchRate struct {
	rate  float64
	total int
}

func (f *fakeMatchRate) MatchRate(ctx context.Context) (float64, int, error) {
	return f.rate, f.total, nil
}

type fakeProbe struct{ reachable bool }

func (f *fakeProbe) Reachable(ctx context.Context) bool { return f.reachable }

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

// --- Forecast handler ---

func TestForecastHandler_GetHours_DefaultsAndFilters(t *testing.T) {
	repo := &fakeForecastRepo{samples: []types.ForecastSample{
		{AstroScore: 82, QualityClass: types.QualityGood},
	}}
	h := NewForecastHandler(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/hours?only_night=true&min_score=70", nil)
	rec := httptest.NewRecorder()
	h.HandleGetHours(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, repo.lastFilter.OnlyNight)
	assert.Equal(t, 70, repo.lastFilter.MinScore)

	var samples []types.ForecastSample
	decodeData(t, rec, &samples)
	require.Len(t, samples, 1)
	assert.Equal(t, 82, samples[0].AstroScore)
}

func TestForecastHandler_GetHours_InvalidHoursParam(t *testing.T) {
	h := NewForecastHandler(&fakeForecastRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/hours?hours=9000", nil)
	rec := httptest.NewRecorder()
	h.HandleGetHours(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeValidationInvalidParam), decodeError(t, rec))
}

func TestForecastHandler_GetHours_RepoErrorMapsToStatus(t *testing.T) {
	repo := &fakeForecastRepo{err: types.NewAppError(types.ErrCodeInternalDB, "db down", nil)}
	h := NewForecastHandler(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/hours", nil)
	rec := httptest.NewRecorder()
	h.HandleGetHours(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(types.ErrCodeInternalDB), decodeError(t, rec))
}

func TestForecastHandler_GetBest_RespectsLimit(t *testing.T) {
	repo := &fakeForecastRepo{samples: []types.ForecastSample{
		{AstroScore: 92}, {AstroScore: 88}, {AstroScore: 85},
	}}
	h := NewForecastHandler(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/best?limit=2", nil)
	rec := httptest.NewRecorder()
	h.HandleGetBest(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var samples []types.ForecastSample
	decodeData(t, rec, &samples)
	assert.Len(t, samples, 2)
}

func TestForecastHandler_GetSummary(t *testing.T) {
	best := 88
	repo := &fakeForecastRepo{summaries: []types.DailySummary{
		{Date: "2026-07-14", TotalHours: 24, GoodHours: 4, BestScore: &best},
	}}
	h := NewForecastHandler(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/summary?days=3", nil)
	rec := httptest.NewRecorder()
	h.HandleGetSummary(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var summaries []types.DailySummary
	decodeData(t, rec, &summaries)
	require.Len(t, summaries, 1)
	assert.Equal(t, "2026-07-14", summaries[0].Date)
}

// --- Window handler ---

func TestWindowHandler_GetUpcoming(t *testing.T) {
	repo := &fakeWindowRepo{windows: []types.ObservationWindow{
		{ID: 1, Hours: 4, AvgScore: 86.5},
	}}
	h := NewWindowHandler(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/upcoming", nil)
	rec := httptest.NewRecorder()
	h.HandleGetUpcoming(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var windows []types.ObservationWindow
	decodeData(t, rec, &windows)
	require.Len(t, windows, 1)
	assert.Equal(t, int64(1), windows[0].ID)
}

// --- Sensor handler ---

func TestSensorHandler_GetCurrent_AddsDerivedFields(t *testing.T) {
	ts := time.Date(2026, 7, 14, 23, 55, 0, 0, time.UTC)
	repo := &fakeSensorRepo{latest: &types.SensorReading{
		Timestamp:          ts,
		CloudsSafe:         1,
		RainSafe:           1,
		LightSafe:          1,
		Safe:               1,
		SkyBrightnessMPSAS: 20.73,
	}}
	h := NewSensorHandler(repo, nil)
	h.now = func() time.Time { return ts.Add(2 * time.Minute) }

	req := httptest.NewRequest(http.MethodGet, "/current", nil)
	rec := httptest.NewRecorder()
	h.HandleGetCurrent(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var cc map[string]any
	decodeData(t, rec, &cc)
	assert.Equal(t, "CLEAR", cc["sky_quality"])
	assert.Equal(t, true, cc["safe_for_imaging"])
	assert.Equal(t, float64(5), cc["bortle_estimate"])
	assert.Equal(t, float64(120), cc["age_seconds"])
}

func TestSensorHandler_GetCurrent_NotFound(t *testing.T) {
	repo := &fakeSensorRepo{err: types.NewAppError(
		types.ErrCodeNotFoundReading, "no sensor readings recorded", nil)}
	h := NewSensorHandler(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/current", nil)
	rec := httptest.NewRecorder()
	h.HandleGetCurrent(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(types.ErrCodeNotFoundReading), decodeError(t, rec))
}

// --- Status handler ---

func TestStatusHandler_GetStatus(t *testing.T) {
	h := NewStatusHandler(
		&fakeCredits{credits: 245},
		&fakeMatchRate{rate: 0.83, total: 120},
		&fakeProbe{reachable: true},
		"observatory", nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.HandleGetStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]any
	decodeData(t, rec, &status)
	assert.Equal(t, "observatory", status["site"])
	assert.Equal(t, float64(245), status["credits_used_today"])
	assert.Equal(t, 0.83, status["cloud_match_rate"])
	assert.Equal(t, float64(120), status["verified_hours"])
	assert.Equal(t, true, status["sensor_reachable"])
}
