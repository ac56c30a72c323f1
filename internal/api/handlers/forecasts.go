// Package handlers contains the HTTP handlers for the astro weather read
// API: forecast hours and summaries, observation windows, sensor readings
// and service status.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"astroweather/internal/core"
	"astroweather/internal/db"
	"astroweather/internal/types"
)

// maxRangeHours caps how much forecast data one request can ask for.
const maxRangeHours = 7 * 24

// ForecastReader defines the repository contract for the forecast handler.
type ForecastReader interface {
	GetRange(ctx context.Context, from, to time.Time, filter db.ForecastFilter) ([]types.ForecastSample, error)
	GetBestUpcoming(ctx context.Context, now time.Time, limit int) ([]types.ForecastSample, error)
	DailySummaries(ctx context.Context, from time.Time, days int, goodScore int) ([]types.DailySummary, error)
}

// ForecastHandler serves the stored forecast.
type ForecastHandler struct {
	repo   ForecastReader
	logger *slog.Logger
	now    func() time.Time
}

// NewForecastHandler creates a ForecastHandler.
func NewForecastHandler(repo ForecastReader, logger *slog.Logger) *ForecastHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastHandler{repo: repo, logger: logger, now: time.Now}
}

// RegisterRoutes mounts the forecast endpoints onto the router.
func (h *ForecastHandler) RegisterRoutes(r chi.Router) {
	r.Get("/hours", h.HandleGetHours)
	r.Get("/best", h.HandleGetBest)
	r.Get("/summary", h.HandleGetSummary)
}

// HandleGetHours handles GET /v1/forecast/hours. Optional query parameters:
// hours (range length, default 48), only_night and min_score.
func (h *ForecastHandler) HandleGetHours(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	hours, err := intParam(q.Get("hours"), 48, 1, maxRangeHours)
	if err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidParam,
			"hours must be an integer between 1 and 168",
			err,
		))
		return
	}

	minScore, err := intParam(q.Get("min_score"), 0, 0, 100)
	if err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidParam,
			"min_score must be an integer between 0 and 100",
			err,
		))
		return
	}

	filter := db.ForecastFilter{
		OnlyNight: q.Get("only_night") == "true",
		MinScore:  minScore,
	}

	now := h.now().UTC()
	samples, err := h.repo.GetRange(r.Context(), now, now.Add(time.Duration(hours)*time.Hour), filter)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: samples})
}

// HandleGetBest handles GET /v1/forecast/best. Returns the highest-scoring
// upcoming astronomical-night hours.
func (h *ForecastHandler) HandleGetBest(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), 10, 1, 100)
	if err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidParam,
			"limit must be an integer between 1 and 100",
			err,
		))
		return
	}

	samples, err := h.repo.GetBestUpcoming(r.Context(), h.now().UTC(), limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: samples})
}

// HandleGetSummary handles GET /v1/forecast/summary. Returns per-day
// aggregates for the coming days.
func (h *ForecastHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r.URL.Query().Get("days"), 7, 1, 7)
	if err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidParam,
			"days must be an integer between 1 and 7",
			err,
		))
		return
	}

	from := h.now().UTC().Truncate(24 * time.Hour)
	summaries, err := h.repo.DailySummaries(r.Context(), from, days, 70)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: summaries})
}

// intParam parses an optional integer query parameter with bounds checking.
func intParam(raw string, def, min, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, strconv.ErrRange
	}
	return v, nil
}
