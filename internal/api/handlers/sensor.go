package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"astroweather/internal/core"
	"astroweather/internal/types"
)

// SensorReader defines the repository contract for the sensor handler.
type SensorReader interface {
	GetLatest(ctx context.Context) (*types.SensorReading, error)
	GetRange(ctx context.Context, from, to time.Time) ([]types.SensorReading, error)
}

// SensorHandler serves the stored CloudWatcher readings.
type SensorHandler struct {
	repo   SensorReader
	logger *slog.Logger
	now    func() time.Time
}

// NewSensorHandler creates a SensorHandler.
func NewSensorHandler(repo SensorReader, logger *slog.Logger) *SensorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SensorHandler{repo: repo, logger: logger, now: time.Now}
}

// RegisterRoutes mounts the sensor endpoints onto the router.
func (h *SensorHandler) RegisterRoutes(r chi.Router) {
	r.Get("/current", h.HandleGetCurrent)
	r.Get("/readings", h.HandleGetReadings)
}

// currentConditions decorates the raw reading with its derived assessments.
type currentConditions struct {
	types.SensorReading
	SkyQuality     types.SkyQuality `json:"sky_quality"`
	SafeForImaging bool             `json:"safe_for_imaging"`
	BortleEstimate int              `json:"bortle_estimate"`
	AgeSeconds     int              `json:"age_seconds"`
}

// HandleGetCurrent handles GET /v1/sensor/current.
func (h *SensorHandler) HandleGetCurrent(w http.ResponseWriter, r *http.Request) {
	reading, err := h.repo.GetLatest(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	cc := currentConditions{
		SensorReading:  *reading,
		SkyQuality:     reading.SkyQuality(),
		SafeForImaging: reading.IsSafeForImaging(),
		BortleEstimate: reading.BortleEstimate(),
		AgeSeconds:     int(h.now().UTC().Sub(reading.Timestamp).Seconds()),
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: cc})
}

// HandleGetReadings handles GET /v1/sensor/readings. The hours parameter
// selects how far back to look (default 24).
func (h *SensorHandler) HandleGetReadings(w http.ResponseWriter, r *http.Request) {
	hours, err := intParam(r.URL.Query().Get("hours"), 24, 1, maxRangeHours)
	if err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidParam,
			"hours must be an integer between 1 and 168",
			err,
		))
		return
	}

	now := h.now().UTC()
	readings, err := h.repo.GetRange(r.Context(), now.Add(-time.Duration(hours)*time.Hour), now)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: readings})
}
