package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"astroweather/internal/core"
)

// CreditsReader reports forecast API credit spend.
type CreditsReader interface {
	CreditsUsedSince(ctx context.Context, since time.Time) (int, error)
}

// MatchRateReader reports forecast verification results.
type MatchRateReader interface {
	MatchRate(ctx context.Context) (float64, int, error)
}

// SensorProbe checks whether the sky sensor answers on the LAN.
type SensorProbe interface {
	Reachable(ctx context.Context) bool
}

// StatusHandler serves the operational status endpoint.
type StatusHandler struct {
	credits  CreditsReader
	accuracy MatchRateReader
	sensor   SensorProbe
	site     string
	logger   *slog.Logger
	now      func() time.Time
}

// NewStatusHandler creates a StatusHandler. sensor may be nil when no probe
// is wired (the field is then reported as unknown).
func NewStatusHandler(credits CreditsReader, accuracy MatchRateReader, sensor SensorProbe, site string, logger *slog.Logger) *StatusHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusHandler{
		credits:  credits,
		accuracy: accuracy,
		sensor:   sensor,
		site:     site,
		logger:   logger,
		now:      time.Now,
	}
}

// RegisterRoutes mounts the status endpoint onto the router.
func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleGetStatus)
}

type statusResponse struct {
	Site             string  `json:"site"`
	Time             string  `json:"time"`
	SensorReachable  *bool   `json:"sensor_reachable,omitempty"`
	CreditsUsedToday int     `json:"credits_used_today"`
	CloudMatchRate   float64 `json:"cloud_match_rate"`
	VerifiedHours    int     `json:"verified_hours"`
}

// HandleGetStatus handles GET /v1/status. Partial failures degrade the
// response rather than failing it; status must stay useful when the
// database is limping.
func (h *StatusHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	resp := statusResponse{
		Site: h.site,
		Time: now.Format(time.RFC3339),
	}

	midnight := now.Truncate(24 * time.Hour)
	credits, err := h.credits.CreditsUsedSince(r.Context(), midnight)
	if err != nil {
		h.logger.WarnContext(r.Context(), "credit usage unavailable", "error", err)
	} else {
		resp.CreditsUsedToday = credits
	}

	rate, total, err := h.accuracy.MatchRate(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "verification stats unavailable", "error", err)
	} else {
		resp.CloudMatchRate = rate
		resp.VerifiedHours = total
	}

	if h.sensor != nil {
		reachable := h.sensor.Reachable(r.Context())
		resp.SensorReachable = &reachable
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: resp})
}
