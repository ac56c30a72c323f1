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

// WindowReader defines the repository contract for the window handler.
type WindowReader interface {
	GetUpcoming(ctx context.Context, now time.Time, limit int) ([]types.ObservationWindow, error)
}

// WindowHandler serves the computed observation windows.
type WindowHandler struct {
	repo   WindowReader
	logger *slog.Logger
	now    func() time.Time
}

// NewWindowHandler creates a WindowHandler.
func NewWindowHandler(repo WindowReader, logger *slog.Logger) *WindowHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WindowHandler{repo: repo, logger: logger, now: time.Now}
}

// RegisterRoutes mounts the window endpoints onto the router.
func (h *WindowHandler) RegisterRoutes(r chi.Router) {
	r.Get("/upcoming", h.HandleGetUpcoming)
}

// HandleGetUpcoming handles GET /v1/windows/upcoming.
func (h *WindowHandler) HandleGetUpcoming(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), 20, 1, 100)
	if err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidParam,
			"limit must be an integer between 1 and 100",
			err,
		))
		return
	}

	windows, err := h.repo.GetUpcoming(r.Context(), h.now().UTC(), limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: windows})
}
