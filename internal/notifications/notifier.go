package notifications

import (
	"context"
	"log/slog"
	"time"

	"astroweather/internal/config"
	"astroweather/internal/types"
)

// WindowStore is the subset of the window repository the notifier needs.
type WindowStore interface {
	GetUnnotified(ctx context.Context, now time.Time, minScore float64) ([]types.ObservationWindow, error)
	MarkNotified(ctx context.Context, id int64, sentAt time.Time) error
}

// Sender delivers a single formatted message.
type Sender interface {
	Send(ctx context.Context, title, message string, priority int) error
}

// Notifier sends one alert per qualifying observation window. A window is
// notified at most once; the notified flag in the store is the sole
// deduplication mechanism, so it is only set after a successful send.
type Notifier struct {
	windows  WindowStore
	sender   Sender
	cfg      config.NotifyConfig
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// NewNotifier creates a Notifier. loc controls how alert times are rendered;
// nil falls back to UTC.
func NewNotifier(windows WindowStore, sender Sender, cfg config.NotifyConfig, loc *time.Location, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{
		windows:  windows,
		sender:   sender,
		cfg:      cfg,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

// NotifyEligible sends alerts for all future unnotified windows that meet the
// notification thresholds. A send failure stops the run so the window stays
// unnotified and is retried on the next poll. Returns the number of alerts
// sent.
func (n *Notifier) NotifyEligible(ctx context.Context) (int, error) {
	if !n.cfg.NotificationsEnabled() {
		n.logger.DebugContext(ctx, "notifications disabled, skipping")
		return 0, nil
	}

	now := n.now().UTC()
	windows, err := n.windows.GetUnnotified(ctx, now, float64(n.cfg.MinScore))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, w := range windows {
		if w.Hours < n.cfg.MinHours {
			continue
		}

		title, message := FormatWindow(w, n.location)
		if err := n.sender.Send(ctx, title, message, 0); err != nil {
			n.logger.ErrorContext(ctx, "failed to send window alert",
				"window_id", w.ID, "error", err)
			return sent, err
		}

		if err := n.windows.MarkNotified(ctx, w.ID, n.now().UTC()); err != nil {
			// The alert went out but the flag did not stick; surface the
			// error so the duplicate risk is visible in logs.
			n.logger.ErrorContext(ctx, "alert sent but window not marked notified",
				"window_id", w.ID, "error", err)
			return sent + 1, err
		}

		n.logger.InfoContext(ctx, "window alert sent",
			"window_id", w.ID,
			"start", w.Start,
			"hours", w.Hours,
			"avg_score", w.AvgScore,
		)
		sent++
	}

	return sent, nil
}
