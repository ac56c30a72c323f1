package scheduler

import (
	"context"
	"log/slog"

	"astroweather/internal/types"
)

// SensorSource abstracts the CloudWatcher client.
type SensorSource interface {
	Fetch(ctx context.Context) (*types.SensorReading, error)
}

// SensorStore abstracts the sensor repository write operation.
type SensorStore interface {
	Insert(ctx context.Context, reading *types.SensorReading) error
}

// SensorPoller reads the sky sensor and persists the reading.
type SensorPoller struct {
	source SensorSource
	store  SensorStore
	logger *slog.Logger
}

// NewSensorPoller creates a SensorPoller.
func NewSensorPoller(source SensorSource, store SensorStore, logger *slog.Logger) *SensorPoller {
	if logger == nil {
		logger = slog.Default()
	}
	return &SensorPoller{source: source, store: store, logger: logger}
}

// Poll fetches one reading and stores it. A sensor that is off or unreachable
// is an expected condition for a device on observatory power, so failures are
// returned for the caller to log at a low level rather than treated as fatal.
func (p *SensorPoller) Poll(ctx context.Context) (*types.SensorReading, error) {
	reading, err := p.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := p.store.Insert(ctx, reading); err != nil {
		return nil, err
	}

	p.logger.DebugContext(ctx, "sensor reading stored",
		"id", reading.ID,
		"sky_minus_ambient", reading.SkyMinusAmbient,
		"sky_quality", string(reading.SkyQuality()),
		"safe", reading.IsSafeForImaging(),
	)

	return reading, nil
}
