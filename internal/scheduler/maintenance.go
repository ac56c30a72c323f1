package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"astroweather/internal/config"
	"astroweather/internal/types"
)

// SensorPruner abstracts the sensor repository operations retention needs.
type SensorPruner interface {
	GetRange(ctx context.Context, from, to time.Time) ([]types.SensorReading, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// MaintenanceJob archives sensor readings past the retention cutoff to
// gzipped JSON files and then deletes them from the database. Readings are
// only deleted after the archive file has been written and synced, so a
// failed archive never loses data.
type MaintenanceJob struct {
	sensors SensorPruner
	cfg     config.ArchiveConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewMaintenanceJob creates a MaintenanceJob.
func NewMaintenanceJob(sensors SensorPruner, cfg config.ArchiveConfig, logger *slog.Logger) *MaintenanceJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &MaintenanceJob{sensors: sensors, cfg: cfg, logger: logger, now: time.Now}
}

// Run performs one archive-and-prune pass. Returns the number of readings
// pruned. A job with no archive directory configured is a no-op.
func (j *MaintenanceJob) Run(ctx context.Context) (int64, error) {
	if j.cfg.Dir == "" {
		return 0, nil
	}

	cutoff := j.now().UTC().Add(-j.cfg.Retention)

	readings, err := j.sensors.GetRange(ctx, time.Time{}, cutoff)
	if err != nil {
		return 0, err
	}
	if len(readings) == 0 {
		j.logger.DebugContext(ctx, "no sensor readings past retention", "cutoff", cutoff)
		return 0, nil
	}

	path, err := j.writeArchive(readings, cutoff)
	if err != nil {
		return 0, err
	}

	deleted, err := j.sensors.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	j.logger.InfoContext(ctx, "sensor readings archived",
		"archive", path,
		"readings", len(readings),
		"deleted", deleted,
	)
	return deleted, nil
}

// writeArchive writes the readings as gzipped JSON lines. The file is named
// after the cutoff date; re-running the job the same day overwrites it with
// a superset of the same rows.
func (j *MaintenanceJob) writeArchive(readings []types.SensorReading, cutoff time.Time) (string, error) {
	if err := os.MkdirAll(j.cfg.Dir, 0o755); err != nil {
		return "", types.NewAppError(types.ErrCodeInternalArchive, "failed to create archive directory", err)
	}

	name := fmt.Sprintf("readings-%s.jsonl.gz", cutoff.Format("20060102"))
	path := filepath.Join(j.cfg.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalArchive, "failed to create archive file", err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	enc := json.NewEncoder(zw)
	for _, r := range readings {
		if err := enc.Encode(r); err != nil {
			zw.Close()
			return "", types.NewAppError(types.ErrCodeInternalArchive, "failed to encode reading", err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", types.NewAppError(types.ErrCodeInternalArchive, "failed to finalize archive", err)
	}
	if err := f.Sync(); err != nil {
		return "", types.NewAppError(types.ErrCodeInternalArchive, "failed to sync archive", err)
	}

	return path, nil
}
