package scheduler

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astroweather/internal/config"
	"astroweather/internal/types"
)

type fakeSensorPruner struct {
	readings   []types.SensorReading
	getErr     error
	deleteErr  error
	deletedCut time.Time
	deleted    bool
}

func (f *fakeSensorPruner) GetRange(ctx context.Context, from, to time.Time) ([]types.SensorReading, error) {
	return f.readings, f.getErr
}

func (f *fakeSensorPruner) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deleted = true
	f.deletedCut = cutoff
	return int64(len(f.readings)), nil
}

func TestMaintenanceJob_Run_ArchivesThenDeletes(t *testing.T) {
	dir := t.TempDir()
	pruner := &fakeSensorPruner{readings: []types.SensorReading{
		{ID: 1, Timestamp: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC), SkyMinusAmbient: -20},
		{ID: 2, Timestamp: time.Date(2026, 4, 1, 12, 5, 0, 0, time.UTC), SkyMinusAmbient: -21},
	}}

	j := NewMaintenanceJob(pruner, config.ArchiveConfig{
		Dir:       dir,
		Retention: 90 * 24 * time.Hour,
	}, nil)
	j.now = func() time.Time { return time.Date(2026, 7, 15, 3, 0, 0, 0, time.UTC) }

	deleted, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.True(t, pruner.deleted)

	// Cutoff is now minus retention.
	assert.Equal(t, time.Date(2026, 4, 16, 3, 0, 0, 0, time.UTC), pruner.deletedCut)

	// The archive holds one JSON line per reading.
	path := filepath.Join(dir, "readings-20260416.jsonl.gz")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()

	var ids []int64
	scanner := bufio.NewScanner(zr)
	for scanner.Scan() {
		var r types.SensorReading
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		ids = append(ids, r.ID)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestMaintenanceJob_Run_NoDirConfiguredIsNoOp(t *testing.T) {
	pruner := &fakeSensorPruner{readings: []types.SensorReading{{ID: 1}}}
	j := NewMaintenanceJob(pruner, config.ArchiveConfig{}, nil)

	deleted, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.False(t, pruner.deleted)
}

func TestMaintenanceJob_Run_NothingPastRetention(t *testing.T) {
	j := NewMaintenanceJob(&fakeSensorPruner{}, config.ArchiveConfig{
		Dir:       t.TempDir(),
		Retention: time.Hour,
	}, nil)

	deleted, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestMaintenanceJob_Run_ArchiveFailureSkipsDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blocked")
	// A regular file where the directory should be makes MkdirAll fail.
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0o644))

	pruner := &fakeSensorPruner{readings: []types.SensorReading{{ID: 1}}}
	j := NewMaintenanceJob(pruner, config.ArchiveConfig{
		Dir:       dir,
		Retention: time.Hour,
	}, nil)

	_, err := j.Run(context.Background())
	require.Error(t, err)
	assert.False(t, pruner.deleted)
}
