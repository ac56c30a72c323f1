package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"astroweather/internal/types"
)

// SensorRepository provides data access for the cloudwatcher_readings table.
type SensorRepository struct {
	db DBTX
}

// NewSensorRepository creates a SensorRepository backed by the given database
// connection (pool or transaction).
func NewSensorRepository(db DBTX) *SensorRepository {
	return &SensorRepository{db: db}
}

const sensorColumns = `id, timestamp,
	sky_minus_ambient, clouds_safe, sky_temp, ambient_temp, dew_point,
	humidity, humidity_safe, sky_brightness_mpsas, light_safe,
	rain, rain_safe, wind, gust, wind_safe,
	pressure_abs, pressure_rel, pressure_safe, safe, serial, firmware`

// Insert writes a sensor reading and fills in its generated ID.
func (r *SensorRepository) Insert(ctx context.Context, reading *types.SensorReading) error {
	row := r.db.QueryRow(ctx,
		`INSERT INTO cloudwatcher_readings
		 (timestamp,
		  sky_minus_ambient, clouds_safe, sky_temp, ambient_temp, dew_point,
		  humidity, humidity_safe, sky_brightness_mpsas, light_safe,
		  rain, rain_safe, wind, gust, wind_safe,
		  pressure_abs, pressure_rel, pressure_safe, safe, serial, firmware)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		         $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		 RETURNING id`,
		reading.Timestamp,
		reading.SkyMinusAmbient, reading.CloudsSafe, reading.SkyTemp, reading.AmbientTemp, reading.DewPoint,
		reading.Humidity, reading.HumiditySafe, reading.SkyBrightnessMPSAS, reading.LightSafe,
		reading.Rain, reading.RainSafe, reading.Wind, reading.Gust, reading.WindSafe,
		reading.PressureAbs, reading.PressureRel, reading.PressureSafe, reading.Safe,
		reading.Serial, reading.Firmware,
	)
	if err := row.Scan(&reading.ID); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert sensor reading", err)
	}
	return nil
}

// GetLatest retrieves the most recent sensor reading.
func (r *SensorRepository) GetLatest(ctx context.Context) (*types.SensorReading, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+sensorColumns+`
		 FROM cloudwatcher_readings
		 ORDER BY timestamp DESC
		 LIMIT 1`,
	)

	reading, err := scanReading(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundReading, "no sensor readings recorded", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get latest sensor reading", err)
	}
	return reading, nil
}

// GetRange retrieves readings between from and to (inclusive), oldest first.
func (r *SensorRepository) GetRange(ctx context.Context, from, to time.Time) ([]types.SensorReading, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+sensorColumns+`
		 FROM cloudwatcher_readings
		 WHERE timestamp >= $1 AND timestamp <= $2
		 ORDER BY timestamp`,
		from, to,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query sensor readings", err)
	}
	defer rows.Close()

	var readings []types.SensorReading
	for rows.Next() {
		reading, scanErr := scanReading(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan sensor reading row", scanErr)
		}
		readings = append(readings, *reading)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating sensor reading rows", err)
	}

	return readings, nil
}

// DeleteOlderThan removes readings before the cutoff, returning the count of
// deleted rows. Used by retention cleanup after archiving.
func (r *SensorRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM cloudwatcher_readings WHERE timestamp < $1`,
		cutoff,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to delete old sensor readings", err)
	}
	return tag.RowsAffected(), nil
}

func scanReading(row pgx.Row) (*types.SensorReading, error) {
	var reading types.SensorReading
	err := row.Scan(
		&reading.ID, &reading.Timestamp,
		&reading.SkyMinusAmbient, &reading.CloudsSafe, &reading.SkyTemp, &reading.AmbientTemp, &reading.DewPoint,
		&reading.Humidity, &reading.HumiditySafe, &reading.SkyBrightnessMPSAS, &reading.LightSafe,
		&reading.Rain, &reading.RainSafe, &reading.Wind, &reading.Gust, &reading.WindSafe,
		&reading.PressureAbs, &reading.PressureRel, &reading.PressureSafe, &reading.Safe,
		&reading.Serial, &reading.Firmware,
	)
	if err != nil {
		return nil, err
	}
	return &reading, nil
}
