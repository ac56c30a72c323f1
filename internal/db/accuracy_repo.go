package db

import (
	"context"

	"astroweather/internal/types"
)

// AccuracyRepository provides data access for the training_pairs table, which
// matches forecast hours against what the sky sensor actually measured.
type AccuracyRepository struct {
	db DBTX
}

// NewAccuracyRepository creates an AccuracyRepository backed by the given
// database connection (pool or transaction).
func NewAccuracyRepository(db DBTX) *AccuracyRepository {
	return &AccuracyRepository{db: db}
}

// UpsertPairs writes forecast/actual pairs keyed by hour. Re-running the
// matching job over the same hours refreshes the stored actuals. Returns the
// number of rows written.
func (r *AccuracyRepository) UpsertPairs(ctx context.Context, pairs []types.AccuracyPair) (int, error) {
	written := 0
	for _, p := range pairs {
		_, err := r.db.Exec(ctx,
			`INSERT INTO training_pairs
			 (timestamp, forecast_seeing_arcsec, forecast_totalcloud, forecast_astro_score,
			  actual_sky_temp, actual_sky_quality, actual_sky_minus_ambient,
			  cloud_classification_match, hour_of_day, day_of_year)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (timestamp) DO UPDATE SET
				forecast_seeing_arcsec = EXCLUDED.forecast_seeing_arcsec,
				forecast_totalcloud = EXCLUDED.forecast_totalcloud,
				forecast_astro_score = EXCLUDED.forecast_astro_score,
				actual_sky_temp = EXCLUDED.actual_sky_temp,
				actual_sky_quality = EXCLUDED.actual_sky_quality,
				actual_sky_minus_ambient = EXCLUDED.actual_sky_minus_ambient,
				cloud_classification_match = EXCLUDED.cloud_classification_match`,
			p.Timestamp, p.ForecastSeeingArcsec, p.ForecastTotalCloud, p.ForecastAstroScore,
			p.ActualSkyTemp, string(p.ActualSkyQuality), p.ActualSkyMinusAmbient,
			p.CloudMatch, p.HourOfDay, p.DayOfYear,
		)
		if err != nil {
			return written, types.NewAppError(types.ErrCodeInternalDB, "failed to upsert accuracy pair", err)
		}
		written++
	}
	return written, nil
}

// MatchRate returns the fraction of stored pairs where the forecast cloud
// classification agreed with the sensor, along with the pair count.
func (r *AccuracyRepository) MatchRate(ctx context.Context) (float64, int, error) {
	var (
		total   int
		matched int
	)
	row := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE cloud_classification_match)
		 FROM training_pairs`,
	)
	if err := row.Scan(&total, &matched); err != nil {
		return 0, 0, types.NewAppError(types.ErrCodeInternalDB, "failed to query accuracy match rate", err)
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(matched) / float64(total), total, nil
}
