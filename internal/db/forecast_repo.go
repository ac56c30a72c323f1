package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"astroweather/internal/types"
)

// ForecastRepository provides data access for the meteoblue_hourly table.
// Each row is one forecast hour keyed by its UTC timestamp; repeated polls
// overwrite earlier predictions for the same hour.
type ForecastRepository struct {
	db DBTX
}

// NewForecastRepository creates a ForecastRepository backed by the given
// database connection (pool or transaction).
func NewForecastRepository(db DBTX) *ForecastRepository {
	return &ForecastRepository{db: db}
}

const forecastColumns = `timestamp, fetched_at,
	seeing_arcsec, seeing_index1, seeing_index2, jetstream_speed,
	badlayer_bottom, badlayer_top, badlayer_gradient,
	totalcloud, lowclouds, midclouds, highclouds, visibility, fog_probability,
	nightsky_brightness_actual, nightsky_brightness_clearsky, moonlight_actual, zenith_angle,
	temperature, humidity, precipitation_prob, wind_speed,
	astro_score, quality_class`

// UpsertHourly writes forecast samples, replacing any existing prediction for
// the same hour. Returns the number of rows written.
func (r *ForecastRepository) UpsertHourly(ctx context.Context, samples []types.ForecastSample) (int, error) {
	written := 0
	for _, s := range samples {
		_, err := r.db.Exec(ctx,
			`INSERT INTO meteoblue_hourly (`+forecastColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			         $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
			 ON CONFLICT (timestamp) DO UPDATE SET
				fetched_at = EXCLUDED.fetched_at,
				seeing_arcsec = EXCLUDED.seeing_arcsec,
				seeing_index1 = EXCLUDED.seeing_index1,
				seeing_index2 = EXCLUDED.seeing_index2,
				jetstream_speed = EXCLUDED.jetstream_speed,
				badlayer_bottom = EXCLUDED.badlayer_bottom,
				badlayer_top = EXCLUDED.badlayer_top,
				badlayer_gradient = EXCLUDED.badlayer_gradient,
				totalcloud = EXCLUDED.totalcloud,
				lowclouds = EXCLUDED.lowclouds,
				midclouds = EXCLUDED.midclouds,
				highclouds = EXCLUDED.highclouds,
				visibility = EXCLUDED.visibility,
				fog_probability = EXCLUDED.fog_probability,
				nightsky_brightness_actual = EXCLUDED.nightsky_brightness_actual,
				nightsky_brightness_clearsky = EXCLUDED.nightsky_brightness_clearsky,
				moonlight_actual = EXCLUDED.moonlight_actual,
				zenith_angle = EXCLUDED.zenith_angle,
				temperature = EXCLUDED.temperature,
				humidity = EXCLUDED.humidity,
				precipitation_prob = EXCLUDED.precipitation_prob,
				wind_speed = EXCLUDED.wind_speed,
				astro_score = EXCLUDED.astro_score,
				quality_class = EXCLUDED.quality_class`,
			s.Timestamp, s.FetchedAt,
			s.SeeingArcsec, s.SeeingIndex1, s.SeeingIndex2, s.JetstreamSpeed,
			s.BadLayerBottom, s.BadLayerTop, s.BadLayerGradient,
			s.TotalCloud, s.LowClouds, s.MidClouds, s.HighClouds, s.Visibility, s.FogProbability,
			s.NightSkyBrightnessActual, s.NightSkyBrightnessClearSky, s.Moonlight, s.ZenithAngle,
			s.Temperature, s.Humidity, s.PrecipitationProb, s.WindSpeed,
			s.AstroScore, string(s.QualityClass),
		)
		if err != nil {
			return written, types.NewAppError(types.ErrCodeInternalDB, "failed to upsert forecast hour", err)
		}
		written++
	}
	return written, nil
}

// ForecastFilter narrows a forecast range query. Zero values disable the
// respective filter.
type ForecastFilter struct {
	OnlyNight bool // astronomical night only (zenith angle above 108)
	MinScore  int
}

// GetRange retrieves forecast hours between from and to (inclusive), ordered
// by timestamp.
func (r *ForecastRepository) GetRange(ctx context.Context, from, to time.Time, filter ForecastFilter) ([]types.ForecastSample, error) {
	conditions := []string{"timestamp >= $1", "timestamp <= $2"}
	args := []any{from, to}
	argIdx := 3

	if filter.OnlyNight {
		conditions = append(conditions, "zenith_angle > 108")
	}
	if filter.MinScore > 0 {
		conditions = append(conditions, fmt.Sprintf("astro_score >= $%d", argIdx))
		args = append(args, filter.MinScore)
		argIdx++
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+forecastColumns+`
		 FROM meteoblue_hourly
		 WHERE `+strings.Join(conditions, " AND ")+`
		 ORDER BY timestamp`,
		args...,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query forecast range", err)
	}
	defer rows.Close()

	return collectSamples(rows)
}

// GetBestUpcoming retrieves the highest-scoring astronomical-night hours
// after now, best first.
func (r *ForecastRepository) GetBestUpcoming(ctx context.Context, now time.Time, limit int) ([]types.ForecastSample, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+forecastColumns+`
		 FROM meteoblue_hourly
		 WHERE timestamp > $1 AND zenith_angle > 108
		 ORDER BY astro_score DESC, timestamp
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query best upcoming hours", err)
	}
	defer rows.Close()

	return collectSamples(rows)
}

// DailySummaries aggregates upcoming forecast hours by calendar day. Good
// hours are astronomical-night hours scoring at least goodScore.
func (r *ForecastRepository) DailySummaries(ctx context.Context, from time.Time, days int, goodScore int) ([]types.DailySummary, error) {
	if days <= 0 {
		days = 7
	}

	rows, err := r.db.Query(ctx,
		`SELECT to_char(timestamp::date, 'YYYY-MM-DD') AS day,
		        COUNT(*) AS total_hours,
		        COUNT(*) FILTER (WHERE zenith_angle > 108) AS night_hours,
		        COUNT(*) FILTER (WHERE zenith_angle > 108 AND astro_score >= $3) AS good_hours,
		        MAX(astro_score) FILTER (WHERE zenith_angle > 108) AS best_score,
		        MIN(seeing_arcsec) FILTER (WHERE zenith_angle > 108) AS best_seeing,
		        AVG(totalcloud) FILTER (WHERE zenith_angle > 108) AS avg_clouds
		 FROM meteoblue_hourly
		 WHERE timestamp >= $1 AND timestamp < $1 + make_interval(days => $2)
		 GROUP BY day
		 ORDER BY day`,
		from, days, goodScore,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query daily summaries", err)
	}
	defer rows.Close()

	var summaries []types.DailySummary
	for rows.Next() {
		var s types.DailySummary
		if err := rows.Scan(&s.Date, &s.TotalHours, &s.NightHours, &s.GoodHours,
			&s.BestScore, &s.BestSeeing, &s.AvgClouds); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan daily summary row", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating daily summary rows", err)
	}

	return summaries, nil
}

func collectSamples(rows pgx.Rows) ([]types.ForecastSample, error) {
	var samples []types.ForecastSample
	for rows.Next() {
		var (
			s       types.ForecastSample
			quality string
		)
		err := rows.Scan(
			&s.Timestamp, &s.FetchedAt,
			&s.SeeingArcsec, &s.SeeingIndex1, &s.SeeingIndex2, &s.JetstreamSpeed,
			&s.BadLayerBottom, &s.BadLayerTop, &s.BadLayerGradient,
			&s.TotalCloud, &s.LowClouds, &s.MidClouds, &s.HighClouds, &s.Visibility, &s.FogProbability,
			&s.NightSkyBrightnessActual, &s.NightSkyBrightnessClearSky, &s.Moonlight, &s.ZenithAngle,
			&s.Temperature, &s.Humidity, &s.PrecipitationProb, &s.WindSpeed,
			&s.AstroScore, &quality,
		)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan forecast row", err)
		}
		s.QualityClass = types.QualityClass(quality)
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating forecast rows", err)
	}
	return samples, nil
}
