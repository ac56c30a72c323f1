package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"astroweather/internal/types"
)

// WindowRepository provides data access for the observation_windows table.
type WindowRepository struct {
	db DBTX
}

// NewWindowRepository creates a WindowRepository backed by the given database
// connection (pool or transaction).
func NewWindowRepository(db DBTX) *WindowRepository {
	return &WindowRepository{db: db}
}

// ReplaceUpcoming deletes all unnotified windows starting after now and
// inserts the given set. Windows are recomputed from scratch on every
// forecast poll, so stale unnotified rows must not linger. Already-notified
// windows are kept for history.
func (r *WindowRepository) ReplaceUpcoming(ctx context.Context, now time.Time, windows []types.ObservationWindow) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM observation_windows
		 WHERE start_time > $1 AND NOT notified`,
		now,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to clear stale windows", err)
	}

	for i := range windows {
		if err := r.Create(ctx, &windows[i]); err != nil {
			return err
		}
	}
	return nil
}

// Create inserts a window and fills in its generated ID.
func (r *WindowRepository) Create(ctx context.Context, w *types.ObservationWindow) error {
	row := r.db.QueryRow(ctx,
		`INSERT INTO observation_windows
		 (start_time, end_time, duration_hours, avg_score, min_score,
		  avg_seeing_arcsec, avg_cloud_pct, notified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		w.Start, w.End, w.Hours, w.AvgScore, w.MinScore,
		w.AvgSeeingArcsec, w.AvgCloudPct, w.Notified,
	)
	if err := row.Scan(&w.ID); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create observation window", err)
	}
	return nil
}

// GetUnnotified retrieves future windows with avg_score at or above minScore
// that have not yet triggered a notification, earliest first.
func (r *WindowRepository) GetUnnotified(ctx context.Context, now time.Time, minScore float64) ([]types.ObservationWindow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, start_time, end_time, duration_hours, avg_score, min_score,
		        avg_seeing_arcsec, avg_cloud_pct, notified, notification_sent_at
		 FROM observation_windows
		 WHERE start_time > $1 AND avg_score >= $2 AND NOT notified
		 ORDER BY start_time`,
		now, minScore,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query unnotified windows", err)
	}
	defer rows.Close()

	return collectWindows(rows)
}

// GetUpcoming retrieves windows that have not yet ended, earliest first.
func (r *WindowRepository) GetUpcoming(ctx context.Context, now time.Time, limit int) ([]types.ObservationWindow, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, start_time, end_time, duration_hours, avg_score, min_score,
		        avg_seeing_arcsec, avg_cloud_pct, notified, notification_sent_at
		 FROM observation_windows
		 WHERE end_time > $1
		 ORDER BY start_time
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query upcoming windows", err)
	}
	defer rows.Close()

	return collectWindows(rows)
}

// MarkNotified flags a window as notified and records when.
func (r *WindowRepository) MarkNotified(ctx context.Context, id int64, sentAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE observation_windows SET
			notified = TRUE,
			notification_sent_at = $1
		 WHERE id = $2`,
		sentAt, id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark window notified", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundWindow, "observation window not found", nil)
	}
	return nil
}

func collectWindows(rows pgx.Rows) ([]types.ObservationWindow, error) {
	var windows []types.ObservationWindow
	for rows.Next() {
		var w types.ObservationWindow
		err := rows.Scan(&w.ID, &w.Start, &w.End, &w.Hours, &w.AvgScore, &w.MinScore,
			&w.AvgSeeingArcsec, &w.AvgCloudPct, &w.Notified, &w.NotificationSentAt)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan window row", err)
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating window rows", err)
	}
	return windows, nil
}
