package db

import (
	"context"
	"log/slog"
	"time"

	"astroweather/internal/types"
)

// APILogRepository provides data access for the api_call_log table. Logging
// an upstream call is best-effort: a failed insert is logged and swallowed so
// bookkeeping never breaks a poll.
type APILogRepository struct {
	db     DBTX
	logger *slog.Logger
}

// NewAPILogRepository creates an APILogRepository backed by the given database
// connection (pool or transaction).
func NewAPILogRepository(db DBTX, logger *slog.Logger) *APILogRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &APILogRepository{db: db, logger: logger}
}

// Record writes one upstream call record.
func (r *APILogRepository) Record(ctx context.Context, rec types.APICallRecord) {
	_, err := r.db.Exec(ctx,
		`INSERT INTO api_call_log
		 (api_name, endpoint, credits_used, success, response_time_ms, error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), COALESCE($7, NOW()))`,
		string(rec.API), rec.Endpoint, rec.CreditsUsed, rec.Success,
		rec.ResponseTimeMS, rec.ErrorMessage, nilIfZeroTime(rec.CreatedAt),
	)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to record API call",
			"api", string(rec.API), "error", err)
	}
}

// CreditsUsedSince sums meteoblue credits spent since the given time.
func (r *APILogRepository) CreditsUsedSince(ctx context.Context, since time.Time) (int, error) {
	var credits int
	row := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(credits_used), 0)
		 FROM api_call_log
		 WHERE api_name = $1 AND created_at >= $2`,
		string(types.APIMeteoblue), since,
	)
	if err := row.Scan(&credits); err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to query credit usage", err)
	}
	return credits, nil
}

// nilIfZeroTime converts a zero time.Time to nil so the database can apply
// its DEFAULT expression.
func nilIfZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
