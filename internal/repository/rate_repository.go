package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/unclebandit/outreach-backend/internal/model"
)

type RateRepositoryInterface interface {
	Seed(ctx context.Context, accountID, day string, limits model.MessageLimits) error
	Get(ctx context.Context, accountID, day string) (*model.DailyRateRecord, error)
	Increment(ctx context.Context, accountID, day string, now time.Time) error
}

type RateRepository struct {
	DB *sql.DB
}

// Seed creates today's record with a zero count if absent. True
// create-if-absent: concurrent first-of-the-day callers race harmlessly.
func (r *RateRepository) Seed(ctx context.Context, accountID, day string, limits model.MessageLimits) error {
	query := `
        INSERT INTO daily_rate_records (account_id, day, sent_today, max_messages, min_messages)
        VALUES ($1, $2, 0, $3, $4)
        ON CONFLICT (account_id, day) DO NOTHING
    `
	_, err := r.DB.ExecContext(ctx, query, accountID, day, limits.Max, limits.Min)
	return err
}

func (r *RateRepository) Get(ctx context.Context, accountID, day string) (*model.DailyRateRecord, error) {
	query := `
        SELECT account_id, day, sent_today, max_messages, min_messages, last_message_at
        FROM daily_rate_records
        WHERE account_id=$1 AND day=$2
    `
	var rec model.DailyRateRecord
	err := r.DB.QueryRowContext(ctx, query, accountID, day).Scan(
		&rec.AccountID, &rec.Day, &rec.SentToday,
		&rec.MaxMessages, &rec.MinMessages, &rec.LastMessageAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Increment bumps today's counter by one and stamps the send time. The
// increment happens inside the database, never read-modify-write in the
// application, so concurrent sends for one account cannot lose counts.
func (r *RateRepository) Increment(ctx context.Context, accountID, day string, now time.Time) error {
	query := `
        INSERT INTO daily_rate_records (account_id, day, sent_today, max_messages, min_messages, last_message_at)
        VALUES ($1, $2, 1, 0, 0, $3)
        ON CONFLICT (account_id, day) DO UPDATE
        SET sent_today = daily_rate_records.sent_today + 1,
            last_message_at = EXCLUDED.last_message_at
    `
	_, err := r.DB.ExecContext(ctx, query, accountID, day, now)
	return err
}

var _ RateRepositoryInterface = (*RateRepository)(nil)
