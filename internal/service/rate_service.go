package service

import (
	"context"
	"time"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/pacing"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

// RateLimitCounter tracks the per-(account, day) send counter and answers
// how much quota the linear pacing curve leaves at a given time of day.
type RateLimitCounter struct {
	Rates repository.RateRepositoryInterface
}

// GetInfo reads today's record, seeding a zero record on first access of
// the day. Seeding is create-if-absent, so concurrent first callers cannot
// clobber each other. The limits passed in are only written at seed time;
// an existing record keeps the max it was created with.
func (s *RateLimitCounter) GetInfo(ctx context.Context, accountID string, limits model.MessageLimits, now time.Time) (model.RateInfo, error) {
	day := pacing.DayKey(now)

	rec, err := s.Rates.Get(ctx, accountID, day)
	if err != nil {
		return model.RateInfo{}, appErrors.NewStoreUnavailable("rate.get", err)
	}

	if rec == nil {
		if err := s.Rates.Seed(ctx, accountID, day, limits); err != nil {
			return model.RateInfo{}, appErrors.NewStoreUnavailable("rate.seed", err)
		}
		rec = &model.DailyRateRecord{
			AccountID:   accountID,
			Day:         day,
			MaxMessages: limits.Max,
			MinMessages: limits.Min,
		}
	}

	remaining := rec.MaxMessages - rec.SentToday
	if remaining < 0 {
		remaining = 0
	}

	return model.RateInfo{
		SentToday:    rec.SentToday,
		AllowedByNow: pacing.AllowedByNow(rec.MaxMessages, now),
		Max:          rec.MaxMessages,
		Remaining:    remaining,
	}, nil
}

// RecordSent bumps today's counter by one. Seeding first means a report
// that arrives before the day's first GetInfo still creates the record with
// the campaign's limits, never a zero max. The increment is atomic in the
// store; on error the send counts as not recorded and the caller may retry.
func (s *RateLimitCounter) RecordSent(ctx context.Context, accountID string, limits model.MessageLimits, now time.Time) error {
	day := pacing.DayKey(now)

	if err := s.Rates.Seed(ctx, accountID, day, limits); err != nil {
		return appErrors.NewStoreUnavailable("rate.seed", err)
	}
	if err := s.Rates.Increment(ctx, accountID, day, now); err != nil {
		return appErrors.NewStoreUnavailable("rate.increment", err)
	}
	return nil
}
