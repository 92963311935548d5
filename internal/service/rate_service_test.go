package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/unclebandit/outreach-backend/internal/model"
)

func TestGetInfoSeedsOnFirstAccess(t *testing.T) {
	rates := newFakeRateRepo()
	counter := &RateLimitCounter{Rates: rates}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	info, err := counter.GetInfo(ctx, "acct-1", model.MessageLimits{Min: 35, Max: 41}, now)
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if info.SentToday != 0 || info.Max != 41 || info.Remaining != 41 {
		t.Errorf("info = %+v, want fresh record with max 41", info)
	}
	// Noon, so half the daily quota is unlocked.
	if info.AllowedByNow != 20 {
		t.Errorf("AllowedByNow = %d, want 20", info.AllowedByNow)
	}

	rec, _ := rates.Get(ctx, "acct-1", "2026-03-10")
	if rec == nil {
		t.Fatal("record not seeded")
	}
}

func TestGetInfoKeepsSeededLimits(t *testing.T) {
	rates := newFakeRateRepo()
	counter := &RateLimitCounter{Rates: rates}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, err := counter.GetInfo(ctx, "acct-1", model.MessageLimits{Min: 35, Max: 41}, now); err != nil {
		t.Fatalf("GetInfo: %v", err)
	}

	// The campaign's limits changed mid-day; today's record keeps the max
	// it was created with.
	info, err := counter.GetInfo(ctx, "acct-1", model.MessageLimits{Min: 10, Max: 100}, now)
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if info.Max != 41 {
		t.Errorf("max = %d after limit change, want 41", info.Max)
	}
}

func TestGetInfoRemainingNeverNegative(t *testing.T) {
	rates := newFakeRateRepo()
	counter := &RateLimitCounter{Rates: rates}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	rates.records[rateKey("acct-1", "2026-03-10")] = &model.DailyRateRecord{
		AccountID: "acct-1", Day: "2026-03-10", SentToday: 45, MaxMessages: 41,
	}

	info, err := counter.GetInfo(context.Background(), "acct-1", model.MessageLimits{Min: 35, Max: 41}, now)
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if info.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", info.Remaining)
	}
}

func TestRecordSentConcurrent(t *testing.T) {
	rates := newFakeRateRepo()
	counter := &RateLimitCounter{Rates: rates}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	limits := model.MessageLimits{Min: 35, Max: 41}

	const sends = 50
	var wg sync.WaitGroup
	for i := 0; i < sends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := counter.RecordSent(context.Background(), "acct-1", limits, now); err != nil {
				t.Errorf("RecordSent: %v", err)
			}
		}()
	}
	wg.Wait()

	rec, _ := rates.Get(context.Background(), "acct-1", "2026-03-10")
	if rec == nil || rec.SentToday != sends {
		t.Fatalf("SentToday = %v, want %d (no lost increments)", rec, sends)
	}
	if rec.MaxMessages != 41 {
		t.Errorf("MaxMessages = %d, want 41 seeded from the limits", rec.MaxMessages)
	}
}

// A report can be the day's first rate-record touch; the record must still
// carry the campaign's limits, not a zero max.
func TestRecordSentSeedsFreshRecord(t *testing.T) {
	rates := newFakeRateRepo()
	counter := &RateLimitCounter{Rates: rates}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	limits := model.MessageLimits{Min: 35, Max: 41}
	if err := counter.RecordSent(ctx, "acct-1", limits, now); err != nil {
		t.Fatalf("RecordSent: %v", err)
	}

	info, err := counter.GetInfo(ctx, "acct-1", limits, now)
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if info.Max != 41 || info.SentToday != 1 || info.Remaining != 40 {
		t.Errorf("info = %+v, want max 41 sent 1 remaining 40", info)
	}
}

func TestRecordSentSplitsAcrossDays(t *testing.T) {
	rates := newFakeRateRepo()
	counter := &RateLimitCounter{Rates: rates}
	ctx := context.Background()

	limits := model.MessageLimits{Min: 35, Max: 41}
	day1 := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 11, 0, 30, 0, 0, time.UTC)

	if err := counter.RecordSent(ctx, "acct-1", limits, day1); err != nil {
		t.Fatalf("RecordSent day1: %v", err)
	}
	if err := counter.RecordSent(ctx, "acct-1", limits, day2); err != nil {
		t.Fatalf("RecordSent day2: %v", err)
	}

	rec1, _ := rates.Get(ctx, "acct-1", "2026-03-10")
	rec2, _ := rates.Get(ctx, "acct-1", "2026-03-11")
	if rec1 == nil || rec1.SentToday != 1 {
		t.Errorf("day1 record = %+v, want SentToday 1", rec1)
	}
	if rec2 == nil || rec2.SentToday != 1 {
		t.Errorf("day2 record = %+v, want SentToday 1", rec2)
	}
}
