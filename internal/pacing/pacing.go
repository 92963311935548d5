// Package pacing holds the pure time-of-day functions behind lead hand-out:
// the working-hours gate, the day-progress display metrics and the linear
// quota curve. Everything here is a pure function of the passed-in time,
// which callers must supply already converted to the reference timezone.
package pacing

import (
	"fmt"
	"time"

	"github.com/unclebandit/outreach-backend/internal/model"
)

const minutesPerDay = 24 * 60

// WithinWorkingHours reports whether hand-out is permitted right now for
// the half-open window [Start, End). Start == End is always closed,
// {0, 24} is always open.
func WithinWorkingHours(w model.WorkingHours, now time.Time) bool {
	hour := now.Hour()
	return w.Start <= hour && hour < w.End
}

// DayProgress holds informational pacing display values.
type DayProgress struct {
	PercentElapsed int    `json:"percent_elapsed"`
	ClockLabel     string `json:"clock_label"`
	DateLabel      string `json:"date_label"`
}

// Progress reports how far through the day the reference clock is.
func Progress(now time.Time) DayProgress {
	elapsed := minutesSinceMidnight(now)
	return DayProgress{
		PercentElapsed: elapsed * 100 / minutesPerDay,
		ClockLabel:     fmt.Sprintf("%02d:%02d", now.Hour(), now.Minute()),
		DateLabel:      now.Format("2006-01-02"),
	}
}

// AllowedByNow is the linear pacing curve: the share of the daily quota
// that may have been spent by this time of day. Keeps an account from
// bursting its whole quota in the first minute.
func AllowedByNow(max int, now time.Time) int {
	return max * minutesSinceMidnight(now) / minutesPerDay
}

// DayKey is the calendar-date key for daily rate records.
func DayKey(now time.Time) string {
	return now.Format("2006-01-02")
}

func minutesSinceMidnight(now time.Time) int {
	return now.Hour()*60 + now.Minute()
}
