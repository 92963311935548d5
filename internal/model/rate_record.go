package model

import "time"

// DailyRateRecord is the per-(account, calendar day) send counter. Day is
// the date in the reference timezone, formatted 2006-01-02. Max/Min are
// copied from the campaign when the record is seeded, not re-read.
type DailyRateRecord struct {
	AccountID     string     `db:"account_id" json:"account_id"`
	Day           string     `db:"day" json:"day"`
	SentToday     int        `db:"sent_today" json:"sent_today"`
	MaxMessages   int        `db:"max_messages" json:"max_messages"`
	MinMessages   int        `db:"min_messages" json:"min_messages"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
}

// RateInfo is what the engine hands back with every batch: how many sends
// happened today, how many the linear pacing curve permits by now, and how
// much of the daily quota is left.
type RateInfo struct {
	SentToday    int `json:"sent_today"`
	AllowedByNow int `json:"allowed_by_now"`
	Max          int `json:"max"`
	Remaining    int `json:"remaining"`
}
