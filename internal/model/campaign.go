package model

import "time"

// Campaign statuses
const (
	CampaignStatusReady     = "ready"
	CampaignStatusActive    = "active"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
	CampaignStatusFailed    = "failed"
)

// WorkingHours is a half-open hour window [Start, End) in the reference
// timezone. {0, 24} is always open, Start == End is always closed.
type WorkingHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// MessageLimits is the daily send target range for one account.
type MessageLimits struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Defaults applied at the API boundary when the caller omits the fields.
var (
	DefaultWorkingHours  = WorkingHours{Start: 0, End: 24}
	DefaultMessageLimits = MessageLimits{Min: 35, Max: 41}
)

type Campaign struct {
	ID            string        `db:"id" json:"id"`
	UserID        string        `db:"user_id" json:"user_id"`
	Name          string        `db:"name" json:"name"`
	Platform      string        `db:"platform" json:"platform"`
	Status        string        `db:"status" json:"status"`
	WorkingHours  WorkingHours  `json:"working_hours"`
	MessageLimits MessageLimits `json:"message_limits"`
	TotalLeads    int           `db:"total_leads" json:"total_leads"`
	Variants      []string      `json:"variants"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     *time.Time    `db:"updated_at" json:"updated_at,omitempty"`
}
