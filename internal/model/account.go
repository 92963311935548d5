package model

import "time"

// Account statuses
const (
	AccountStatusReady  = "ready"
	AccountStatusActive = "active"
	AccountStatusPaused = "paused"
)

// Account is a sender identity executing sends on behalf of a campaign.
// WidgetID is the externally supplied device identifier workers key on;
// it must resolve to the same Account across calls.
type Account struct {
	ID                string     `db:"id" json:"id"`
	WidgetID          string     `db:"widget_id" json:"widget_id"`
	UserID            string     `db:"user_id" json:"user_id"`
	Name              string     `db:"name" json:"name"`
	Platform          string     `db:"platform" json:"platform"`
	Status            string     `db:"status" json:"status"` // ready, active, paused
	CurrentCampaignID *string    `db:"current_campaign_id" json:"current_campaign_id,omitempty"`
	PendingLeadsCount int        `db:"pending_leads_count" json:"pending_leads_count"` // advisory, display only
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
