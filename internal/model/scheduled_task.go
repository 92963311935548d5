package model

import "time"

// Scheduled task statuses
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusDone       = "done"
	TaskStatusFailed     = "failed"
)

// Scheduled task types
const (
	TaskTypeFollowUp     = "follow_up_send"
	TaskTypeInitialClaim = "initial_claim"
)

// ScheduledTask is a durable delayed job: a row with a fire-after timestamp
// picked up by the poller. Replaces in-process timers so pending work
// survives restarts and multiple instances.
type ScheduledTask struct {
	ID         string     `db:"id" json:"id"`
	Type       string     `db:"type" json:"type"`
	CampaignID string     `db:"campaign_id" json:"campaign_id"`
	AccountID  string     `db:"account_id" json:"account_id"`
	LeadID     string     `db:"lead_id" json:"lead_id"`
	FireAfter  time.Time  `db:"fire_after" json:"fire_after"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	DoneAt     *time.Time `db:"done_at" json:"done_at,omitempty"`
}
