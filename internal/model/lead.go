package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Lead statuses
const (
	LeadStatusReady   = "ready"
	LeadStatusSending = "sending"
	LeadStatusSent    = "sent"
	LeadStatusFailed  = "failed"
)

// Lead types
const (
	LeadTypeInitial  = "initial"
	LeadTypeFollowUp = "follow_up"
)

// Follow-up entries share the lead status vocabulary, plus cancelled for
// entries voided by a reply.
const FollowUpStatusCancelled = "cancelled"

type Lead struct {
	ID                string     `db:"id" json:"id"`
	CampaignID        string     `db:"campaign_id" json:"campaign_id"`
	Username          string     `db:"username" json:"username"`
	Type              string     `db:"type" json:"type"`     // initial, follow_up
	Status            string     `db:"status" json:"status"` // ready, sending, sent, failed
	Sent              bool       `db:"sent" json:"sent"`
	BaseDate          time.Time  `db:"base_date" json:"base_date"`
	AssignedAccount   string     `db:"assigned_account" json:"assigned_account"` // "" = unassigned
	AssignedAt        *time.Time `db:"assigned_at" json:"assigned_at,omitempty"`
	LastReassignedAt  *time.Time `db:"last_reassigned_at" json:"last_reassigned_at,omitempty"`
	PreviousAccount   *string    `db:"previous_account" json:"previous_account,omitempty"`
	ReassignmentCount int        `db:"reassignment_count" json:"reassignment_count"`
	FollowUps         FollowUps  `db:"follow_ups" json:"follow_ups"`
}

// FollowUp is one scheduled follow-up message for a lead, ordered by Position.
type FollowUp struct {
	Position int        `json:"position"`
	Message  string     `json:"message"`
	Status   string     `json:"status"` // ready, sent, failed
	SentAt   *time.Time `json:"sent_at,omitempty"`
}

// FollowUps is stored as a jsonb column on the lead row.
type FollowUps []FollowUp

func (f FollowUps) Value() (driver.Value, error) {
	if f == nil {
		return "[]", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *FollowUps) Scan(src any) error {
	if src == nil {
		*f = FollowUps{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	}
	return fmt.Errorf("unsupported follow_ups column type %T", src)
}
