package appErrors

import "fmt"

// Machine-readable error codes, mapped to HTTP statuses at the controller.
const (
	CodeCampaignNotFound = "CAMPAIGN_NOT_FOUND"
	CodeAccountNotFound  = "ACCOUNT_NOT_FOUND"
	CodeLeadNotFound     = "LEAD_NOT_FOUND"
	CodePlatformMismatch = "PLATFORM_MISMATCH"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// Coder is implemented by every error type in this package.
type Coder interface {
	Code() string
}

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign %s not found", e.CampaignID)
}

func (e *ErrCampaignNotFound) Code() string { return CodeCampaignNotFound }

// Helper constructor
func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

type ErrAccountNotFound struct {
	AccountID string
}

func (e *ErrAccountNotFound) Error() string {
	return fmt.Sprintf("account %s not found", e.AccountID)
}

func (e *ErrAccountNotFound) Code() string { return CodeAccountNotFound }

func NewAccountNotFound(id string) error {
	return &ErrAccountNotFound{AccountID: id}
}

type ErrLeadNotFound struct {
	LeadID string
}

func (e *ErrLeadNotFound) Error() string {
	return fmt.Sprintf("lead %s not found", e.LeadID)
}

func (e *ErrLeadNotFound) Code() string { return CodeLeadNotFound }

func NewLeadNotFound(id string) error {
	return &ErrLeadNotFound{LeadID: id}
}

// ErrPlatformMismatch: the account's platform differs from the campaign's.
// Never coerced, the caller must fix the request.
type ErrPlatformMismatch struct {
	AccountPlatform  string
	CampaignPlatform string
}

func (e *ErrPlatformMismatch) Error() string {
	return fmt.Sprintf("account platform %q does not match campaign platform %q",
		e.AccountPlatform, e.CampaignPlatform)
}

func (e *ErrPlatformMismatch) Code() string { return CodePlatformMismatch }

func NewPlatformMismatch(accountPlatform, campaignPlatform string) error {
	return &ErrPlatformMismatch{AccountPlatform: accountPlatform, CampaignPlatform: campaignPlatform}
}

// ErrStoreUnavailable wraps a transient storage failure. Claim, release and
// increment are idempotent, so the caller may retry.
type ErrStoreUnavailable struct {
	Op  string
	Err error
}

func (e *ErrStoreUnavailable) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *ErrStoreUnavailable) Code() string { return CodeStoreUnavailable }

func (e *ErrStoreUnavailable) Unwrap() error { return e.Err }

func NewStoreUnavailable(op string, err error) error {
	return &ErrStoreUnavailable{Op: op, Err: err}
}
