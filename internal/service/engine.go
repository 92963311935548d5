package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/cache"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/pacing"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

// Batch sizing. Claiming in chunks 3x the serve size amortizes claim
// contention while keeping per-request payloads small. Fixed policy, not
// per-call configurable.
const (
	ClaimChunk = 24
	ServeChunk = 8
)

// Empty-batch reasons. These are normal outcomes, not errors; callers back
// off differently on each.
const (
	ReasonNone                = ""
	ReasonOutsideWorkingHours = "outside_working_hours"
	ReasonDailyLimitReached   = "daily_limit_reached"
	ReasonNoLeadsAvailable    = "no_leads_available"
)

// Send outcomes reported back by workers.
const (
	OutcomeSent           = "sent"
	OutcomeFollowUpSent   = "followUpSent"
	OutcomeFailed         = "failed"
	OutcomeReplyReceived  = "replyReceived"
	reportDedupTTL        = 24 * time.Hour
	initialClaimRetryWait = time.Minute
	followUpDelay         = 24 * time.Hour
)

// Clock is the injectable time source; everything the engine decides about
// working hours and pacing flows through it.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// Batch is what FetchBatch hands back: leads (possibly none) plus the
// machine-readable reason and pacing metadata.
type Batch struct {
	Leads    []*model.Lead      `json:"leads"`
	Reason   string             `json:"reason,omitempty"`
	Rate     model.RateInfo     `json:"rate"`
	Progress pacing.DayProgress `json:"progress"`
}

// AssignmentEngine orchestrates the lead store, rate counter and
// working-hours gate for the campaign runtime: hand me ready leads, stop
// this account, record this send.
type AssignmentEngine struct {
	Leads     *LeadStore
	Rate      *RateLimitCounter
	Campaigns repository.CampaignRepositoryInterface
	Accounts  repository.AccountRepositoryInterface
	Tasks     repository.TaskRepositoryInterface
	Cache     cache.Cache
	Clock     Clock
	Location  *time.Location
}

func (e *AssignmentEngine) now() time.Time {
	clock := e.Clock
	if clock == nil {
		clock = SystemClock
	}
	if e.Location != nil {
		return clock.Now().In(e.Location)
	}
	return clock.Now()
}

// pairing loads the campaign/account pair and enforces the platform
// invariant. A mismatch is rejected, never coerced.
func (e *AssignmentEngine) pairing(ctx context.Context, campaignID, accountID string) (*model.Campaign, *model.Account, error) {
	campaign, err := e.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, nil, err
	}

	account, err := e.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, nil, appErrors.NewStoreUnavailable("account.get", err)
	}
	if account == nil {
		return nil, nil, appErrors.NewAccountNotFound(accountID)
	}

	if account.Platform != campaign.Platform {
		return nil, nil, appErrors.NewPlatformMismatch(account.Platform, campaign.Platform)
	}
	return campaign, account, nil
}

// Start activates the pairing and kicks off a best-effort initial claim in
// the background. A failed claim does not fail the start: it is logged and
// a durable retry task picks it up.
func (e *AssignmentEngine) Start(ctx context.Context, campaignID, accountID string) error {
	campaign, account, err := e.pairing(ctx, campaignID, accountID)
	if err != nil {
		return err
	}

	if err := e.Campaigns.UpdateStatus(ctx, campaign.ID, model.CampaignStatusActive); err != nil {
		return appErrors.NewStoreUnavailable("campaign.status", err)
	}
	if err := e.Accounts.UpdateStatus(ctx, account.ID, model.AccountStatusActive); err != nil {
		return appErrors.NewStoreUnavailable("account.status", err)
	}
	if err := e.Accounts.SetCurrentCampaign(ctx, account.ID, &campaign.ID); err != nil {
		return appErrors.NewStoreUnavailable("account.campaign", err)
	}

	go e.initialClaim(campaign.ID, account.ID)

	logger.Logger.Info("pairing started",
		zap.String("campaign_id", campaign.ID),
		zap.String("account_id", account.ID),
	)
	return nil
}

func (e *AssignmentEngine) initialClaim(campaignID, accountID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	claimed, err := e.Leads.ClaimBatch(ctx, campaignID, accountID, ClaimChunk, e.now())
	if err == nil {
		logger.Logger.Info("initial claim done",
			zap.String("campaign_id", campaignID),
			zap.String("account_id", accountID),
			zap.Int("claimed", claimed),
		)
		return
	}

	logger.Logger.Warn("initial claim failed, scheduling retry",
		zap.String("campaign_id", campaignID),
		zap.String("account_id", accountID),
		zap.Error(err),
	)
	task := &model.ScheduledTask{
		Type:       model.TaskTypeInitialClaim,
		CampaignID: campaignID,
		AccountID:  accountID,
		FireAfter:  e.now().Add(initialClaimRetryWait),
	}
	if err := e.Tasks.Create(ctx, task); err != nil {
		logger.Logger.Error("failed to schedule claim retry", zap.Error(err))
	}
}

// Pause stops the pairing and synchronously releases the account's leads,
// so a paused account never holds leads hostage. Leads mid-send stay put.
func (e *AssignmentEngine) Pause(ctx context.Context, campaignID, accountID string) error {
	campaign, account, err := e.pairing(ctx, campaignID, accountID)
	if err != nil {
		return err
	}

	if err := e.Campaigns.UpdateStatus(ctx, campaign.ID, model.CampaignStatusPaused); err != nil {
		return appErrors.NewStoreUnavailable("campaign.status", err)
	}
	if err := e.Accounts.UpdateStatus(ctx, account.ID, model.AccountStatusPaused); err != nil {
		return appErrors.NewStoreUnavailable("account.status", err)
	}

	released, err := e.Leads.ReleaseAll(ctx, campaign.ID, account.ID, e.now())
	if err != nil {
		return err
	}

	logger.Logger.Info("pairing paused",
		zap.String("campaign_id", campaign.ID),
		zap.String("account_id", account.ID),
		zap.Int("released", released),
	)
	return nil
}

// FetchBatch answers "give me up to ServeChunk ready leads for this
// account". Outside the working window or past the daily quota it returns
// an empty batch with the reason; it tops the account up from the
// unassigned pool when the account holds nothing.
func (e *AssignmentEngine) FetchBatch(ctx context.Context, campaignID, accountID string) (*Batch, error) {
	campaign, account, err := e.pairing(ctx, campaignID, accountID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	progress := pacing.Progress(now)

	if !pacing.WithinWorkingHours(campaign.WorkingHours, now) {
		return &Batch{Leads: []*model.Lead{}, Reason: ReasonOutsideWorkingHours, Progress: progress}, nil
	}

	info, err := e.Rate.GetInfo(ctx, account.ID, campaign.MessageLimits, now)
	if err != nil {
		return nil, err
	}
	if info.Remaining <= 0 {
		return &Batch{Leads: []*model.Lead{}, Reason: ReasonDailyLimitReached, Rate: info, Progress: progress}, nil
	}

	serve := ServeChunk
	if info.Remaining < serve {
		serve = info.Remaining
	}

	leads, err := e.Leads.FetchReady(ctx, campaign.ID, account.ID, serve)
	if err != nil {
		return nil, err
	}

	if len(leads) == 0 {
		claimed, err := e.Leads.ClaimBatch(ctx, campaign.ID, account.ID, ClaimChunk, now)
		if err != nil {
			return nil, err
		}
		if claimed == 0 {
			return &Batch{Leads: []*model.Lead{}, Reason: ReasonNoLeadsAvailable, Rate: info, Progress: progress}, nil
		}
		leads, err = e.Leads.FetchReady(ctx, campaign.ID, account.ID, serve)
		if err != nil {
			return nil, err
		}
	}

	return &Batch{Leads: leads, Reason: ReasonNone, Rate: info, Progress: progress}, nil
}

// ReportResult records a send outcome. The dedup key is scoped to the
// lead's assignment epoch (its reassignment count): redeliveries of one
// report are absorbed, but a lead released and reclaimed is a fresh attempt
// whose reports must land.
func (e *AssignmentEngine) ReportResult(ctx context.Context, leadID, accountID, campaignID, outcome string) error {
	lead, err := e.Leads.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if lead == nil {
		return appErrors.NewLeadNotFound(leadID)
	}

	dedupKey := fmt.Sprintf("report:%s:%s:%d", leadID, outcome, lead.ReassignmentCount)
	won, err := e.Cache.SetNX(ctx, dedupKey, accountID, reportDedupTTL)
	if err != nil {
		return appErrors.NewStoreUnavailable("report.dedup", err)
	}
	if !won {
		logger.Logger.Debug("duplicate delivery report ignored",
			zap.String("lead_id", leadID), zap.String("outcome", outcome))
		return nil
	}

	if err := e.applyResult(ctx, lead, accountID, campaignID, outcome); err != nil {
		// Undo the dedup claim so the caller's retry is not swallowed.
		_ = e.Cache.Del(ctx, dedupKey)
		return err
	}
	return nil
}

func (e *AssignmentEngine) applyResult(ctx context.Context, lead *model.Lead, accountID, campaignID, outcome string) error {
	now := e.now()

	switch outcome {
	case OutcomeSent:
		campaign, err := e.Campaigns.GetByID(ctx, campaignID)
		if err != nil {
			return err
		}
		if err := e.Leads.MarkResult(ctx, lead.ID, model.LeadStatusSent, true); err != nil {
			return err
		}
		if err := e.Rate.RecordSent(ctx, accountID, campaign.MessageLimits, now); err != nil {
			return err
		}
		return e.scheduleFollowUp(ctx, lead, campaign, accountID, now)

	case OutcomeFollowUpSent:
		campaign, err := e.Campaigns.GetByID(ctx, campaignID)
		if err != nil {
			return err
		}
		followUps := markNextFollowUpSent(lead.FollowUps, now)
		if err := e.Leads.UpdateFollowUps(ctx, lead.ID, followUps); err != nil {
			return err
		}
		return e.Rate.RecordSent(ctx, accountID, campaign.MessageLimits, now)

	case OutcomeFailed:
		// Failed leads stay eligible for reclaim.
		return e.Leads.MarkResult(ctx, lead.ID, model.LeadStatusFailed, lead.Sent)

	case OutcomeReplyReceived:
		// A reply cancels whatever follow-ups were still queued.
		return e.Leads.UpdateFollowUps(ctx, lead.ID, cancelPendingFollowUps(lead.FollowUps))
	}

	return fmt.Errorf("unknown outcome %q for lead %s", outcome, lead.ID)
}

// scheduleFollowUp queues the campaign's next message variant as a durable
// delayed task. Campaigns with a single variant have no follow-ups.
func (e *AssignmentEngine) scheduleFollowUp(ctx context.Context, lead *model.Lead, campaign *model.Campaign, accountID string, now time.Time) error {
	next := len(lead.FollowUps) + 1
	if next >= len(campaign.Variants) {
		return nil
	}

	followUps := append(lead.FollowUps, model.FollowUp{
		Position: next,
		Message:  campaign.Variants[next],
		Status:   model.LeadStatusReady,
	})
	if err := e.Leads.UpdateFollowUps(ctx, lead.ID, followUps); err != nil {
		return err
	}

	task := &model.ScheduledTask{
		Type:       model.TaskTypeFollowUp,
		CampaignID: campaign.ID,
		AccountID:  accountID,
		LeadID:     lead.ID,
		FireAfter:  now.Add(followUpDelay),
	}
	if err := e.Tasks.Create(ctx, task); err != nil {
		return appErrors.NewStoreUnavailable("task.create", err)
	}
	return nil
}

func markNextFollowUpSent(followUps model.FollowUps, now time.Time) model.FollowUps {
	out := make(model.FollowUps, len(followUps))
	copy(out, followUps)
	for i := range out {
		if out[i].Status == model.LeadStatusReady {
			sentAt := now
			out[i].Status = model.LeadStatusSent
			out[i].SentAt = &sentAt
			break
		}
	}
	return out
}

func cancelPendingFollowUps(followUps model.FollowUps) model.FollowUps {
	out := make(model.FollowUps, len(followUps))
	copy(out, followUps)
	for i := range out {
		if out[i].Status == model.LeadStatusReady {
			out[i].Status = model.FollowUpStatusCancelled
		}
	}
	return out
}
