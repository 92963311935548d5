package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/cache"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

// advisory pending-leads cache entries live this long
const pendingCountTTL = 10 * time.Minute

// LeadStore is the shared lead pool per campaign: atomic claim of
// unassigned leads, release back to the pool with provenance, and bounded
// reads of already-assigned ready leads.
type LeadStore struct {
	Leads     repository.LeadRepositoryInterface
	Accounts  repository.AccountRepositoryInterface
	Campaigns repository.CampaignRepositoryInterface
	Cache     cache.Cache
}

// ClaimBatch hands up to n unassigned leads of the campaign to the account.
// Re-entrant: an account that already holds ready leads gets that count back
// without claiming more, so a worker polling twice without consuming does
// not drain the pool. Returns 0 when nothing is eligible; that is not an
// error.
func (s *LeadStore) ClaimBatch(ctx context.Context, campaignID, accountID string, n int, now time.Time) (int, error) {
	held, err := s.Leads.CountReadyAssigned(ctx, campaignID, accountID, n)
	if err != nil {
		return 0, appErrors.NewStoreUnavailable("lead.count", err)
	}
	if held > 0 {
		return held, nil
	}

	claimed, err := s.Leads.ClaimUnassigned(ctx, campaignID, accountID, n, now)
	if err != nil {
		return 0, appErrors.NewStoreUnavailable("lead.claim", err)
	}

	if claimed > 0 {
		s.refreshPendingCount(ctx, accountID)
	}
	return claimed, nil
}

// ReleaseAll returns the account's ready and failed leads to the pool.
// Idempotent; the second call in a row releases 0.
func (s *LeadStore) ReleaseAll(ctx context.Context, campaignID, accountID string, now time.Time) (int, error) {
	released, err := s.Leads.ReleaseAssigned(ctx, campaignID, accountID, now)
	if err != nil {
		return 0, appErrors.NewStoreUnavailable("lead.release", err)
	}

	if err := s.Accounts.SetPendingLeadsCount(ctx, accountID, 0); err != nil {
		logger.Logger.Warn("failed to reset pending leads count",
			zap.String("account_id", accountID), zap.Error(err))
	}
	s.cachePendingCount(ctx, accountID, 0)

	return released, nil
}

// FetchReady is a read-only bounded fetch of the account's assigned ready
// leads.
func (s *LeadStore) FetchReady(ctx context.Context, campaignID, accountID string, batchSize int) ([]*model.Lead, error) {
	leads, err := s.Leads.FetchReady(ctx, campaignID, accountID, batchSize)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable("lead.fetch", err)
	}
	return leads, nil
}

// BulkCreate ingests targets for a campaign: one ready, unassigned lead per
// unique username, inserted in bounded chunks. Already-committed chunks are
// not rolled back when a later chunk fails (at-least-once insert).
func (s *LeadStore) BulkCreate(ctx context.Context, campaignID string, usernames []string, now time.Time) ([]*model.Lead, error) {
	created, err := s.Leads.BulkCreate(ctx, campaignID, usernames, now)
	if err != nil {
		return created, appErrors.NewStoreUnavailable("lead.bulk_create", err)
	}

	if len(created) > 0 {
		if err := s.Campaigns.AddTotalLeads(ctx, campaignID, len(created)); err != nil {
			logger.Logger.Warn("failed to bump campaign lead total",
				zap.String("campaign_id", campaignID), zap.Error(err))
		}
	}
	return created, nil
}

func (s *LeadStore) GetByID(ctx context.Context, leadID string) (*model.Lead, error) {
	lead, err := s.Leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable("lead.get", err)
	}
	return lead, nil
}

// MarkResult flips the lead's status after a send attempt.
func (s *LeadStore) MarkResult(ctx context.Context, leadID, status string, sent bool) error {
	if err := s.Leads.MarkResult(ctx, leadID, status, sent); err != nil {
		return appErrors.NewStoreUnavailable("lead.mark", err)
	}
	return nil
}

func (s *LeadStore) UpdateFollowUps(ctx context.Context, leadID string, followUps model.FollowUps) error {
	if err := s.Leads.UpdateFollowUps(ctx, leadID, followUps); err != nil {
		return appErrors.NewStoreUnavailable("lead.followups", err)
	}
	return nil
}

// refreshPendingCount recomputes the advisory display counter. Failures are
// logged and ignored: the figure is never used for correctness.
func (s *LeadStore) refreshPendingCount(ctx context.Context, accountID string) {
	count, err := s.Leads.CountReadyForAccount(ctx, accountID)
	if err != nil {
		logger.Logger.Warn("failed to recount pending leads",
			zap.String("account_id", accountID), zap.Error(err))
		return
	}
	if err := s.Accounts.SetPendingLeadsCount(ctx, accountID, count); err != nil {
		logger.Logger.Warn("failed to store pending leads count",
			zap.String("account_id", accountID), zap.Error(err))
	}
	s.cachePendingCount(ctx, accountID, count)
}

func (s *LeadStore) cachePendingCount(ctx context.Context, accountID string, count int) {
	if s.Cache == nil {
		return
	}
	key := fmt.Sprintf("pending_leads:%s", accountID)
	if err := s.Cache.Set(ctx, key, strconv.Itoa(count), pendingCountTTL); err != nil {
		logger.Logger.Debug("pending count cache write failed",
			zap.String("account_id", accountID), zap.Error(err))
	}
}
