package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

type CampaignService struct {
	Campaigns repository.CampaignRepositoryInterface
	Accounts  repository.AccountRepositoryInterface
	Leads     *LeadStore
	Engine    *AssignmentEngine
}

// CreateCampaignInput enumerates every recognized option; omitted windows
// and limits get the documented defaults, validated once here rather than
// re-derived at call sites.
type CreateCampaignInput struct {
	UserID        string               `json:"user_id"`
	Name          string               `json:"name"`
	Platform      string               `json:"platform"`
	WorkingHours  *model.WorkingHours  `json:"working_hours"`
	MessageLimits *model.MessageLimits `json:"message_limits"`
	Variants      []string             `json:"variants"`
	Usernames     []string             `json:"usernames"`
}

func (in *CreateCampaignInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("campaign name cannot be empty")
	}
	if strings.TrimSpace(in.Platform) == "" {
		return fmt.Errorf("campaign platform cannot be empty")
	}
	if len(in.Variants) == 0 {
		return fmt.Errorf("campaign needs at least one message variant")
	}
	if w := in.WorkingHours; w != nil {
		if w.Start < 0 || w.End > 24 || w.Start > w.End {
			return fmt.Errorf("working hours must satisfy 0 <= start <= end <= 24, got {%d,%d}", w.Start, w.End)
		}
	}
	if l := in.MessageLimits; l != nil {
		if l.Min < 0 || l.Min > l.Max {
			return fmt.Errorf("message limits must satisfy 0 <= min <= max, got {%d,%d}", l.Min, l.Max)
		}
	}
	return nil
}

// CreateCampaign creates the campaign and bulk-ingests its initial targets.
func (s *CampaignService) CreateCampaign(ctx context.Context, in CreateCampaignInput) (*model.Campaign, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	c := &model.Campaign{
		UserID:        in.UserID,
		Name:          in.Name,
		Platform:      in.Platform,
		Status:        model.CampaignStatusReady,
		WorkingHours:  model.DefaultWorkingHours,
		MessageLimits: model.DefaultMessageLimits,
		Variants:      in.Variants,
	}
	if in.WorkingHours != nil {
		c.WorkingHours = *in.WorkingHours
	}
	if in.MessageLimits != nil {
		c.MessageLimits = *in.MessageLimits
	}

	if err := s.Campaigns.Create(ctx, c); err != nil {
		return nil, appErrors.NewStoreUnavailable("campaign.create", err)
	}

	if len(in.Usernames) > 0 {
		created, err := s.Leads.BulkCreate(ctx, c.ID, in.Usernames, time.Now())
		if err != nil {
			// Committed chunks stay; the caller sees which ingestion failed.
			return c, err
		}
		c.TotalLeads = len(created)
	}

	logger.Logger.Info("campaign created",
		zap.String("campaign_id", c.ID),
		zap.String("platform", c.Platform),
		zap.Int("leads", c.TotalLeads),
	)
	return c, nil
}

// AddLeads extends an existing campaign with more targets.
func (s *CampaignService) AddLeads(ctx context.Context, campaignID string, usernames []string) (int, error) {
	if _, err := s.Campaigns.GetByID(ctx, campaignID); err != nil {
		return 0, err
	}
	created, err := s.Leads.BulkCreate(ctx, campaignID, usernames, time.Now())
	return len(created), err
}

// StartByWidget resolves (user, widget) to an account — creating it on
// first sight — and starts the pairing.
func (s *CampaignService) StartByWidget(ctx context.Context, campaignID, userID, widgetID, name string) (*model.Account, error) {
	campaign, err := s.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	account, err := s.Accounts.UpsertByWidget(ctx, userID, widgetID, name, campaign.Platform)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable("account.upsert", err)
	}

	if err := s.Engine.Start(ctx, campaignID, account.ID); err != nil {
		return nil, err
	}
	return account, nil
}

// PauseByWidget pauses the widget's account on the campaign, releasing its
// leads before returning.
func (s *CampaignService) PauseByWidget(ctx context.Context, campaignID, userID, widgetID string) (*model.Account, error) {
	account, err := s.Accounts.GetByWidgetID(ctx, userID, widgetID)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable("account.get", err)
	}
	if account == nil {
		return nil, appErrors.NewAccountNotFound(widgetID)
	}

	if err := s.Engine.Pause(ctx, campaignID, account.ID); err != nil {
		return nil, err
	}
	return account, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, userID string, page, pageSize int, platform, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.Campaigns.List(ctx, userID, offset, pageSize, platform, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

// CampaignDetails is the campaign plus its lead counts by status.
type CampaignDetails struct {
	*model.Campaign
	Stats map[string]int `json:"stats"`
}

func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, campaignID string) (*CampaignDetails, error) {
	campaign, err := s.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	stats, err := s.Leads.Leads.StatusCounts(ctx, campaignID)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable("lead.stats", err)
	}

	total := 0
	for _, count := range stats {
		total += count
	}
	stats["total"] = total

	return &CampaignDetails{Campaign: campaign, Stats: stats}, nil
}

// ListAccounts returns the user's sender accounts.
func (s *CampaignService) ListAccounts(ctx context.Context, userID string) ([]*model.Account, error) {
	accounts, err := s.Accounts.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable("account.list", err)
	}
	return accounts, nil
}
