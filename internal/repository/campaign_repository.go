package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	List(ctx context.Context, userID string, offset, limit int, platform, status string) ([]*model.Campaign, int, error)
	UpdateStatus(ctx context.Context, id, status string) error
	AddTotalLeads(ctx context.Context, id string, delta int) error
	Delete(ctx context.Context, id string) error
}

type CampaignRepository struct {
	DB *sql.DB
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = model.CampaignStatusReady
	}
	c.CreatedAt = time.Now()

	query := `
        INSERT INTO campaigns
        (id, user_id, name, platform, status, working_start, working_end,
         limit_min, limit_max, total_leads, variants, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `
	_, err := r.DB.ExecContext(ctx, query,
		c.ID, c.UserID, c.Name, c.Platform, c.Status,
		c.WorkingHours.Start, c.WorkingHours.End,
		c.MessageLimits.Min, c.MessageLimits.Max,
		c.TotalLeads, pq.Array(c.Variants), c.CreatedAt,
	)
	return err
}

const campaignColumns = `id, user_id, name, platform, status, working_start, working_end, limit_min, limit_max, total_leads, variants, created_at, updated_at`

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`

	var c model.Campaign
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.Name, &c.Platform, &c.Status,
		&c.WorkingHours.Start, &c.WorkingHours.End,
		&c.MessageLimits.Min, &c.MessageLimits.Max,
		&c.TotalLeads, pq.Array(&c.Variants), &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) List(ctx context.Context, userID string, offset, limit int, platform, status string) ([]*model.Campaign, int, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE user_id=$1`
	args := []interface{}{userID}
	argPos := 2

	if platform != "" {
		query += fmt.Sprintf(" AND platform=$%d", argPos)
		args = append(args, platform)
		argPos++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		var c model.Campaign
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Name, &c.Platform, &c.Status,
			&c.WorkingHours.Start, &c.WorkingHours.End,
			&c.MessageLimits.Min, &c.MessageLimits.Max,
			&c.TotalLeads, pq.Array(&c.Variants), &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM campaigns WHERE user_id=$1`
	countArgs := []interface{}{userID}
	countPos := 2
	if platform != "" {
		countQuery += fmt.Sprintf(" AND platform=$%d", countPos)
		countArgs = append(countArgs, platform)
		countPos++
	}
	if status != "" {
		countQuery += fmt.Sprintf(" AND status=$%d", countPos)
		countArgs = append(countArgs, status)
	}
	if err := r.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2`,
		status, id,
	)
	return err
}

func (r *CampaignRepository) AddTotalLeads(ctx context.Context, id string, delta int) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE campaigns SET total_leads=total_leads+$1, updated_at=NOW() WHERE id=$2`,
		delta, id,
	)
	return err
}

// Delete removes the campaign; its leads go with it (FK cascade).
func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM campaigns WHERE id=$1`, id)
	return err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
