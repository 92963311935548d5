package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/outreach-backend/internal/model"
)

type AccountRepositoryInterface interface {
	UpsertByWidget(ctx context.Context, userID, widgetID, name, platform string) (*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByWidgetID(ctx context.Context, userID, widgetID string) (*model.Account, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Account, error)
	UpdateStatus(ctx context.Context, id, status string) error
	SetCurrentCampaign(ctx context.Context, id string, campaignID *string) error
	SetPendingLeadsCount(ctx context.Context, id string, count int) error
}

type AccountRepository struct {
	DB *sql.DB
}

const accountColumns = `id, widget_id, user_id, name, platform, status, current_campaign_id, pending_leads_count, created_at, updated_at`

func scanAccount(row *sql.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID, &a.WidgetID, &a.UserID, &a.Name, &a.Platform, &a.Status,
		&a.CurrentCampaignID, &a.PendingLeadsCount, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertByWidget resolves the stable (user, widget) key to one Account,
// creating it on first sight. The returned row is the same Account on every
// call for that key.
func (r *AccountRepository) UpsertByWidget(ctx context.Context, userID, widgetID, name, platform string) (*model.Account, error) {
	query := `
        INSERT INTO accounts (id, widget_id, user_id, name, platform, status, pending_leads_count, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, 0, $7)
        ON CONFLICT (user_id, widget_id) DO UPDATE
        SET name = EXCLUDED.name, updated_at = NOW()
        RETURNING ` + accountColumns
	return scanAccount(r.DB.QueryRowContext(ctx, query,
		uuid.NewString(), widgetID, userID, name, platform,
		model.AccountStatusReady, time.Now(),
	))
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	a, err := scanAccount(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *AccountRepository) GetByWidgetID(ctx context.Context, userID, widgetID string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id=$1 AND widget_id=$2`
	a, err := scanAccount(r.DB.QueryRowContext(ctx, query, userID, widgetID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *AccountRepository) ListByUser(ctx context.Context, userID string) ([]*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id=$1 ORDER BY created_at`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []*model.Account{}
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(
			&a.ID, &a.WidgetID, &a.UserID, &a.Name, &a.Platform, &a.Status,
			&a.CurrentCampaignID, &a.PendingLeadsCount, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

func (r *AccountRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE accounts SET status=$1, updated_at=NOW() WHERE id=$2`,
		status, id,
	)
	return err
}

func (r *AccountRepository) SetCurrentCampaign(ctx context.Context, id string, campaignID *string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE accounts SET current_campaign_id=$1, updated_at=NOW() WHERE id=$2`,
		campaignID, id,
	)
	return err
}

func (r *AccountRepository) SetPendingLeadsCount(ctx context.Context, id string, count int) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE accounts SET pending_leads_count=$1, updated_at=NOW() WHERE id=$2`,
		count, id,
	)
	return err
}

var _ AccountRepositoryInterface = (*AccountRepository)(nil)
