package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/unclebandit/outreach-backend/internal/model"
)

// BulkInsertChunk bounds one multi-row insert statement, keeping each chunk
// all-or-nothing inside its own transaction.
const BulkInsertChunk = 400

type LeadRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*model.Lead, error)
	FetchReady(ctx context.Context, campaignID, accountID string, limit int) ([]*model.Lead, error)
	CountReadyAssigned(ctx context.Context, campaignID, accountID string, limit int) (int, error)
	ClaimUnassigned(ctx context.Context, campaignID, accountID string, n int, now time.Time) (int, error)
	ReleaseAssigned(ctx context.Context, campaignID, accountID string, now time.Time) (int, error)
	CountReadyForAccount(ctx context.Context, accountID string) (int, error)
	BulkCreate(ctx context.Context, campaignID string, usernames []string, now time.Time) ([]*model.Lead, error)
	MarkResult(ctx context.Context, leadID, status string, sent bool) error
	UpdateFollowUps(ctx context.Context, leadID string, followUps model.FollowUps) error
	StatusCounts(ctx context.Context, campaignID string) (map[string]int, error)
}

type LeadRepository struct {
	DB *sql.DB
	sb sq.StatementBuilderType
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{
		DB: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var leadColumns = []string{
	"id", "campaign_id", "username", "type", "status", "sent", "base_date",
	"assigned_account", "assigned_at", "last_reassigned_at",
	"previous_account", "reassignment_count", "follow_ups",
}

func scanLead(row sq.RowScanner) (*model.Lead, error) {
	var l model.Lead
	err := row.Scan(
		&l.ID, &l.CampaignID, &l.Username, &l.Type, &l.Status, &l.Sent,
		&l.BaseDate, &l.AssignedAccount, &l.AssignedAt, &l.LastReassignedAt,
		&l.PreviousAccount, &l.ReassignmentCount, &l.FollowUps,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LeadRepository) GetByID(ctx context.Context, id string) (*model.Lead, error) {
	query := r.sb.Select(leadColumns...).From("leads").Where(sq.Eq{"id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get lead sql: %w", err)
	}

	lead, err := scanLead(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return lead, nil
}

// FetchReady returns up to limit leads already assigned to the account with
// status ready. Read-only.
func (r *LeadRepository) FetchReady(ctx context.Context, campaignID, accountID string, limit int) ([]*model.Lead, error) {
	query := r.sb.Select(leadColumns...).
		From("leads").
		Where(sq.Eq{
			"campaign_id":      campaignID,
			"assigned_account": accountID,
			"status":           model.LeadStatusReady,
		}).
		OrderBy("base_date", "id").
		Limit(uint64(limit))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build fetch ready sql: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []*model.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// CountReadyAssigned counts ready leads held by the account, capped at limit.
func (r *LeadRepository) CountReadyAssigned(ctx context.Context, campaignID, accountID string, limit int) (int, error) {
	query := `
        SELECT COUNT(*) FROM (
            SELECT id FROM leads
            WHERE campaign_id=$1 AND assigned_account=$2 AND status=$3
            LIMIT $4
        ) held
    `
	var count int
	err := r.DB.QueryRowContext(ctx, query, campaignID, accountID, model.LeadStatusReady, limit).Scan(&count)
	return count, err
}

// ClaimUnassigned atomically assigns up to n unassigned ready/failed leads of
// the campaign to the account. The inner select takes row locks with SKIP
// LOCKED and the outer update re-checks assigned_account='' — a lead can
// never be claimed by two concurrent callers.
func (r *LeadRepository) ClaimUnassigned(ctx context.Context, campaignID, accountID string, n int, now time.Time) (int, error) {
	query := `
        UPDATE leads
        SET assigned_account=$1, assigned_at=$2, last_reassigned_at=$2
        WHERE id IN (
            SELECT id FROM leads
            WHERE campaign_id=$3
              AND assigned_account=''
              AND status IN ($4, $5)
            ORDER BY base_date, id
            LIMIT $6
            FOR UPDATE SKIP LOCKED
        )
        AND assigned_account=''
    `
	res, err := r.DB.ExecContext(ctx, query,
		accountID, now, campaignID,
		model.LeadStatusReady, model.LeadStatusFailed, n,
	)
	if err != nil {
		return 0, err
	}
	claimed, err := res.RowsAffected()
	return int(claimed), err
}

// ReleaseAssigned returns the account's ready/failed leads to the pool with
// provenance. Leads in sending/sent are untouched: in-flight sends are not
// yanked back. Idempotent, a second call matches nothing.
func (r *LeadRepository) ReleaseAssigned(ctx context.Context, campaignID, accountID string, now time.Time) (int, error) {
	query := `
        UPDATE leads
        SET assigned_account='',
            previous_account=$1,
            reassignment_count=reassignment_count+1,
            status=$2,
            last_reassigned_at=$3
        WHERE campaign_id=$4
          AND assigned_account=$1
          AND status IN ($2, $5)
    `
	res, err := r.DB.ExecContext(ctx, query,
		accountID, model.LeadStatusReady, now, campaignID, model.LeadStatusFailed,
	)
	if err != nil {
		return 0, err
	}
	released, err := res.RowsAffected()
	return int(released), err
}

// CountReadyForAccount recomputes the advisory pending-leads figure.
func (r *LeadRepository) CountReadyForAccount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leads WHERE assigned_account=$1 AND status=$2`,
		accountID, model.LeadStatusReady,
	).Scan(&count)
	return count, err
}

// BulkCreate inserts one ready, unassigned lead per unique username.
// Duplicate usernames in the input are dropped (exact, case-sensitive
// match), and usernames already present in the campaign are skipped via the
// unique index, so repeated ingestion calls cannot create duplicate leads.
// Inserts run in chunks of BulkInsertChunk rows, each chunk its own
// transaction: a chunk either fully commits or the caller sees the error.
func (r *LeadRepository) BulkCreate(ctx context.Context, campaignID string, usernames []string, now time.Time) ([]*model.Lead, error) {
	seen := make(map[string]bool, len(usernames))
	unique := make([]string, 0, len(usernames))
	for _, u := range usernames {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		unique = append(unique, u)
	}

	created := make([]*model.Lead, 0, len(unique))
	for start := 0; start < len(unique); start += BulkInsertChunk {
		end := start + BulkInsertChunk
		if end > len(unique) {
			end = len(unique)
		}

		chunk, err := r.insertChunk(ctx, campaignID, unique[start:end], now)
		if err != nil {
			return created, fmt.Errorf("bulk create chunk starting at %d: %w", start, err)
		}
		created = append(created, chunk...)
	}
	return created, nil
}

func (r *LeadRepository) insertChunk(ctx context.Context, campaignID string, usernames []string, now time.Time) ([]*model.Lead, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	insert := r.sb.Insert("leads").
		Columns("id", "campaign_id", "username", "type", "status", "sent",
			"base_date", "assigned_account", "reassignment_count", "follow_ups").
		Suffix("ON CONFLICT (campaign_id, username) DO NOTHING RETURNING id")

	leads := make([]*model.Lead, 0, len(usernames))
	for _, username := range usernames {
		lead := &model.Lead{
			ID:         uuid.NewString(),
			CampaignID: campaignID,
			Username:   username,
			Type:       model.LeadTypeInitial,
			Status:     model.LeadStatusReady,
			BaseDate:   now,
			FollowUps:  model.FollowUps{},
		}
		insert = insert.Values(
			lead.ID, lead.CampaignID, lead.Username, lead.Type, lead.Status,
			lead.Sent, lead.BaseDate, lead.AssignedAccount,
			lead.ReassignmentCount, lead.FollowUps,
		)
		leads = append(leads, lead)
	}

	sqlStr, args, err := insert.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build bulk insert sql: %w", err)
	}

	rows, err := tx.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	inserted := make(map[string]bool, len(leads))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		inserted[id] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	// Usernames the campaign already had conflict away; only the rows that
	// actually landed are reported back.
	created := make([]*model.Lead, 0, len(inserted))
	for _, lead := range leads {
		if inserted[lead.ID] {
			created = append(created, lead)
		}
	}
	return created, nil
}

// MarkResult records a send outcome on the lead row.
func (r *LeadRepository) MarkResult(ctx context.Context, leadID, status string, sent bool) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE leads SET status=$1, sent=$2 WHERE id=$3`,
		status, sent, leadID,
	)
	return err
}

func (r *LeadRepository) UpdateFollowUps(ctx context.Context, leadID string, followUps model.FollowUps) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE leads SET follow_ups=$1 WHERE id=$2`,
		followUps, leadID,
	)
	return err
}

// StatusCounts returns lead counts by status for a campaign.
func (r *LeadRepository) StatusCounts(ctx context.Context, campaignID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM leads WHERE campaign_id=$1 GROUP BY status`,
		campaignID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		model.LeadStatusReady:   0,
		model.LeadStatusSending: 0,
		model.LeadStatusSent:    0,
		model.LeadStatusFailed:  0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

var _ LeadRepositoryInterface = (*LeadRepository)(nil)
