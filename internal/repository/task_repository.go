package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/outreach-backend/internal/model"
)

type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *model.ScheduledTask) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledTask, error)
	MarkDone(ctx context.Context, id string, now time.Time) error
	Requeue(ctx context.Context, id string) error
}

// TaskRepository persists delayed jobs as rows with a fire-after timestamp.
// The poller claims due rows with SKIP LOCKED, so multiple instances can
// poll the same table without handing out a task twice.
type TaskRepository struct {
	DB *sql.DB
}

func (r *TaskRepository) Create(ctx context.Context, task *model.ScheduledTask) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = model.TaskStatusPending
	}
	task.CreatedAt = time.Now()

	query := `
        INSERT INTO scheduled_tasks (id, type, campaign_id, account_id, lead_id, fire_after, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.DB.ExecContext(ctx, query,
		task.ID, task.Type, task.CampaignID, task.AccountID, task.LeadID,
		task.FireAfter, task.Status, task.CreatedAt,
	)
	return err
}

// ClaimDue moves up to limit due pending tasks to processing and returns
// them. A task that fails downstream goes back to pending via Requeue.
func (r *TaskRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledTask, error) {
	query := `
        UPDATE scheduled_tasks
        SET status=$1
        WHERE id IN (
            SELECT id FROM scheduled_tasks
            WHERE status=$2 AND fire_after <= $3
            ORDER BY fire_after
            LIMIT $4
            FOR UPDATE SKIP LOCKED
        )
        RETURNING id, type, campaign_id, account_id, lead_id, fire_after, status, created_at, done_at
    `
	rows, err := r.DB.QueryContext(ctx, query,
		model.TaskStatusProcessing, model.TaskStatusPending, now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*model.ScheduledTask{}
	for rows.Next() {
		var t model.ScheduledTask
		if err := rows.Scan(
			&t.ID, &t.Type, &t.CampaignID, &t.AccountID, &t.LeadID,
			&t.FireAfter, &t.Status, &t.CreatedAt, &t.DoneAt,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) MarkDone(ctx context.Context, id string, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE scheduled_tasks SET status=$1, done_at=$2 WHERE id=$3`,
		model.TaskStatusDone, now, id,
	)
	return err
}

func (r *TaskRepository) Requeue(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE scheduled_tasks SET status=$1 WHERE id=$2`,
		model.TaskStatusPending, id,
	)
	return err
}

var _ TaskRepositoryInterface = (*TaskRepository)(nil)
