package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

// TaskPoller turns durable scheduled-task rows into work: follow-up sends
// get published to the queue, claim retries run against the lead store.
// Claiming uses SKIP LOCKED, so several poller instances can share a table.
type TaskPoller struct {
	Tasks    repository.TaskRepositoryInterface
	Engine   *AssignmentEngine
	Queue    queue.Queue
	Interval time.Duration
	Batch    int
}

// Run polls until the context is cancelled.
func (p *TaskPoller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	batch := p.Batch
	if batch <= 0 {
		batch = 50
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, batch)
		}
	}
}

func (p *TaskPoller) tick(ctx context.Context, batch int) {
	now := time.Now()
	tasks, err := p.Tasks.ClaimDue(ctx, now, batch)
	if err != nil {
		logger.Logger.Error("failed to claim due tasks", zap.Error(err))
		return
	}

	for _, task := range tasks {
		if err := p.handle(ctx, task); err != nil {
			logger.Logger.Warn("task failed, requeueing",
				zap.String("task_id", task.ID),
				zap.String("type", task.Type),
				zap.Error(err),
			)
			if err := p.Tasks.Requeue(ctx, task.ID); err != nil {
				logger.Logger.Error("failed to requeue task",
					zap.String("task_id", task.ID), zap.Error(err))
			}
			continue
		}
		if err := p.Tasks.MarkDone(ctx, task.ID, time.Now()); err != nil {
			logger.Logger.Error("failed to mark task done",
				zap.String("task_id", task.ID), zap.Error(err))
		}
	}
}

func (p *TaskPoller) handle(ctx context.Context, task *model.ScheduledTask) error {
	switch task.Type {
	case model.TaskTypeFollowUp:
		return p.Queue.Publish(queue.TopicSendJobs, queue.SendJob{
			LeadID:     task.LeadID,
			CampaignID: task.CampaignID,
			AccountID:  task.AccountID,
			Kind:       model.LeadTypeFollowUp,
		})

	case model.TaskTypeInitialClaim:
		_, err := p.Engine.Leads.ClaimBatch(ctx, task.CampaignID, task.AccountID, ClaimChunk, p.Engine.now())
		return err
	}

	logger.Logger.Warn("unknown task type, dropping",
		zap.String("task_id", task.ID), zap.String("type", task.Type))
	return nil
}
