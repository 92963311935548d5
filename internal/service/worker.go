package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/queue"
)

// SendFunc performs the actual delivery. The transport is out of scope
// here; the real one is injected by the worker binary.
type SendFunc func(username, message string) bool

// Worker consumes queued send jobs, delivers the message, and reports the
// outcome back through the engine.
type Worker struct {
	Engine   *AssignmentEngine
	SendFunc SendFunc
}

// Constructor
func NewWorker(engine *AssignmentEngine, sendFunc SendFunc) *Worker {
	return &Worker{Engine: engine, SendFunc: sendFunc}
}

// Start subscribes the worker to the send-jobs topic.
func (w *Worker) Start(q queue.Queue) error {
	return q.Subscribe(queue.TopicSendJobs, w.HandleJob)
}

// HandleJob processes one queued send. Errors bubble up so the queue can
// retry; ReportResult's dedup key keeps redelivery from double counting.
func (w *Worker) HandleJob(payload any) error {
	job, err := queue.DecodeSendJob(payload)
	if err != nil {
		logger.Logger.Warn("dropping undecodable send job", zap.Error(err))
		return nil // malformed payloads are not retryable
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	lead, err := w.Engine.Leads.GetByID(ctx, job.LeadID)
	if err != nil {
		return err
	}
	if lead == nil {
		logger.Logger.Warn("send job for unknown lead", zap.String("lead_id", job.LeadID))
		return nil
	}

	template, err := w.pickMessage(ctx, lead, job)
	if err != nil {
		return err
	}
	message := RenderTemplate(template, map[string]string{"username": lead.Username})

	if job.Kind != model.LeadTypeFollowUp {
		if err := w.Engine.Leads.MarkResult(ctx, lead.ID, model.LeadStatusSending, lead.Sent); err != nil {
			return err
		}
	}

	outcome := OutcomeFailed
	if w.SendFunc(lead.Username, message) {
		outcome = OutcomeSent
		if job.Kind == model.LeadTypeFollowUp {
			outcome = OutcomeFollowUpSent
		}
	}

	return w.Engine.ReportResult(ctx, lead.ID, job.AccountID, job.CampaignID, outcome)
}

func (w *Worker) pickMessage(ctx context.Context, lead *model.Lead, job queue.SendJob) (string, error) {
	if job.Kind == model.LeadTypeFollowUp {
		for _, fu := range lead.FollowUps {
			if fu.Status == model.LeadStatusReady {
				return fu.Message, nil
			}
		}
		return "", fmt.Errorf("lead %s has no pending follow-up", lead.ID)
	}

	campaign, err := w.Engine.Campaigns.GetByID(ctx, job.CampaignID)
	if err != nil {
		return "", err
	}
	if len(campaign.Variants) == 0 {
		return "", fmt.Errorf("campaign %s has no message variants", campaign.ID)
	}
	return campaign.Variants[0], nil
}
