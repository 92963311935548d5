package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/logger"
)

// Topic for outbound send jobs.
const TopicSendJobs = "send_jobs"

// SendJob is one queued message send: a lead handed to an account's worker.
type SendJob struct {
	LeadID     string `json:"lead_id"`
	CampaignID string `json:"campaign_id"`
	AccountID  string `json:"account_id"`
	Kind       string `json:"kind"` // initial, follow_up
}

// DecodeSendJob accepts what either queue implementation delivers: the
// struct itself (in-memory) or JSON bytes (RabbitMQ).
func DecodeSendJob(payload any) (SendJob, error) {
	switch v := payload.(type) {
	case SendJob:
		return v, nil
	case *SendJob:
		return *v, nil
	case []byte:
		var job SendJob
		if err := json.Unmarshal(v, &job); err != nil {
			return SendJob{}, fmt.Errorf("decode send job: %w", err)
		}
		return job, nil
	}
	return SendJob{}, fmt.Errorf("unexpected send job payload type %T", payload)
}

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue is an in-process queue with retry, used in tests and
// single-process dev runs.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := JobPayload{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(topic, handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(topic string, handler func(payload any) error, job JobPayload) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return // ACK
		}

		job.RetryCount++
		logger.Logger.Warn("queue job failed",
			zap.String("topic", topic),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err),
		)

		if job.RetryCount > job.MaxRetries {
			logger.Logger.Error("queue job permanently failed",
				zap.String("topic", topic),
				zap.Int("attempts", job.RetryCount),
			)
			return // No requeue
		}

		// Exponential backoff before retry
		time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}
