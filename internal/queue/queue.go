package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"
)

// Queue decouples campaign planning from execution and carries the audit
// event stream. Payloads are JSON on every implementation so handlers are
// transport-agnostic.
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(body []byte) error) error
}

// Topics used by this service.
const (
	TopicCampaignRuns = "campaign_runs"
	TopicAuditEvents  = "audit_events"
)

// CampaignRunJob asks a worker to execute one campaign.
type CampaignRunJob struct {
	CampaignID string `json:"campaign_id"`
}

// InMemoryQueue is an in-process queue with retry, used in development and
// tests where no broker is running.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(body []byte) error
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(body []byte) error),
	}
}

// jobEnvelope wraps a message body with retry info
type jobEnvelope struct {
	Body       []byte
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := jobEnvelope{Body: body, MaxRetries: 3}
	for _, handler := range handlers {
		go q.processJob(topic, handler, job)
	}
	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(topic string, handler func(body []byte) error, job jobEnvelope) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Body)
		if err == nil {
			return // ACK
		}

		job.RetryCount++
		log.Printf("⚠️ %s job failed (attempt %d/%d): %v\n", topic, job.RetryCount, job.MaxRetries, err)

		if job.RetryCount > job.MaxRetries {
			log.Printf("⚠️ %s job permanently failed after %d attempts\n", topic, job.MaxRetries)
			return // no requeue
		}

		// Backoff before retry
		time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(body []byte) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

var _ Queue = (*InMemoryQueue)(nil)
