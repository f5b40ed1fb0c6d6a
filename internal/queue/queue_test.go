package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestInMemoryQueuePublishDeliversToSubscriber(t *testing.T) {
	q := NewInMemoryQueue()
	got := make(chan CampaignRunJob, 1)

	err := q.Subscribe(TopicCampaignRuns, func(body []byte) error {
		var job CampaignRunJob
		if err := json.Unmarshal(body, &job); err != nil {
			return err
		}
		got <- job
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := q.Publish(TopicCampaignRuns, CampaignRunJob{CampaignID: "camp-1"}); err != nil {
		t.Fatal(err)
	}

	select {
	case job := <-got:
		if job.CampaignID != "camp-1" {
			t.Errorf("expected camp-1, got %s", job.CampaignID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never received the job")
	}
}

func TestInMemoryQueuePublishWithoutSubscriberFails(t *testing.T) {
	q := NewInMemoryQueue()
	if err := q.Publish("nobody-listens", CampaignRunJob{CampaignID: "camp-1"}); err == nil {
		t.Fatal("expected an error when no subscriber exists")
	}
}

func TestInMemoryQueueRetriesFailedHandler(t *testing.T) {
	q := NewInMemoryQueue()

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	err := q.Subscribe(TopicCampaignRuns, func(body []byte) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return fmt.Errorf("transient handler failure")
		}
		close(done)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := q.Publish(TopicCampaignRuns, CampaignRunJob{CampaignID: "camp-1"}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("handler was never retried")
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}
