// internal/provider/mock.go
package provider

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockProvider simulates a delivery provider for local development and
// seeded demos. FailRate is the probability of a transient failure per send.
type MockProvider struct {
	Label    string
	FailRate float64
	Latency  time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockProvider(label string, failRate float64) *MockProvider {
	return &MockProvider{
		Label:    label,
		FailRate: failRate,
		Latency:  50 * time.Millisecond,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockProvider) Name() string { return m.Label }

func (m *MockProvider) Send(ctx context.Context, msg *Message) (string, error) {
	select {
	case <-time.After(m.Latency):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	m.mu.Lock()
	roll := m.rng.Float64()
	m.mu.Unlock()

	if roll < m.FailRate {
		return "", NewError(m.Label, CodeTransient, "mock sending failed")
	}
	return uuid.NewString(), nil
}

func (m *MockProvider) RemainingQuota(ctx context.Context) (int, error) {
	// The mock never throttles; the quota store is the enforcement point.
	return 1 << 20, nil
}

func (m *MockProvider) RefreshCredentials(ctx context.Context) error {
	return nil
}
