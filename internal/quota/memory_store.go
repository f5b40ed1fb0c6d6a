// internal/quota/memory_store.go
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/duenorth/reminder-backend/internal/model"
)

// MemoryStore implements Store in process memory, for development and tests.
// Same semantics as RedisStore, including the daily rollover.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[string]int // keyed by dayKey
	limits map[string]int

	// Now is injectable for tests; nil means real time.
	Now func() time.Time
}

func NewMemoryStore(limits map[string]int) *MemoryStore {
	return &MemoryStore{
		counts: make(map[string]int),
		limits: limits,
	}
}

func (s *MemoryStore) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *MemoryStore) Reserve(ctx context.Context, provider string, n int) (bool, error) {
	limit, ok := s.limits[provider]
	if !ok {
		return false, fmt.Errorf("no quota configured for provider %s", provider)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dayKey(provider, s.clock())
	if s.counts[key]+n > limit {
		return false, nil
	}
	s.counts[key] += n
	return true, nil
}

func (s *MemoryStore) Release(ctx context.Context, provider string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dayKey(provider, s.clock())
	s.counts[key] -= n
	if s.counts[key] < 0 {
		s.counts[key] = 0
	}
	return nil
}

func (s *MemoryStore) Remaining(ctx context.Context, provider string) (int, error) {
	q, err := s.Snapshot(ctx, provider)
	if err != nil {
		return 0, err
	}
	return q.Remaining(), nil
}

func (s *MemoryStore) Snapshot(ctx context.Context, provider string) (model.ProviderQuota, error) {
	limit, ok := s.limits[provider]
	if !ok {
		return model.ProviderQuota{}, fmt.Errorf("no quota configured for provider %s", provider)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	return model.ProviderQuota{
		Provider:   provider,
		SentToday:  s.counts[dayKey(provider, now)],
		DailyLimit: limit,
		ResetsAt:   nextMidnight(now),
	}, nil
}

var _ Store = (*MemoryStore)(nil)
