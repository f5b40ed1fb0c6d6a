// internal/quota/redis_store.go
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/duenorth/reminder-backend/internal/model"
)

// RedisStore implements Store on Redis. The conditional increment runs as a
// Lua script so the check and the increment are one atomic operation.
type RedisStore struct {
	rc     *redis.Client
	limits map[string]int
	now    func() time.Time
}

func NewRedisStore(rc *redis.Client, limits map[string]int) *RedisStore {
	return &RedisStore{rc: rc, limits: limits, now: time.Now}
}

var luaReserve = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local n = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
if current + n > limit then
  return 0
end
current = redis.call('INCRBY', KEYS[1], n)
if current == n then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

var luaRelease = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local n = tonumber(ARGV[1])
if n > current then
  n = current
end
if n > 0 then
  redis.call('DECRBY', KEYS[1], n)
end
return 1
`)

func (s *RedisStore) limit(provider string) (int, error) {
	limit, ok := s.limits[provider]
	if !ok {
		return 0, fmt.Errorf("no quota configured for provider %s", provider)
	}
	return limit, nil
}

func (s *RedisStore) Reserve(ctx context.Context, provider string, n int) (bool, error) {
	limit, err := s.limit(provider)
	if err != nil {
		return false, err
	}
	now := s.now()
	ttl := nextMidnight(now).Sub(now).Milliseconds()
	res, err := luaReserve.Run(ctx, s.rc, []string{dayKey(provider, now)}, n, limit, ttl).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *RedisStore) Release(ctx context.Context, provider string, n int) error {
	now := s.now()
	return luaRelease.Run(ctx, s.rc, []string{dayKey(provider, now)}, n).Err()
}

func (s *RedisStore) Remaining(ctx context.Context, provider string) (int, error) {
	q, err := s.Snapshot(ctx, provider)
	if err != nil {
		return 0, err
	}
	return q.Remaining(), nil
}

func (s *RedisStore) Snapshot(ctx context.Context, provider string) (model.ProviderQuota, error) {
	limit, err := s.limit(provider)
	if err != nil {
		return model.ProviderQuota{}, err
	}
	now := s.now()
	sent, err := s.rc.Get(ctx, dayKey(provider, now)).Int()
	if err != nil && err != redis.Nil {
		return model.ProviderQuota{}, err
	}
	return model.ProviderQuota{
		Provider:   provider,
		SentToday:  sent,
		DailyLimit: limit,
		ResetsAt:   nextMidnight(now),
	}, nil
}

var _ Store = (*RedisStore)(nil)
