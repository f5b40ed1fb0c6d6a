// internal/quota/store.go
package quota

import (
	"context"
	"time"

	"github.com/duenorth/reminder-backend/internal/model"
)

// Store tracks rolling daily send counters per provider. Reserve is an
// atomic check-and-increment: two campaigns sharing a provider can never
// jointly overshoot the daily ceiling. A reservation is released if the
// send ultimately fails, so only successful attempts consume quota.
type Store interface {
	// Reserve atomically admits n sends if they fit under today's ceiling.
	Reserve(ctx context.Context, provider string, n int) (bool, error)
	// Release gives back quota reserved for sends that did not go out.
	Release(ctx context.Context, provider string, n int) error
	// Remaining reports how many sends are still available today.
	Remaining(ctx context.Context, provider string) (int, error)
	// Snapshot returns the read-side quota view for dashboards.
	Snapshot(ctx context.Context, provider string) (model.ProviderQuota, error)
}

// dayKey buckets counters by UTC calendar day so they reset naturally.
func dayKey(provider string, now time.Time) string {
	return "quota:" + provider + ":" + now.UTC().Format("2006-01-02")
}

// nextMidnight is when today's counter stops mattering.
func nextMidnight(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
