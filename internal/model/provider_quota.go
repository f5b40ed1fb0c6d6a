// internal/model/provider_quota.go
package model

import "time"

// ProviderQuota is a snapshot of a delivery provider's rolling daily counter.
// The authoritative counter lives in the quota store and is mutated with an
// atomic check-and-increment; this struct is read-side only.
type ProviderQuota struct {
	Provider   string    `json:"provider"`
	SentToday  int       `json:"sent_today"`
	DailyLimit int       `json:"daily_limit"`
	ResetsAt   time.Time `json:"resets_at"`
}

func (q ProviderQuota) Remaining() int {
	if q.SentToday >= q.DailyLimit {
		return 0
	}
	return q.DailyLimit - q.SentToday
}
