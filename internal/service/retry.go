// internal/service/retry.go
package service

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/duenorth/reminder-backend/internal/config"
	"github.com/duenorth/reminder-backend/internal/provider"
)

// Failure classes mirror provider error codes; they are persisted on the
// send row so the per-recipient reason is always queryable.
const (
	FailureRateLimited   = "rate_limited"
	FailureQuotaExceeded = "quota_exceeded"
	FailureAuth          = "auth"
	FailurePermanent     = "permanent"
	FailureTransient     = "transient"
)

// ClassifyError maps a send error to its failure class.
func ClassifyError(err error) string {
	switch provider.CodeOf(err) {
	case provider.CodeRateLimited:
		return FailureRateLimited
	case provider.CodeQuotaExceeded:
		return FailureQuotaExceeded
	case provider.CodeAuth:
		return FailureAuth
	case provider.CodePermanent:
		return FailurePermanent
	default:
		return FailureTransient
	}
}

// RetryDecision tells the executor what to do with a failed send. Exactly
// one of the action fields applies.
type RetryDecision struct {
	Retry        bool          // requeue the send
	Delay        time.Duration // backoff before the retry
	Failover     bool          // retry on a different provider
	RefreshCreds bool          // refresh credentials, then retry once
	Suppress     bool          // terminal; suppress the recipient address
	Reschedule   bool          // defer the campaign's remaining sends to the next window
	Escalate     bool          // mark the provider unusable and alert
}

// RetryManager decides retry vs. permanent failure per failure class, with
// exponential backoff and jitter. It never recurses: the executor holds the
// bounded work queue; this type only answers "what next".
type RetryManager struct {
	Policy config.Policy

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRetryManager(policy config.Policy) *RetryManager {
	return &RetryManager{
		Policy: policy,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Backoff computes min(2^attempt * baseDelay, maxDelay) plus up to 20%
// jitter so simultaneous failures do not retry in lockstep.
func (m *RetryManager) Backoff(attempt int) time.Duration {
	base := float64(m.Policy.BaseRetryDelay) * math.Pow(2, float64(attempt))
	if max := float64(m.Policy.MaxRetryDelay); base > max {
		base = max
	}

	m.mu.Lock()
	jitter := m.rng.Float64() * 0.2 * base
	m.mu.Unlock()

	return time.Duration(base + jitter)
}

// Decide maps (class, attempt, context) to an action. attempt is the number
// of attempts already made for this send.
func (m *RetryManager) Decide(class string, attempt int, credsRefreshed, fallbackAvailable bool) RetryDecision {
	switch class {
	case FailureRateLimited:
		if attempt < m.Policy.MaxRateLimitRetries {
			return RetryDecision{Retry: true, Delay: m.Backoff(attempt)}
		}
		return RetryDecision{}

	case FailureQuotaExceeded:
		if fallbackAvailable {
			return RetryDecision{Retry: true, Failover: true}
		}
		// Never fail the campaign over quota; push the remaining sends
		// to the next allowed window.
		return RetryDecision{Reschedule: true}

	case FailureAuth:
		if !credsRefreshed {
			return RetryDecision{Retry: true, RefreshCreds: true}
		}
		if fallbackAvailable {
			return RetryDecision{Retry: true, Failover: true, Escalate: true}
		}
		return RetryDecision{Escalate: true}

	case FailurePermanent:
		return RetryDecision{Suppress: true}

	default: // transient
		if attempt < m.Policy.MaxTransientRetries {
			return RetryDecision{Retry: true, Delay: m.Backoff(attempt)}
		}
		return RetryDecision{}
	}
}
