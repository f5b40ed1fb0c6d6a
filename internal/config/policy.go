// internal/config/policy.go
package config

import "time"

// Multi-currency handling for one customer's invoice group.
const (
	// MultiCurrencySplit produces one proposal per currency (default).
	MultiCurrencySplit = "split"
	// MultiCurrencyReject skips customers with mixed-currency invoices.
	MultiCurrencyReject = "reject"
	// MultiCurrencyCombine keeps one proposal with per-currency totals,
	// for templates that declare multi-currency support.
	MultiCurrencyCombine = "combine"
)

// Policy is the per-company configuration value object. Every component call
// receives it explicitly so runs for different companies can execute
// concurrently with different rules.
type Policy struct {
	// Contact rules
	MinContactInterval time.Duration

	// Consolidation rules. MinInvoiceCount defaults to 1 (single-invoice
	// follow-ups allowed); ConsolidationOnly raises the effective minimum
	// to 2. The 1-vs-2 threshold is project policy, not a constant.
	MinInvoiceCount        int
	ConsolidationOnly      bool
	MaxInvoicesPerReminder int
	MultiCurrency          string

	// Escalation breakpoints in days past due for the oldest invoice.
	Tier1MaxAgeDays int
	Tier2MaxAgeDays int

	// Send window. Sends landing outside the window or on a holiday are
	// deferred to the next allowed window, never suppressed.
	AllowedWeekdays     []time.Weekday
	SendWindowStartHour int
	SendWindowEndHour   int
	Holidays            []string // "2006-01-02" in the policy timezone
	Timezone            string

	// Delivery
	BatchSize   int
	BatchDelay  time.Duration
	SendTimeout time.Duration

	// Retry/backoff
	BaseRetryDelay      time.Duration
	MaxRetryDelay       time.Duration
	MaxRateLimitRetries int
	MaxTransientRetries int
}

func DefaultPolicy() Policy {
	return Policy{
		MinContactInterval:     7 * 24 * time.Hour,
		MinInvoiceCount:        1,
		ConsolidationOnly:      false,
		MaxInvoicesPerReminder: 10,
		MultiCurrency:          MultiCurrencySplit,
		Tier1MaxAgeDays:        30,
		Tier2MaxAgeDays:        60,
		AllowedWeekdays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		SendWindowStartHour: 9,
		SendWindowEndHour:   17,
		Timezone:            "UTC",
		BatchSize:           5,
		BatchDelay:          3 * time.Second,
		SendTimeout:         30 * time.Second,
		BaseRetryDelay:      500 * time.Millisecond,
		MaxRetryDelay:       30 * time.Second,
		MaxRateLimitRetries: 5,
		MaxTransientRetries: 3,
	}
}

// EffectiveMinInvoices resolves the configured consolidation threshold.
func (p Policy) EffectiveMinInvoices() int {
	min := p.MinInvoiceCount
	if min < 1 {
		min = 1
	}
	if p.ConsolidationOnly && min < 2 {
		min = 2
	}
	return min
}

// Location resolves the policy timezone, falling back to UTC.
func (p Policy) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WeekdayAllowed reports whether sends may go out on the given weekday.
func (p Policy) WeekdayAllowed(d time.Weekday) bool {
	for _, w := range p.AllowedWeekdays {
		if w == d {
			return true
		}
	}
	return false
}

// IsHoliday reports whether t falls on a configured holiday, evaluated in
// the policy timezone.
func (p Policy) IsHoliday(t time.Time) bool {
	day := t.In(p.Location()).Format("2006-01-02")
	for _, h := range p.Holidays {
		if h == day {
			return true
		}
	}
	return false
}

// Tier maps an oldest-invoice age in days to an escalation tier using the
// fixed breakpoints.
func (p Policy) Tier(ageDays int) string {
	switch {
	case ageDays <= p.Tier1MaxAgeDays:
		return "tier1"
	case ageDays <= p.Tier2MaxAgeDays:
		return "tier2"
	default:
		return "tier3"
	}
}
