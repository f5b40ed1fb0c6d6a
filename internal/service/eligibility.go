// internal/service/eligibility.go
package service

import (
	"fmt"
	"time"

	"github.com/duenorth/reminder-backend/internal/config"
	"github.com/duenorth/reminder-backend/internal/model"
)

// Eligibility is the filter's decision for one customer. An out-of-window
// send is still eligible, just deferred: SendAt is moved to the next allowed
// window. Only the minimum contact interval makes a customer ineligible.
type Eligibility struct {
	Eligible bool      `json:"eligible"`
	Reason   string    `json:"reason,omitempty"`
	SendAt   time.Time `json:"send_at"`
	Deferred bool      `json:"deferred"`
	Override bool      `json:"override"`
}

// EligibilityFilter decides whether a customer may be contacted now, and
// when the send may actually go out.
type EligibilityFilter struct {
	Policy  config.Policy
	Auditor *Auditor
}

// Check applies the minimum contact interval and the send-window rules.
// lastContact is the later of the customer's last reminder and any ad-hoc
// send. An override bypasses the interval but is recorded as an audited
// exception.
func (f *EligibilityFilter) Check(companyID, customerID string, lastContact *time.Time, override bool, now time.Time) Eligibility {
	if lastContact != nil {
		elapsed := now.Sub(*lastContact)
		if elapsed < f.Policy.MinContactInterval {
			if !override {
				return Eligibility{
					Eligible: false,
					Reason: fmt.Sprintf("contacted %s ago, minimum interval is %s",
						elapsed.Round(time.Hour), f.Policy.MinContactInterval),
				}
			}
			f.Auditor.Record(companyID, "system", model.AuditEligibilityOverride, "customer", customerID,
				fmt.Sprintf("minimum contact interval bypassed %s after last contact", elapsed.Round(time.Hour)))
		}
	}

	sendAt := f.NextAllowedWindow(now)
	return Eligibility{
		Eligible: true,
		SendAt:   sendAt,
		Deferred: sendAt.After(now),
		Override: override && lastContact != nil && now.Sub(*lastContact) < f.Policy.MinContactInterval,
	}
}

// NextAllowedWindow rolls t forward to the first instant inside the
// configured weekday set and local-time range, skipping holidays. Returns t
// unchanged when it is already inside the window.
func (f *EligibilityFilter) NextAllowedWindow(t time.Time) time.Time {
	loc := f.Policy.Location()
	cur := t.In(loc)

	// Two years of days is far beyond any sane holiday calendar; treat the
	// policy as "send now" if nothing matches.
	for i := 0; i < 2*366; i++ {
		if f.Policy.WeekdayAllowed(cur.Weekday()) && !f.Policy.IsHoliday(cur) {
			start := time.Date(cur.Year(), cur.Month(), cur.Day(), f.Policy.SendWindowStartHour, 0, 0, 0, loc)
			end := time.Date(cur.Year(), cur.Month(), cur.Day(), f.Policy.SendWindowEndHour, 0, 0, 0, loc)
			if cur.Before(start) {
				return start
			}
			if cur.Before(end) {
				return cur
			}
		}
		next := cur.AddDate(0, 0, 1)
		cur = time.Date(next.Year(), next.Month(), next.Day(), f.Policy.SendWindowStartHour, 0, 0, 0, loc)
	}
	return t
}
