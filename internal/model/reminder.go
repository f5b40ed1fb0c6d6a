// internal/model/reminder.go
package model

import "time"

// ConsolidatedReminder statuses.
const (
	ReminderProposed  = "proposed"
	ReminderScheduled = "scheduled"
	ReminderSent      = "sent"
	ReminderSkipped   = "skipped"
)

// Escalation tiers, derived from the oldest invoice's age. The tier selects
// the template tone downstream (gentle / firm / final).
const (
	TierGentle = "tier1"
	TierFirm   = "tier2"
	TierFinal  = "tier3"
)

// ConsolidatedReminder groups one customer's overdue invoices into a single
// reminder unit. InvoiceIDs are ordered oldest due date first and that order
// is the display order. Totals are tracked per currency; amounts in different
// currencies are never added together.
type ConsolidatedReminder struct {
	ID            string           `db:"id" json:"id"`
	CompanyID     string           `db:"company_id" json:"company_id"`
	CustomerID    string           `db:"customer_id" json:"customer_id"`
	InvoiceIDs    []string         `db:"invoice_ids" json:"invoice_ids"`
	Currency      string           `db:"currency" json:"currency,omitempty"` // empty for multi-currency groups
	Totals        map[string]int64 `db:"totals" json:"totals"`
	PriorityScore float64          `db:"priority_score" json:"priority_score"`
	Tier          string           `db:"tier" json:"tier"`
	OldestDueDate time.Time        `db:"oldest_due_date" json:"oldest_due_date"`
	SendAt        time.Time        `db:"send_at" json:"send_at"`
	LastContactAt *time.Time       `db:"last_contact_at" json:"last_contact_at,omitempty"`
	Status        string           `db:"status" json:"status"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     *time.Time       `db:"updated_at" json:"updated_at,omitempty"`
}

func (r *ConsolidatedReminder) InvoiceCount() int {
	return len(r.InvoiceIDs)
}

// TotalCents sums the per-currency totals. Display code must not use this for
// mixed-currency groups; it exists for relative scoring within one run.
func (r *ConsolidatedReminder) TotalCents() int64 {
	var total int64
	for _, v := range r.Totals {
		total += v
	}
	return total
}

// Open reports whether the reminder still blocks a new proposal for the
// same customer.
func (r *ConsolidatedReminder) Open() bool {
	return r.Status == ReminderProposed || r.Status == ReminderScheduled
}
