// internal/model/invoice.go
package model

import "time"

// Invoice statuses as stored by the invoicing side of the system.
// This service only reads invoices; it never mutates them.
const (
	InvoiceOpen          = "open"
	InvoiceOverdue       = "overdue"
	InvoicePaid          = "paid"
	InvoiceDisputed      = "disputed"
	InvoicePartiallyPaid = "partially_paid"
)

type Invoice struct {
	ID             string    `db:"id" json:"id"`
	CompanyID      string    `db:"company_id" json:"company_id"`
	CustomerID     string    `db:"customer_id" json:"customer_id"`
	AmountCents    int64     `db:"amount_cents" json:"amount_cents"`
	RemainingCents int64     `db:"remaining_cents" json:"remaining_cents"`
	Currency       string    `db:"currency" json:"currency"`
	DueDate        time.Time `db:"due_date" json:"due_date"`
	Status         string    `db:"status" json:"status"`
}

// CollectibleCents is the amount a reminder should ask for: the remaining
// balance for partially paid invoices, the full amount otherwise.
func (i Invoice) CollectibleCents() int64 {
	if i.Status == InvoicePartiallyPaid {
		return i.RemainingCents
	}
	return i.AmountCents
}

// Qualifies reports whether the invoice participates in consolidation:
// past due, not disputed, not settled, with something left to collect.
func (i Invoice) Qualifies(now time.Time) bool {
	if i.Status == InvoiceDisputed || i.Status == InvoicePaid {
		return false
	}
	if i.Status != InvoiceOverdue && i.Status != InvoicePartiallyPaid {
		return false
	}
	if !i.DueDate.Before(now) {
		return false
	}
	return i.CollectibleCents() > 0
}

// AgeDays is the number of whole days the invoice is past due.
func (i Invoice) AgeDays(now time.Time) int {
	if !i.DueDate.Before(now) {
		return 0
	}
	return int(now.Sub(i.DueDate).Hours() / 24)
}
