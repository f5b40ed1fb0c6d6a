// internal/service/analytics.go
package service

import (
	"math"
	"time"

	"github.com/duenorth/reminder-backend/internal/repository"
)

// SavingsReport quantifies what consolidation bought over a rolling window:
// "emails saved" is the difference between the invoices covered and the
// reminders actually sent. Purely observational — it never feeds back into
// consolidation decisions.
type SavingsReport struct {
	CompanyID       string  `json:"company_id"`
	WindowDays      int     `json:"window_days"`
	RemindersSent   int     `json:"reminders_sent"`
	InvoicesCovered int     `json:"invoices_covered"`
	EmailsSaved     int     `json:"emails_saved"`
	SavedPct        float64 `json:"saved_pct"`
}

type Analytics struct {
	Reminders repository.ReminderRepositoryInterface
}

func (a *Analytics) EmailsSaved(companyID string, windowDays int, now time.Time) (*SavingsReport, error) {
	since := now.AddDate(0, 0, -windowDays)
	reminders, covered, err := a.Reminders.CountSentSince(companyID, since)
	if err != nil {
		return nil, err
	}

	report := &SavingsReport{
		CompanyID:       companyID,
		WindowDays:      windowDays,
		RemindersSent:   reminders,
		InvoicesCovered: covered,
		EmailsSaved:     covered - reminders,
	}
	if covered > 0 {
		pct := float64(covered-reminders) / float64(covered) * 100
		report.SavedPct = math.Round(pct*10) / 10
	}
	return report, nil
}
