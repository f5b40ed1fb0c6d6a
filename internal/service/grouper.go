// internal/service/grouper.go
package service

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/duenorth/reminder-backend/internal/config"
	appErrors "github.com/duenorth/reminder-backend/internal/errors"
	"github.com/duenorth/reminder-backend/internal/model"
	"github.com/duenorth/reminder-backend/internal/repository"
)

// Grouper turns a company's overdue invoices into consolidated reminder
// proposals: one reminder per customer instead of one email per invoice.
type Grouper struct {
	Policy      config.Policy
	Reminders   repository.ReminderRepositoryInterface
	Eligibility *EligibilityFilter
	Auditor     *Auditor
}

// ProposalRun is the outcome of one grouper pass. Skipped maps customer id
// to the human-readable reason no proposal was created — a customer with
// nothing qualifying is a skip, never an error.
type ProposalRun struct {
	Proposals []*model.ConsolidatedReminder `json:"proposals"`
	Skipped   map[string]string             `json:"skipped"`
}

// Propose runs the consolidation pass. Re-running it on an unchanged invoice
// set is idempotent: customers with an open proposed/scheduled reminder are
// skipped, and the insert-time uniqueness check catches concurrent runs.
func (g *Grouper) Propose(companyID string, invoices []model.Invoice, overrideInterval bool, now time.Time) (*ProposalRun, error) {
	run := &ProposalRun{
		Proposals: []*model.ConsolidatedReminder{},
		Skipped:   map[string]string{},
	}

	byCustomer := map[string][]model.Invoice{}
	customerOrder := []string{}
	for _, inv := range invoices {
		if !inv.Qualifies(now) {
			continue
		}
		if _, seen := byCustomer[inv.CustomerID]; !seen {
			customerOrder = append(customerOrder, inv.CustomerID)
		}
		byCustomer[inv.CustomerID] = append(byCustomer[inv.CustomerID], inv)
	}

	for _, customerID := range customerOrder {
		qualifying := byCustomer[customerID]

		open, err := g.Reminders.HasOpenForCustomer(customerID)
		if err != nil {
			return nil, err
		}
		if open {
			run.Skipped[customerID] = "open reminder already exists"
			continue
		}

		lastContact, err := g.Reminders.LastContactAt(customerID)
		if err != nil {
			return nil, err
		}
		elig := g.Eligibility.Check(companyID, customerID, lastContact, overrideInterval, now)
		if !elig.Eligible {
			run.Skipped[customerID] = elig.Reason
			continue
		}

		groups, reason := g.groupInvoices(qualifying)
		if reason != "" {
			run.Skipped[customerID] = reason
			continue
		}

		for _, group := range groups {
			proposal := g.buildProposal(companyID, customerID, group, lastContact, elig.SendAt, now)
			if err := g.Reminders.Create(proposal); err != nil {
				if appErrors.IsDuplicateReminder(err) {
					// A concurrent run won the race; same outcome as the
					// open-reminder pre-check.
					run.Skipped[customerID] = "open reminder already exists"
					break
				}
				return nil, err
			}
			g.Auditor.Record(companyID, "system", model.AuditReminderCreated, "reminder", proposal.ID,
				fmt.Sprintf("%d invoices, tier %s", proposal.InvoiceCount(), proposal.Tier))
			run.Proposals = append(run.Proposals, proposal)
		}
	}

	log.Printf("Grouper: %d proposals, %d customers skipped\n", len(run.Proposals), len(run.Skipped))
	return run, nil
}

// groupInvoices orders one customer's qualifying invoices oldest due date
// first, applies the multi-currency policy, then chunks by the per-message
// cap. Returns a skip reason instead of groups when policy rejects the set.
func (g *Grouper) groupInvoices(invoices []model.Invoice) ([][]model.Invoice, string) {
	sort.SliceStable(invoices, func(i, j int) bool {
		return invoices[i].DueDate.Before(invoices[j].DueDate)
	})

	var currencyGroups [][]model.Invoice
	currencies := distinctCurrencies(invoices)
	switch {
	case len(currencies) <= 1 || g.Policy.MultiCurrency == config.MultiCurrencyCombine:
		currencyGroups = [][]model.Invoice{invoices}
	case g.Policy.MultiCurrency == config.MultiCurrencyReject:
		return nil, fmt.Sprintf("invoices span %d currencies and policy rejects mixed-currency groups", len(currencies))
	default: // split
		byCurrency := map[string][]model.Invoice{}
		for _, inv := range invoices {
			byCurrency[inv.Currency] = append(byCurrency[inv.Currency], inv)
		}
		for _, cur := range currencies {
			currencyGroups = append(currencyGroups, byCurrency[cur])
		}
	}

	minCount := g.Policy.EffectiveMinInvoices()
	groups := [][]model.Invoice{}
	for _, cg := range currencyGroups {
		if len(cg) < minCount {
			continue
		}
		for start := 0; start < len(cg); start += g.Policy.MaxInvoicesPerReminder {
			end := start + g.Policy.MaxInvoicesPerReminder
			if end > len(cg) {
				end = len(cg)
			}
			groups = append(groups, cg[start:end])
		}
	}
	if len(groups) == 0 {
		return nil, fmt.Sprintf("fewer than %d qualifying invoices", minCount)
	}
	return groups, ""
}

func (g *Grouper) buildProposal(companyID, customerID string, group []model.Invoice, lastContact *time.Time, sendAt time.Time, now time.Time) *model.ConsolidatedReminder {
	invoiceIDs := make([]string, len(group))
	totals := map[string]int64{}
	oldest := group[0].DueDate
	for i, inv := range group {
		invoiceIDs[i] = inv.ID
		totals[inv.Currency] += inv.CollectibleCents()
		if inv.DueDate.Before(oldest) {
			oldest = inv.DueDate
		}
	}

	currency := ""
	if curs := distinctCurrencies(group); len(curs) == 1 {
		currency = curs[0]
	}

	oldestAge := group[0].AgeDays(now)
	return &model.ConsolidatedReminder{
		ID:            uuid.NewString(),
		CompanyID:     companyID,
		CustomerID:    customerID,
		InvoiceIDs:    invoiceIDs,
		Currency:      currency,
		Totals:        totals,
		Tier:          g.Policy.Tier(oldestAge),
		OldestDueDate: oldest,
		SendAt:        sendAt,
		LastContactAt: lastContact,
		Status:        model.ReminderProposed,
	}
}

// distinctCurrencies preserves first-seen order so split groups come out
// deterministically.
func distinctCurrencies(invoices []model.Invoice) []string {
	seen := map[string]bool{}
	currencies := []string{}
	for _, inv := range invoices {
		if !seen[inv.Currency] {
			seen[inv.Currency] = true
			currencies = append(currencies, inv.Currency)
		}
	}
	return currencies
}
