// internal/service/planner.go
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/duenorth/reminder-backend/internal/config"
	appErrors "github.com/duenorth/reminder-backend/internal/errors"
	"github.com/duenorth/reminder-backend/internal/model"
	"github.com/duenorth/reminder-backend/internal/provider"
	"github.com/duenorth/reminder-backend/internal/queue"
	"github.com/duenorth/reminder-backend/internal/quota"
	"github.com/duenorth/reminder-backend/internal/repository"
	"github.com/duenorth/reminder-backend/internal/template"
)

// Planner turns accepted reminder proposals into a campaign plus one email
// send per recipient. Campaign and send rows are created atomically: a plan
// either exists in full or not at all.
type Planner struct {
	Policy      config.Policy
	Campaigns   repository.CampaignRepositoryInterface
	Reminders   repository.ReminderRepositoryInterface
	Customers   repository.CustomerRepositoryInterface
	Invoices    repository.InvoiceRepositoryInterface
	Suppression repository.SuppressionRepositoryInterface
	Templates   template.Store
	Renderer    *template.Renderer
	Providers   *provider.Registry
	Quotas      quota.Store
	Queue       queue.Queue // optional; queued campaigns are announced here
	Auditor     *Auditor
}

type PlanRequest struct {
	CompanyID        string     `json:"company_id"`
	Name             string     `json:"name"`
	ReminderIDs      []string   `json:"reminder_ids"`
	TemplateKind     string     `json:"template_kind"`
	ProviderOverride string     `json:"provider"`
	ScheduledAt      *time.Time `json:"scheduled_at,omitempty"`
	Actor            string     `json:"actor"`
}

// Plan validates the request, picks a provider with enough remaining daily
// quota for every recipient, renders content, and persists the whole plan in
// one transaction. Capacity problems reject the campaign before any send row
// exists.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) (*model.Campaign, error) {
	if len(req.ReminderIDs) == 0 {
		return nil, appErrors.NewValidation("campaign needs at least one reminder")
	}
	if req.TemplateKind == "" {
		req.TemplateKind = "reminder"
	}

	reminders, err := p.Reminders.GetByIDs(req.ReminderIDs)
	if err != nil {
		return nil, err
	}
	if len(reminders) != len(req.ReminderIDs) {
		return nil, appErrors.NewValidation("one or more reminders do not exist")
	}
	for _, r := range reminders {
		if !r.Open() {
			return nil, appErrors.NewValidation("reminder %s is %s, not open", r.ID, r.Status)
		}
	}

	recipients, err := p.resolveRecipients(req, reminders)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, appErrors.NewValidation("no deliverable recipients: all addresses suppressed or unknown")
	}

	providerName, err := p.selectProvider(ctx, req.ProviderOverride, len(recipients))
	if err != nil {
		return nil, err
	}

	campaign := &model.Campaign{
		ID:             uuid.NewString(),
		CompanyID:      req.CompanyID,
		Name:           req.Name,
		TemplateKind:   req.TemplateKind,
		Provider:       providerName,
		Status:         model.CampaignQueued,
		ScheduledAt:    req.ScheduledAt,
		RecipientCount: len(recipients),
	}

	sends := make([]*model.EmailSend, 0, len(recipients))
	for _, rcpt := range recipients {
		send, err := p.renderSend(ctx, campaign, rcpt)
		if err != nil {
			return nil, err
		}
		sends = append(sends, send)
	}

	if err := p.Campaigns.CreatePlan(campaign, sends); err != nil {
		return nil, err
	}

	for _, r := range reminders {
		if err := p.Reminders.UpdateStatus(r.ID, model.ReminderScheduled); err != nil {
			log.Println("⚠️ failed to mark reminder scheduled:", err)
		}
	}

	p.Auditor.Record(req.CompanyID, req.Actor, model.AuditCampaignPlanned, "campaign", campaign.ID,
		fmt.Sprintf("%d recipients via %s", campaign.RecipientCount, providerName))

	if p.Queue != nil {
		if err := p.Queue.Publish(queue.TopicCampaignRuns, queue.CampaignRunJob{CampaignID: campaign.ID}); err != nil {
			log.Println("⚠️ failed to enqueue campaign run:", err)
		}
	}

	return campaign, nil
}

// recipient pairs a reminder with its resolved customer and invoices.
type recipient struct {
	reminder *model.ConsolidatedReminder
	customer *model.Customer
	invoices []model.Invoice
}

func (p *Planner) resolveRecipients(req PlanRequest, reminders []*model.ConsolidatedReminder) ([]recipient, error) {
	customerIDs := make([]string, 0, len(reminders))
	for _, r := range reminders {
		customerIDs = append(customerIDs, r.CustomerID)
	}
	customers, err := p.Customers.GetByIDs(customerIDs)
	if err != nil {
		return nil, err
	}

	recipients := []recipient{}
	for _, r := range reminders {
		customer, ok := customers[r.CustomerID]
		if !ok {
			return nil, appErrors.NewValidation("customer %s not found for reminder %s", r.CustomerID, r.ID)
		}

		suppressed, err := p.Suppression.IsSuppressed(customer.Email)
		if err != nil {
			return nil, err
		}
		if suppressed {
			p.Auditor.Record(req.CompanyID, req.Actor, model.AuditRecipientSuppressed, "reminder", r.ID,
				fmt.Sprintf("address %s is suppressed", customer.Email))
			if err := p.Reminders.UpdateStatus(r.ID, model.ReminderSkipped); err != nil {
				log.Println("⚠️ failed to mark reminder skipped:", err)
			}
			continue
		}

		invoices, err := p.Invoices.GetByIDs(r.InvoiceIDs)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, recipient{reminder: r, customer: customer, invoices: invoices})
	}
	return recipients, nil
}

// selectProvider honors an explicit override, else picks the least-utilized
// usable provider. Either way the choice must plausibly cover every planned
// send against its remaining daily quota.
func (p *Planner) selectProvider(ctx context.Context, override string, recipientCount int) (string, error) {
	if override != "" {
		if _, ok := p.Providers.Get(override); !ok {
			return "", appErrors.NewValidation("provider %s is not available", override)
		}
		remaining, err := p.Quotas.Remaining(ctx, override)
		if err != nil {
			return "", err
		}
		if remaining < recipientCount {
			return "", appErrors.NewCapacity(override, recipientCount, remaining)
		}
		return override, nil
	}

	best := ""
	bestRemaining := -1
	for _, name := range p.Providers.UsableNames() {
		remaining, err := p.Quotas.Remaining(ctx, name)
		if err != nil {
			return "", err
		}
		if remaining > bestRemaining {
			best = name
			bestRemaining = remaining
		}
	}
	if best == "" || bestRemaining < recipientCount {
		return "", appErrors.NewCapacity(best, recipientCount, bestRemaining)
	}
	return best, nil
}

func (p *Planner) renderSend(ctx context.Context, campaign *model.Campaign, rcpt recipient) (*model.EmailSend, error) {
	tpl, err := p.Templates.Lookup(campaign.TemplateKind, rcpt.customer.Locale)
	if err != nil {
		return nil, err
	}
	if tpl.MaxInvoiceLines > 0 && rcpt.reminder.InvoiceCount() > tpl.MaxInvoiceLines {
		return nil, appErrors.NewValidation("reminder %s has %d invoices but template %s supports %d lines",
			rcpt.reminder.ID, rcpt.reminder.InvoiceCount(), tpl.Kind, tpl.MaxInvoiceLines)
	}
	if rcpt.reminder.Currency == "" && !tpl.MultiCurrency {
		return nil, appErrors.NewValidation("reminder %s mixes currencies but template %s is single-currency",
			rcpt.reminder.ID, tpl.Kind)
	}

	subject, body, err := p.Renderer.Render(tpl, p.mergeData(rcpt))
	if err != nil {
		return nil, err
	}

	send := &model.EmailSend{
		ID:             uuid.NewString(),
		CampaignID:     campaign.ID,
		ReminderID:     rcpt.reminder.ID,
		RecipientEmail: rcpt.customer.Email,
		RecipientName:  rcpt.customer.Name,
		Subject:        subject,
		Body:           body,
		InvoiceIDs:     rcpt.reminder.InvoiceIDs,
	}
	// Invoice documents are not rendered here: the executor generates and
	// attaches them at send time from the invoice ids on the send row.
	return send, nil
}

// mergeData builds the template data. Invoice display order is the
// reminder's stored order: oldest due date first.
func (p *Planner) mergeData(rcpt recipient) map[string]interface{} {
	now := time.Now()
	byID := map[string]model.Invoice{}
	for _, inv := range rcpt.invoices {
		byID[inv.ID] = inv
	}

	lines := make([]map[string]interface{}, 0, len(rcpt.reminder.InvoiceIDs))
	for _, id := range rcpt.reminder.InvoiceIDs {
		inv, ok := byID[id]
		if !ok {
			continue
		}
		lines = append(lines, map[string]interface{}{
			"id":           inv.ID,
			"amount_cents": inv.CollectibleCents(),
			"currency":     inv.Currency,
			"due_date":     inv.DueDate.Format("2006-01-02"),
			"days_overdue": inv.AgeDays(now),
		})
	}

	data := map[string]interface{}{
		"customer_name": rcpt.customer.Name,
		"invoice_count": rcpt.reminder.InvoiceCount(),
		"tier":          rcpt.reminder.Tier,
		"invoices":      lines,
		"currency":      rcpt.reminder.Currency,
		"total_cents":   rcpt.reminder.TotalCents(),
		"totals":        rcpt.reminder.Totals,
	}
	return data
}
