// internal/service/planner_test.go
package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/duenorth/reminder-backend/internal/config"
	appErrors "github.com/duenorth/reminder-backend/internal/errors"
	"github.com/duenorth/reminder-backend/internal/model"
	"github.com/duenorth/reminder-backend/internal/provider"
	"github.com/duenorth/reminder-backend/internal/quota"
	"github.com/duenorth/reminder-backend/internal/template"
)

type plannerFixture struct {
	planner   *Planner
	campaigns *mockCampaignRepo
	reminders *mockReminderRepo
	suppress  *mockSuppressionRepo
	audit     *mockAuditRepo
	quotas    *quota.MemoryStore
}

func newPlannerFixture(t *testing.T, limits map[string]int) *plannerFixture {
	t.Helper()
	campaigns := newMockCampaignRepo()
	reminders := newMockReminderRepo()
	suppress := newMockSuppressionRepo()
	audit := &mockAuditRepo{}

	customers := &mockCustomerRepo{customers: map[string]*model.Customer{
		"alice": {ID: "alice", CompanyID: "co-1", Name: "Alice GmbH", Email: "ap@alice.example", Locale: "en"},
		"bob":   {ID: "bob", CompanyID: "co-1", Name: "Bob Ltd", Email: "billing@bob.example", Locale: "de"},
	}}
	invoices := &mockInvoiceRepo{invoices: map[string]model.Invoice{
		"i1": {ID: "i1", CustomerID: "alice", AmountCents: 100050, Currency: "EUR",
			DueDate: daysAgo(tuesdayMorning, 20), Status: model.InvoiceOverdue},
		"i2": {ID: "i2", CustomerID: "alice", AmountCents: 50000, Currency: "EUR",
			DueDate: daysAgo(tuesdayMorning, 10), Status: model.InvoiceOverdue},
		"i3": {ID: "i3", CustomerID: "bob", AmountCents: 7500, Currency: "EUR",
			DueDate: daysAgo(tuesdayMorning, 5), Status: model.InvoiceOverdue},
	}}

	seedReminder(t, reminders, "rem-alice", "alice", []string{"i1", "i2"}, 150050)
	seedReminder(t, reminders, "rem-bob", "bob", []string{"i3"}, 7500)

	if limits == nil {
		limits = map[string]int{"primary": 2000, "backup": 500}
	}
	quotas := quota.NewMemoryStore(limits)

	registry := provider.NewRegistry(
		newScriptedProvider("primary"),
		newScriptedProvider("backup"),
	)

	return &plannerFixture{
		planner: &Planner{
			Policy:      config.DefaultPolicy(),
			Campaigns:   campaigns,
			Reminders:   reminders,
			Customers:   customers,
			Invoices:    invoices,
			Suppression: suppress,
			Templates:   template.NewStaticStore(template.DefaultReminderTemplates()...),
			Renderer:    template.NewRenderer(),
			Providers:   registry,
			Quotas:      quotas,
			Auditor:     &Auditor{Repo: audit},
		},
		campaigns: campaigns,
		reminders: reminders,
		suppress:  suppress,
		audit:     audit,
		quotas:    quotas,
	}
}

func seedReminder(t *testing.T, repo *mockReminderRepo, id, customerID string, invoiceIDs []string, totalCents int64) {
	t.Helper()
	err := repo.Create(&model.ConsolidatedReminder{
		ID:            id,
		CompanyID:     "co-1",
		CustomerID:    customerID,
		InvoiceIDs:    invoiceIDs,
		Currency:      "EUR",
		Totals:        map[string]int64{"EUR": totalCents},
		Tier:          model.TierGentle,
		OldestDueDate: daysAgo(tuesdayMorning, 20),
		SendAt:        tuesdayMorning,
		Status:        model.ReminderProposed,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestPlanCreatesCampaignWithRenderedSends(t *testing.T) {
	f := newPlannerFixture(t, nil)

	c, err := f.planner.Plan(context.Background(), PlanRequest{
		CompanyID:   "co-1",
		Name:        "March reminders",
		ReminderIDs: []string{"rem-alice", "rem-bob"},
		Actor:       "ops@duenorth.example",
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != model.CampaignQueued {
		t.Errorf("expected queued campaign, got %s", c.Status)
	}
	if c.RecipientCount != 2 {
		t.Errorf("expected 2 recipients, got %d", c.RecipientCount)
	}

	sends, _ := f.campaigns.ListSends(c.ID)
	if len(sends) != 2 {
		t.Fatalf("expected 2 send rows, got %d", len(sends))
	}
	var alice *model.EmailSend
	for _, s := range sends {
		if s.RecipientEmail == "ap@alice.example" {
			alice = s
		}
	}
	if alice == nil {
		t.Fatal("no send for alice")
	}
	if !strings.Contains(alice.Subject, "2 open invoices") || !strings.Contains(alice.Subject, "1500.50 EUR") {
		t.Errorf("unexpected subject %q", alice.Subject)
	}
	if !strings.Contains(alice.Body, "Invoice i1") {
		t.Errorf("body should list invoice lines, got %q", alice.Body)
	}

	// The accepted proposals move to scheduled.
	for _, id := range []string{"rem-alice", "rem-bob"} {
		r, _ := f.reminders.GetByID(id)
		if r.Status != model.ReminderScheduled {
			t.Errorf("reminder %s: expected scheduled, got %s", id, r.Status)
		}
	}
}

func TestPlanRejectsEmptyAndUnknownReminders(t *testing.T) {
	f := newPlannerFixture(t, nil)

	if _, err := f.planner.Plan(context.Background(), PlanRequest{CompanyID: "co-1"}); !appErrors.IsValidation(err) {
		t.Errorf("empty reminder list: expected validation error, got %v", err)
	}

	_, err := f.planner.Plan(context.Background(), PlanRequest{
		CompanyID:   "co-1",
		ReminderIDs: []string{"rem-alice", "no-such"},
	})
	if !appErrors.IsValidation(err) {
		t.Errorf("unknown reminder: expected validation error, got %v", err)
	}
}

func TestPlanRejectsCapacityBeforeCreatingRows(t *testing.T) {
	f := newPlannerFixture(t, map[string]int{"primary": 1, "backup": 1})

	_, err := f.planner.Plan(context.Background(), PlanRequest{
		CompanyID:   "co-1",
		ReminderIDs: []string{"rem-alice", "rem-bob"},
	})
	if !appErrors.IsCapacity(err) {
		t.Fatalf("expected capacity error, got %v", err)
	}

	if n := len(f.campaigns.campaigns); n != 0 {
		t.Errorf("capacity rejection must not create campaigns, found %d", n)
	}
	if n := len(f.campaigns.sends); n != 0 {
		t.Errorf("capacity rejection must not create send rows, found %d", n)
	}
}

func TestPlanProviderOverrideChecksItsQuota(t *testing.T) {
	f := newPlannerFixture(t, map[string]int{"primary": 2000, "backup": 1})

	_, err := f.planner.Plan(context.Background(), PlanRequest{
		CompanyID:        "co-1",
		ReminderIDs:      []string{"rem-alice", "rem-bob"},
		ProviderOverride: "backup",
	})
	if !appErrors.IsCapacity(err) {
		t.Fatalf("override with insufficient quota should be a capacity error, got %v", err)
	}

	c, err := f.planner.Plan(context.Background(), PlanRequest{
		CompanyID:        "co-1",
		ReminderIDs:      []string{"rem-alice", "rem-bob"},
		ProviderOverride: "primary",
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.Provider != "primary" {
		t.Errorf("expected override provider, got %s", c.Provider)
	}
}

func TestPlanSkipsSuppressedRecipients(t *testing.T) {
	f := newPlannerFixture(t, nil)
	if err := f.suppress.Suppress("billing@bob.example", "hard bounce"); err != nil {
		t.Fatal(err)
	}

	c, err := f.planner.Plan(context.Background(), PlanRequest{
		CompanyID:   "co-1",
		ReminderIDs: []string{"rem-alice", "rem-bob"},
		Actor:       "ops",
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.RecipientCount != 1 {
		t.Fatalf("suppressed recipient should be excluded, got %d recipients", c.RecipientCount)
	}

	bob, _ := f.reminders.GetByID("rem-bob")
	if bob.Status != model.ReminderSkipped {
		t.Errorf("suppressed recipient's reminder should be skipped, got %s", bob.Status)
	}

	events, _ := f.audit.ListBySubject("reminder", "rem-bob")
	if len(events) != 1 || events[0].Action != model.AuditRecipientSuppressed {
		t.Errorf("expected a suppression audit event, got %v", f.audit.actions())
	}
}

func TestPlanScheduledAtIsKept(t *testing.T) {
	f := newPlannerFixture(t, nil)
	later := tuesdayMorning.Add(2 * time.Hour)

	c, err := f.planner.Plan(context.Background(), PlanRequest{
		CompanyID:   "co-1",
		ReminderIDs: []string{"rem-alice"},
		ScheduledAt: &later,
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.ScheduledAt == nil || !c.ScheduledAt.Equal(later) {
		t.Errorf("expected scheduled_at %v, got %v", later, c.ScheduledAt)
	}
}
