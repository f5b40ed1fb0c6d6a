// internal/service/mocks_test.go
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	appErrors "github.com/duenorth/reminder-backend/internal/errors"
	"github.com/duenorth/reminder-backend/internal/model"
	"github.com/duenorth/reminder-backend/internal/provider"
)

// ---- reminder repository ----

type mockReminderRepo struct {
	mu          sync.Mutex
	reminders   map[string]*model.ConsolidatedReminder
	openKeys    map[string]bool // customer + invoice set, like the partial unique index
	lastContact map[string]*time.Time
	sentCount   int
	covered     int
	createErr   error
}

func newMockReminderRepo() *mockReminderRepo {
	return &mockReminderRepo{
		reminders:   map[string]*model.ConsolidatedReminder{},
		openKeys:    map[string]bool{},
		lastContact: map[string]*time.Time{},
	}
}

func openKey(r *model.ConsolidatedReminder) string {
	return r.CustomerID + "|" + strings.Join(r.InvoiceIDs, ",")
}

func (m *mockReminderRepo) Create(r *model.ConsolidatedReminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.openKeys[openKey(r)] {
		return appErrors.NewDuplicateReminder(r.CustomerID)
	}
	m.reminders[r.ID] = r
	m.openKeys[openKey(r)] = true
	return nil
}

func (m *mockReminderRepo) GetByID(id string) (*model.ConsolidatedReminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok {
		return nil, appErrors.NewReminderNotFound(id)
	}
	return r, nil
}

func (m *mockReminderRepo) GetByIDs(ids []string) ([]*model.ConsolidatedReminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.ConsolidatedReminder{}
	for _, id := range ids {
		if r, ok := m.reminders[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockReminderRepo) ListByCompany(companyID, status string) ([]*model.ConsolidatedReminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.ConsolidatedReminder{}
	for _, r := range m.reminders {
		if r.CompanyID == companyID && (status == "" || r.Status == status) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockReminderRepo) HasOpenForCustomer(customerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reminders {
		if r.CustomerID == customerID && r.Open() {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReminderRepo) UpdateStatus(id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok {
		return appErrors.NewReminderNotFound(id)
	}
	r.Status = status
	if status != model.ReminderProposed && status != model.ReminderScheduled {
		delete(m.openKeys, openKey(r))
	}
	return nil
}

func (m *mockReminderRepo) LastContactAt(customerID string) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastContact[customerID], nil
}

func (m *mockReminderRepo) CountSentSince(companyID string, since time.Time) (int, int, error) {
	return m.sentCount, m.covered, nil
}

// ---- campaign repository ----

type mockCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[string]*model.Campaign
	sends     map[string]*model.EmailSend
	sendOrder []string
	statusLog []string
	planErr   error
}

func newMockCampaignRepo() *mockCampaignRepo {
	return &mockCampaignRepo{
		campaigns: map[string]*model.Campaign{},
		sends:     map[string]*model.EmailSend{},
	}
}

func (m *mockCampaignRepo) CreatePlan(c *model.Campaign, sends []*model.EmailSend) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.planErr != nil {
		return m.planErr
	}
	m.campaigns[c.ID] = c
	for _, s := range sends {
		s.CampaignID = c.ID
		s.Status = model.SendQueued
		m.sends[s.ID] = s
		m.sendOrder = append(m.sendOrder, s.ID)
	}
	return nil
}

func (m *mockCampaignRepo) GetByID(id string) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (m *mockCampaignRepo) ListCampaigns(offset, limit int, companyID, status string) ([]*model.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range m.campaigns {
		if (companyID == "" || c.CompanyID == companyID) && (status == "" || c.Status == status) {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (m *mockCampaignRepo) UpdateStatus(campaignID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	c.Status = status
	if status == model.CampaignSending && c.StartedAt == nil {
		now := time.Now()
		c.StartedAt = &now
	}
	m.statusLog = append(m.statusLog, status)
	return nil
}

func (m *mockCampaignRepo) IncrementCounters(campaignID string, sent, failed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	c.SentCount += sent
	c.FailedCount += failed
	return nil
}

func (m *mockCampaignRepo) GetSendByID(id string) (*model.EmailSend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sends[id]
	if !ok {
		return nil, fmt.Errorf("send %s not found", id)
	}
	return s, nil
}

func (m *mockCampaignRepo) ListSends(campaignID string) ([]*model.EmailSend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.EmailSend{}
	for _, id := range m.sendOrder {
		if m.sends[id].CampaignID == campaignID {
			out = append(out, m.sends[id])
		}
	}
	return out, nil
}

func (m *mockCampaignRepo) ListPendingSends(campaignID string) ([]*model.EmailSend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.EmailSend{}
	for _, id := range m.sendOrder {
		s := m.sends[id]
		if s.CampaignID == campaignID && !s.Terminal() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockCampaignRepo) UpdateSend(s *model.EmailSend) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends[s.ID] = s
	return nil
}

func (m *mockCampaignRepo) GetCampaignStats(campaignID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := map[string]int{}
	for _, s := range m.sends {
		if s.CampaignID == campaignID {
			stats[s.Status]++
		}
	}
	return stats, nil
}

// ---- customer / invoice / suppression / audit ----

type mockCustomerRepo struct {
	customers map[string]*model.Customer
}

func (m *mockCustomerRepo) GetByID(id string) (*model.Customer, error) {
	return m.customers[id], nil
}

func (m *mockCustomerRepo) GetByIDs(ids []string) (map[string]*model.Customer, error) {
	out := map[string]*model.Customer{}
	for _, id := range ids {
		if c, ok := m.customers[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

type mockInvoiceRepo struct {
	invoices map[string]model.Invoice
}

func (m *mockInvoiceRepo) ListOverdueByCompany(companyID string) ([]model.Invoice, error) {
	out := []model.Invoice{}
	for _, inv := range m.invoices {
		if inv.CompanyID == companyID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *mockInvoiceRepo) GetByIDs(ids []string) ([]model.Invoice, error) {
	out := []model.Invoice{}
	for _, id := range ids {
		if inv, ok := m.invoices[id]; ok {
			out = append(out, inv)
		}
	}
	return out, nil
}

type mockSuppressionRepo struct {
	mu         sync.Mutex
	suppressed map[string]string
}

func newMockSuppressionRepo() *mockSuppressionRepo {
	return &mockSuppressionRepo{suppressed: map[string]string{}}
}

func (m *mockSuppressionRepo) IsSuppressed(email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.suppressed[email]
	return ok, nil
}

func (m *mockSuppressionRepo) Suppress(email, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppressed[email] = reason
	return nil
}

func (m *mockSuppressionRepo) FilterSuppressed(emails []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for _, e := range emails {
		if _, ok := m.suppressed[e]; ok {
			out[e] = true
		}
	}
	return out, nil
}

type mockAuditRepo struct {
	mu     sync.Mutex
	events []*model.AuditEvent
}

func (m *mockAuditRepo) Record(e *model.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *mockAuditRepo) ListBySubject(subjectType, subjectID string) ([]*model.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.AuditEvent{}
	for _, e := range m.events {
		if e.SubjectType == subjectType && e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockAuditRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Action
	}
	return out
}

// ---- scripted provider ----

// scriptedProvider returns the scripted error for each recipient in turn; a
// nil entry means success. Once a recipient's script is exhausted the
// provider succeeds.
type scriptedProvider struct {
	mu          sync.Mutex
	label       string
	scripts     map[string][]error
	sent        []string
	attachments map[string][]string // recipient -> filenames of the last delivery
	refreshed   int
	refreshErr  error
}

func newScriptedProvider(label string) *scriptedProvider {
	return &scriptedProvider{
		label:       label,
		scripts:     map[string][]error{},
		attachments: map[string][]string{},
	}
}

func (p *scriptedProvider) fail(recipient string, errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts[recipient] = append(p.scripts[recipient], errs...)
}

func (p *scriptedProvider) Name() string { return p.label }

func (p *scriptedProvider) Send(ctx context.Context, msg *provider.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if script := p.scripts[msg.To]; len(script) > 0 {
		next := script[0]
		p.scripts[msg.To] = script[1:]
		if next != nil {
			return "", next
		}
	}
	p.sent = append(p.sent, msg.To)
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	p.attachments[msg.To] = names
	return fmt.Sprintf("%s-msg-%d", p.label, len(p.sent)), nil
}

func (p *scriptedProvider) RemainingQuota(ctx context.Context) (int, error) {
	return 1 << 20, nil
}

func (p *scriptedProvider) RefreshCredentials(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshed++
	return p.refreshErr
}

func (p *scriptedProvider) sentTo() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.sent...)
}

func (p *scriptedProvider) attachedTo(recipient string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.attachments[recipient]...)
}

var _ provider.Provider = (*scriptedProvider)(nil)

// ---- helpers ----

func daysAgo(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}
