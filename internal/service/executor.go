// internal/service/executor.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/duenorth/reminder-backend/internal/config"
	"github.com/duenorth/reminder-backend/internal/model"
	"github.com/duenorth/reminder-backend/internal/provider"
	"github.com/duenorth/reminder-backend/internal/queue"
	"github.com/duenorth/reminder-backend/internal/quota"
	"github.com/duenorth/reminder-backend/internal/repository"
)

// DocumentGenerator renders an attachable document for one invoice. The
// format is opaque to this service.
type DocumentGenerator interface {
	Generate(ctx context.Context, invoiceID string) (provider.Attachment, error)
}

// Executor sends a campaign's queued emails in fixed-size batches with an
// inter-batch delay. Within a batch sends go out concurrently; each outcome
// is applied as it resolves so progress is visible mid-batch. Failures are
// isolated per send: a campaign is only `failed` if literally every send
// failed.
//
// Pause requests arrive through the campaign row (pause_requested status),
// not process memory: the API server writes the flag and any worker holding
// the run sees it at the next batch boundary.
type Executor struct {
	Policy      config.Policy
	Campaigns   repository.CampaignRepositoryInterface
	Suppression repository.SuppressionRepositoryInterface
	Providers   *provider.Registry
	Quotas      quota.Store
	Retry       *RetryManager
	Eligibility *EligibilityFilter
	Documents   DocumentGenerator // optional
	Auditor     *Auditor

	// Sleep and Now are injectable for tests; nil means real time.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// job is one pending delivery in the bounded work queue. Retries loop back
// here with the attempt counter carried on the send row.
type job struct {
	send           *model.EmailSend
	provider       string
	delay          time.Duration
	credsRefreshed bool
}

type sendOutcome struct {
	retry      *job
	reschedule bool
}

// RunJobHandler decodes campaign run jobs from the queue and executes them.
// Malformed jobs are dropped, not requeued.
func RunJobHandler(e *Executor) func(body []byte) error {
	return func(body []byte) error {
		var jb queue.CampaignRunJob
		if err := json.Unmarshal(body, &jb); err != nil {
			log.Println("invalid campaign run job:", err)
			return nil
		}
		log.Println("📥 Running campaign:", jb.CampaignID)
		return e.Run(context.Background(), jb.CampaignID)
	}
}

// Run executes one campaign to completion, pause, or deferral. Safe to call
// again after a pause or a worker restart: terminal sends are never re-issued.
func (e *Executor) Run(ctx context.Context, campaignID string) error {
	c, err := e.Campaigns.GetByID(campaignID)
	if err != nil {
		return err
	}
	if c.Status == model.CampaignPauseRequested {
		// Paused before the first batch went out.
		return e.acknowledgePause(c, c.RecipientCount-c.SentCount-c.FailedCount)
	}
	if !c.Runnable() {
		return fmt.Errorf("campaign cannot run in status: %s", c.Status)
	}

	if c.ScheduledAt != nil {
		if wait := c.ScheduledAt.Sub(e.now()); wait > 0 {
			if err := e.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	action := model.AuditCampaignStarted
	if c.Status == model.CampaignPaused {
		action = model.AuditCampaignResumed
	}
	if err := e.Campaigns.UpdateStatus(campaignID, model.CampaignSending); err != nil {
		return err
	}
	e.Auditor.Record(c.CompanyID, "worker", action, "campaign", campaignID, "")

	pending, err := e.Campaigns.ListPendingSends(campaignID)
	if err != nil {
		return err
	}

	jobs := make([]job, 0, len(pending))
	for _, s := range pending {
		jobs = append(jobs, job{send: s, provider: c.Provider})
	}

	for len(jobs) > 0 {
		if e.pauseRequested(campaignID) {
			return e.acknowledgePause(c, len(jobs))
		}

		size := e.Policy.BatchSize
		if size <= 0 {
			size = 1
		}
		if size > len(jobs) {
			size = len(jobs)
		}
		batch := jobs[:size]
		jobs = jobs[size:]

		var wg sync.WaitGroup
		var outMu sync.Mutex
		retries := []job{}
		reschedule := false

		for _, jb := range batch {
			wg.Add(1)
			go func(jb job) {
				defer wg.Done()
				out := e.deliver(ctx, c, jb)
				outMu.Lock()
				defer outMu.Unlock()
				if out.retry != nil {
					retries = append(retries, *out.retry)
				}
				if out.reschedule {
					reschedule = true
				}
			}(jb)
		}
		wg.Wait()

		jobs = append(jobs, retries...)

		if reschedule {
			// Quota exhausted with no fallback: defer the remaining sends
			// until the day-keyed counter resets, then wait for the next
			// allowed send window. The campaign is never failed over quota.
			wake := e.now().Add(time.Hour)
			if snap, err := e.Quotas.Snapshot(ctx, c.Provider); err == nil {
				wake = snap.ResetsAt
			}
			next := e.Eligibility.NextAllowedWindow(wake)
			e.Auditor.Record(c.CompanyID, "worker", model.AuditCampaignPaused, "campaign", campaignID,
				fmt.Sprintf("provider quota exhausted, deferred until %s", next.Format(time.RFC3339)))
			if err := e.sleep(ctx, next.Sub(e.now())); err != nil {
				return err
			}
		}

		if len(jobs) > 0 {
			if err := e.sleep(ctx, e.Policy.BatchDelay); err != nil {
				return err
			}
		}
	}

	return e.finalize(c)
}

// pauseRequested consults the shared campaign row, so a pause issued by the
// API process reaches a worker holding the run.
func (e *Executor) pauseRequested(campaignID string) bool {
	c, err := e.Campaigns.GetByID(campaignID)
	if err != nil {
		log.Println("⚠️ failed to check pause flag:", err)
		return false
	}
	return c.Status == model.CampaignPauseRequested
}

func (e *Executor) acknowledgePause(c *model.Campaign, remaining int) error {
	if err := e.Campaigns.UpdateStatus(c.ID, model.CampaignPaused); err != nil {
		return err
	}
	e.Auditor.Record(c.CompanyID, "worker", model.AuditCampaignPaused, "campaign", c.ID,
		fmt.Sprintf("%d sends remaining", remaining))
	return nil
}

// finalize derives the terminal campaign status from the authoritative
// per-send stats.
func (e *Executor) finalize(c *model.Campaign) error {
	stats, err := e.Campaigns.GetCampaignStats(c.ID)
	if err != nil {
		return err
	}
	sent := stats[model.SendSent] + stats[model.SendDelivered]
	failed := stats[model.SendFailed] + stats[model.SendBounced]

	status := model.CampaignCompletedWithErrors
	switch {
	case failed == 0:
		status = model.CampaignCompleted
	case sent == 0:
		status = model.CampaignFailed
	}
	if err := e.Campaigns.UpdateStatus(c.ID, status); err != nil {
		return err
	}
	e.Auditor.Record(c.CompanyID, "worker", model.AuditCampaignCompleted, "campaign", c.ID,
		fmt.Sprintf("%s: sent=%d failed=%d", status, sent, failed))
	log.Printf("✅ Campaign %s finished: %s (sent=%d failed=%d)\n", c.ID, status, sent, failed)
	return nil
}

// deliver issues one send and applies its outcome immediately. Every exit
// path leaves the send row with a status and a human-readable reason.
func (e *Executor) deliver(ctx context.Context, c *model.Campaign, jb job) sendOutcome {
	send := jb.send
	if send.Terminal() {
		return sendOutcome{}
	}

	if jb.delay > 0 {
		if err := e.sleep(ctx, jb.delay); err != nil {
			return sendOutcome{}
		}
	}

	prov, ok := e.Providers.Get(jb.provider)
	if !ok {
		if fb := e.fallback(ctx, jb.provider); fb != "" {
			jb.provider = fb
			return sendOutcome{retry: &jb}
		}
		e.failSend(c, send, FailureAuth, "no usable delivery provider")
		return sendOutcome{}
	}

	admitted, err := e.Quotas.Reserve(ctx, jb.provider, 1)
	if err != nil {
		log.Println("⚠️ quota reserve failed:", err)
		return e.handleFailure(ctx, c, jb, prov, provider.NewError(jb.provider, provider.CodeTransient, "quota store: %v", err))
	}
	if !admitted {
		return e.handleFailure(ctx, c, jb, prov, provider.NewError(jb.provider, provider.CodeQuotaExceeded, "daily quota exhausted"))
	}

	send.Status = model.SendSending
	send.AttemptCount++
	if err := e.Campaigns.UpdateSend(send); err != nil {
		log.Println("⚠️ failed to mark send as sending:", err)
	}

	msg := &provider.Message{
		To:      send.RecipientEmail,
		ToName:  send.RecipientName,
		Subject: send.Subject,
		Body:    send.Body,
	}
	// Documents are rendered at send time so a retried or resumed send
	// always ships the current invoice state.
	if e.Documents != nil {
		for _, invoiceID := range send.InvoiceIDs {
			att, genErr := e.Documents.Generate(ctx, invoiceID)
			if genErr != nil {
				if err := e.Quotas.Release(ctx, jb.provider, 1); err != nil {
					log.Println("⚠️ quota release failed:", err)
				}
				return e.handleFailure(ctx, c, jb, prov,
					provider.NewError(jb.provider, provider.CodeTransient, "document for invoice %s: %v", invoiceID, genErr))
			}
			msg.Attachments = append(msg.Attachments, att)
		}
	}

	sctx, cancel := context.WithTimeout(ctx, e.Policy.SendTimeout)
	msgID, sendErr := prov.Send(sctx, msg)
	cancel()

	if sendErr == nil {
		now := e.now()
		send.Status = model.SendSent
		send.SentAt = &now
		send.ProviderMsgID = msgID
		send.LastError = ""
		send.LastErrorClass = ""
		if err := e.Campaigns.UpdateSend(send); err != nil {
			log.Println("⚠️ failed to mark send as sent:", err)
		}
		if err := e.Campaigns.IncrementCounters(c.ID, 1, 0); err != nil {
			log.Println("⚠️ failed to bump campaign counters:", err)
		}
		e.Auditor.Record(c.CompanyID, "worker", model.AuditSendSucceeded, "email_send", send.ID, "")
		return sendOutcome{}
	}

	// The reservation was not consumed; give it back before classifying.
	if err := e.Quotas.Release(ctx, jb.provider, 1); err != nil {
		log.Println("⚠️ quota release failed:", err)
	}
	return e.handleFailure(ctx, c, jb, prov, sendErr)
}

// handleFailure classifies the error and executes the retry decision.
func (e *Executor) handleFailure(ctx context.Context, c *model.Campaign, jb job, prov provider.Provider, sendErr error) sendOutcome {
	send := jb.send
	class := ClassifyError(sendErr)
	send.LastError = sendErr.Error()
	send.LastErrorClass = class

	fallback := e.fallback(ctx, jb.provider)
	decision := e.Retry.Decide(class, send.AttemptCount, jb.credsRefreshed, fallback != "")

	if decision.RefreshCreds {
		if err := prov.RefreshCredentials(ctx); err != nil {
			log.Printf("⚠️ credential refresh for %s failed: %v\n", jb.provider, err)
			decision = e.Retry.Decide(class, send.AttemptCount, true, fallback != "")
		} else {
			jb.credsRefreshed = true
			send.Status = model.SendQueued
			if err := e.Campaigns.UpdateSend(send); err != nil {
				log.Println("⚠️ failed to requeue send:", err)
			}
			return sendOutcome{retry: &jb}
		}
	}

	if decision.Escalate {
		e.Providers.MarkUnusable(jb.provider)
		e.Auditor.Record(c.CompanyID, "worker", model.AuditProviderUnusable, "provider", jb.provider, send.LastError)
		log.Printf("🚨 provider %s marked unusable: %v\n", jb.provider, sendErr)
	}

	switch {
	case decision.Suppress:
		if err := e.Suppression.Suppress(send.RecipientEmail, send.LastError); err != nil {
			log.Println("⚠️ failed to suppress recipient:", err)
		}
		now := e.now()
		send.Status = model.SendBounced
		send.FailedAt = &now
		if err := e.Campaigns.UpdateSend(send); err != nil {
			log.Println("⚠️ failed to mark send bounced:", err)
		}
		if err := e.Campaigns.IncrementCounters(c.ID, 0, 1); err != nil {
			log.Println("⚠️ failed to bump campaign counters:", err)
		}
		e.Auditor.Record(c.CompanyID, "worker", model.AuditSendSuppressed, "email_send", send.ID, send.LastError)
		return sendOutcome{}

	case decision.Reschedule:
		send.Status = model.SendQueued
		if err := e.Campaigns.UpdateSend(send); err != nil {
			log.Println("⚠️ failed to requeue send:", err)
		}
		return sendOutcome{retry: &jb, reschedule: true}

	case decision.Retry:
		send.Status = model.SendQueued
		if err := e.Campaigns.UpdateSend(send); err != nil {
			log.Println("⚠️ failed to requeue send:", err)
		}
		next := jb
		next.delay = decision.Delay
		if decision.Failover && fallback != "" {
			next.provider = fallback
			next.delay = 0
		}
		return sendOutcome{retry: &next}

	default:
		e.failSend(c, send, class, send.LastError)
		return sendOutcome{}
	}
}

// failSend marks a send terminally failed with its reason. No recipient is
// ever dropped without a terminal status and a human-readable reason.
func (e *Executor) failSend(c *model.Campaign, send *model.EmailSend, class, reason string) {
	now := e.now()
	send.Status = model.SendFailed
	send.FailedAt = &now
	send.LastError = reason
	send.LastErrorClass = class
	if err := e.Campaigns.UpdateSend(send); err != nil {
		log.Println("⚠️ failed to mark send failed:", err)
	}
	if err := e.Campaigns.IncrementCounters(c.ID, 0, 1); err != nil {
		log.Println("⚠️ failed to bump campaign counters:", err)
	}
	e.Auditor.Record(c.CompanyID, "worker", model.AuditSendFailed, "email_send", send.ID, reason)
}

// fallback returns a usable provider other than exclude that still has
// quota available today.
func (e *Executor) fallback(ctx context.Context, exclude string) string {
	for _, name := range e.Providers.UsableNames() {
		if name == exclude {
			continue
		}
		remaining, err := e.Quotas.Remaining(ctx, name)
		if err != nil || remaining <= 0 {
			continue
		}
		return name
	}
	return ""
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
