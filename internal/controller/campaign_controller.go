// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/duenorth/reminder-backend/internal/errors"
	"github.com/duenorth/reminder-backend/internal/model"
	"github.com/duenorth/reminder-backend/internal/queue"
	"github.com/duenorth/reminder-backend/internal/repository"
	"github.com/duenorth/reminder-backend/internal/service"
)

// CampaignController owns the mutating campaign endpoints: proposing
// reminders, planning campaigns, and driving the run lifecycle.
type CampaignController struct {
	Grouper   *service.Grouper
	Scorer    service.Scorer
	Planner   *service.Planner
	Campaigns repository.CampaignRepositoryInterface
	Invoices  repository.InvoiceRepositoryInterface
	Queue     queue.Queue
	Auditor   *service.Auditor
}

// ProposeReminders runs the consolidation pass over a company's overdue
// invoices and returns scored proposals, highest priority first.
func (c *CampaignController) ProposeReminders(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CompanyID        string                  `json:"company_id"`
		OverrideInterval bool                    `json:"override_interval"`
		External         service.ExternalFactors `json:"external_factors"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.CompanyID == "" {
		http.Error(w, "company_id is required", http.StatusBadRequest)
		return
	}

	invoices, err := c.Invoices.ListOverdueByCompany(body.CompanyID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	run, err := c.Grouper.Propose(body.CompanyID, invoices, body.OverrideInterval, time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	c.Scorer.Score(run.Proposals, body.External, time.Now())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// CreateCampaign turns accepted proposals into a campaign plan. Validation
// problems are the caller's fault; capacity problems are a conflict with
// today's quota and come back 409 before any send row exists.
func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req service.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.Planner.Plan(r.Context(), req)
	if err != nil {
		switch {
		case appErrors.IsValidation(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case appErrors.IsCapacity(err):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	log.Println("🚀 Campaign planned:", campaign.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(campaign)
}

// RunCampaign enqueues a campaign for the delivery worker.
func (c *CampaignController) RunCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	campaign, err := c.Campaigns.GetByID(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if !campaign.Runnable() {
		http.Error(w, "campaign cannot run in status: "+campaign.Status, http.StatusConflict)
		return
	}

	if err := c.Queue.Publish(queue.TopicCampaignRuns, queue.CampaignRunJob{CampaignID: id}); err != nil {
		http.Error(w, "failed to enqueue campaign run", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": id,
		"status":      campaign.Status,
		"queued":      true,
	})
}

// PauseCampaign requests a cooperative pause: the current batch drains and
// no further batch starts. The request is written to the campaign row, so the
// worker process holding the run picks it up at the next batch boundary.
func (c *CampaignController) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	campaign, err := c.Campaigns.GetByID(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if campaign.Terminal() {
		http.Error(w, "campaign already finished", http.StatusConflict)
		return
	}

	if err := c.Campaigns.UpdateStatus(id, model.CampaignPauseRequested); err != nil {
		http.Error(w, "failed to request pause", http.StatusInternalServerError)
		return
	}
	actor := r.Header.Get("X-Actor")
	c.Auditor.Record(campaign.CompanyID, actor, model.AuditCampaignPaused, "campaign", id, "pause requested")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": id,
		"pausing":     true,
	})
}

// ResumeCampaign re-enqueues a paused run. Already delivered sends are
// skipped by the executor, never re-issued.
func (c *CampaignController) ResumeCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	campaign, err := c.Campaigns.GetByID(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if campaign.Status != model.CampaignPaused {
		http.Error(w, "only paused campaigns can resume, status is "+campaign.Status, http.StatusConflict)
		return
	}

	if err := c.Queue.Publish(queue.TopicCampaignRuns, queue.CampaignRunJob{CampaignID: id}); err != nil {
		http.Error(w, "failed to enqueue campaign run", http.StatusInternalServerError)
		return
	}

	actor := r.Header.Get("X-Actor")
	c.Auditor.Record(campaign.CompanyID, actor, model.AuditCampaignResumed, "campaign", id, "resume requested")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": id,
		"resumed":     true,
	})
}
