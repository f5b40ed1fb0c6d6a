// internal/handler/campaign_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/duenorth/reminder-backend/internal/errors"
	"github.com/duenorth/reminder-backend/internal/provider"
	"github.com/duenorth/reminder-backend/internal/quota"
	"github.com/duenorth/reminder-backend/internal/repository"
	"github.com/duenorth/reminder-backend/internal/service"
)

// CampaignHandler holds the dependencies for the read-only campaign endpoints.
type CampaignHandler struct {
	Campaigns repository.CampaignRepositoryInterface
	Reminders repository.ReminderRepositoryInterface
	Audit     repository.AuditRepositoryInterface
	Progress  *service.ProgressTracker
	Analytics *service.Analytics
	Quotas    quota.Store
	Providers *provider.Registry
}

// GetCampaignHandler returns one campaign with its per-status send stats and,
// for a running campaign, live progress and ETA.
func (h *CampaignHandler) GetCampaignHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	campaign, err := h.Campaigns.GetByID(id)
	if err != nil {
		status := http.StatusInternalServerError
		var notFound *appErrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			status = http.StatusNotFound
		}
		http.Error(w, "failed to fetch campaign: "+err.Error(), status)
		return
	}

	stats, err := h.Campaigns.GetCampaignStats(id)
	if err != nil {
		http.Error(w, "failed to fetch campaign stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"campaign": campaign,
		"stats":    stats,
		"progress": h.Progress.Build(campaign, stats),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ListCampaignsHandler returns a paginated list of campaigns.
func (h *CampaignHandler) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	page := 1
	pageSize := 20
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && ps > 0 {
		pageSize = ps
	}
	companyID := r.URL.Query().Get("company_id")
	status := r.URL.Query().Get("status")

	campaigns, total, err := h.Campaigns.ListCampaigns((page-1)*pageSize, pageSize, companyID, status)
	if err != nil {
		http.Error(w, "failed to fetch campaigns: "+err.Error(), http.StatusInternalServerError)
		return
	}

	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": campaigns,
		"pagination": map[string]interface{}{
			"page":        page,
			"page_size":   pageSize,
			"total_count": total,
			"total_pages": totalPages,
		},
	})
}

// ListSendsHandler returns every send row of a campaign, including terminal
// failures with their class and reason.
func (h *CampaignHandler) ListSendsHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sends, err := h.Campaigns.ListSends(id)
	if err != nil {
		http.Error(w, "failed to fetch sends: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": sends})
}

// ListRemindersHandler returns a company's consolidated reminders, highest
// priority first.
func (h *CampaignHandler) ListRemindersHandler(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		http.Error(w, "company_id is required", http.StatusBadRequest)
		return
	}
	status := r.URL.Query().Get("status")

	reminders, err := h.Reminders.ListByCompany(companyID, status)
	if err != nil {
		http.Error(w, "failed to fetch reminders: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": reminders})
}

// SavingsHandler reports how many emails consolidation saved over a window.
func (h *CampaignHandler) SavingsHandler(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		http.Error(w, "company_id is required", http.StatusBadRequest)
		return
	}
	windowDays := 30
	if wd, err := strconv.Atoi(r.URL.Query().Get("window_days")); err == nil && wd > 0 {
		windowDays = wd
	}

	report, err := h.Analytics.EmailsSaved(companyID, windowDays, time.Now())
	if err != nil {
		http.Error(w, "failed to compute savings: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// QuotasHandler returns today's usage per usable provider.
func (h *CampaignHandler) QuotasHandler(w http.ResponseWriter, r *http.Request) {
	snapshots := map[string]interface{}{}
	for _, name := range h.Providers.UsableNames() {
		q, err := h.Quotas.Snapshot(r.Context(), name)
		if err != nil {
			http.Error(w, "failed to fetch quota for "+name+": "+err.Error(), http.StatusInternalServerError)
			return
		}
		snapshots[name] = q
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshots)
}

// AuditTrailHandler returns the audit events recorded against one subject.
func (h *CampaignHandler) AuditTrailHandler(w http.ResponseWriter, r *http.Request) {
	subjectType := r.URL.Query().Get("subject_type")
	subjectID := r.URL.Query().Get("subject_id")
	if subjectType == "" || subjectID == "" {
		http.Error(w, "subject_type and subject_id are required", http.StatusBadRequest)
		return
	}

	events, err := h.Audit.ListBySubject(subjectType, subjectID)
	if err != nil {
		http.Error(w, "failed to fetch audit trail: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": events})
}
