// internal/model/campaign.go
package model

import "time"

// Campaign statuses. Lifecycle:
// draft -> queued -> sending -> {completed | completed_with_errors | failed}.
// A pause request is written as pause_requested; the executor acknowledges it
// at the next batch boundary by moving to paused, which is resumable.
// pause_requested lives in the campaign row so the API and the worker see the
// same flag from different processes.
const (
	CampaignDraft               = "draft"
	CampaignQueued              = "queued"
	CampaignSending             = "sending"
	CampaignPauseRequested      = "pause_requested"
	CampaignPaused              = "paused"
	CampaignCompleted           = "completed"
	CampaignCompletedWithErrors = "completed_with_errors"
	CampaignFailed              = "failed"
)

type Campaign struct {
	ID             string     `db:"id" json:"id"`
	CompanyID      string     `db:"company_id" json:"company_id"`
	Name           string     `db:"name" json:"name"`
	TemplateKind   string     `db:"template_kind" json:"template_kind"`
	Provider       string     `db:"provider" json:"provider"`
	Status         string     `db:"status" json:"status"`
	ScheduledAt    *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	StartedAt      *time.Time `db:"started_at" json:"started_at,omitempty"`
	RecipientCount int        `db:"recipient_count" json:"recipient_count"`
	SentCount      int        `db:"sent_count" json:"sent_count"`
	FailedCount    int        `db:"failed_count" json:"failed_count"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Runnable reports whether the executor may pick the campaign up.
func (c *Campaign) Runnable() bool {
	return c.Status == CampaignQueued || c.Status == CampaignPaused || c.Status == CampaignSending
}

// Terminal reports whether the campaign has finished executing.
func (c *Campaign) Terminal() bool {
	switch c.Status {
	case CampaignCompleted, CampaignCompletedWithErrors, CampaignFailed:
		return true
	}
	return false
}
