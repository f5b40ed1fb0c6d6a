// internal/model/audit_event.go
package model

import "time"

// Audit actions, one per meaningful transition.
const (
	AuditReminderCreated     = "reminder.created"
	AuditEligibilityOverride = "eligibility.override"
	AuditCampaignPlanned     = "campaign.planned"
	AuditCampaignStarted     = "campaign.started"
	AuditCampaignPaused      = "campaign.paused"
	AuditCampaignResumed     = "campaign.resumed"
	AuditCampaignCompleted   = "campaign.completed"
	AuditSendSucceeded       = "send.succeeded"
	AuditSendFailed          = "send.failed"
	AuditSendSuppressed      = "send.suppressed"
	AuditRecipientSuppressed = "recipient.suppressed"
	AuditProviderUnusable    = "provider.unusable"
)

// AuditEvent answers the "why was this customer contacted / not contacted"
// question. One row per transition, required for compliance.
type AuditEvent struct {
	ID          string    `db:"id" json:"id"`
	CompanyID   string    `db:"company_id" json:"company_id"`
	Actor       string    `db:"actor" json:"actor"`
	Action      string    `db:"action" json:"action"`
	SubjectType string    `db:"subject_type" json:"subject_type"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	Reason      string    `db:"reason" json:"reason,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
