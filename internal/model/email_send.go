// internal/model/email_send.go
package model

import "time"

// EmailSend statuses. Failed sends are never deleted; they are marked
// terminal and kept for audit.
const (
	SendQueued    = "queued"
	SendSending   = "sending"
	SendSent      = "sent"
	SendDelivered = "delivered"
	SendFailed    = "failed"
	SendBounced   = "bounced"
)

// EmailSend is one recipient within a campaign. Created by the planner,
// mutated only by the executor and the retry manager.
type EmailSend struct {
	ID             string     `db:"id" json:"id"`
	CampaignID     string     `db:"campaign_id" json:"campaign_id"`
	ReminderID     string     `db:"reminder_id" json:"reminder_id,omitempty"`
	RecipientEmail string     `db:"recipient_email" json:"recipient_email"`
	RecipientName  string     `db:"recipient_name" json:"recipient_name"`
	Subject        string     `db:"subject" json:"subject"`
	Body           string     `db:"body" json:"body"`
	InvoiceIDs     []string   `db:"invoice_ids" json:"invoice_ids"`
	Status         string     `db:"status" json:"status"`
	AttemptCount   int        `db:"attempt_count" json:"attempt_count"`
	LastError      string     `db:"last_error" json:"last_error,omitempty"`
	LastErrorClass string     `db:"last_error_class" json:"last_error_class,omitempty"`
	ProviderMsgID  string     `db:"provider_msg_id" json:"provider_msg_id,omitempty"`
	QueuedAt       time.Time  `db:"queued_at" json:"queued_at"`
	SentAt         *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	FailedAt       *time.Time `db:"failed_at" json:"failed_at,omitempty"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Delivered reports whether the send reached the provider. A delivered send
// must never be issued again, including across pause/resume.
func (s *EmailSend) Delivered() bool {
	return s.Status == SendSent || s.Status == SendDelivered
}

// Terminal reports whether no further attempts will be made.
func (s *EmailSend) Terminal() bool {
	switch s.Status {
	case SendSent, SendDelivered, SendFailed, SendBounced:
		return true
	}
	return false
}
