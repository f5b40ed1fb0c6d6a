package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/duenorth/reminder-backend/internal/errors"
	"github.com/duenorth/reminder-backend/internal/model"
)

// CampaignRepositoryInterface owns campaigns and their email sends. The two
// live in one repository because plan creation must be atomic: either the
// campaign and every send row exist, or none of them do.
type CampaignRepositoryInterface interface {
	// Campaigns
	CreatePlan(c *model.Campaign, sends []*model.EmailSend) error
	GetByID(id string) (*model.Campaign, error)
	ListCampaigns(offset, limit int, companyID, status string) ([]*model.Campaign, int, error)
	UpdateStatus(campaignID, status string) error
	IncrementCounters(campaignID string, sent, failed int) error

	// Email sends
	GetSendByID(id string) (*model.EmailSend, error)
	ListSends(campaignID string) ([]*model.EmailSend, error)
	ListPendingSends(campaignID string) ([]*model.EmailSend, error)
	UpdateSend(s *model.EmailSend) error
	GetCampaignStats(campaignID string) (map[string]int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

// ====================== Campaigns ======================

// CreatePlan persists a campaign and its sends in a single transaction.
func (r *CampaignRepository) CreatePlan(c *model.Campaign, sends []*model.EmailSend) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}

	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	campaignQuery := `
        INSERT INTO campaigns
        (id, company_id, name, template_kind, provider, status, scheduled_at, recipient_count, sent_count, failed_count, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, $9)
    `
	if _, err := tx.Exec(campaignQuery,
		c.ID, c.CompanyID, c.Name, c.TemplateKind, c.Provider, c.Status,
		c.ScheduledAt, c.RecipientCount, c.CreatedAt,
	); err != nil {
		return err
	}

	sendQuery := `
        INSERT INTO email_sends
        (id, campaign_id, reminder_id, recipient_email, recipient_name, subject, body, invoice_ids, status, attempt_count, queued_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'queued', 0, $9, $9)
    `
	now := time.Now()
	for _, s := range sends {
		s.Status = model.SendQueued
		s.QueuedAt = now
		s.UpdatedAt = now
		if _, err := tx.Exec(sendQuery,
			s.ID, c.ID, nullIfEmpty(s.ReminderID), s.RecipientEmail, s.RecipientName,
			s.Subject, s.Body, pq.Array(s.InvoiceIDs), now,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *CampaignRepository) GetByID(id string) (*model.Campaign, error) {
	query := `
        SELECT id, company_id, name, template_kind, provider, status, scheduled_at, started_at, recipient_count, sent_count, failed_count, created_at, updated_at
        FROM campaigns WHERE id=$1
    `
	var c model.Campaign
	err := r.DB.QueryRow(query, id).Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.TemplateKind, &c.Provider, &c.Status,
		&c.ScheduledAt, &c.StartedAt, &c.RecipientCount, &c.SentCount, &c.FailedCount,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, companyID, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT id, company_id, name, template_kind, provider, status, scheduled_at, started_at, recipient_count, sent_count, failed_count, created_at, updated_at FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if companyID != "" {
		query += fmt.Sprintf(" AND company_id=$%d", argPos)
		args = append(args, companyID)
		argPos++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c := &model.Campaign{}
		if err := rows.Scan(
			&c.ID, &c.CompanyID, &c.Name, &c.TemplateKind, &c.Provider, &c.Status,
			&c.ScheduledAt, &c.StartedAt, &c.RecipientCount, &c.SentCount, &c.FailedCount,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	// Count total
	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	argsCount := []interface{}{}
	argPosCount := 1
	if companyID != "" {
		countQuery += fmt.Sprintf(" AND company_id=$%d", argPosCount)
		argsCount = append(argsCount, companyID)
		argPosCount++
	}
	if status != "" {
		countQuery += fmt.Sprintf(" AND status=$%d", argPosCount)
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// UpdateStatus also stamps started_at on the first transition into sending,
// so progress and ETA can be derived from the row by any process.
func (r *CampaignRepository) UpdateStatus(campaignID, status string) error {
	query := `
        UPDATE campaigns
        SET status=$1, updated_at=$2,
            started_at = CASE WHEN $1='sending' AND started_at IS NULL THEN $2 ELSE started_at END
        WHERE id=$3
    `
	_, err := r.DB.Exec(query, status, time.Now(), campaignID)
	return err
}

func (r *CampaignRepository) IncrementCounters(campaignID string, sent, failed int) error {
	query := `UPDATE campaigns SET sent_count=sent_count+$1, failed_count=failed_count+$2, updated_at=NOW() WHERE id=$3`
	_, err := r.DB.Exec(query, sent, failed, campaignID)
	return err
}

// ====================== Email sends ======================

const sendColumns = `id, campaign_id, reminder_id, recipient_email, recipient_name, subject, body, invoice_ids, status, attempt_count, last_error, last_error_class, provider_msg_id, queued_at, sent_at, failed_at, updated_at`

func (r *CampaignRepository) GetSendByID(id string) (*model.EmailSend, error) {
	query := `SELECT ` + sendColumns + ` FROM email_sends WHERE id=$1`
	s, err := scanSend(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *CampaignRepository) ListSends(campaignID string) ([]*model.EmailSend, error) {
	query := `SELECT ` + sendColumns + ` FROM email_sends WHERE campaign_id=$1 ORDER BY queued_at ASC, id ASC`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSends(rows)
}

// ListPendingSends returns sends still awaiting delivery. Terminal rows are
// excluded so a resumed campaign never re-issues a delivered send.
func (r *CampaignRepository) ListPendingSends(campaignID string) ([]*model.EmailSend, error) {
	query := `SELECT ` + sendColumns + ` FROM email_sends WHERE campaign_id=$1 AND status IN ('queued', 'sending') ORDER BY queued_at ASC, id ASC`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSends(rows)
}

func (r *CampaignRepository) UpdateSend(s *model.EmailSend) error {
	s.UpdatedAt = time.Now()
	query := `
        UPDATE email_sends
        SET status=$1, attempt_count=$2, last_error=$3, last_error_class=$4, provider_msg_id=$5, sent_at=$6, failed_at=$7, updated_at=$8
        WHERE id=$9
    `
	_, err := r.DB.Exec(query,
		s.Status, s.AttemptCount, s.LastError, s.LastErrorClass,
		s.ProviderMsgID, s.SentAt, s.FailedAt, s.UpdatedAt, s.ID,
	)
	return err
}

func (r *CampaignRepository) GetCampaignStats(campaignID string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM email_sends WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		"queued": 0, "sending": 0, "sent": 0, "delivered": 0, "failed": 0, "bounced": 0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func scanSend(row rowScanner) (*model.EmailSend, error) {
	var s model.EmailSend
	var invoiceIDs pq.StringArray
	var reminderID, lastError, lastErrorClass, providerMsgID sql.NullString
	err := row.Scan(
		&s.ID, &s.CampaignID, &reminderID, &s.RecipientEmail, &s.RecipientName,
		&s.Subject, &s.Body, &invoiceIDs, &s.Status, &s.AttemptCount,
		&lastError, &lastErrorClass, &providerMsgID,
		&s.QueuedAt, &s.SentAt, &s.FailedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.InvoiceIDs = invoiceIDs
	s.ReminderID = reminderID.String
	s.LastError = lastError.String
	s.LastErrorClass = lastErrorClass.String
	s.ProviderMsgID = providerMsgID.String
	return &s, nil
}

func scanSends(rows *sql.Rows) ([]*model.EmailSend, error) {
	sends := []*model.EmailSend{}
	for rows.Next() {
		s, err := scanSend(rows)
		if err != nil {
			return nil, err
		}
		sends = append(sends, s)
	}
	return sends, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
