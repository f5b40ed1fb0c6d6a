package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/duenorth/reminder-backend/internal/errors"
	"github.com/duenorth/reminder-backend/internal/model"
)

// ReminderRepositoryInterface owns ConsolidatedReminder persistence. A
// customer never holds two open reminders for the same invoice set; that is
// enforced here at insert time via a partial unique index, not cleaned up
// after the fact.
type ReminderRepositoryInterface interface {
	Create(r *model.ConsolidatedReminder) error
	GetByID(id string) (*model.ConsolidatedReminder, error)
	GetByIDs(ids []string) ([]*model.ConsolidatedReminder, error)
	ListByCompany(companyID, status string) ([]*model.ConsolidatedReminder, error)
	HasOpenForCustomer(customerID string) (bool, error)
	UpdateStatus(id, status string) error
	LastContactAt(customerID string) (*time.Time, error)
	CountSentSince(companyID string, since time.Time) (reminders int, invoicesCovered int, err error)
}

type ReminderRepository struct {
	DB *sql.DB
}

const reminderColumns = `id, company_id, customer_id, invoice_ids, currency, totals, priority_score, tier, oldest_due_date, send_at, last_contact_at, status, created_at, updated_at`

// Create inserts a proposal. Relies on the partial unique index
//
//	CREATE UNIQUE INDEX ... ON consolidated_reminders (customer_id, invoice_ids)
//	WHERE status IN ('proposed', 'scheduled')
//
// and maps the unique violation to ErrDuplicateReminder so two concurrent
// grouper runs cannot open the same reminder twice. A customer may hold
// several open reminders when the per-message cap splits their invoices.
func (r *ReminderRepository) Create(rem *model.ConsolidatedReminder) error {
	rem.CreatedAt = time.Now()
	if rem.Status == "" {
		rem.Status = model.ReminderProposed
	}
	totals, err := json.Marshal(rem.Totals)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO consolidated_reminders
        (id, company_id, customer_id, invoice_ids, currency, totals, priority_score, tier, oldest_due_date, send_at, last_contact_at, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `
	_, err = r.DB.Exec(query,
		rem.ID, rem.CompanyID, rem.CustomerID, pq.Array(rem.InvoiceIDs),
		rem.Currency, totals, rem.PriorityScore, rem.Tier,
		rem.OldestDueDate, rem.SendAt, rem.LastContactAt, rem.Status, rem.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return appErrors.NewDuplicateReminder(rem.CustomerID)
		}
		return err
	}
	return nil
}

func (r *ReminderRepository) GetByID(id string) (*model.ConsolidatedReminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM consolidated_reminders WHERE id = $1`
	rem, err := scanReminder(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, appErrors.NewReminderNotFound(id)
	}
	return rem, err
}

func (r *ReminderRepository) GetByIDs(ids []string) ([]*model.ConsolidatedReminder, error) {
	if len(ids) == 0 {
		return []*model.ConsolidatedReminder{}, nil
	}
	query := `SELECT ` + reminderColumns + ` FROM consolidated_reminders WHERE id = ANY($1)`
	rows, err := r.DB.Query(query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (r *ReminderRepository) ListByCompany(companyID, status string) ([]*model.ConsolidatedReminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM consolidated_reminders WHERE company_id = $1`
	args := []interface{}{companyID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY priority_score DESC, oldest_due_date ASC`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (r *ReminderRepository) HasOpenForCustomer(customerID string) (bool, error) {
	var count int
	err := r.DB.QueryRow(`
        SELECT COUNT(*)
        FROM consolidated_reminders
        WHERE customer_id = $1 AND status IN ('proposed', 'scheduled')`, customerID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ReminderRepository) UpdateStatus(id, status string) error {
	query := `UPDATE consolidated_reminders SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, status, id)
	return err
}

// LastContactAt returns the most recent contact for a customer: the later of
// the last reminder marked sent and any send addressed through one of the
// customer's reminders.
func (r *ReminderRepository) LastContactAt(customerID string) (*time.Time, error) {
	query := `
        SELECT MAX(ts) FROM (
            SELECT MAX(updated_at) AS ts
            FROM consolidated_reminders
            WHERE customer_id = $1 AND status = 'sent'
            UNION ALL
            SELECT MAX(s.sent_at)
            FROM email_sends s
            JOIN consolidated_reminders cr ON s.reminder_id = cr.id
            WHERE cr.customer_id = $1
        ) contacts
    `
	var ts sql.NullTime
	if err := r.DB.QueryRow(query, customerID).Scan(&ts); err != nil {
		return nil, err
	}
	if !ts.Valid {
		return nil, nil
	}
	return &ts.Time, nil
}

// CountSentSince feeds the "emails saved" analytic: reminders sent in the
// window and the individual invoices they covered.
func (r *ReminderRepository) CountSentSince(companyID string, since time.Time) (int, int, error) {
	query := `
        SELECT COUNT(*), COALESCE(SUM(array_length(invoice_ids, 1)), 0)
        FROM consolidated_reminders
        WHERE company_id = $1 AND status = 'sent' AND updated_at >= $2
    `
	var reminders, invoices int
	if err := r.DB.QueryRow(query, companyID, since).Scan(&reminders, &invoices); err != nil {
		return 0, 0, err
	}
	return reminders, invoices, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReminder(row rowScanner) (*model.ConsolidatedReminder, error) {
	var rem model.ConsolidatedReminder
	var invoiceIDs pq.StringArray
	var totals []byte
	err := row.Scan(
		&rem.ID, &rem.CompanyID, &rem.CustomerID, &invoiceIDs,
		&rem.Currency, &totals, &rem.PriorityScore, &rem.Tier,
		&rem.OldestDueDate, &rem.SendAt, &rem.LastContactAt,
		&rem.Status, &rem.CreatedAt, &rem.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rem.InvoiceIDs = invoiceIDs
	if len(totals) > 0 {
		if err := json.Unmarshal(totals, &rem.Totals); err != nil {
			return nil, err
		}
	}
	return &rem, nil
}

func scanReminders(rows *sql.Rows) ([]*model.ConsolidatedReminder, error) {
	reminders := []*model.ConsolidatedReminder{}
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

var _ ReminderRepositoryInterface = (*ReminderRepository)(nil)
