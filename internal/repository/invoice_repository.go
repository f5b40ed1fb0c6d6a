package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"github.com/duenorth/reminder-backend/internal/model"
)

// InvoiceRepositoryInterface is the read-only view of the invoice store this
// service consumes. Invoices are owned by the invoicing side; nothing here
// writes to them.
type InvoiceRepositoryInterface interface {
	ListOverdueByCompany(companyID string) ([]model.Invoice, error)
	GetByIDs(ids []string) ([]model.Invoice, error)
}

type InvoiceRepository struct {
	DB *sql.DB
}

const invoiceColumns = `id, company_id, customer_id, amount_cents, remaining_cents, currency, due_date, status`

// ListOverdueByCompany fetches invoices eligible for consolidation: past due
// and not settled or disputed. The grouper re-checks qualification per
// invoice; this query just keeps the result set small.
func (r *InvoiceRepository) ListOverdueByCompany(companyID string) ([]model.Invoice, error) {
	query := `
        SELECT ` + invoiceColumns + `
        FROM invoices
        WHERE company_id = $1
          AND status IN ('overdue', 'partially_paid')
          AND due_date < NOW()
        ORDER BY due_date ASC
    `
	rows, err := r.DB.Query(query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvoices(rows)
}

func (r *InvoiceRepository) GetByIDs(ids []string) ([]model.Invoice, error) {
	if len(ids) == 0 {
		return []model.Invoice{}, nil
	}
	query := `
        SELECT ` + invoiceColumns + `
        FROM invoices
        WHERE id = ANY($1)
        ORDER BY due_date ASC
    `
	rows, err := r.DB.Query(query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvoices(rows)
}

func scanInvoices(rows *sql.Rows) ([]model.Invoice, error) {
	invoices := []model.Invoice{}
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(
			&inv.ID, &inv.CompanyID, &inv.CustomerID,
			&inv.AmountCents, &inv.RemainingCents, &inv.Currency,
			&inv.DueDate, &inv.Status,
		); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

var _ InvoiceRepositoryInterface = (*InvoiceRepository)(nil)
