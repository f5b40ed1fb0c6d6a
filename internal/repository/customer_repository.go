package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"github.com/duenorth/reminder-backend/internal/model"
)

// CustomerRepositoryInterface defines the read-only customer lookups the
// service needs.
type CustomerRepositoryInterface interface {
	GetByID(id string) (*model.Customer, error)
	GetByIDs(ids []string) (map[string]*model.Customer, error)
}

// CustomerRepository is the concrete implementation
type CustomerRepository struct {
	DB *sql.DB
}

// GetByID fetches a customer by ID
func (r *CustomerRepository) GetByID(id string) (*model.Customer, error) {
	query := `
        SELECT id, company_id, name, email, locale
        FROM customers
        WHERE id = $1
    `
	row := r.DB.QueryRow(query, id)

	var c model.Customer
	if err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Locale); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &c, nil
}

// GetByIDs fetches a batch of customers keyed by id.
func (r *CustomerRepository) GetByIDs(ids []string) (map[string]*model.Customer, error) {
	customers := map[string]*model.Customer{}
	if len(ids) == 0 {
		return customers, nil
	}
	query := `
        SELECT id, company_id, name, email, locale
        FROM customers
        WHERE id = ANY($1)
    `
	rows, err := r.DB.Query(query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Locale); err != nil {
			return nil, err
		}
		customers[c.ID] = &c
	}
	return customers, rows.Err()
}

var _ CustomerRepositoryInterface = (*CustomerRepository)(nil)
