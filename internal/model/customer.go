// internal/model/customer.go
package model

type Customer struct {
	ID        string `db:"id" json:"id"`
	CompanyID string `db:"company_id" json:"company_id"`
	Name      string `db:"name" json:"name"`
	Email     string `db:"email" json:"email"`
	Locale    string `db:"locale" json:"locale"`
}
