package repository

import (
	"database/sql"
	"strings"
	"time"
)

// SuppressionRepositoryInterface tracks recipient addresses that must never
// be contacted again (hard bounces, invalid addresses, complaints).
type SuppressionRepositoryInterface interface {
	IsSuppressed(email string) (bool, error)
	Suppress(email, reason string) error
	FilterSuppressed(emails []string) (map[string]bool, error)
}

type SuppressionRepository struct {
	DB *sql.DB
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *SuppressionRepository) IsSuppressed(email string) (bool, error) {
	var count int
	err := r.DB.QueryRow(
		`SELECT COUNT(*) FROM suppressed_recipients WHERE email = $1`,
		normalizeEmail(email),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Suppress is idempotent; suppressing an already-suppressed address keeps
// the original reason.
func (r *SuppressionRepository) Suppress(email, reason string) error {
	query := `
        INSERT INTO suppressed_recipients (email, reason, created_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (email) DO NOTHING
    `
	_, err := r.DB.Exec(query, normalizeEmail(email), reason, time.Now())
	return err
}

// FilterSuppressed returns which of the given addresses are suppressed.
func (r *SuppressionRepository) FilterSuppressed(emails []string) (map[string]bool, error) {
	suppressed := map[string]bool{}
	for _, email := range emails {
		hit, err := r.IsSuppressed(email)
		if err != nil {
			return nil, err
		}
		if hit {
			suppressed[normalizeEmail(email)] = true
		}
	}
	return suppressed, nil
}

var _ SuppressionRepositoryInterface = (*SuppressionRepository)(nil)
