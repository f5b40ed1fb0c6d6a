package repository

import (
	"database/sql"
	"time"

	"github.com/duenorth/reminder-backend/internal/model"
)

// AuditRepositoryInterface appends compliance events. Rows are append-only.
type AuditRepositoryInterface interface {
	Record(e *model.AuditEvent) error
	ListBySubject(subjectType, subjectID string) ([]*model.AuditEvent, error)
}

type AuditRepository struct {
	DB *sql.DB
}

func (r *AuditRepository) Record(e *model.AuditEvent) error {
	e.CreatedAt = time.Now()
	query := `
        INSERT INTO audit_events (id, company_id, actor, action, subject_type, subject_id, reason, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.DB.Exec(query,
		e.ID, e.CompanyID, e.Actor, e.Action, e.SubjectType, e.SubjectID, e.Reason, e.CreatedAt,
	)
	return err
}

func (r *AuditRepository) ListBySubject(subjectType, subjectID string) ([]*model.AuditEvent, error) {
	query := `
        SELECT id, company_id, actor, action, subject_type, subject_id, reason, created_at
        FROM audit_events
        WHERE subject_type = $1 AND subject_id = $2
        ORDER BY created_at ASC
    `
	rows, err := r.DB.Query(query, subjectType, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*model.AuditEvent{}
	for rows.Next() {
		var e model.AuditEvent
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Actor, &e.Action, &e.SubjectType, &e.SubjectID, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

var _ AuditRepositoryInterface = (*AuditRepository)(nil)
