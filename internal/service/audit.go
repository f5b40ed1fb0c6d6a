// internal/service/audit.go
package service

import (
	"log"

	"github.com/google/uuid"

	"github.com/duenorth/reminder-backend/internal/model"
	"github.com/duenorth/reminder-backend/internal/queue"
	"github.com/duenorth/reminder-backend/internal/repository"
)

// Auditor writes one audit record per meaningful transition and mirrors it
// onto the audit event stream. Audit failures are logged, never propagated:
// a broken audit sink must not abort a campaign.
type Auditor struct {
	Repo  repository.AuditRepositoryInterface
	Queue queue.Queue
}

func (a *Auditor) Record(companyID, actor, action, subjectType, subjectID, reason string) {
	if a == nil {
		return
	}
	event := &model.AuditEvent{
		ID:          uuid.NewString(),
		CompanyID:   companyID,
		Actor:       actor,
		Action:      action,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Reason:      reason,
	}
	if a.Repo != nil {
		if err := a.Repo.Record(event); err != nil {
			log.Println("⚠️ failed to record audit event:", err)
		}
	}
	if a.Queue != nil {
		if err := a.Queue.Publish(queue.TopicAuditEvents, event); err != nil {
			log.Println("⚠️ failed to publish audit event:", err)
		}
	}
}
