// internal/service/progress.go
package service

import (
	"time"

	"github.com/duenorth/reminder-backend/internal/model"
	"github.com/duenorth/reminder-backend/internal/repository"
)

// Progress is the live view of a running campaign.
type Progress struct {
	CampaignID string     `json:"campaign_id"`
	Total      int        `json:"total"`
	Sent       int        `json:"sent"`
	Failed     int        `json:"failed"`
	Pending    int        `json:"pending"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	ETA        *time.Time `json:"eta,omitempty"`
}

// ProgressTracker derives live progress from the campaign row and its send
// stats. Both are authoritative in the database, so the API server and the
// delivery worker see the same numbers even though the campaign executes in
// another process.
type ProgressTracker struct {
	Campaigns repository.CampaignRepositoryInterface

	// Now is injectable for tests; nil means real time.
	Now func() time.Time
}

func NewProgressTracker(campaigns repository.CampaignRepositoryInterface) *ProgressTracker {
	return &ProgressTracker{Campaigns: campaigns}
}

// Snapshot fetches the campaign and computes its progress.
func (t *ProgressTracker) Snapshot(campaignID string) (Progress, error) {
	c, err := t.Campaigns.GetByID(campaignID)
	if err != nil {
		return Progress{}, err
	}
	stats, err := t.Campaigns.GetCampaignStats(campaignID)
	if err != nil {
		return Progress{}, err
	}
	return t.Build(c, stats), nil
}

// Build computes progress from an already-fetched campaign and its per-status
// send stats. The ETA extrapolates the completion rate observed since the
// campaign first started sending; no ETA exists before the first resolved
// send or after the last one.
func (t *ProgressTracker) Build(c *model.Campaign, stats map[string]int) Progress {
	p := Progress{
		CampaignID: c.ID,
		Total:      c.RecipientCount,
		Sent:       stats[model.SendSent] + stats[model.SendDelivered],
		Failed:     stats[model.SendFailed] + stats[model.SendBounced],
		StartedAt:  c.StartedAt,
	}
	p.Pending = p.Total - p.Sent - p.Failed
	if p.Pending < 0 {
		p.Pending = 0
	}

	done := p.Sent + p.Failed
	if c.StartedAt != nil && done > 0 && p.Pending > 0 {
		now := t.clock()
		elapsed := now.Sub(*c.StartedAt)
		if elapsed > 0 {
			perSend := elapsed / time.Duration(done)
			eta := now.Add(perSend * time.Duration(p.Pending))
			p.ETA = &eta
		}
	}
	return p
}

func (t *ProgressTracker) clock() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}
