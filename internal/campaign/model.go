package campaign

import "time"

type Status string

const (
	StatusActive     Status = "active"
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

type Campaign struct {
	ID                int       `db:"id" json:"id"`
	CreatorID         int       `db:"creator_id" json:"creator_id"`
	Title             string    `db:"title" json:"title"`
	Description       string    `db:"description" json:"description"`
	GoalCents         int64     `db:"goal_cents" json:"goal_cents"`
	CurrentFundsCents int64     `db:"current_funds_cents" json:"current_funds_cents"`
	Deadline          time.Time `db:"deadline" json:"deadline"`
	Status            Status    `db:"status" json:"status"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Stats is the eventually consistent analytics read-model, recomputed from
// pledges on demand and never part of the ledger's atomic writes.
type Stats struct {
	CampaignID         int     `db:"campaign_id" json:"campaign_id"`
	BackerCount        int     `db:"backer_count" json:"backer_count"`
	PledgeCount        int     `db:"pledge_count" json:"pledge_count"`
	AveragePledgeCents int64   `db:"average_pledge_cents" json:"average_pledge_cents"`
	FundingPercent     float64 `db:"funding_percent" json:"funding_percent"`
}

type CreateCampaignRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	GoalCents   int64  `json:"goal_cents" binding:"required,gt=0"`
	Deadline    string `json:"deadline" binding:"required"`
}
