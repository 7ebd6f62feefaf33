package pledge

import "time"

// Pledge statuses. A pledge is committed in the same transaction that
// debits the wallet; pending only occurs in legacy data created before
// the synchronous debit path.
const (
	StatusPending   = "pending"
	StatusCommitted = "committed"
	StatusRefunded  = "refunded"
)

type Pledge struct {
	ID          int       `db:"id" json:"id"`
	UserID      int       `db:"user_id" json:"user_id"`
	CampaignID  int       `db:"campaign_id" json:"campaign_id"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type PledgeWithCampaign struct {
	Pledge
	CampaignTitle  string `db:"campaign_title" json:"campaign_title"`
	CampaignStatus string `db:"campaign_status" json:"campaign_status"`
}

// Result reports a successful pledge: the row created, the wallet balance
// after the debit, and the ledger transaction backing it.
type Result struct {
	Pledge          *Pledge `json:"pledge"`
	NewBalanceCents int64   `json:"new_balance_cents"`
	TransactionID   int     `json:"transaction_id"`
}

type CreatePledgeRequest struct {
	CampaignID  int   `json:"campaign_id" binding:"required"`
	AmountCents int64 `json:"amount_cents" binding:"required,gt=0"`
}
