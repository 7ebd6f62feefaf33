package ledger

import (
	"errors"
	"time"
)

// Fund release statuses.
const (
	ReleasePending   = "pending"
	ReleaseCompleted = "completed"
	ReleaseFailed    = "failed"
)

var (
	ErrAlreadyReleased  = errors.New("campaign funds already released")
	ErrNothingToRelease = errors.New("campaign has no funds to release")
)

// FundRelease is one row of the release log. At most one completed row can
// exist per campaign; the store enforces this with a partial unique index.
type FundRelease struct {
	ID          int       `db:"id" json:"id"`
	CampaignID  int       `db:"campaign_id" json:"campaign_id"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// RefundablePledge is a pledge row joined with the backer and campaign
// details settlement needs.
type RefundablePledge struct {
	ID            int       `db:"id"`
	UserID        int       `db:"user_id"`
	CampaignID    int       `db:"campaign_id"`
	AmountCents   int64     `db:"amount_cents"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UserEmail     string    `db:"user_email"`
	UserName      string    `db:"user_name"`
	CampaignTitle string    `db:"campaign_title"`
}

// UnreconciledPledge is a pledge with no matching debit transaction,
// found by the reconciliation backfill.
type UnreconciledPledge struct {
	ID          int       `db:"id"`
	UserID      int       `db:"user_id"`
	CampaignID  int       `db:"campaign_id"`
	AmountCents int64     `db:"amount_cents"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}

// SettlementSummary reports what one settlement invocation did.
type SettlementSummary struct {
	CampaignID int `json:"campaign_id"`
	Refunded   int `json:"refunded"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// ReconcileOutcome says what happened to one pledge during a
// reconciliation run.
type ReconcileOutcome int

const (
	// ReconcileBackfilled means the missing debit was written.
	ReconcileBackfilled ReconcileOutcome = iota
	// ReconcileAlreadyCovered means the debit turned out to exist, written
	// by a concurrent run or a live pledge after the listing.
	ReconcileAlreadyCovered
	// ReconcileInsufficientFunds means the wallet cannot cover the debit;
	// the pledge is left for a later run.
	ReconcileInsufficientFunds
)

// ReconcileSummary reports one reconciliation run. Skipped pledges are the
// ones whose wallets could not cover the debit; they are left untouched
// rather than forced negative. AlreadyCovered pledges needed nothing.
type ReconcileSummary struct {
	Processed      int   `json:"processed"`
	Skipped        int   `json:"skipped"`
	AlreadyCovered int   `json:"already_covered"`
	SkippedIDs     []int `json:"skipped_ids,omitempty"`
}
