package wallet

import "time"

// Transaction types recorded in the ledger.
const (
	TypeDebit      = "debit"
	TypeCredit     = "credit"
	TypeRefund     = "refund"
	TypeWithdrawal = "withdrawal"
)

// Reference types linking a transaction back to what caused it.
const (
	RefPledge         = "pledge"
	RefCampaignPayout = "campaign_payout"
)

type Wallet struct {
	ID           int       `db:"id" json:"id"`
	UserID       int       `db:"user_id" json:"user_id"`
	BalanceCents int64     `db:"balance_cents" json:"balance_cents"`
	Currency     string    `db:"currency" json:"currency"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction is one append-only ledger row. Rows are never updated or
// deleted; the table is the canonical audit trail.
type Transaction struct {
	ID                 int       `db:"id" json:"id"`
	WalletID           int       `db:"wallet_id" json:"wallet_id"`
	Type               string    `db:"type" json:"type"`
	AmountCents        int64     `db:"amount_cents" json:"amount_cents"`
	BalanceBeforeCents int64     `db:"balance_before_cents" json:"balance_before_cents"`
	BalanceAfterCents  int64     `db:"balance_after_cents" json:"balance_after_cents"`
	ReferenceType      *string   `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID        *int      `db:"reference_id" json:"reference_id,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Reference links a ledger row to the pledge or payout that caused it.
type Reference struct {
	Type string
	ID   int
}

type TopUpRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required,gt=0"`
}

type WithdrawRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required,gt=0"`
}
