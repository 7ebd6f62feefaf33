package pledge

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sunny18-max/crowdfunding-sub001/internal/db"
	"github.com/sunny18-max/crowdfunding-sub001/internal/wallet"
)

var (
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrCampaignNotActive = errors.New("campaign is not accepting pledges")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) Repository {
	return &repository{db: database}
}

// CreatePledge performs the whole pledge fund-flow in one transaction:
// verify the campaign window, insert the pledge, debit the wallet, append
// the ledger row, bump the campaign total. Either all four mutations
// commit or none do.
func (r *repository) CreatePledge(ctx context.Context, userID, campaignID int, amountCents int64) (*Result, error) {
	if amountCents <= 0 {
		return nil, wallet.ErrInvalidAmount
	}

	result := &Result{}
	err := db.WithTxRetry(ctx, r.db, func(tx *sqlx.Tx) error {
		var c struct {
			Status   string    `db:"status"`
			Deadline time.Time `db:"deadline"`
		}
		err := tx.QueryRowxContext(ctx, `
			SELECT status, deadline
			FROM campaigns
			WHERE id = $1
			FOR UPDATE
		`, campaignID).StructScan(&c)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCampaignNotFound
			}
			return err
		}

		if c.Status != "active" || !c.Deadline.After(time.Now()) {
			return ErrCampaignNotActive
		}

		p := &Pledge{}
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO pledges (user_id, campaign_id, amount_cents, status)
			VALUES ($1, $2, $3, 'committed')
			RETURNING id, user_id, campaign_id, amount_cents, status, created_at
		`, userID, campaignID, amountCents).StructScan(p)
		if err != nil {
			return err
		}

		ref := &wallet.Reference{Type: wallet.RefPledge, ID: p.ID}
		ledgerRow, err := wallet.ApplyDebit(ctx, tx, userID, amountCents, ref)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE campaigns
			SET current_funds_cents = current_funds_cents + $1, updated_at = NOW()
			WHERE id = $2
		`, amountCents, campaignID)
		if err != nil {
			return err
		}

		result.Pledge = p
		result.NewBalanceCents = ledgerRow.BalanceAfterCents
		result.TransactionID = ledgerRow.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Pledge, error) {
	var p Pledge
	err := r.db.GetContext(ctx, &p, `
		SELECT id, user_id, campaign_id, amount_cents, status, created_at
		FROM pledges
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int) ([]PledgeWithCampaign, error) {
	query := `
		SELECT
			p.id,
			p.user_id,
			p.campaign_id,
			p.amount_cents,
			p.status,
			p.created_at,
			c.title AS campaign_title,
			c.status AS campaign_status
		FROM pledges p
		JOIN campaigns c ON p.campaign_id = c.id
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC
	`

	var pledges []PledgeWithCampaign
	err := r.db.SelectContext(ctx, &pledges, query, userID)
	if err != nil {
		return nil, err
	}

	return pledges, nil
}

func (r *repository) ListByCampaign(ctx context.Context, campaignID int) ([]Pledge, error) {
	var pledges []Pledge
	err := r.db.SelectContext(ctx, &pledges, `
		SELECT id, user_id, campaign_id, amount_cents, status, created_at
		FROM pledges
		WHERE campaign_id = $1
		ORDER BY created_at DESC
	`, campaignID)
	if err != nil {
		return nil, err
	}

	return pledges, nil
}
