package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sunny18-max/crowdfunding-sub001/internal/db"
	"github.com/sunny18-max/crowdfunding-sub001/internal/wallet"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) Repository {
	return &repository{db: database}
}

func (r *repository) ListRefundablePledges(ctx context.Context, campaignID int) ([]RefundablePledge, error) {
	query := `
		SELECT
			p.id,
			p.user_id,
			p.campaign_id,
			p.amount_cents,
			p.status,
			p.created_at,
			u.email AS user_email,
			u.name AS user_name,
			c.title AS campaign_title
		FROM pledges p
		JOIN users u ON p.user_id = u.id
		JOIN campaigns c ON p.campaign_id = c.id
		WHERE p.campaign_id = $1 AND p.status IN ('pending', 'committed')
		ORDER BY p.created_at ASC
	`

	var pledges []RefundablePledge
	err := r.db.SelectContext(ctx, &pledges, query, campaignID)
	if err != nil {
		return nil, err
	}

	return pledges, nil
}

// RefundPledge credits one backer's wallet and marks the pledge refunded,
// all in one transaction. It re-checks the refund ledger inside the
// transaction, not the pledge status alone, so a crash between appending
// the refund row and flipping the pledge in a prior run cannot double-pay.
// Returns false when the pledge turned out to be already refunded.
func (r *repository) RefundPledge(ctx context.Context, p RefundablePledge) (bool, error) {
	refunded := false
	err := db.WithTxRetry(ctx, r.db, func(tx *sqlx.Tx) error {
		refunded = false

		var exists bool
		err := tx.GetContext(ctx, &exists, `
			SELECT EXISTS(
				SELECT 1 FROM wallet_transactions
				WHERE type = 'refund' AND reference_type = 'pledge' AND reference_id = $1
			)
		`, p.ID)
		if err != nil {
			return err
		}
		if exists {
			// A prior run already credited this backer; only repair the
			// pledge status if that run crashed before flipping it.
			_, err = tx.ExecContext(ctx,
				`UPDATE pledges SET status = 'refunded' WHERE id = $1 AND status <> 'refunded'`, p.ID)
			return err
		}

		ref := &wallet.Reference{Type: wallet.RefPledge, ID: p.ID}
		if _, err := wallet.ApplyCredit(ctx, tx, p.UserID, p.AmountCents, wallet.TypeRefund, ref); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE pledges SET status = 'refunded' WHERE id = $1 AND status IN ('pending', 'committed')`, p.ID)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("pledge %d changed state mid-settlement", p.ID)
		}

		// Only committed pledges contributed to the campaign total; a
		// pending pledge never had its amount added.
		if p.Status == "committed" {
			_, err = tx.ExecContext(ctx, `
				UPDATE campaigns
				SET current_funds_cents = current_funds_cents - $1, updated_at = NOW()
				WHERE id = $2
			`, p.AmountCents, p.CampaignID)
			if err != nil {
				return err
			}
		}

		refunded = true
		return nil
	})

	return refunded, err
}

func (r *repository) CompletedReleaseExists(ctx context.Context, campaignID int) (bool, error) {
	return db.Exists(ctx, r.db, `
		SELECT EXISTS(
			SELECT 1 FROM fund_release_log
			WHERE campaign_id = $1 AND status = 'completed'
		)
	`, campaignID)
}

// Release credits the creator's wallet with the campaign total and logs
// the completed release, in one transaction. The partial unique index on
// fund_release_log backs the at-most-once guarantee if two calls race
// past the existence check.
func (r *repository) Release(ctx context.Context, campaignID int) (*FundRelease, error) {
	release := &FundRelease{}
	err := db.WithTxRetry(ctx, r.db, func(tx *sqlx.Tx) error {
		var row struct {
			CreatorID         int   `db:"creator_id"`
			CurrentFundsCents int64 `db:"current_funds_cents"`
		}
		err := tx.QueryRowxContext(ctx, `
			SELECT creator_id, current_funds_cents
			FROM campaigns
			WHERE id = $1
			FOR UPDATE
		`, campaignID).StructScan(&row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("campaign %d not found", campaignID)
			}
			return err
		}

		if row.CurrentFundsCents <= 0 {
			return ErrNothingToRelease
		}

		err = tx.QueryRowxContext(ctx, `
			INSERT INTO fund_release_log (campaign_id, amount_cents, status)
			VALUES ($1, $2, 'completed')
			RETURNING id, campaign_id, amount_cents, status, created_at
		`, campaignID, row.CurrentFundsCents).StructScan(release)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyReleased
			}
			return err
		}

		ref := &wallet.Reference{Type: wallet.RefCampaignPayout, ID: campaignID}
		_, err = wallet.ApplyCredit(ctx, tx, row.CreatorID, row.CurrentFundsCents, wallet.TypeCredit, ref)
		return err
	})
	if err != nil {
		return nil, err
	}

	return release, nil
}

// RecordFailedRelease writes a failed release row outside the failed
// transaction so the condition is visible for retry instead of silently
// dropped. The attempted amount is re-read from the campaign because the
// failed transaction's read rolled back with it.
func (r *repository) RecordFailedRelease(ctx context.Context, campaignID int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fund_release_log (campaign_id, amount_cents, status)
		SELECT id, current_funds_cents, 'failed'
		FROM campaigns
		WHERE id = $1
	`, campaignID)
	return err
}

func (r *repository) CreatorContact(ctx context.Context, campaignID int) (string, string, error) {
	var row struct {
		Email string `db:"email"`
		Name  string `db:"name"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT u.email, u.name
		FROM campaigns c
		JOIN users u ON c.creator_id = u.id
		WHERE c.id = $1
	`, campaignID)
	if err != nil {
		return "", "", err
	}
	return row.Email, row.Name, nil
}

func (r *repository) ListUnreconciledPledges(ctx context.Context) ([]UnreconciledPledge, error) {
	query := `
		SELECT p.id, p.user_id, p.campaign_id, p.amount_cents, p.status, p.created_at
		FROM pledges p
		WHERE p.status <> 'refunded'
		  AND NOT EXISTS (
			SELECT 1 FROM wallet_transactions wt
			WHERE wt.type = 'debit'
			  AND wt.reference_type = 'pledge'
			  AND wt.reference_id = p.id
		  )
		ORDER BY p.created_at ASC
	`

	var pledges []UnreconciledPledge
	err := r.db.SelectContext(ctx, &pledges, query)
	if err != nil {
		return nil, err
	}

	return pledges, nil
}

// ReconcilePledge retroactively debits the backer for a pledge that never
// got its ledger row. The debit transaction is stamped with the pledge's
// original timestamp for audit fidelity. The outcome distinguishes a
// wallet that cannot cover the amount from a debit that already exists.
func (r *repository) ReconcilePledge(ctx context.Context, p UnreconciledPledge) (ReconcileOutcome, error) {
	outcome := ReconcileBackfilled
	err := db.WithTxRetry(ctx, r.db, func(tx *sqlx.Tx) error {
		outcome = ReconcileBackfilled

		// Re-check inside the transaction: a concurrent run or a live
		// pledge may have written the debit since the listing.
		var exists bool
		err := tx.GetContext(ctx, &exists, `
			SELECT EXISTS(
				SELECT 1 FROM wallet_transactions
				WHERE type = 'debit' AND reference_type = 'pledge' AND reference_id = $1
			)
		`, p.ID)
		if err != nil {
			return err
		}
		if exists {
			outcome = ReconcileAlreadyCovered
			return nil
		}

		ref := &wallet.Reference{Type: wallet.RefPledge, ID: p.ID}
		_, err = wallet.ApplyDebitAt(ctx, tx, p.UserID, p.AmountCents, ref, p.CreatedAt)
		if err != nil {
			if errors.Is(err, wallet.ErrInsufficientFunds) {
				return errSkipPledge
			}
			return err
		}

		if p.Status == "pending" {
			_, err = tx.ExecContext(ctx,
				`UPDATE pledges SET status = 'committed' WHERE id = $1 AND status = 'pending'`, p.ID)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if errors.Is(err, errSkipPledge) {
		return ReconcileInsufficientFunds, nil
	}
	if err != nil {
		return outcome, err
	}

	return outcome, nil
}

var errSkipPledge = errors.New("skip pledge")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
