package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sunny18-max/crowdfunding-sub001/internal/db"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) Repository {
	return &repository{db: database}
}

func (r *repository) GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.GetContext(ctx, w,
		`SELECT id, user_id, balance_cents, currency, created_at, updated_at
		 FROM wallets WHERE user_id = $1`, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO wallets (user_id)
		 VALUES ($1)
		 RETURNING id, user_id, balance_cents, currency, created_at, updated_at`,
		userID,
	).StructScan(w)
	if err != nil {
		return nil, err
	}

	return w, nil
}

func (r *repository) TopUp(ctx context.Context, userID int, amountCents int64) (*Wallet, error) {
	if !CanCredit(amountCents) {
		return nil, ErrInvalidAmount
	}

	err := db.WithTxRetry(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := ApplyCredit(ctx, tx, userID, amountCents, TypeCredit, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	return r.GetOrCreateWallet(ctx, userID)
}

func (r *repository) Withdraw(ctx context.Context, userID int, amountCents int64) (*Wallet, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	err := db.WithTxRetry(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := ApplyWithdrawal(ctx, tx, userID, amountCents)
		return err
	})
	if err != nil {
		return nil, err
	}

	return r.GetOrCreateWallet(ctx, userID)
}

func (r *repository) GetTransactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	var walletID int
	err := r.db.GetContext(ctx, &walletID, `SELECT id FROM wallets WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []Transaction{}, nil
		}
		return nil, err
	}

	var txs []Transaction
	err = r.db.SelectContext(ctx, &txs, `
		SELECT id, wallet_id, type, amount_cents, balance_before_cents, balance_after_cents, reference_type, reference_id, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}

	return txs, nil
}

// VerifyBalance cross-checks the stored balance against the fold of the
// wallet's transaction deltas. A mismatch means the audit trail and the
// balance diverged and needs operator attention.
func (r *repository) VerifyBalance(ctx context.Context, userID int) error {
	w, err := r.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return err
	}

	var delta int64
	err = r.db.GetContext(ctx, &delta, `
		SELECT COALESCE(SUM(
			CASE WHEN type IN ('debit', 'withdrawal') THEN -amount_cents ELSE amount_cents END
		), 0)
		FROM wallet_transactions
		WHERE wallet_id = $1
	`, w.ID)
	if err != nil {
		return err
	}

	if delta != w.BalanceCents {
		return fmt.Errorf("%w: transactions sum to %d, balance is %d", ErrInvariantViolation, delta, w.BalanceCents)
	}

	return nil
}
