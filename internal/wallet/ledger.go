package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient wallet balance")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvariantViolation = errors.New("wallet balance invariant violated")
)

// The Apply* functions are the only paths that change a wallet balance.
// They run inside a caller-owned transaction so multi-table mutations
// (pledge creation, settlement, fund release) stay atomic, lock the wallet
// row, verify the guard, update the balance, and append the ledger row.

// ApplyDebit takes amountCents from the user's wallet and records a debit
// transaction.
func ApplyDebit(ctx context.Context, tx *sqlx.Tx, userID int, amountCents int64, ref *Reference) (*Transaction, error) {
	return applyChange(ctx, tx, userID, -amountCents, TypeDebit, ref, nil)
}

// ApplyDebitAt is ApplyDebit with an explicit transaction timestamp, used
// by reconciliation to stamp backfilled rows with the pledge's original
// creation time.
func ApplyDebitAt(ctx context.Context, tx *sqlx.Tx, userID int, amountCents int64, ref *Reference, at time.Time) (*Transaction, error) {
	return applyChange(ctx, tx, userID, -amountCents, TypeDebit, ref, &at)
}

// ApplyCredit adds amountCents to the user's wallet and records a row of
// the given credit-side type. txType must be TypeCredit or TypeRefund.
func ApplyCredit(ctx context.Context, tx *sqlx.Tx, userID int, amountCents int64, txType string, ref *Reference) (*Transaction, error) {
	if txType != TypeCredit && txType != TypeRefund {
		return nil, fmt.Errorf("unexpected credit transaction type %q", txType)
	}
	return applyChange(ctx, tx, userID, amountCents, txType, ref, nil)
}

// ApplyWithdrawal takes amountCents out of the wallet as a withdrawal.
func ApplyWithdrawal(ctx context.Context, tx *sqlx.Tx, userID int, amountCents int64) (*Transaction, error) {
	return applyChange(ctx, tx, userID, -amountCents, TypeWithdrawal, nil, nil)
}

func applyChange(ctx context.Context, tx *sqlx.Tx, userID int, deltaCents int64, txType string, ref *Reference, at *time.Time) (*Transaction, error) {
	amountCents := deltaCents
	if amountCents < 0 {
		amountCents = -amountCents
	}

	w, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if deltaCents < 0 {
		if !CanDebit(w.BalanceCents, amountCents) {
			if amountCents <= 0 {
				return nil, ErrInvalidAmount
			}
			return nil, ErrInsufficientFunds
		}
	} else if !CanCredit(amountCents) {
		return nil, ErrInvalidAmount
	}

	newBalance := w.BalanceCents + deltaCents

	_, err = tx.ExecContext(ctx,
		`UPDATE wallets
		 SET balance_cents = $1, updated_at = NOW()
		 WHERE id = $2`,
		newBalance, w.ID,
	)
	if err != nil {
		return nil, err
	}

	var refType *string
	var refID *int
	if ref != nil {
		refType = &ref.Type
		refID = &ref.ID
	}

	ledgerRow := &Transaction{}
	if at != nil {
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO wallet_transactions (wallet_id, type, amount_cents, balance_before_cents, balance_after_cents, reference_type, reference_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id, wallet_id, type, amount_cents, balance_before_cents, balance_after_cents, reference_type, reference_id, created_at`,
			w.ID, txType, amountCents, w.BalanceCents, newBalance, refType, refID, *at,
		).StructScan(ledgerRow)
	} else {
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO wallet_transactions (wallet_id, type, amount_cents, balance_before_cents, balance_after_cents, reference_type, reference_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id, wallet_id, type, amount_cents, balance_before_cents, balance_after_cents, reference_type, reference_id, created_at`,
			w.ID, txType, amountCents, w.BalanceCents, newBalance, refType, refID,
		).StructScan(ledgerRow)
	}
	if err != nil {
		return nil, err
	}

	// Post-condition: the appended row must account for the balance move.
	if ledgerRow.BalanceAfterCents-ledgerRow.BalanceBeforeCents != deltaCents {
		return nil, fmt.Errorf("%w: delta %d, ledger row %d -> %d",
			ErrInvariantViolation, deltaCents, ledgerRow.BalanceBeforeCents, ledgerRow.BalanceAfterCents)
	}

	return ledgerRow, nil
}

// lockWallet selects the wallet row FOR UPDATE, creating it on first use,
// so conflicting balance changes serialize on the row lock.
func lockWallet(ctx context.Context, tx *sqlx.Tx, userID int) (*Wallet, error) {
	w := &Wallet{}
	err := tx.QueryRowxContext(ctx,
		`SELECT id, user_id, balance_cents, currency, created_at, updated_at
		 FROM wallets
		 WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).StructScan(w)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = tx.QueryRowxContext(ctx,
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
