package db

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrTxConflict is returned after a transaction kept hitting
// serialization or deadlock failures for all retry attempts.
var ErrTxConflict = errors.New("transaction conflict, retries exhausted")

const txMaxAttempts = 3

// WithTx runs fn inside a transaction, committing on nil error and rolling
// back otherwise. Ledger mutations go through this so partial state is
// never observable.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// WithTxRetry is WithTx with bounded retry on Postgres serialization
// (40001) and deadlock (40P01) failures. Business errors are returned
// immediately without retrying.
func WithTxRetry(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		err = WithTx(ctx, db, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
	return ErrTxConflict
}

// IsRetryable reports whether err is a transient conflict worth retrying.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}
