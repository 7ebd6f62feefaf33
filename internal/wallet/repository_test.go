package wallet

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() {
		sqlxDB.Close()
	}

	return repo, mock, closer
}

func walletColumns() []string {
	return []string{"id", "user_id", "balance_cents", "currency", "created_at", "updated_at"}
}

func TestGetOrCreateWallet_Existing(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, balance_cents, currency, created_at, updated_at FROM wallets WHERE user_id = $1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(walletColumns()).AddRow(5, 1, 100000, "USD", now, now))

	w, err := repo.GetOrCreateWallet(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 5, w.ID)
	require.Equal(t, int64(100000), w.BalanceCents)
}

func TestGetOrCreateWallet_CreatesWhenMissing(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, balance_cents, currency, created_at, updated_at FROM wallets WHERE user_id = $1")).
		WithArgs(2).
		WillReturnError(sql.ErrNoRows)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallets (user_id) VALUES ($1) RETURNING id, user_id, balance_cents, currency, created_at, updated_at")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(walletColumns()).AddRow(6, 2, 0, "USD", now, now))

	w, err := repo.GetOrCreateWallet(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 6, w.ID)
	require.Equal(t, int64(0), w.BalanceCents)
}

func TestTopUp(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, balance_cents, currency, created_at, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(walletColumns()).AddRow(5, 1, 1000, "USD", now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance_cents = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(int64(3000), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions (wallet_id, type, amount_cents, balance_before_cents, balance_after_cents, reference_type, reference_id) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, wallet_id, type, amount_cents, balance_before_cents, balance_after_cents, reference_type, reference_id, created_at")).
		WithArgs(5, TypeCredit, int64(2000), int64(1000), int64(3000), nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "wallet_id", "type", "amount_cents", "balance_before_cents", "balance_after_cents", "reference_type", "reference_id", "created_at"}).
			AddRow(11, 5, TypeCredit, 2000, 1000, 3000, nil, nil, now))
	mock.ExpectCommit()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, balance_cents, currency, created_at, updated_at FROM wallets WHERE user_id = $1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(walletColumns()).AddRow(5, 1, 3000, "USD", now, now))

	w, err := repo.TopUp(context.Background(), 1, 2000)
	require.NoError(t, err)
	require.Equal(t, int64(3000), w.BalanceCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTopUp_RejectsNonPositiveAmount(t *testing.T) {
	repo, _, close := setupMock(t)
	defer close()

	_, err := repo.TopUp(context.Background(), 1, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = repo.TopUp(context.Background(), 1, -500)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, balance_cents, currency, created_at, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(walletColumns()).AddRow(5, 1, 50, "USD", now, now))
	mock.ExpectRollback()

	_, err := repo.Withdraw(context.Background(), 1, 100)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransactions(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM wallets WHERE user_id = $1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	rows := sqlmock.NewRows([]string{"id", "wallet_id", "type", "amount_cents", "balance_before_cents", "balance_after_cents", "reference_type", "reference_id", "created_at"}).
		AddRow(2, 5, TypeDebit, 30000, 100000, 70000, RefPledge, 9, now).
		AddRow(1, 5, TypeCredit, 100000, 0, 100000, nil, nil, now.Add(-time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, wallet_id, type, amount_cents, balance_before_cents, balance_after_cents, reference_type, reference_id, created_at FROM wallet_transactions WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3")).
		WithArgs(5, 50, 0).
		WillReturnRows(rows)

	txs, err := repo.GetTransactions(context.Background(), 1, 50, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.Equal(t, TypeDebit, txs[0].Type)
	require.Equal(t, RefPledge, *txs[0].ReferenceType)
	require.Equal(t, 9, *txs[0].ReferenceID)
}

func TestVerifyBalance_Mismatch(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, balance_cents, currency, created_at, updated_at FROM wallets WHERE user_id = $1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(walletColumns()).AddRow(5, 1, 70000, "USD", now, now))

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(65000))

	err := repo.VerifyBalance(context.Background(), 1)
	require.ErrorIs(t, err, ErrInvariantViolation)
}
