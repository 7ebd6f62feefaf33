package ledger

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/sunny18-max/crowdfunding-sub001/internal/wallet"
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

func ledgerColumns() []string {
	return []string{"id", "wallet_id", "type", "amount_cents", "balance_before_cents", "balance_after_cents", "reference_type", "reference_id", "created_at"}
}

func TestListRefundablePledges(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE p.campaign_id = $1 AND p.status IN ('pending', 'committed')`)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "campaign_id", "amount_cents", "status", "created_at",
			"user_email", "user_name", "campaign_title",
		}).
			AddRow(1, 1, 5, 5000, "committed", now, "a@example.com", "A", "Synth").
			AddRow(2, 2, 5, 2500, "pending", now, "b@example.com", "B", "Synth"))

	pledges, err := repo.ListRefundablePledges(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, pledges, 2)
	require.Equal(t, "a@example.com", pledges[0].UserEmail)
	require.Equal(t, "pending", pledges[1].Status)
}

func TestRefundPledge_CreditsAndFlips(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	p := RefundablePledge{ID: 1, UserID: 1, CampaignID: 5, AmountCents: 5000, Status: "committed"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM wallets`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(walletColumns()).AddRow(2, 1, 100, "USD", now, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wallets`)).
		WithArgs(int64(5100), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO wallet_transactions`)).
		WithArgs(2, "refund", int64(5000), int64(100), int64(5100), wallet.RefPledge, 1).
		WillReturnRows(sqlmock.NewRows(ledgerColumns()).
			AddRow(50, 2, "refund", 5000, 100, 5100, wallet.RefPledge, 1, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE pledges SET status = 'refunded' WHERE id = $1 AND status IN ('pending', 'committed')`)).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE campaigns`)).
		WithArgs(int64(5000), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	refunded, err := repo.RefundPledge(context.Background(), p)
	require.NoError(t, err)
	require.True(t, refunded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefundPledge_AlreadyRefunded(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	p := RefundablePledge{ID: 1, UserID: 1, CampaignID: 5, AmountCents: 5000, Status: "committed"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE pledges SET status = 'refunded' WHERE id = $1 AND status <> 'refunded'`)).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	refunded, err := repo.RefundPledge(context.Background(), p)
	require.NoError(t, err)
	require.False(t, refunded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefundPledge_PendingDoesNotTouchCampaignTotal(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	p := RefundablePledge{ID: 3, UserID: 2, CampaignID: 5, AmountCents: 2500, Status: "pending"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM wallets`)).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(walletColumns()).AddRow(4, 2, 0, "USD", now, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wallets`)).
		WithArgs(int64(2500), 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO wallet_transactions`)).
		WithArgs(4, "refund", int64(2500), int64(0), int64(2500), wallet.RefPledge, 3).
		WillReturnRows(sqlmock.NewRows(ledgerColumns()).
			AddRow(51, 4, "refund", 2500, 0, 2500, wallet.RefPledge, 3, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE pledges SET status = 'refunded'`)).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// No campaign total decrement for a pending pledge.
	mock.ExpectCommit()

	refunded, err := repo.RefundPledge(context.Background(), p)
	require.NoError(t, err)
	require.True(t, refunded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_Success(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT creator_id, current_funds_cents`)).
		WithArgs(6).
		WillReturnRows(sqlmock.NewRows([]string{"creator_id", "current_funds_cents"}).AddRow(9, 250000))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO fund_release_log`)).
		WithArgs(6, int64(250000)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "campaign_id", "amount_cents", "status", "created_at"}).
			AddRow(1, 6, 250000, "completed", now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM wallets`)).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows(walletColumns()).AddRow(7, 9, 1000, "USD", now, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wallets`)).
		WithArgs(int64(251000), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO wallet_transactions`)).
		WithArgs(7, "credit", int64(250000), int64(1000), int64(251000), wallet.RefCampaignPayout, 6).
		WillReturnRows(sqlmock.NewRows(ledgerColumns()).
			AddRow(60, 7, "credit", 250000, 1000, 251000, wallet.RefCampaignPayout, 6, now))
	mock.ExpectCommit()

	release, err := repo.Release(context.Background(), 6)
	require.NoError(t, err)
	require.Equal(t, ReleaseCompleted, release.Status)
	require.Equal(t, int64(250000), release.AmountCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_NothingToRelease(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT creator_id, current_funds_cents`)).
		WithArgs(6).
		WillReturnRows(sqlmock.NewRows([]string{"creator_id", "current_funds_cents"}).AddRow(9, 0))
	mock.ExpectRollback()

	_, err := repo.Release(context.Background(), 6)
	require.ErrorIs(t, err, ErrNothingToRelease)
}

func TestRelease_RaceHitsUniqueIndex(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT creator_id, current_funds_cents`)).
		WithArgs(6).
		WillReturnRows(sqlmock.NewRows([]string{"creator_id", "current_funds_cents"}).AddRow(9, 250000))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO fund_release_log`)).
		WithArgs(6, int64(250000)).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.Release(context.Background(), 6)
	require.ErrorIs(t, err, ErrAlreadyReleased)
}

func TestRecordFailedRelease_UsesAttemptedAmount(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	// The amount comes from the campaign row, not from the caller, so the
	// failed row carries what the release attempt actually tried to move.
	mock.ExpectExec(regexp.QuoteMeta(`SELECT id, current_funds_cents, 'failed'`)).
		WithArgs(6).
		WillReturnResult(sqlmock.NewResult(2, 1))

	err := repo.RecordFailedRelease(context.Background(), 6)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcilePledge_InsufficientFundsSkips(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	p := UnreconciledPledge{ID: 8, UserID: 3, CampaignID: 5, AmountCents: 90000, Status: "committed", CreatedAt: now}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(`)).
		WithArgs(8).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM wallets`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(walletColumns()).AddRow(5, 3, 100, "USD", now, now))
	mock.ExpectRollback()

	outcome, err := repo.ReconcilePledge(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, ReconcileInsufficientFunds, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcilePledge_BackfillsWithOriginalTimestamp(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	created := time.Now().Add(-48 * time.Hour)
	now := time.Now()
	p := UnreconciledPledge{ID: 8, UserID: 3, CampaignID: 5, AmountCents: 5000, Status: "pending", CreatedAt: created}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(`)).
		WithArgs(8).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM wallets`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(walletColumns()).AddRow(5, 3, 20000, "USD", now, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wallets`)).
		WithArgs(int64(15000), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO wallet_transactions`)).
		WithArgs(5, "debit", int64(5000), int64(20000), int64(15000), wallet.RefPledge, 8, created).
		WillReturnRows(sqlmock.NewRows(ledgerColumns()).
			AddRow(70, 5, "debit", 5000, 20000, 15000, wallet.RefPledge, 8, created))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE pledges SET status = 'committed' WHERE id = $1 AND status = 'pending'`)).
		WithArgs(8).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := repo.ReconcilePledge(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, ReconcileBackfilled, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcilePledge_DebitAppearedMeanwhile(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	p := UnreconciledPledge{ID: 8, UserID: 3, CampaignID: 5, AmountCents: 5000, Status: "committed"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(`)).
		WithArgs(8).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	outcome, err := repo.ReconcilePledge(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, ReconcileAlreadyCovered, outcome)
}

func TestCreatorContact(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta(`JOIN users u ON c.creator_id = u.id`)).
		WithArgs(6).
		WillReturnRows(sqlmock.NewRows([]string{"email", "name"}).AddRow("creator@example.com", "Creator"))

	email, name, err := repo.CreatorContact(context.Background(), 6)
	require.NoError(t, err)
	require.Equal(t, "creator@example.com", email)
	require.Equal(t, "Creator", name)
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	require.False(t, isUniqueViolation(&pq.Error{Code: "40001"}))
	require.False(t, isUniqueViolation(errors.New("plain error")))
}
