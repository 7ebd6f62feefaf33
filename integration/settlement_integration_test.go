package integration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sunny18-max/crowdfunding-sub001/internal/campaign"
	"github.com/sunny18-max/crowdfunding-sub001/internal/ledger"
	"github.com/sunny18-max/crowdfunding-sub001/internal/pledge"
	"github.com/sunny18-max/crowdfunding-sub001/internal/wallet"
)

func TestSettlement_RefundsAndIsIdempotent_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()

	cleanTables(t, db)
	ctx := context.Background()

	creatorID := createTestUser(t, db, "creator@test.com", "Creator")
	backerID := createTestUser(t, db, "backer@test.com", "Backer")
	campaignID := createTestCampaign(t, db, creatorID, 100000)

	walletRepo := wallet.NewRepository(db)
	_, err := walletRepo.TopUp(ctx, backerID, 20000)
	require.NoError(t, err)

	pledgeRepo := pledge.NewRepository(db)
	_, err = pledgeRepo.CreatePledge(ctx, backerID, campaignID, 5000)
	require.NoError(t, err)

	campaignRepo := campaign.NewRepository(db)
	transitioned, err := campaignRepo.Transition(ctx, campaignID, campaign.StatusFailed)
	require.NoError(t, err)
	require.True(t, transitioned)

	engine := ledger.NewService(ledger.NewRepository(db), nil)

	summary, err := engine.SettleFailedCampaign(ctx, campaignID)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Refunded)

	// Backer got their money back and the campaign total dropped.
	w, err := walletRepo.GetOrCreateWallet(ctx, backerID)
	require.NoError(t, err)
	require.Equal(t, int64(20000), w.BalanceCents)

	c, err := campaignRepo.GetByID(ctx, campaignID)
	require.NoError(t, err)
	require.Equal(t, int64(0), c.CurrentFundsCents)

	// Second run finds nothing left to refund.
	summary, err = engine.SettleFailedCampaign(ctx, campaignID)
	require.NoError(t, err)
	require.Equal(t, 0, summary.Refunded)
	require.Equal(t, 0, summary.Skipped+summary.Failed)

	w, err = walletRepo.GetOrCreateWallet(ctx, backerID)
	require.NoError(t, err)
	require.Equal(t, int64(20000), w.BalanceCents)
}

func TestFundRelease_AtMostOnce_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()

	cleanTables(t, db)
	ctx := context.Background()

	creatorID := createTestUser(t, db, "creator@test.com", "Creator")
	backerID := createTestUser(t, db, "backer@test.com", "Backer")
	campaignID := createTestCampaign(t, db, creatorID, 10000)

	walletRepo := wallet.NewRepository(db)
	_, err := walletRepo.TopUp(ctx, backerID, 20000)
	require.NoError(t, err)

	pledgeRepo := pledge.NewRepository(db)
	_, err = pledgeRepo.CreatePledge(ctx, backerID, campaignID, 10000)
	require.NoError(t, err)

	campaignRepo := campaign.NewRepository(db)
	transitioned, err := campaignRepo.Transition(ctx, campaignID, campaign.StatusSuccessful)
	require.NoError(t, err)
	require.True(t, transitioned)

	engine := ledger.NewService(ledger.NewRepository(db), nil)

	release, err := engine.ReleaseFunds(ctx, campaignID)
	require.NoError(t, err)
	require.Equal(t, int64(10000), release.AmountCents)

	w, err := walletRepo.GetOrCreateWallet(ctx, creatorID)
	require.NoError(t, err)
	require.Equal(t, int64(10000), w.BalanceCents)

	// Second release must be rejected and must not pay again.
	_, err = engine.ReleaseFunds(ctx, campaignID)
	require.ErrorIs(t, err, ledger.ErrAlreadyReleased)

	w, err = walletRepo.GetOrCreateWallet(ctx, creatorID)
	require.NoError(t, err)
	require.Equal(t, int64(10000), w.BalanceCents)
}

func TestReconcile_BackfillsMissingDebit_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()

	cleanTables(t, db)
	ctx := context.Background()

	creatorID := createTestUser(t, db, "creator@test.com", "Creator")
	backerID := createTestUser(t, db, "backer@test.com", "Backer")
	campaignID := createTestCampaign(t, db, creatorID, 100000)

	walletRepo := wallet.NewRepository(db)
	_, err := walletRepo.TopUp(ctx, backerID, 20000)
	require.NoError(t, err)

	// Simulate legacy data: a pledge row with no ledger debit behind it.
	_, err = db.Exec(`
		INSERT INTO pledges (user_id, campaign_id, amount_cents, status, created_at)
		VALUES ($1, $2, 5000, 'pending', NOW() - INTERVAL '2 days')
	`, backerID, campaignID)
	require.NoError(t, err)

	engine := ledger.NewService(ledger.NewRepository(db), nil)

	summary, err := engine.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)
	require.Equal(t, 0, summary.Skipped)

	// Debit landed and the pledge is committed now.
	w, err := walletRepo.GetOrCreateWallet(ctx, backerID)
	require.NoError(t, err)
	require.Equal(t, int64(15000), w.BalanceCents)

	var status string
	require.NoError(t, db.Get(&status, `SELECT status FROM pledges WHERE user_id = $1`, backerID))
	require.Equal(t, pledge.StatusCommitted, status)

	// Re-running converges to a no-op.
	summary, err = engine.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, summary.Processed)
	require.Equal(t, 0, summary.Skipped)
}
