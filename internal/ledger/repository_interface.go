package ledger

import "context"

type Repository interface {
	// Settlement.
	ListRefundablePledges(ctx context.Context, campaignID int) ([]RefundablePledge, error)
	RefundPledge(ctx context.Context, p RefundablePledge) (bool, error)

	// Fund release.
	CompletedReleaseExists(ctx context.Context, campaignID int) (bool, error)
	Release(ctx context.Context, campaignID int) (*FundRelease, error)
	RecordFailedRelease(ctx context.Context, campaignID int) error
	CreatorContact(ctx context.Context, campaignID int) (email, name string, err error)

	// Reconciliation.
	ListUnreconciledPledges(ctx context.Context) ([]UnreconciledPledge, error)
	ReconcilePledge(ctx context.Context, p UnreconciledPledge) (ReconcileOutcome, error)
}
