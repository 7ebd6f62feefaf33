package ledger

import (
	"context"
	"errors"

	"github.com/sunny18-max/crowdfunding-sub001/internal/logger"
	"github.com/sunny18-max/crowdfunding-sub001/internal/metrics"
	"github.com/sunny18-max/crowdfunding-sub001/internal/wallet"
)

// Notifier delivers best-effort backer/creator notifications. Failures are
// logged and never affect ledger state.
type Notifier interface {
	SendRefundNotice(ctx context.Context, email, name, campaignTitle string, amountCents int64) error
	SendPayoutNotice(ctx context.Context, email, name string, amountCents int64) error
}

type Service interface {
	SettleFailedCampaign(ctx context.Context, campaignID int) (*SettlementSummary, error)
	ReleaseFunds(ctx context.Context, campaignID int) (*FundRelease, error)
	Reconcile(ctx context.Context) (*ReconcileSummary, error)
}

type service struct {
	repo     Repository
	notifier Notifier
}

func NewService(repo Repository, notifier Notifier) Service {
	return &service{
		repo:     repo,
		notifier: notifier,
	}
}

// SettleFailedCampaign refunds every outstanding pledge on the campaign.
// Each pledge settles in its own transaction: one backer's failure does
// not block the others, and re-invocation skips pledges whose refund
// already made it into the ledger.
func (s *service) SettleFailedCampaign(ctx context.Context, campaignID int) (*SettlementSummary, error) {
	pledges, err := s.repo.ListRefundablePledges(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	summary := &SettlementSummary{CampaignID: campaignID}
	for _, p := range pledges {
		refunded, err := s.repo.RefundPledge(ctx, p)
		if err != nil {
			if errors.Is(err, wallet.ErrInvariantViolation) {
				// Arithmetic mismatch needs operator review; stop settling
				// this campaign rather than compounding the damage.
				metrics.RecordInvariantViolation("settlement")
				logger.Error("invariant violation during settlement, halting campaign",
					"campaign_id", campaignID, "pledge_id", p.ID, "error", err)
				return summary, err
			}
			summary.Failed++
			metrics.RecordRefund("failed")
			logger.Error("failed to refund pledge",
				"campaign_id", campaignID, "pledge_id", p.ID, "error", err)
			continue
		}

		if !refunded {
			summary.Skipped++
			metrics.RecordRefund("skipped")
			continue
		}

		summary.Refunded++
		metrics.RecordRefund("refunded")

		if s.notifier != nil {
			if err := s.notifier.SendRefundNotice(ctx, p.UserEmail, p.UserName, p.CampaignTitle, p.AmountCents); err != nil {
				logger.Error("failed to queue refund notice", "pledge_id", p.ID, "error", err)
			}
		}
	}

	logger.Info("settlement finished",
		"campaign_id", campaignID,
		"refunded", summary.Refunded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)

	return summary, nil
}

// ReleaseFunds transfers the campaign's raised total to its creator,
// exactly once per campaign.
func (s *service) ReleaseFunds(ctx context.Context, campaignID int) (*FundRelease, error) {
	exists, err := s.repo.CompletedReleaseExists(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if exists {
		metrics.RecordFundRelease("duplicate")
		return nil, ErrAlreadyReleased
	}

	release, err := s.repo.Release(ctx, campaignID)
	if err != nil {
		if errors.Is(err, ErrAlreadyReleased) {
			metrics.RecordFundRelease("duplicate")
			return nil, err
		}

		metrics.RecordFundRelease("failed")
		logger.Error("fund release failed", "campaign_id", campaignID, "error", err)
		if recErr := s.repo.RecordFailedRelease(ctx, campaignID); recErr != nil {
			logger.Error("failed to record failed release", "campaign_id", campaignID, "error", recErr)
		}
		return nil, err
	}

	metrics.RecordFundRelease("completed")
	logger.Info("funds released", "campaign_id", campaignID, "amount_cents", release.AmountCents)

	if s.notifier != nil {
		email, name, err := s.repo.CreatorContact(ctx, campaignID)
		if err != nil {
			logger.Error("failed to look up creator contact", "campaign_id", campaignID, "error", err)
		} else if err := s.notifier.SendPayoutNotice(ctx, email, name, release.AmountCents); err != nil {
			logger.Error("failed to queue payout notice", "campaign_id", campaignID, "error", err)
		}
	}

	return release, nil
}

// Reconcile backfills debit transactions for pledges that have none. It
// only acts on pledges still lacking a ledger row, so repeated runs
// converge: a second run right after a first is a no-op.
func (s *service) Reconcile(ctx context.Context) (*ReconcileSummary, error) {
	pledges, err := s.repo.ListUnreconciledPledges(ctx)
	if err != nil {
		return nil, err
	}

	summary := &ReconcileSummary{}
	for _, p := range pledges {
		outcome, err := s.repo.ReconcilePledge(ctx, p)
		if err != nil {
			return summary, err
		}

		switch outcome {
		case ReconcileBackfilled:
			summary.Processed++
		case ReconcileAlreadyCovered:
			summary.AlreadyCovered++
		case ReconcileInsufficientFunds:
			summary.Skipped++
			summary.SkippedIDs = append(summary.SkippedIDs, p.ID)
			logger.Info("pledge skipped during reconciliation, wallet cannot cover it",
				"pledge_id", p.ID, "amount_cents", p.AmountCents)
		}
	}

	metrics.RecordReconcileRun(summary.Processed, summary.Skipped)
	logger.Info("reconciliation finished",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"already_covered", summary.AlreadyCovered,
	)

	return summary, nil
}
