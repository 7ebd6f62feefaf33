package pledge

import (
	"context"
	"errors"

	"github.com/sunny18-max/crowdfunding-sub001/internal/logger"
	"github.com/sunny18-max/crowdfunding-sub001/internal/metrics"
	"github.com/sunny18-max/crowdfunding-sub001/internal/user"
	"github.com/sunny18-max/crowdfunding-sub001/internal/wallet"
)

var ErrInsufficientFunds = errors.New("insufficient wallet balance")

// Notifier queues the backer's pledge receipt. Best effort only.
type Notifier interface {
	SendPledgeReceipt(ctx context.Context, email, name string, amountCents int64, campaignID int) error
}

type Service interface {
	Create(ctx context.Context, userID int, req CreatePledgeRequest) (*Result, error)
	ListMine(ctx context.Context, userID int) ([]PledgeWithCampaign, error)
	ListByCampaign(ctx context.Context, campaignID int) ([]Pledge, error)
}

type service struct {
	repo     Repository
	userRepo user.Repository
	notifier Notifier
}

func NewService(repo Repository, userRepo user.Repository, notifier Notifier) Service {
	return &service{
		repo:     repo,
		userRepo: userRepo,
		notifier: notifier,
	}
}

func (s *service) Create(ctx context.Context, userID int, req CreatePledgeRequest) (*Result, error) {
	if req.AmountCents <= 0 {
		metrics.RecordPledge("invalid_amount", 0)
		return nil, wallet.ErrInvalidAmount
	}

	result, err := s.repo.CreatePledge(ctx, userID, req.CampaignID, req.AmountCents)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInsufficientFunds):
			metrics.RecordPledge("insufficient_funds", 0)
			return nil, ErrInsufficientFunds
		case errors.Is(err, ErrCampaignNotActive), errors.Is(err, ErrCampaignNotFound):
			metrics.RecordPledge("campaign_not_active", 0)
			return nil, err
		default:
			metrics.RecordPledge("error", 0)
			return nil, err
		}
	}

	metrics.RecordPledge("committed", req.AmountCents)
	logger.Info("pledge committed",
		"pledge_id", result.Pledge.ID,
		"user_id", userID,
		"campaign_id", req.CampaignID,
		"amount_cents", req.AmountCents,
	)

	if s.notifier != nil {
		backer, err := s.userRepo.FindByID(ctx, userID)
		if err == nil && backer != nil {
			if err := s.notifier.SendPledgeReceipt(ctx, backer.Email, backer.Name, req.AmountCents, req.CampaignID); err != nil {
				logger.Error("failed to queue pledge receipt", "pledge_id", result.Pledge.ID, "error", err)
			}
		}
	}

	return result, nil
}

func (s *service) ListMine(ctx context.Context, userID int) ([]PledgeWithCampaign, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) ListByCampaign(ctx context.Context, campaignID int) ([]Pledge, error) {
	return s.repo.ListByCampaign(ctx, campaignID)
}
