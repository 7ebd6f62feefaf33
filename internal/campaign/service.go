package campaign

import (
	"context"
	"errors"
	"time"

	"github.com/sunny18-max/crowdfunding-sub001/internal/ledger"
	"github.com/sunny18-max/crowdfunding-sub001/internal/logger"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrNotActive        = errors.New("campaign is not active")
	ErrInvalidGoal      = errors.New("goal must be positive")
	ErrInvalidDeadline  = errors.New("deadline must be in the future")
)

// Engine is the fund-flow side of campaign lifecycle transitions,
// implemented by the ledger package.
type Engine interface {
	SettleFailedCampaign(ctx context.Context, campaignID int) (*ledger.SettlementSummary, error)
	ReleaseFunds(ctx context.Context, campaignID int) (*ledger.FundRelease, error)
}

type Service interface {
	Create(ctx context.Context, creatorID int, req CreateCampaignRequest) (*Campaign, error)
	Get(ctx context.Context, id int) (*Campaign, error)
	List(ctx context.Context, status string) ([]Campaign, error)
	GetStats(ctx context.Context, id int) (*Stats, error)
	Fail(ctx context.Context, id int) (*ledger.SettlementSummary, error)
	Complete(ctx context.Context, id int) (*ledger.FundRelease, error)
	Cancel(ctx context.Context, id int) (*ledger.SettlementSummary, error)
}

type service struct {
	repo   Repository
	engine Engine
}

func NewService(repo Repository, engine Engine) Service {
	return &service{
		repo:   repo,
		engine: engine,
	}
}

func (s *service) Create(ctx context.Context, creatorID int, req CreateCampaignRequest) (*Campaign, error) {
	if req.GoalCents <= 0 {
		return nil, ErrInvalidGoal
	}

	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		return nil, ErrInvalidDeadline
	}
	if !deadline.After(time.Now()) {
		return nil, ErrInvalidDeadline
	}

	return s.repo.Create(ctx, creatorID, req.Title, req.Description, req.GoalCents, deadline)
}

func (s *service) Get(ctx context.Context, id int) (*Campaign, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrCampaignNotFound
	}
	return c, nil
}

func (s *service) List(ctx context.Context, status string) ([]Campaign, error) {
	return s.repo.List(ctx, status)
}

func (s *service) GetStats(ctx context.Context, id int) (*Stats, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, ErrCampaignNotFound
	}
	return s.repo.GetStats(ctx, id)
}

// Fail moves the campaign to failed and settles outstanding pledges. The
// transition happens first so the settlement trigger comes from the
// one-way status machine. Because the engine tolerates re-invocation,
// calling Fail on an already-failed campaign re-runs settlement: that is
// the retry path for pledges a partial earlier run could not refund.
func (s *service) Fail(ctx context.Context, id int) (*ledger.SettlementSummary, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, ErrCampaignNotFound
	}

	transitioned, err := s.repo.Transition(ctx, id, StatusFailed)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		if err := s.requireStatus(ctx, id, StatusFailed); err != nil {
			return nil, err
		}
		logger.Info("campaign already failed, re-running settlement", "campaign_id", id)
		return s.engine.SettleFailedCampaign(ctx, id)
	}

	logger.Info("campaign failed, settling pledges", "campaign_id", id)
	return s.engine.SettleFailedCampaign(ctx, id)
}

// requireStatus re-reads the campaign after a transition reported zero
// rows, so the decision uses its live status rather than the pre-check.
func (s *service) requireStatus(ctx context.Context, id int, want Status) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrCampaignNotFound
	}
	if c.Status != want {
		return ErrNotActive
	}
	return nil
}

// Complete moves the campaign to successful and releases its funds to the
// creator. On an already-successful campaign the release is retried; the
// engine rejects it with ErrAlreadyReleased when the payout landed.
func (s *service) Complete(ctx context.Context, id int) (*ledger.FundRelease, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, ErrCampaignNotFound
	}

	transitioned, err := s.repo.Transition(ctx, id, StatusSuccessful)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		if err := s.requireStatus(ctx, id, StatusSuccessful); err != nil {
			return nil, err
		}
		logger.Info("campaign already successful, retrying fund release", "campaign_id", id)
		return s.engine.ReleaseFunds(ctx, id)
	}

	logger.Info("campaign successful, releasing funds", "campaign_id", id)
	return s.engine.ReleaseFunds(ctx, id)
}

// Cancel moves the campaign to cancelled and refunds its backers the same
// way a failure settlement does, with the same retry path on an
// already-cancelled campaign.
func (s *service) Cancel(ctx context.Context, id int) (*ledger.SettlementSummary, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, ErrCampaignNotFound
	}

	transitioned, err := s.repo.Transition(ctx, id, StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		if err := s.requireStatus(ctx, id, StatusCancelled); err != nil {
			return nil, err
		}
		logger.Info("campaign already cancelled, re-running settlement", "campaign_id", id)
		return s.engine.SettleFailedCampaign(ctx, id)
	}

	logger.Info("campaign cancelled, settling pledges", "campaign_id", id)
	return s.engine.SettleFailedCampaign(ctx, id)
}
