package pledge

import "context"

type Repository interface {
	CreatePledge(ctx context.Context, userID, campaignID int, amountCents int64) (*Result, error)
	GetByID(ctx context.Context, id int) (*Pledge, error)
	ListByUser(ctx context.Context, userID int) ([]PledgeWithCampaign, error)
	ListByCampaign(ctx context.Context, campaignID int) ([]Pledge, error)
}
