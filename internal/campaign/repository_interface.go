package campaign

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, creatorID int, title, description string, goalCents int64, deadline time.Time) (*Campaign, error)
	GetByID(ctx context.Context, id int) (*Campaign, error)
	List(ctx context.Context, status string) ([]Campaign, error)
	// Transition moves an active campaign into a terminal status and
	// reports whether this call performed the transition.
	Transition(ctx context.Context, id int, to Status) (bool, error)
	GetStats(ctx context.Context, id int) (*Stats, error)
}
