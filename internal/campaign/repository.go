package campaign

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const campaignColumns = `id, creator_id, title, description, goal_cents, current_funds_cents, deadline, status, created_at, updated_at`

func (r *repository) Create(ctx context.Context, creatorID int, title, description string, goalCents int64, deadline time.Time) (*Campaign, error) {
	query := `
		INSERT INTO campaigns (creator_id, title, description, goal_cents, deadline, status)
		VALUES ($1, $2, $3, $4, $5, 'active')
		RETURNING ` + campaignColumns

	var c Campaign
	err := r.db.GetContext(ctx, &c, query, creatorID, title, description, goalCents, deadline)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	var c Campaign
	err := r.db.GetContext(ctx, &c, query, id)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *repository) List(ctx context.Context, status string) ([]Campaign, error) {
	var campaigns []Campaign
	var err error
	if status != "" {
		err = r.db.SelectContext(ctx, &campaigns,
			`SELECT `+campaignColumns+` FROM campaigns WHERE status = $1 ORDER BY created_at DESC`, status)
	} else {
		err = r.db.SelectContext(ctx, &campaigns,
			`SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, err
	}

	return campaigns, nil
}

// Transition flips an active campaign into a terminal status. The status
// machine is one-way: the WHERE clause refuses to touch campaigns that
// already left the active state, and zero rows affected tells the caller
// the transition already happened.
func (r *repository) Transition(ctx context.Context, id int, to Status) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'active'
	`, to, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func (r *repository) GetStats(ctx context.Context, id int) (*Stats, error) {
	query := `
		SELECT
			c.id AS campaign_id,
			COUNT(DISTINCT p.user_id) FILTER (WHERE p.status <> 'refunded') AS backer_count,
			COUNT(p.*) FILTER (WHERE p.status <> 'refunded') AS pledge_count,
			COALESCE(AVG(p.amount_cents) FILTER (WHERE p.status <> 'refunded'), 0)::bigint AS average_pledge_cents,
			ROUND(c.current_funds_cents * 100.0 / c.goal_cents, 2) AS funding_percent
		FROM campaigns c
		LEFT JOIN pledges p ON p.campaign_id = c.id
		WHERE c.id = $1
		GROUP BY c.id
	`

	var stats Stats
	err := r.db.GetContext(ctx, &stats, query, id)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
