package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

// Postgres error codes meaning the increment function is missing or not callable.
const (
	pqUndefinedFunction     = "42883"
	pqInsufficientPrivilege = "42501"
)

type CampaignRepositoryInterface interface {
	FetchActiveCampaigns(ctx context.Context) ([]model.Campaign, error)
	IncrementSent(ctx context.Context, campaignID int) error
	GetSent(ctx context.Context, campaignID int) (int, error)
	SetSent(ctx context.Context, campaignID, sent int) error
}

type CampaignRepository struct {
	DB *sql.DB
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)

// FetchActiveCampaigns returns active campaigns in id order; the router's round-robin follows this order.
func (r *CampaignRepository) FetchActiveCampaigns(ctx context.Context) ([]model.Campaign, error) {
	query, args, err := psql.
		Select("id", "name", "strategy_key", "active", "daily_limit", "emails_sent", "prompt_template", "created_at", "updated_at").
		From("campaigns").
		Where("active").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build campaigns query: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}

	var campaigns []model.Campaign
	for rows.Next() {
		var c model.Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.StrategyKey, &c.Active, &c.DailyLimit, &c.EmailsSent, &c.PromptTemplate, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, closeRows(rows, fmt.Errorf("scan campaign: %w", err))
		}
		campaigns = append(campaigns, c)
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// IncrementSent calls increment_emails_sent, a single-statement UPDATE.
func (r *CampaignRepository) IncrementSent(ctx context.Context, campaignID int) error {
	_, err := r.DB.ExecContext(ctx, `SELECT increment_emails_sent($1)`, campaignID)
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && (pqErr.Code == pqUndefinedFunction || pqErr.Code == pqInsufficientPrivilege) {
		return fmt.Errorf("%w: %s", appErrors.ErrAtomicUnavailable, pqErr.Message)
	}
	return fmt.Errorf("increment emails_sent: %w", err)
}

func (r *CampaignRepository) GetSent(ctx context.Context, campaignID int) (int, error) {
	var sent int
	err := r.DB.QueryRowContext(ctx, `SELECT emails_sent FROM campaigns WHERE id = $1`, campaignID).Scan(&sent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.NewCampaignNotFound(campaignID)
		}
		return 0, err
	}
	return sent, nil
}

func (r *CampaignRepository) SetSent(ctx context.Context, campaignID, sent int) error {
	query, args, err := psql.
		Update("campaigns").
		Set("emails_sent", sent).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": campaignID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set emails_sent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	return nil
}
