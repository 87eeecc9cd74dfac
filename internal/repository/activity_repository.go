package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/unclebandit/outreach-backend/internal/model"
)

type ActivityRepositoryInterface interface {
	BatchInsert(ctx context.Context, activities []model.Activity) error
}

type ActivityRepository struct {
	DB *sql.DB
}

var _ ActivityRepositoryInterface = (*ActivityRepository)(nil)

// BatchInsert writes all activities in one multi-row INSERT.
func (r *ActivityRepository) BatchInsert(ctx context.Context, activities []model.Activity) error {
	if len(activities) == 0 {
		return nil
	}

	q := psql.Insert("activities").Columns("prospect_id", "campaign_id", "kind", "detail", "created_at")
	for _, a := range activities {
		q = q.Values(a.ProspectID, a.CampaignID, a.Kind, a.Detail, a.CreatedAt)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build activity insert: %w", err)
	}
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert activities: %w", err)
	}
	return nil
}
