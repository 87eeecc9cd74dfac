package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/unclebandit/outreach-backend/internal/model"
)

type ProspectRepositoryInterface interface {
	FetchCandidates(ctx context.Context, filter model.CandidateFilter) ([]model.Prospect, error)
	BatchUpdateStage(ctx context.Context, ids []int, stage string, contactedAt time.Time) error
	CountEligibleByScore(ctx context.Context, stages []string) (map[int]int, error)
}

type ProspectRepository struct {
	DB *sql.DB
}

var _ ProspectRepositoryInterface = (*ProspectRepository)(nil)

var prospectColumns = []string{
	"id", "email", "source", "stage", "score", "country", "archived",
	"first_name", "last_name", "company", "title", "last_contacted_at",
}

func candidateQuery(filter model.CandidateFilter) sq.SelectBuilder {
	q := psql.
		Select(prospectColumns...).
		From("prospects").
		Where(sq.Expr("stage = ANY(?)", pq.Array(filter.Stages))).
		Where("NOT archived").
		Where("email IS NOT NULL").
		Where(sq.GtOrEq{"score": filter.MinScore})

	if filter.MaxFailedAttempts > 0 {
		q = q.Where(sq.Expr(
			"(SELECT COUNT(*) FROM activities a WHERE a.prospect_id = prospects.id AND a.kind = ?) < ?",
			model.ActivityEmailFailed, filter.MaxFailedAttempts,
		))
	}

	q = q.OrderBy("score DESC", "id")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	return q
}

// FetchCandidates returns the candidate superset for a run, best score first.
func (r *ProspectRepository) FetchCandidates(ctx context.Context, filter model.CandidateFilter) ([]model.Prospect, error) {
	query, args, err := candidateQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build candidates query: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}

	var prospects []model.Prospect
	for rows.Next() {
		var p model.Prospect
		if err := rows.Scan(&p.ID, &p.Email, &p.Source, &p.Stage, &p.Score, &p.Country, &p.Archived,
			&p.FirstName, &p.LastName, &p.Company, &p.Title, &p.LastContactedAt); err != nil {
			return nil, closeRows(rows, fmt.Errorf("scan prospect: %w", err))
		}
		prospects = append(prospects, p)
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}
	return prospects, nil
}

// BatchUpdateStage moves every listed prospect to stage in one statement.
func (r *ProspectRepository) BatchUpdateStage(ctx context.Context, ids []int, stage string, contactedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := psql.
		Update("prospects").
		Set("stage", stage).
		Set("last_contacted_at", contactedAt).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Expr("id = ANY(?)", pq.Array(int64s(ids)))).
		ToSql()
	if err != nil {
		return fmt.Errorf("build stage update: %w", err)
	}
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update stages: %w", err)
	}
	return nil
}

// CountEligibleByScore counts not-yet-contacted prospects in the active stages, keyed by score.
func (r *ProspectRepository) CountEligibleByScore(ctx context.Context, stages []string) (map[int]int, error) {
	query, args, err := psql.
		Select("score", "COUNT(*)").
		From("prospects p").
		Where(sq.Expr("p.stage = ANY(?)", pq.Array(stages))).
		Where("NOT p.archived").
		Where("p.email IS NOT NULL").
		Where(sq.Expr("NOT EXISTS (SELECT 1 FROM email_records e WHERE e.prospect_id = p.id AND e.direction = ?)", model.DirectionOutbound)).
		GroupBy("score").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build eligible count: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count eligible: %w", err)
	}

	counts := make(map[int]int)
	for rows.Next() {
		var score, n int
		if err := rows.Scan(&score, &n); err != nil {
			return nil, closeRows(rows, fmt.Errorf("scan count: %w", err))
		}
		counts[score] = n
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}
	return counts, nil
}
