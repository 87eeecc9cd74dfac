package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type EmailRecordRepositoryInterface interface {
	Insert(ctx context.Context, rec *model.EmailRecord) error
	OutboundProspectIDs(ctx context.Context, prospectIDs []int) (map[int]bool, error)
	CountSentByInboxSince(ctx context.Context, since time.Time) (map[string]int, error)
}

type EmailRecordRepository struct {
	DB *sql.DB
}

var _ EmailRecordRepositoryInterface = (*EmailRecordRepository)(nil)

// Insert appends rec and sets its ID. A second outbound record for the same prospect is rejected
// with appErrors.ErrDuplicateOutbound.
func (r *EmailRecordRepository) Insert(ctx context.Context, rec *model.EmailRecord) error {
	query, args, err := psql.
		Insert("email_records").
		Columns("prospect_id", "campaign_id", "direction", "subject", "body", "sent_at", "message_id", "sent_from", "status").
		Values(rec.ProspectID, rec.CampaignID, rec.Direction, rec.Subject, rec.Body, rec.SentAt, rec.MessageID, rec.SentFrom, rec.Status).
		Suffix("ON CONFLICT (prospect_id) WHERE direction = 'outbound' DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&rec.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("prospect %d: %w", rec.ProspectID, appErrors.ErrDuplicateOutbound)
		}
		return fmt.Errorf("insert email record: %w", err)
	}
	return nil
}

// OutboundProspectIDs reports which of prospectIDs already have an outbound email on record.
func (r *EmailRecordRepository) OutboundProspectIDs(ctx context.Context, prospectIDs []int) (map[int]bool, error) {
	result := make(map[int]bool)
	if len(prospectIDs) == 0 {
		return result, nil
	}

	query, args, err := psql.
		Select("DISTINCT prospect_id").
		From("email_records").
		Where(sq.Eq{"direction": model.DirectionOutbound}).
		Where(sq.Expr("prospect_id = ANY(?)", pq.Array(int64s(prospectIDs)))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build contacted query: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query contacted: %w", err)
	}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, closeRows(rows, fmt.Errorf("scan id: %w", err))
		}
		result[id] = true
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}
	return result, nil
}

// CountSentByInboxSince counts successful outbound sends per sending inbox since the given instant.
func (r *EmailRecordRepository) CountSentByInboxSince(ctx context.Context, since time.Time) (map[string]int, error) {
	query, args, err := psql.
		Select("sent_from", "COUNT(*)").
		From("email_records").
		Where(sq.Eq{"direction": model.DirectionOutbound, "status": model.EmailStatusSent}).
		Where(sq.GtOrEq{"sent_at": since}).
		GroupBy("sent_from").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build inbox count: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count sends: %w", err)
	}

	counts := make(map[string]int)
	for rows.Next() {
		var inbox string
		var n int
		if err := rows.Scan(&inbox, &n); err != nil {
			return nil, closeRows(rows, fmt.Errorf("scan count: %w", err))
		}
		counts[inbox] = n
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}
	return counts, nil
}
