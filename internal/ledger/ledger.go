// Package ledger increments the per-campaign emails_sent counter.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
)

// Ledger records one sent email against a campaign.
type Ledger interface {
	Increment(ctx context.Context, campaignID int) error
}

// Store is the counter persistence the ledgers build on.
type Store interface {
	// IncrementSent adds one in a single statement. It returns appErrors.ErrAtomicUnavailable
	// when the datastore cannot do that.
	IncrementSent(ctx context.Context, campaignID int) error
	GetSent(ctx context.Context, campaignID int) (int, error)
	SetSent(ctx context.Context, campaignID, sent int) error
}

// AtomicLedger increments in the datastore; concurrent increments never lose updates.
type AtomicLedger struct {
	Store Store
}

func (l *AtomicLedger) Increment(ctx context.Context, campaignID int) error {
	return l.Store.IncrementSent(ctx, campaignID)
}

// ReadModifyWriteLedger reads the counter and writes it back plus one. Two increments that
// interleave between read and write both write the same value, so one update is lost.
type ReadModifyWriteLedger struct {
	Store Store
}

func (l *ReadModifyWriteLedger) Increment(ctx context.Context, campaignID int) error {
	sent, err := l.Store.GetSent(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("read emails_sent for campaign %d: %w", campaignID, err)
	}
	if err := l.Store.SetSent(ctx, campaignID, sent+1); err != nil {
		return fmt.Errorf("write emails_sent for campaign %d: %w", campaignID, err)
	}
	return nil
}

// FallbackLedger tries the atomic path and degrades to read-modify-write when it is unavailable.
// Any other atomic-path error is returned as is.
type FallbackLedger struct {
	Atomic   Ledger
	Fallback Ledger
	Logger   *zap.Logger
}

// NewFallback builds the default ledger over one store.
func NewFallback(store Store, logger *zap.Logger) *FallbackLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackLedger{
		Atomic:   &AtomicLedger{Store: store},
		Fallback: &ReadModifyWriteLedger{Store: store},
		Logger:   logger.Named("ledger"),
	}
}

func (l *FallbackLedger) Increment(ctx context.Context, campaignID int) error {
	err := l.Atomic.Increment(ctx, campaignID)
	if !errors.Is(err, appErrors.ErrAtomicUnavailable) {
		return err
	}
	l.Logger.Warn("atomic increment unavailable, using read-modify-write", zap.Int("campaign_id", campaignID))
	return l.Fallback.Increment(ctx, campaignID)
}
