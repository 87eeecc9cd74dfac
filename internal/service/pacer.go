package service

import (
	"context"
	"time"

	"github.com/LerianStudio/lib-uncommons/v2/uncommons/backoff"

	"github.com/unclebandit/outreach-backend/internal/config"
)

// Pacer waits between transport calls.
type Pacer interface {
	Pace(ctx context.Context, stagger bool) error
}

// DelayPacer sleeps MinDelay, or MinDelay plus full jitter over the band up to MaxDelay when staggering.
type DelayPacer struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

func NewDelayPacer(cfg config.PacingConfig) *DelayPacer {
	return &DelayPacer{MinDelay: cfg.MinDelay, MaxDelay: cfg.MaxDelay}
}

// Delay picks the next pause.
func (p *DelayPacer) Delay(stagger bool) time.Duration {
	if !stagger || p.MaxDelay <= p.MinDelay {
		return p.MinDelay
	}
	return p.MinDelay + backoff.FullJitter(p.MaxDelay-p.MinDelay)
}

func (p *DelayPacer) Pace(ctx context.Context, stagger bool) error {
	return backoff.SleepWithContext(ctx, p.Delay(stagger))
}
