package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/warmup"
)

type WarmupStatus struct {
	warmup.State
	SentToday int `json:"sent_today"`
	Remaining int `json:"remaining"`
}

type TierCount struct {
	Name     string `json:"name"`
	MinScore int    `json:"min_score"`
	Count    int    `json:"count"`
}

type CampaignStatus struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	StrategyKey string `json:"strategy_key"`
	DailyLimit  int    `json:"daily_limit"`
	EmailsSent  int    `json:"emails_sent"`
	Remaining   int    `json:"remaining"`
}

// Status is the read-only dispatch dashboard.
type Status struct {
	Warmup        WarmupStatus     `json:"warmup"`
	Eligible      []TierCount      `json:"eligible_by_tier"`
	EligibleTotal int              `json:"eligible_total"`
	Inboxes       []InboxStatus    `json:"inboxes"`
	Campaigns     []CampaignStatus `json:"campaigns"`
	BusinessHours bool             `json:"business_hours_enabled"`
}

// Status reports warmup position, eligible prospects by score tier and remaining capacity. It writes nothing.
func (s *DispatchService) Status(ctx context.Context) (*Status, error) {
	now := s.Clock()
	state := s.warmup.Today(now)

	sentByInbox, err := s.Emails.CountSentByInboxSince(ctx, s.warmup.StartOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("count today's sends: %w", err)
	}
	inboxes := newInboxCache(sentByInbox)
	sentToday := inboxes.total()

	byScore, err := s.Prospects.CountEligibleByScore(ctx, s.cfg.Eligibility.ActiveStages)
	if err != nil {
		return nil, fmt.Errorf("count eligible prospects: %w", err)
	}
	tiers, total := bucketByTier(byScore, s.cfg.Dispatch.ScoreTiers)

	campaigns, err := s.Campaigns.FetchActiveCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch campaigns: %w", err)
	}
	cs := make([]CampaignStatus, 0, len(campaigns))
	for _, c := range campaigns {
		cs = append(cs, CampaignStatus{
			ID:          c.ID,
			Name:        c.Name,
			StrategyKey: c.StrategyKey,
			DailyLimit:  c.DailyLimit,
			EmailsSent:  c.EmailsSent,
			Remaining:   c.Remaining(),
		})
	}

	return &Status{
		Warmup: WarmupStatus{
			State:     state,
			SentToday: sentToday,
			Remaining: max(state.DailyLimit-sentToday, 0),
		},
		Eligible:      tiers,
		EligibleTotal: total,
		Inboxes:       inboxes.capacities(s.cfg.Inboxes),
		Campaigns:     cs,
		BusinessHours: s.filter.BusinessHoursEnabled(),
	}, nil
}

// bucketByTier assigns each score to the highest tier whose MinScore it reaches. Scores below
// every tier are not counted. Tiers come back highest first.
func bucketByTier(byScore map[int]int, tiers []config.ScoreTier) ([]TierCount, int) {
	sorted := append([]config.ScoreTier(nil), tiers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinScore > sorted[j].MinScore })

	out := make([]TierCount, len(sorted))
	for i, t := range sorted {
		out[i] = TierCount{Name: t.Name, MinScore: t.MinScore}
	}

	total := 0
	for score, n := range byScore {
		for i := range out {
			if score >= out[i].MinScore {
				out[i].Count += n
				total += n
				break
			}
		}
	}
	return out, total
}
