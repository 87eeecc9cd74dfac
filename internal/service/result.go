package service

import (
	"fmt"

	"github.com/unclebandit/outreach-backend/internal/eligibility"
	"github.com/unclebandit/outreach-backend/internal/warmup"
)

// OutcomeKind is the terminal state of one prospect in a run.
type OutcomeKind string

const (
	OutcomeSent    OutcomeKind = "sent"
	OutcomeFailed  OutcomeKind = "failed"
	OutcomeBlocked OutcomeKind = "blocked"
	OutcomeBounced OutcomeKind = "bounced"
	OutcomeSkipped OutcomeKind = "skipped"
)

// Outcome is one processed prospect. CampaignID is zero for skipped prospects.
type Outcome struct {
	Kind         OutcomeKind `json:"kind"`
	ProspectID   int         `json:"prospect_id"`
	Email        string      `json:"email,omitempty"`
	CampaignID   int         `json:"campaign_id,omitempty"`
	CampaignName string      `json:"campaign_name,omitempty"`
	Reason       string      `json:"reason,omitempty"`
}

// StopReason records why a run ended before processing candidates.
type StopReason string

const (
	StopNone           StopReason = ""
	StopWarmupDisabled StopReason = "warmup_disabled"
	StopLimitReached   StopReason = "daily_limit_reached"
	StopInProgress     StopReason = "in_progress"
)

// RunInfo is the run-level context the aggregator folds outcomes into.
type RunInfo struct {
	RunID        string
	Warmup       warmup.State
	SentToday    int
	EffectiveMax int
	Stop         StopReason
	Cancelled    bool
}

type CampaignBreakdown struct {
	CampaignID int    `json:"campaign_id"`
	Name       string `json:"name"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
	Blocked    int    `json:"blocked"`
	Bounced    int    `json:"bounced"`
}

// DispatchResult is the report of one run.
type DispatchResult struct {
	RunID        string              `json:"run_id,omitempty"`
	Message      string              `json:"message"`
	Sent         int                 `json:"sent"`
	Failed       int                 `json:"failed"`
	Blocked      int                 `json:"blocked"`
	Bounced      int                 `json:"bounced"`
	Skipped      int                 `json:"skipped"`
	EffectiveMax int                 `json:"effective_max"`
	SentToday    int                 `json:"sent_today"`
	Cancelled    bool                `json:"cancelled,omitempty"`
	Warmup       warmup.State        `json:"warmup"`
	Funnel       eligibility.Funnel  `json:"funnel"`
	Campaigns    []CampaignBreakdown `json:"campaigns"`
	Outcomes     []Outcome           `json:"outcomes,omitempty"`
}

// Aggregate folds the funnel and per-prospect outcomes into a DispatchResult. It has no side effects.
// Campaign breakdowns appear in order of each campaign's first outcome; sent outcomes are counted
// but not listed individually.
func Aggregate(info RunInfo, funnel eligibility.Funnel, outcomes []Outcome) DispatchResult {
	res := DispatchResult{
		RunID:        info.RunID,
		EffectiveMax: info.EffectiveMax,
		SentToday:    info.SentToday,
		Cancelled:    info.Cancelled,
		Warmup:       info.Warmup,
		Funnel:       funnel,
		Campaigns:    []CampaignBreakdown{},
	}

	index := make(map[int]int)
	for _, o := range outcomes {
		switch o.Kind {
		case OutcomeSent:
			res.Sent++
		case OutcomeFailed:
			res.Failed++
		case OutcomeBlocked:
			res.Blocked++
		case OutcomeBounced:
			res.Bounced++
		case OutcomeSkipped:
			res.Skipped++
		}
		if o.Kind != OutcomeSent {
			res.Outcomes = append(res.Outcomes, o)
		}

		if o.CampaignID == 0 {
			continue
		}
		i, ok := index[o.CampaignID]
		if !ok {
			i = len(res.Campaigns)
			index[o.CampaignID] = i
			res.Campaigns = append(res.Campaigns, CampaignBreakdown{CampaignID: o.CampaignID, Name: o.CampaignName})
		}
		b := &res.Campaigns[i]
		switch o.Kind {
		case OutcomeSent:
			b.Sent++
		case OutcomeFailed:
			b.Failed++
		case OutcomeBlocked:
			b.Blocked++
		case OutcomeBounced:
			b.Bounced++
		}
	}

	res.Message = message(info, funnel, res)
	return res
}

// InProgressResult is reported when another run holds the dispatch lease.
func InProgressResult() DispatchResult {
	return Aggregate(RunInfo{Stop: StopInProgress}, eligibility.Funnel{}, nil)
}

func message(info RunInfo, funnel eligibility.Funnel, res DispatchResult) string {
	switch info.Stop {
	case StopInProgress:
		return "dispatch already in progress"
	case StopWarmupDisabled:
		return "warmup disabled: daily limit is 0"
	case StopLimitReached:
		return fmt.Sprintf("daily limit reached: %d of %d sent today", info.SentToday, info.Warmup.DailyLimit)
	}

	if funnel.Candidates == 0 {
		return "no candidate prospects"
	}
	if funnel.Passed == 0 {
		return "no eligible prospects after filtering"
	}

	summary := fmt.Sprintf("sent %d of %d (failed %d, blocked %d, bounced %d, skipped %d)",
		res.Sent, info.EffectiveMax, res.Failed, res.Blocked, res.Bounced, res.Skipped)
	if info.Cancelled {
		return "dispatch cancelled: " + summary
	}
	return summary
}
