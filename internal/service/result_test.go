package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/outreach-backend/internal/eligibility"
	"github.com/unclebandit/outreach-backend/internal/warmup"
)

var dayTen = warmup.State{Day: 10, Stage: "building", DailyLimit: 75}

func TestAggregateCountsAndBreakdown(t *testing.T) {
	funnel := eligibility.Funnel{Candidates: 9, AlreadyContacted: 2, Passed: 7}
	outcomes := []Outcome{
		{Kind: OutcomeSent, ProspectID: 1, CampaignID: 2, CampaignName: "B"},
		{Kind: OutcomeSent, ProspectID: 2, CampaignID: 1, CampaignName: "A"},
		{Kind: OutcomeFailed, ProspectID: 3, CampaignID: 2, CampaignName: "B", Reason: "generation returned no content"},
		{Kind: OutcomeBlocked, ProspectID: 4, CampaignID: 1, CampaignName: "A", Reason: "hard bounce"},
		{Kind: OutcomeBounced, ProspectID: 5, CampaignID: 2, CampaignName: "B"},
		{Kind: OutcomeSkipped, ProspectID: 6, Reason: "no matching campaign"},
		{Kind: OutcomeSent, ProspectID: 7, CampaignID: 2, CampaignName: "B"},
	}

	res := Aggregate(RunInfo{RunID: "r1", Warmup: dayTen, EffectiveMax: 6, SentToday: 4}, funnel, outcomes)

	assert.Equal(t, 3, res.Sent)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Blocked)
	assert.Equal(t, 1, res.Bounced)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, funnel, res.Funnel)
	assert.Equal(t, "r1", res.RunID)

	require.Len(t, res.Campaigns, 2)
	assert.Equal(t, CampaignBreakdown{CampaignID: 2, Name: "B", Sent: 2, Failed: 1, Bounced: 1}, res.Campaigns[0])
	assert.Equal(t, CampaignBreakdown{CampaignID: 1, Name: "A", Sent: 1, Blocked: 1}, res.Campaigns[1])

	assert.Len(t, res.Outcomes, 4)
	assert.Equal(t, "sent 3 of 6 (failed 1, blocked 1, bounced 1, skipped 1)", res.Message)
}

func TestAggregateShortCircuitMessages(t *testing.T) {
	disabled := Aggregate(RunInfo{Warmup: warmup.State{Stage: warmup.StageDisabled}, Stop: StopWarmupDisabled}, eligibility.Funnel{}, nil)
	assert.Equal(t, "warmup disabled: daily limit is 0", disabled.Message)
	assert.NotNil(t, disabled.Campaigns)

	limit := Aggregate(RunInfo{Warmup: dayTen, SentToday: 75, Stop: StopLimitReached}, eligibility.Funnel{}, nil)
	assert.Equal(t, "daily limit reached: 75 of 75 sent today", limit.Message)

	assert.Equal(t, "dispatch already in progress", InProgressResult().Message)
}

func TestAggregateEmptyFunnelMessages(t *testing.T) {
	none := Aggregate(RunInfo{Warmup: dayTen, EffectiveMax: 5}, eligibility.Funnel{}, nil)
	assert.Equal(t, "no candidate prospects", none.Message)

	filtered := Aggregate(RunInfo{Warmup: dayTen, EffectiveMax: 5}, eligibility.Funnel{Candidates: 3, NoEmail: 3}, nil)
	assert.Equal(t, "no eligible prospects after filtering", filtered.Message)
}

func TestAggregateCancelled(t *testing.T) {
	res := Aggregate(RunInfo{Warmup: dayTen, EffectiveMax: 5, Cancelled: true},
		eligibility.Funnel{Candidates: 2, Passed: 2},
		[]Outcome{{Kind: OutcomeSent, ProspectID: 1, CampaignID: 1}})

	assert.True(t, res.Cancelled)
	assert.Equal(t, "dispatch cancelled: sent 1 of 5 (failed 0, blocked 0, bounced 0, skipped 0)", res.Message)
}
