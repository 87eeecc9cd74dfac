package warmup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/outreach-backend/internal/config"
)

var testCurve = []Step{
	{FromDay: 1, DailyLimit: 20, Stage: "initial"},
	{FromDay: 4, DailyLimit: 40, Stage: "early"},
	{FromDay: 8, DailyLimit: 75, Stage: "building"},
	{FromDay: 29, DailyLimit: 250, Stage: "steady"},
}

func newScheduler(t *testing.T) *Scheduler {
	t.Helper()
	activated := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	s, err := New(testCurve, activated, time.UTC)
	require.NoError(t, err)
	return s
}

func TestAtFollowsStepCurve(t *testing.T) {
	s := newScheduler(t)

	cases := []struct {
		day   int
		limit int
		stage string
	}{
		{0, 0, StageDisabled},
		{-3, 0, StageDisabled},
		{1, 20, "initial"},
		{3, 20, "initial"},
		{4, 40, "early"},
		{7, 40, "early"},
		{8, 75, "building"},
		{28, 75, "building"},
		{29, 250, "steady"},
		{400, 250, "steady"},
	}
	for _, tc := range cases {
		got := s.At(tc.day)
		assert.Equal(t, tc.limit, got.DailyLimit, "day %d", tc.day)
		assert.Equal(t, tc.stage, got.Stage, "day %d", tc.day)
		assert.Equal(t, tc.day, got.Day)
	}
}

func TestAtIsMonotone(t *testing.T) {
	s := newScheduler(t)
	prev := -1
	for day := 0; day <= 60; day++ {
		limit := s.At(day).DailyLimit
		assert.GreaterOrEqual(t, limit, prev, "day %d", day)
		prev = limit
	}
}

func TestCurveStartingLaterLeavesEarlyDaysDisabled(t *testing.T) {
	s, err := New([]Step{{FromDay: 3, DailyLimit: 10, Stage: "initial"}}, time.Now(), time.UTC)
	require.NoError(t, err)

	assert.True(t, s.At(2).Disabled())
	assert.False(t, s.At(3).Disabled())
}

func TestDayIndex(t *testing.T) {
	s := newScheduler(t)

	assert.Equal(t, 0, s.DayIndex(time.Date(2025, time.December, 31, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, 1, s.DayIndex(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, s.DayIndex(time.Date(2026, time.January, 1, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, 2, s.DayIndex(time.Date(2026, time.January, 2, 0, 1, 0, 0, time.UTC)))
	assert.Equal(t, 32, s.DayIndex(time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC)))
}

func TestDayIndexUsesSchedulerZone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	s, err := New(testCurve, time.Date(2026, time.March, 1, 0, 0, 0, 0, ny), ny)
	require.NoError(t, err)

	// 03:00 UTC on March 2nd is still March 1st in New York.
	assert.Equal(t, 1, s.DayIndex(time.Date(2026, time.March, 2, 3, 0, 0, 0, time.UTC)))
	// Crossing the DST switch (March 8th) keeps whole-day counting.
	assert.Equal(t, 10, s.DayIndex(time.Date(2026, time.March, 10, 12, 0, 0, 0, ny)))
}

func TestStartOfDay(t *testing.T) {
	s := newScheduler(t)
	got := s.StartOfDay(time.Date(2026, time.May, 5, 17, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, time.May, 5, 0, 0, 0, 0, time.UTC), got)
}

func TestNewRejectsBadCurves(t *testing.T) {
	_, err := New(nil, time.Now(), time.UTC)
	assert.Error(t, err)

	_, err = New([]Step{{FromDay: 1, DailyLimit: 20}, {FromDay: 1, DailyLimit: 30}}, time.Now(), time.UTC)
	assert.Error(t, err)

	_, err = New([]Step{{FromDay: 1, DailyLimit: 20}, {FromDay: 2, DailyLimit: 10}}, time.Now(), time.UTC)
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	s, err := FromConfig(config.Default().Warmup)
	require.NoError(t, err)

	state := s.Today(time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, 5, state.Day)
	assert.Equal(t, 40, state.DailyLimit)
}
