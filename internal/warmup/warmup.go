// Package warmup maps the number of days since the engine was switched on to the global daily
// send ceiling.
package warmup

import (
	"errors"
	"fmt"
	"time"

	"github.com/unclebandit/outreach-backend/internal/config"
)

// StageDisabled is reported for days the curve assigns no volume to.
const StageDisabled = "disabled"

// Step applies DailyLimit from FromDay until the next step begins.
type Step struct {
	FromDay    int
	DailyLimit int
	Stage      string
}

// State is today's position on the ramp.
type State struct {
	Day        int    `json:"day"`
	Stage      string `json:"stage"`
	DailyLimit int    `json:"daily_limit"`
}

// Disabled reports whether the ramp allows no sends at all.
func (s State) Disabled() bool {
	return s.DailyLimit <= 0
}

type Scheduler struct {
	steps     []Step
	activated time.Time
	loc       *time.Location
}

// New validates the curve and pins the activation day in loc.
func New(steps []Step, activated time.Time, loc *time.Location) (*Scheduler, error) {
	if len(steps) == 0 {
		return nil, errors.New("warmup curve is empty")
	}
	for i := 1; i < len(steps); i++ {
		if steps[i].FromDay <= steps[i-1].FromDay {
			return nil, fmt.Errorf("warmup step %d: fromDay must increase", i)
		}
		if steps[i].DailyLimit < steps[i-1].DailyLimit {
			return nil, fmt.Errorf("warmup step %d: dailyLimit must not decrease", i)
		}
	}
	if loc == nil {
		loc = time.UTC
	}

	cp := make([]Step, len(steps))
	copy(cp, steps)
	return &Scheduler{steps: cp, activated: activated.In(loc), loc: loc}, nil
}

// FromConfig builds a Scheduler from the warmup section.
func FromConfig(cfg config.WarmupConfig) (*Scheduler, error) {
	activated, err := cfg.ActivationDate()
	if err != nil {
		return nil, err
	}
	steps := make([]Step, 0, len(cfg.Curve))
	for _, s := range cfg.Curve {
		steps = append(steps, Step{FromDay: s.FromDay, DailyLimit: s.DailyLimit, Stage: s.Stage})
	}
	return New(steps, activated, cfg.Location())
}

// At returns the ramp state for a 1-based day index. Day 0 and below precede activation.
func (s *Scheduler) At(day int) State {
	if day < 1 {
		return State{Day: day, Stage: StageDisabled}
	}

	state := State{Day: day, Stage: StageDisabled}
	for _, step := range s.steps {
		if step.FromDay > day {
			break
		}
		state.Stage = step.Stage
		state.DailyLimit = step.DailyLimit
	}
	if state.DailyLimit < 0 {
		state.DailyLimit = 0
	}
	return state
}

// DayIndex counts calendar days in the scheduler's zone; the activation day is day 1.
func (s *Scheduler) DayIndex(now time.Time) int {
	n := civilDay(now.In(s.loc))
	a := civilDay(s.activated)
	if n.Before(a) {
		return 0
	}
	return int(n.Sub(a).Hours()/24) + 1
}

// Today is At(DayIndex(now)).
func (s *Scheduler) Today(now time.Time) State {
	return s.At(s.DayIndex(now))
}

// StartOfDay returns local midnight for now; sends after it count towards today's ceiling.
func (s *Scheduler) StartOfDay(now time.Time) time.Time {
	local := now.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
}

func civilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
