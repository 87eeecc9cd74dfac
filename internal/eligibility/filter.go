// Package eligibility reduces the candidate prospects of a run to the ones that may be emailed
// right now, attributing every rejected prospect to exactly one funnel category.
package eligibility

import (
	"fmt"
	"strings"
	"time"

	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/model"
)

// Category is the funnel bucket a candidate ends up in.
type Category string

const (
	AlreadyContacted        Category = "already_contacted"
	NoEmail                 Category = "no_email"
	FakeEmailPattern        Category = "fake_email_pattern"
	GenericCorporateAddress Category = "generic_corporate_address"
	GenericRolePrefix       Category = "generic_role_prefix"
	OutsideBusinessHours    Category = "outside_business_hours"
	Passed                  Category = "passed"
)

// Funnel counts candidates per category. The categories always sum to Candidates.
type Funnel struct {
	Candidates              int `json:"candidates"`
	AlreadyContacted        int `json:"already_contacted"`
	NoEmail                 int `json:"no_email"`
	FakeEmailPattern        int `json:"fake_email_pattern"`
	GenericCorporateAddress int `json:"generic_corporate_address"`
	GenericRolePrefix       int `json:"generic_role_prefix"`
	OutsideBusinessHours    int `json:"outside_business_hours"`
	Passed                  int `json:"passed"`
}

// Total sums the per-category counts.
func (f Funnel) Total() int {
	return f.AlreadyContacted + f.NoEmail + f.FakeEmailPattern + f.GenericCorporateAddress +
		f.GenericRolePrefix + f.OutsideBusinessHours + f.Passed
}

func (f *Funnel) add(c Category) {
	f.Candidates++
	switch c {
	case AlreadyContacted:
		f.AlreadyContacted++
	case NoEmail:
		f.NoEmail++
	case FakeEmailPattern:
		f.FakeEmailPattern++
	case GenericCorporateAddress:
		f.GenericCorporateAddress++
	case GenericRolePrefix:
		f.GenericRolePrefix++
	case OutsideBusinessHours:
		f.OutsideBusinessHours++
	default:
		f.Passed++
	}
}

// Options configures a Filter.
type Options struct {
	BusinessHours   bool
	StartHour       int
	EndHour         int
	SkipWeekends    bool
	DefaultLocation *time.Location
	// DisposableDomains extends the built-in disposable provider list.
	DisposableDomains []string
}

type Filter struct {
	opts       Options
	disposable map[string]struct{}
}

func New(opts Options) *Filter {
	if opts.DefaultLocation == nil {
		opts.DefaultLocation = time.UTC
	}
	if opts.EndHour == 0 {
		opts.EndHour = 24
	}

	disposable := make(map[string]struct{}, len(defaultDisposableDomains)+len(opts.DisposableDomains))
	for _, d := range defaultDisposableDomains {
		disposable[d] = struct{}{}
	}
	for _, d := range opts.DisposableDomains {
		disposable[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return &Filter{opts: opts, disposable: disposable}
}

// FromConfig builds a Filter from the eligibility section.
func FromConfig(cfg config.EligibilityConfig) (*Filter, error) {
	bh := cfg.BusinessHours
	loc := time.UTC
	if bh.DefaultTimezone != "" {
		l, err := time.LoadLocation(bh.DefaultTimezone)
		if err != nil {
			return nil, fmt.Errorf("eligibility.businessHours.defaultTimezone: %w", err)
		}
		loc = l
	}
	return New(Options{
		BusinessHours:     bh.Enabled,
		StartHour:         bh.StartHour,
		EndHour:           bh.EndHour,
		SkipWeekends:      bh.SkipWeekends,
		DefaultLocation:   loc,
		DisposableDomains: cfg.DisposableDomains,
	}), nil
}

// BusinessHoursEnabled reports whether the wall-clock check is active.
func (f *Filter) BusinessHoursEnabled() bool {
	return f.opts.BusinessHours
}

// Classify assigns p to the first failing category, or Passed.
func (f *Filter) Classify(p model.Prospect, contacted map[int]bool, now time.Time) Category {
	if contacted[p.ID] {
		return AlreadyContacted
	}

	email := strings.TrimSpace(p.Address())
	if email == "" {
		return NoEmail
	}

	local, domain, ok := splitAddress(email)
	if !ok {
		return FakeEmailPattern
	}
	if _, bad := f.disposable[domain]; bad {
		return FakeEmailPattern
	}
	if _, bad := placeholderDomains[domain]; bad {
		return FakeEmailPattern
	}
	if i := strings.IndexByte(local, '+'); i > 0 {
		local = local[:i]
	}
	if isFakeLocal(local) {
		return FakeEmailPattern
	}

	if _, generic := genericCorporateLocals[local]; generic {
		return GenericCorporateAddress
	}
	if hasRolePrefix(local) {
		return GenericRolePrefix
	}

	if f.opts.BusinessHours && !f.withinBusinessHours(p.Country, now) {
		return OutsideBusinessHours
	}
	return Passed
}

// Apply keeps candidate order for the prospects that pass.
func (f *Filter) Apply(candidates []model.Prospect, contacted map[int]bool, now time.Time) ([]model.Prospect, Funnel) {
	var funnel Funnel
	passed := make([]model.Prospect, 0, len(candidates))
	for _, p := range candidates {
		c := f.Classify(p, contacted, now)
		funnel.add(c)
		if c == Passed {
			passed = append(passed, p)
		}
	}
	return passed, funnel
}

func (f *Filter) withinBusinessHours(country string, now time.Time) bool {
	loc := locationFor(country)
	if loc == nil {
		loc = f.opts.DefaultLocation
	}
	local := now.In(loc)

	if f.opts.SkipWeekends {
		if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return false
		}
	}
	h := local.Hour()
	return h >= f.opts.StartHour && h < f.opts.EndHour
}
