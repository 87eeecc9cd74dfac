// Package routing assigns prospects to campaigns whose targeting pool matches the prospect's source.
package routing

import (
	"strings"

	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/model"
)

// Pool groups campaign strategies that may target prospects from the listed sources.
type Pool struct {
	Name       string
	Sources    []string
	Strategies []string
	// Default pools also take prospects whose source no pool lists.
	Default bool
}

// PoolsFromConfig converts the routing section's pools.
func PoolsFromConfig(cfg []config.PoolConfig) []Pool {
	pools := make([]Pool, 0, len(cfg))
	for _, p := range cfg {
		pools = append(pools, Pool{Name: p.Name, Sources: p.Sources, Strategies: p.Strategies, Default: p.Default})
	}
	return pools
}

// Cursor is the round-robin position shared by every Route call of one run.
type Cursor struct {
	next int
}

// Position returns how many prospects have been assigned so far.
func (c *Cursor) Position() int {
	return c.next
}

type Router struct {
	pools       []Pool
	bySource    map[string]int
	strategies  []map[string]struct{}
	defaultPool int

	campaigns []model.Campaign
	remaining map[int]int
	recheck   bool
}

// New snapshots the campaigns that are active and under their daily limit. With recheck set, sends
// recorded through RecordSend count against that snapshot and exhausted campaigns stop matching;
// without it, the snapshot holds for the whole run and a campaign can overshoot its limit.
func New(pools []Pool, campaigns []model.Campaign, recheck bool) *Router {
	r := &Router{
		pools:       pools,
		bySource:    make(map[string]int),
		strategies:  make([]map[string]struct{}, len(pools)),
		defaultPool: -1,
		remaining:   make(map[int]int),
		recheck:     recheck,
	}

	for i, p := range pools {
		for _, s := range p.Sources {
			key := normalize(s)
			if _, taken := r.bySource[key]; !taken {
				r.bySource[key] = i
			}
		}
		set := make(map[string]struct{}, len(p.Strategies))
		for _, s := range p.Strategies {
			set[normalize(s)] = struct{}{}
		}
		r.strategies[i] = set
		if p.Default && r.defaultPool < 0 {
			r.defaultPool = i
		}
	}

	for _, c := range campaigns {
		if !c.Active || c.Remaining() <= 0 {
			continue
		}
		r.campaigns = append(r.campaigns, c)
		r.remaining[c.ID] = c.Remaining()
	}
	return r
}

// Eligible lists the run-start snapshot of sendable campaigns.
func (r *Router) Eligible() []model.Campaign {
	return r.campaigns
}

// PoolFor resolves the pool for a prospect source.
func (r *Router) PoolFor(source string) (Pool, bool) {
	idx, ok := r.poolIndex(source)
	if !ok {
		return Pool{}, false
	}
	return r.pools[idx], true
}

func (r *Router) poolIndex(source string) (int, bool) {
	if idx, ok := r.bySource[normalize(source)]; ok {
		return idx, true
	}
	if r.defaultPool >= 0 {
		return r.defaultPool, true
	}
	return 0, false
}

// Matching returns, in snapshot order, the campaigns that may target p.
func (r *Router) Matching(p model.Prospect) []model.Campaign {
	idx, ok := r.poolIndex(p.Source)
	if !ok {
		return nil
	}
	allowed := r.strategies[idx]

	var matched []model.Campaign
	for _, c := range r.campaigns {
		if _, ok := allowed[normalize(c.StrategyKey)]; !ok {
			continue
		}
		if r.recheck && r.remaining[c.ID] <= 0 {
			continue
		}
		matched = append(matched, c)
	}
	return matched
}

// Route picks the next matching campaign round-robin and advances cur. It returns false, leaving
// cur untouched, when no campaign matches.
func (r *Router) Route(p model.Prospect, cur *Cursor) (model.Campaign, bool) {
	matched := r.Matching(p)
	if len(matched) == 0 {
		return model.Campaign{}, false
	}
	c := matched[cur.next%len(matched)]
	cur.next++
	return c, true
}

// RecordSend charges one send against the campaign's run-start capacity.
func (r *Router) RecordSend(campaignID int) {
	if _, ok := r.remaining[campaignID]; ok {
		r.remaining[campaignID]--
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
