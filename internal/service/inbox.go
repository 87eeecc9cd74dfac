package service

import (
	"sort"

	"github.com/unclebandit/outreach-backend/internal/config"
)

// inboxCache tracks today's sends per sending inbox for the duration of one run. It is rebuilt
// from email_records at the start of every run and never outlives it.
type inboxCache struct {
	sent map[string]int
}

func newInboxCache(sent map[string]int) *inboxCache {
	c := &inboxCache{sent: make(map[string]int, len(sent))}
	for k, v := range sent {
		c.sent[k] = v
	}
	return c
}

func (c *inboxCache) record(inbox string) {
	c.sent[inbox]++
}

func (c *inboxCache) total() int {
	n := 0
	for _, v := range c.sent {
		n += v
	}
	return n
}

// InboxStatus is the remaining capacity of one sending inbox.
type InboxStatus struct {
	Address    string `json:"address"`
	DailyLimit int    `json:"daily_limit"`
	SentToday  int    `json:"sent_today"`
	Remaining  int    `json:"remaining"`
}

// capacities lists configured inboxes first, in config order, then any other inbox that sent today.
func (c *inboxCache) capacities(inboxes []config.InboxConfig) []InboxStatus {
	out := make([]InboxStatus, 0, len(inboxes))
	seen := make(map[string]bool, len(inboxes))
	for _, in := range inboxes {
		sent := c.sent[in.Address]
		out = append(out, InboxStatus{
			Address:    in.Address,
			DailyLimit: in.DailyLimit,
			SentToday:  sent,
			Remaining:  max(in.DailyLimit-sent, 0),
		})
		seen[in.Address] = true
	}

	var extra []string
	for addr := range c.sent {
		if !seen[addr] {
			extra = append(extra, addr)
		}
	}
	sort.Strings(extra)
	for _, addr := range extra {
		out = append(out, InboxStatus{Address: addr, SentToday: c.sent[addr]})
	}
	return out
}
