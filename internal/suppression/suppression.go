// Package suppression keeps the registry of addresses and domains that must never receive mail.
package suppression

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	emailsKey  = "suppression:emails"
	domainsKey = "suppression:domains"
	reasonsKey = "suppression:reasons"
)

// Decision answers whether an address may be mailed.
type Decision struct {
	CanSend bool
	Reason  string
}

type List interface {
	CanSendTo(ctx context.Context, email string) (Decision, error)
	Add(ctx context.Context, email, reason string) error
}

// RedisList stores suppressed addresses and domains in Redis sets.
type RedisList struct {
	client redis.UniversalClient
	logger *zap.Logger
}

var _ List = (*RedisList)(nil)

func NewRedisList(client redis.UniversalClient, logger *zap.Logger) *RedisList {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisList{client: client, logger: logger.Named("suppression")}
}

// CanSendTo fails closed: when Redis cannot answer, the address is treated as suppressed and the
// error is returned alongside the negative decision.
func (l *RedisList) CanSendTo(ctx context.Context, email string) (Decision, error) {
	addr, domain := normalize(email)

	pipe := l.client.Pipeline()
	emailHit := pipe.SIsMember(ctx, emailsKey, addr)
	domainHit := pipe.SIsMember(ctx, domainsKey, domain)
	reason := pipe.HGet(ctx, reasonsKey, addr)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		l.logger.Error("suppression check failed", zap.String("email", addr), zap.Error(err))
		return Decision{Reason: "suppression check unavailable"}, fmt.Errorf("check suppression: %w", err)
	}

	if emailHit.Val() {
		r := reason.Val()
		if r == "" {
			r = "address suppressed"
		}
		return Decision{Reason: r}, nil
	}
	if domainHit.Val() {
		return Decision{Reason: "domain suppressed: " + domain}, nil
	}
	return Decision{CanSend: true}, nil
}

func (l *RedisList) Add(ctx context.Context, email, reason string) error {
	addr, _ := normalize(email)
	pipe := l.client.TxPipeline()
	pipe.SAdd(ctx, emailsKey, addr)
	pipe.HSet(ctx, reasonsKey, addr, reason)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add suppression: %w", err)
	}
	return nil
}

// AddDomain suppresses every address at domain.
func (l *RedisList) AddDomain(ctx context.Context, domain string) error {
	if err := l.client.SAdd(ctx, domainsKey, strings.ToLower(strings.TrimSpace(domain))).Err(); err != nil {
		return fmt.Errorf("add suppressed domain: %w", err)
	}
	return nil
}

// MemoryList is the process-local List used when Redis is not configured.
type MemoryList struct {
	mu      sync.RWMutex
	emails  map[string]string
	domains map[string]struct{}
}

var _ List = (*MemoryList)(nil)

func NewMemoryList() *MemoryList {
	return &MemoryList{emails: make(map[string]string), domains: make(map[string]struct{})}
}

func (l *MemoryList) CanSendTo(_ context.Context, email string) (Decision, error) {
	addr, domain := normalize(email)
	l.mu.RLock()
	defer l.mu.RUnlock()
	if reason, ok := l.emails[addr]; ok {
		return Decision{Reason: reason}, nil
	}
	if _, ok := l.domains[domain]; ok {
		return Decision{Reason: "domain suppressed: " + domain}, nil
	}
	return Decision{CanSend: true}, nil
}

func (l *MemoryList) Add(_ context.Context, email, reason string) error {
	addr, _ := normalize(email)
	l.mu.Lock()
	l.emails[addr] = reason
	l.mu.Unlock()
	return nil
}

func (l *MemoryList) AddDomain(_ context.Context, domain string) error {
	l.mu.Lock()
	l.domains[strings.ToLower(strings.TrimSpace(domain))] = struct{}{}
	l.mu.Unlock()
	return nil
}

func normalize(email string) (addr, domain string) {
	addr = strings.ToLower(strings.TrimSpace(email))
	if i := strings.LastIndexByte(addr, '@'); i >= 0 {
		domain = addr[i+1:]
	}
	return addr, domain
}
