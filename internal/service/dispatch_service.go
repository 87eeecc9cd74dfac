package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/eligibility"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/generator"
	"github.com/unclebandit/outreach-backend/internal/ledger"
	"github.com/unclebandit/outreach-backend/internal/lock"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/routing"
	"github.com/unclebandit/outreach-backend/internal/suppression"
	"github.com/unclebandit/outreach-backend/internal/transport"
	"github.com/unclebandit/outreach-backend/internal/warmup"
)

const (
	flushTimeout   = 30 * time.Second
	persistTimeout = 10 * time.Second
)

// Dependencies are the collaborators a DispatchService drives.
type Dependencies struct {
	Campaigns   repository.CampaignRepositoryInterface
	Prospects   repository.ProspectRepositoryInterface
	Emails      repository.EmailRecordRepositoryInterface
	Activities  repository.ActivityRepositoryInterface
	Ledger      ledger.Ledger
	Generator   generator.Generator
	Transport   transport.Sender
	Suppression suppression.List
	Lock        lock.RunLock
	Queue       queue.Queue
	Pacer       Pacer
	Clock       func() time.Time
}

type DispatchService struct {
	Dependencies

	warmup *warmup.Scheduler
	filter *eligibility.Filter
	pools  []routing.Pool
	cfg    config.Config
	logger *zap.Logger
}

func NewDispatchService(cfg config.Config, deps Dependencies, logger *zap.Logger) (*DispatchService, error) {
	sched, err := warmup.FromConfig(cfg.Warmup)
	if err != nil {
		return nil, err
	}
	filter, err := eligibility.FromConfig(cfg.Eligibility)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Pacer == nil {
		deps.Pacer = NewDelayPacer(cfg.Pacing)
	}
	if deps.Lock == nil {
		deps.Lock = &lock.LocalLock{}
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.NewFallback(deps.Campaigns, logger)
	}

	return &DispatchService{
		Dependencies: deps,
		warmup:       sched,
		filter:       filter,
		pools:        routing.PoolsFromConfig(cfg.Routing.Pools),
		cfg:          cfg,
		logger:       logger.Named("dispatch"),
	}, nil
}

// run holds the state of one dispatch invocation.
type run struct {
	id       string
	log      *zap.Logger
	router   *routing.Router
	cursor   routing.Cursor
	inboxes  *inboxCache
	contacts []int
	acts     []model.Activity
}

// Run executes one dispatch. A concurrent run yields appErrors.ErrDispatchInProgress; a malformed
// request yields a ValidationError. Any other error means no result could be produced.
func (s *DispatchService) Run(ctx context.Context, req Request) (*DispatchResult, error) {
	if err := req.Validate(s.cfg.Dispatch.MaxRequest); err != nil {
		return nil, err
	}

	release, err := s.Lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if s.cfg.Dispatch.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Dispatch.RunTimeout)
		defer cancel()
	}

	r := &run{id: uuid.NewString()}
	r.log = s.logger.With(zap.String("run_id", r.id))

	now := s.Clock()
	info := RunInfo{RunID: r.id, Warmup: s.warmup.Today(now)}

	if info.Warmup.Disabled() {
		info.Stop = StopWarmupDisabled
		return s.finish(r, info, eligibility.Funnel{}, nil), nil
	}

	sentByInbox, err := s.Emails.CountSentByInboxSince(ctx, s.warmup.StartOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("count today's sends: %w", err)
	}
	r.inboxes = newInboxCache(sentByInbox)
	info.SentToday = r.inboxes.total()
	info.EffectiveMax = min(req.MaxEmails, info.Warmup.DailyLimit-info.SentToday)

	if info.EffectiveMax <= 0 {
		info.EffectiveMax = 0
		info.Stop = StopLimitReached
		return s.finish(r, info, eligibility.Funnel{}, nil), nil
	}

	candidates, err := s.Prospects.FetchCandidates(ctx, model.CandidateFilter{
		Stages:            s.cfg.Eligibility.ActiveStages,
		MinScore:          req.MinScore,
		Limit:             info.EffectiveMax * max(s.cfg.Eligibility.CandidateMultiplier, 1),
		MaxFailedAttempts: s.cfg.Eligibility.MaxFailedAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	ids := make([]int, len(candidates))
	for i, p := range candidates {
		ids[i] = p.ID
	}
	contacted, err := s.Emails.OutboundProspectIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load contacted prospects: %w", err)
	}

	passed, funnel := s.filter.Apply(candidates, contacted, now)
	r.log.Info("candidates filtered",
		zap.Int("candidates", funnel.Candidates),
		zap.Int("passed", funnel.Passed),
		zap.Int("effective_max", info.EffectiveMax),
		zap.Int("warmup_day", info.Warmup.Day))

	if len(passed) == 0 {
		return s.finish(r, info, funnel, nil), nil
	}

	campaigns, err := s.Campaigns.FetchActiveCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch campaigns: %w", err)
	}
	r.router = routing.New(s.pools, campaigns, s.cfg.Routing.RecheckCapacity)

	var outcomes []Outcome
	attempts := 0
	for i, p := range passed {
		if attempts >= info.EffectiveMax {
			break
		}
		if ctx.Err() != nil {
			info.Cancelled = true
			break
		}

		outcome, attempted, ok := s.process(ctx, r, p)
		if !ok {
			info.Cancelled = true
			break
		}
		outcomes = append(outcomes, outcome)
		if !attempted {
			continue
		}

		attempts++
		if attempts < info.EffectiveMax && i < len(passed)-1 {
			if err := s.Pacer.Pace(ctx, req.StaggerDelay); err != nil {
				info.Cancelled = true
				break
			}
		}
	}

	s.flush(ctx, r)
	return s.finish(r, info, funnel, outcomes), nil
}

// process walks one prospect through route, suppression, generation and transport. attempted
// reports whether the transport was called; ok is false when the run was cancelled mid-prospect
// and the outcome must be discarded.
func (s *DispatchService) process(ctx context.Context, r *run, p model.Prospect) (outcome Outcome, attempted, ok bool) {
	email := p.Address()
	outcome = Outcome{ProspectID: p.ID, Email: email}

	campaign, matched := r.router.Route(p, &r.cursor)
	if !matched {
		outcome.Kind = OutcomeSkipped
		outcome.Reason = "no matching campaign"
		return outcome, false, true
	}
	outcome.CampaignID = campaign.ID
	outcome.CampaignName = campaign.Name
	log := r.log.With(zap.Int("prospect_id", p.ID), zap.Int("campaign_id", campaign.ID))

	decision, err := s.Suppression.CanSendTo(ctx, email)
	if err != nil {
		log.Warn("suppression check failed, blocking", zap.Error(err))
	}
	if !decision.CanSend {
		outcome.Kind = OutcomeBlocked
		outcome.Reason = decision.Reason
		return outcome, false, true
	}

	content, err := s.Generator.Generate(ctx, RenderPrompt(campaign.PromptTemplate, p))
	if ctx.Err() != nil {
		return outcome, false, false
	}
	if err != nil || content == nil {
		reason := "generation returned no usable content"
		if err != nil {
			reason = "generation failed: " + err.Error()
		}
		log.Warn("generation failed", zap.String("reason", reason))
		outcome.Kind = OutcomeFailed
		outcome.Reason = reason
		r.queueActivity(p.ID, campaign.ID, model.ActivityEmailFailed, reason, s.Clock())
		return outcome, false, true
	}

	res := s.Transport.Send(ctx, email, content.Subject, content.Body)
	switch {
	case res.Blocked:
		outcome.Kind = OutcomeBlocked
		outcome.Reason = res.BlockReason
		s.suppress(ctx, log, email, "transport blocked: "+res.BlockReason)

	case res.BounceType != "":
		outcome.Kind = OutcomeBounced
		outcome.Reason = res.BounceType + " bounce"
		r.queueActivity(p.ID, campaign.ID, model.ActivityEmailBounced, outcome.Reason, s.Clock())
		if res.BounceType == transport.BounceHard {
			s.suppress(ctx, log, email, "hard bounce")
		}

	case !res.Success:
		outcome.Kind = OutcomeFailed
		outcome.Reason = res.Error
		r.queueActivity(p.ID, campaign.ID, model.ActivityEmailFailed, res.Error, s.Clock())

	default:
		outcome.Kind = OutcomeSent
		s.recordSent(ctx, r, log, p, campaign, content, res)
	}
	return outcome, true, true
}

// recordSent persists a successful send. Write failures are logged and do not fail the prospect.
func (s *DispatchService) recordSent(ctx context.Context, r *run, log *zap.Logger, p model.Prospect, c model.Campaign, content *generator.Content, res transport.Result) {
	sentAt := s.Clock()
	rec := &model.EmailRecord{
		ProspectID: p.ID,
		CampaignID: c.ID,
		Direction:  model.DirectionOutbound,
		Subject:    content.Subject,
		Body:       content.Body,
		SentAt:     sentAt,
		MessageID:  res.MessageID,
		SentFrom:   res.SentFrom,
		Status:     model.EmailStatusSent,
	}
	// Recorded even when the run is cancelled mid-send: today's count is rebuilt from email_records.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := s.Emails.Insert(wctx, rec); err != nil {
		log.Error("email record not written", zap.Error(err))
	}
	if err := s.Ledger.Increment(wctx, c.ID); err != nil {
		log.Error("campaign counter not incremented", zap.Error(err))
	}

	r.router.RecordSend(c.ID)
	r.inboxes.record(res.SentFrom)
	r.contacts = append(r.contacts, p.ID)
	r.queueActivity(p.ID, c.ID, model.ActivityEmailSent, content.Subject, sentAt)

	s.publish(log, queue.TopicEmailSent, EmailSentEvent{
		RunID:      r.id,
		ProspectID: p.ID,
		CampaignID: c.ID,
		MessageID:  res.MessageID,
		SentFrom:   res.SentFrom,
		SentAt:     sentAt,
	})
	log.Info("email sent", zap.String("message_id", res.MessageID), zap.String("sent_from", res.SentFrom))
}

func (s *DispatchService) suppress(ctx context.Context, log *zap.Logger, email, reason string) {
	if err := s.Suppression.Add(ctx, email, reason); err != nil {
		log.Error("suppression not recorded", zap.Error(err))
	}
}

func (r *run) queueActivity(prospectID, campaignID int, kind, detail string, at time.Time) {
	id := campaignID
	r.acts = append(r.acts, model.Activity{ProspectID: prospectID, CampaignID: &id, Kind: kind, Detail: detail, CreatedAt: at})
}

// flush applies the batched stage advances and activity rows. A cancelled run still flushes,
// on a fresh context.
func (s *DispatchService) flush(ctx context.Context, r *run) {
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()
	}

	if err := s.Prospects.BatchUpdateStage(ctx, r.contacts, s.contactedStage(), s.Clock()); err != nil {
		r.log.Error("stage update failed", zap.Int("prospects", len(r.contacts)), zap.Error(err))
	}
	if err := s.Activities.BatchInsert(ctx, r.acts); err != nil {
		r.log.Error("activity insert failed", zap.Int("activities", len(r.acts)), zap.Error(err))
	}
}

func (s *DispatchService) contactedStage() string {
	if s.cfg.Dispatch.ContactedStage != "" {
		return s.cfg.Dispatch.ContactedStage
	}
	return model.StageContacted
}

func (s *DispatchService) finish(r *run, info RunInfo, funnel eligibility.Funnel, outcomes []Outcome) *DispatchResult {
	res := Aggregate(info, funnel, outcomes)
	r.log.Info("dispatch finished",
		zap.String("message", res.Message),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Int("blocked", res.Blocked),
		zap.Int("bounced", res.Bounced),
		zap.Int("skipped", res.Skipped))
	s.publish(r.log, queue.TopicDispatchCompleted, DispatchCompletedEvent{Result: res, FinishedAt: s.Clock()})
	return &res
}

func (s *DispatchService) publish(log *zap.Logger, topic string, event any) {
	if s.Queue == nil {
		return
	}
	if err := s.Queue.Publish(topic, event); err != nil {
		log.Warn("event not published", zap.String("topic", topic), zap.Error(err))
	}
}

// IsInProgress reports whether err means another run holds the lease.
func IsInProgress(err error) bool {
	return errors.Is(err, appErrors.ErrDispatchInProgress)
}
