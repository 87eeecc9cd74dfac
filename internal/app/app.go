// Package app wires configuration to the dispatch service and its collaborators.
package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/generator"
	"github.com/unclebandit/outreach-backend/internal/ledger"
	"github.com/unclebandit/outreach-backend/internal/lock"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/service"
	"github.com/unclebandit/outreach-backend/internal/suppression"
	"github.com/unclebandit/outreach-backend/internal/transport"
)

const leaseMargin = 5 * time.Minute

// Application owns the long-lived connections behind a DispatchService.
type Application struct {
	Config  config.Config
	Service *service.DispatchService
	Queue   queue.Queue
	Logger  *zap.Logger
	closers []func() error
}

// New opens the database, Redis and AMQP connections the config asks for. Without Redis the run
// lease and suppression list are process-local; without AMQP events go to the in-memory queue.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Application, error) {
	a := &Application{Config: cfg, Logger: logger}

	conn, err := db.Open(ctx, cfg.Database, logger.Named("db"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, conn.Close)

	deps := a.repositories(conn)
	deps.Generator = generator.NewChatClient(cfg.Generator)
	deps.Transport = transport.NewRelayClient(cfg.Transport, logger)

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		deps.Suppression = suppression.NewRedisList(client, logger)
		deps.Lock = lock.NewRedisLock(client, lock.RunKey, cfg.Dispatch.RunTimeout+leaseMargin)
	} else {
		logger.Warn("redis not configured, using process-local suppression list and run lease")
		deps.Suppression = suppression.NewMemoryList()
		deps.Lock = &lock.LocalLock{}
	}

	if cfg.AMQP.URL != "" {
		q, err := queue.DialAMQP(cfg.AMQP.URL, cfg.AMQP.EventsQueue, logger)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, q.Close)
		a.Queue = q
	} else {
		mem := queue.NewInMemoryQueue(logger)
		logEvents(mem, logger.Named("events"))
		a.Queue = mem
	}
	deps.Queue = a.Queue

	svc, err := service.NewDispatchService(cfg, deps, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Service = svc
	return a, nil
}

func (a *Application) repositories(conn *sql.DB) service.Dependencies {
	campaigns := &repository.CampaignRepository{DB: conn}
	return service.Dependencies{
		Campaigns:  campaigns,
		Prospects:  &repository.ProspectRepository{DB: conn},
		Emails:     &repository.EmailRecordRepository{DB: conn},
		Activities: &repository.ActivityRepository{DB: conn},
		Ledger:     ledger.NewFallback(campaigns, a.Logger),
	}
}

// logEvents subscribes a logger to the dispatch topics of the in-memory queue.
func logEvents(q *queue.InMemoryQueue, logger *zap.Logger) {
	for _, topic := range []string{queue.TopicEmailSent, queue.TopicDispatchCompleted} {
		topic := topic
		_ = q.Subscribe(topic, func(payload any) error {
			logger.Debug("event", zap.String("topic", topic), zap.Any("payload", payload))
			return nil
		})
	}
}

// Close releases connections in reverse order of opening.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
