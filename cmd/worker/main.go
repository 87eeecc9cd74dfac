package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/app"
	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/logging"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init application", zap.Error(err))
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", zap.Error(err))
		}
	}()

	var requests chan service.Request
	if _, ok := application.Queue.(*queue.AMQPQueue); ok && cfg.AMQP.RequestsQueue != "" {
		requests = make(chan service.Request, 1)
		if err := application.Queue.Subscribe(cfg.AMQP.RequestsQueue, enqueue(ctx, requests, logger)); err != nil {
			logger.Fatal("subscribe to dispatch requests", zap.Error(err))
		}
		logger.Info("consuming dispatch requests", zap.String("queue", cfg.AMQP.RequestsQueue))
	}

	if requests == nil && cfg.Schedule.Interval <= 0 {
		logger.Fatal("nothing to do: set AMQP_URL for requests or DISPATCH_INTERVAL for scheduled runs")
	}

	scheduled := service.Request{
		MaxEmails:    cfg.Schedule.MaxEmails,
		MinScore:     cfg.Schedule.MinScore,
		StaggerDelay: cfg.Schedule.StaggerDelay,
	}
	worker := service.NewWorker(application.Service, requests, cfg.Schedule.Interval, scheduled, logger)

	logger.Info("worker running", zap.Duration("interval", cfg.Schedule.Interval))
	worker.Start(ctx)
	logger.Info("worker stopped")
}

// enqueue returns a queue handler that decodes dispatch requests onto out. Undecodable
// messages are logged and acknowledged so they are not redelivered.
func enqueue(ctx context.Context, out chan<- service.Request, logger *zap.Logger) func(payload any) error {
	return func(payload any) error {
		req, err := decodeRequest(payload)
		if err != nil {
			logger.Warn("invalid dispatch request", zap.Error(err))
			return nil
		}
		select {
		case out <- req:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func decodeRequest(payload any) (service.Request, error) {
	var req service.Request
	switch v := payload.(type) {
	case service.Request:
		return v, nil
	case []byte:
		dec := json.NewDecoder(bytes.NewReader(v))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("decode dispatch request: %w", err)
		}
		return req, nil
	default:
		return req, fmt.Errorf("unexpected payload type %T", payload)
	}
}
