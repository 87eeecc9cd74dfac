package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Dispatcher runs one dispatch.
type Dispatcher interface {
	Run(ctx context.Context, req Request) (*DispatchResult, error)
}

// Worker triggers dispatch runs from a request channel and, when Interval is set, on a timer.
// Triggers are handled one at a time; the run lease rejects overlap with other processes.
type Worker struct {
	Dispatcher Dispatcher
	Requests   <-chan Request
	Interval   time.Duration
	Scheduled  Request
	Logger     *zap.Logger
}

// Constructor
func NewWorker(d Dispatcher, requests <-chan Request, interval time.Duration, scheduled Request, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		Dispatcher: d,
		Requests:   requests,
		Interval:   interval,
		Scheduled:  scheduled,
		Logger:     logger.Named("worker"),
	}
}

// Start processes triggers until ctx is done or the request channel closes with no interval set.
func (w *Worker) Start(ctx context.Context) {
	var tick <-chan time.Time
	if w.Interval > 0 {
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	requests := w.Requests
	for {
		if requests == nil && tick == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case req, ok := <-requests:
			if !ok {
				requests = nil
				continue
			}
			w.trigger(ctx, "request", req)
		case <-tick:
			w.trigger(ctx, "schedule", w.Scheduled)
		}
	}
}

func (w *Worker) trigger(ctx context.Context, source string, req Request) {
	log := w.Logger.With(zap.String("trigger", source), zap.Int("max_emails", req.MaxEmails))

	res, err := w.Dispatcher.Run(ctx, req)
	switch {
	case IsInProgress(err):
		log.Info("dispatch skipped, another run in progress")
	case err != nil:
		log.Error("dispatch failed", zap.Error(err))
	default:
		log.Info("dispatch completed", zap.String("run_id", res.RunID), zap.String("message", res.Message))
	}
}
