package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []Request
	err   error
	ran   chan struct{}
}

func (f *fakeDispatcher) Run(_ context.Context, req Request) (*DispatchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	select {
	case f.ran <- struct{}{}:
	default:
	}
	if f.err != nil {
		return nil, f.err
	}
	return &DispatchResult{RunID: "run", Message: "ok"}, nil
}

func (f *fakeDispatcher) requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.calls...)
}

func TestWorkerRunsRequestsUntilChannelCloses(t *testing.T) {
	d := &fakeDispatcher{}
	requests := make(chan Request, 2)
	requests <- Request{MaxEmails: 1}
	requests <- Request{MaxEmails: 2}
	close(requests)

	done := make(chan struct{})
	go func() {
		NewWorker(d, requests, 0, Request{}, nil).Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after the request channel closed")
	}
	assert.Equal(t, []Request{{MaxEmails: 1}, {MaxEmails: 2}}, d.requests())
}

func TestWorkerScheduledTrigger(t *testing.T) {
	d := &fakeDispatcher{ran: make(chan struct{}, 4)}
	scheduled := Request{MaxEmails: 7, MinScore: 50}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewWorker(d, nil, 10*time.Millisecond, scheduled, nil).Start(ctx)
		close(done)
	}()

	select {
	case <-d.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled run never triggered")
	}
	cancel()
	<-done

	calls := d.requests()
	require.NotEmpty(t, calls)
	assert.Equal(t, scheduled, calls[0])
}

func TestWorkerKeepsGoingAfterErrors(t *testing.T) {
	d := &fakeDispatcher{err: appErrors.ErrDispatchInProgress}
	requests := make(chan Request, 2)
	requests <- Request{MaxEmails: 1}
	requests <- Request{MaxEmails: 1}
	close(requests)

	NewWorker(d, requests, 0, Request{}, nil).Start(context.Background())
	assert.Len(t, d.requests(), 2)
}
