package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/outreach-backend/internal/config"
)

func relay(t *testing.T, handler http.HandlerFunc) (*RelayClient, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewRelayClient(config.TransportConfig{
		Endpoint: srv.URL,
		Breaker:  config.BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute},
	}, nil)
	return c, &calls
}

func TestSendSuccess(t *testing.T) {
	c, _ := relay(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "jane@acme.io", body["to"])
		_ = json.NewEncoder(w).Encode(Result{Success: true, SentFrom: "a@out.io", MessageID: "m-1"})
	})

	res := c.Send(context.Background(), "jane@acme.io", "Hi", "Hello")
	assert.True(t, res.Success)
	assert.Equal(t, "a@out.io", res.SentFrom)
	assert.Equal(t, "m-1", res.MessageID)
}

func TestSendVerdictsDoNotTripBreaker(t *testing.T) {
	c, calls := relay(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Result{BounceType: BounceHard})
	})

	for i := 0; i < 4; i++ {
		res := c.Send(context.Background(), "x@acme.io", "Hi", "Hello")
		assert.Equal(t, BounceHard, res.BounceType)
	}
	assert.EqualValues(t, 4, atomic.LoadInt32(calls))
}

func TestSendServerErrorsOpenBreaker(t *testing.T) {
	c, calls := relay(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})

	first := c.Send(context.Background(), "x@acme.io", "Hi", "Hello")
	assert.Contains(t, first.Error, "502")
	c.Send(context.Background(), "x@acme.io", "Hi", "Hello")

	open := c.Send(context.Background(), "x@acme.io", "Hi", "Hello")
	assert.Contains(t, open.Error, "circuit breaker open")
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestSendEmptyVerdict(t *testing.T) {
	c, _ := relay(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	res := c.Send(context.Background(), "x@acme.io", "Hi", "Hello")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}
