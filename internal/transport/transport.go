// Package transport hands generated emails to the mail relay.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/config"
)

const BounceHard = "hard"

// Result is the relay's verdict on one send. Exactly one of Success, Blocked, a non-empty
// BounceType or a non-empty Error describes the outcome.
type Result struct {
	Success     bool   `json:"success"`
	SentFrom    string `json:"sent_from,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
	Blocked     bool   `json:"blocked,omitempty"`
	BlockReason string `json:"block_reason,omitempty"`
	BounceType  string `json:"bounce_type,omitempty"`
	Error       string `json:"error,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, to, subject, body string) Result
}

// RelayClient posts messages to an HTTP mail relay behind a circuit breaker. Relay verdicts
// (blocked, bounced) do not trip the breaker; network errors and 5xx responses do.
type RelayClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

var _ Sender = (*RelayClient)(nil)

func NewRelayClient(cfg config.TransportConfig, logger *zap.Logger) *RelayClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("transport")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	trip := cfg.Breaker.ConsecutiveFailures
	if trip == 0 {
		trip = 5
	}

	settings := gobreaker.Settings{
		Name:    "mail-relay",
		Timeout: cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}

	return &RelayClient{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
	}
}

// Send never returns a Go error; failures are reported in Result.Error.
func (c *RelayClient) Send(ctx context.Context, to, subject, body string) Result {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, to, subject, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Result{Error: "mail relay unavailable (circuit breaker open)"}
		}
		return Result{Error: err.Error()}
	}
	return out.(Result)
}

func (c *RelayClient) post(ctx context.Context, to, subject, body string) (Result, error) {
	payload, err := json.Marshal(map[string]string{"to": to, "subject": subject, "body": body})
	if err != nil {
		return Result{}, fmt.Errorf("marshal relay payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("relay send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Result{}, fmt.Errorf("relay error %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// A 4xx without a verdict body is a rejected request, not an outage.
		if resp.StatusCode >= http.StatusBadRequest {
			return Result{Error: "relay rejected request: " + resp.Status}, nil
		}
		return Result{}, fmt.Errorf("decode relay response: %w", err)
	}
	if !result.Success && !result.Blocked && result.BounceType == "" && result.Error == "" {
		result.Error = "relay returned no verdict"
	}
	return result, nil
}
