// Package generator produces email subject and body for a prospect from a rendered prompt.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/unclebandit/outreach-backend/internal/config"
)

// Content is a generated email.
type Content struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Generator returns nil Content, without an error, when the model produced nothing usable.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Content, error)
}

// ChatClient implements Generator against an OpenAI-compatible chat completions API.
type ChatClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ Generator = (*ChatClient)(nil)

func NewChatClient(cfg config.GeneratorConfig) *ChatClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *ChatClient) Generate(ctx context.Context, prompt string) (*Content, error) {
	if c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("generator misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": prompt},
		},
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generator payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("generator error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode generator response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, nil
	}
	return ParseContent(parsed.Choices[0].Message.Content), nil
}

// ParseContent extracts {subject, body} from the model's reply, tolerating a fenced code block
// around the JSON. It returns nil when the reply is unparsable or fails the content checks.
func ParseContent(raw string) *Content {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var content Content
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &content); err != nil {
		return nil
	}
	content.Subject = strings.TrimSpace(content.Subject)
	content.Body = strings.TrimSpace(content.Body)
	if !Usable(content) {
		return nil
	}
	return &content
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return `You write short, plain cold emails. Reply with JSON {"subject": "...", "body": "..."}.`
	}
	return prompt
}
