package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/outreach-backend/internal/config"
)

func chatServer(t *testing.T, status int, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req struct {
			Model    string              `json:"model"`
			Messages []map[string]string `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "write to Jane", req.Messages[1]["content"])

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func client(url string) *ChatClient {
	return NewChatClient(config.GeneratorConfig{Endpoint: url, Model: "test-model", APIKey: "key"})
}

func TestGenerate(t *testing.T) {
	srv := chatServer(t, http.StatusOK, `{"subject": "Quick question", "body": "Hi Jane, <b>saw</b> your post."}`)

	content, err := client(srv.URL).Generate(context.Background(), "write to Jane")
	require.NoError(t, err)
	require.NotNil(t, content)
	assert.Equal(t, "Quick question", content.Subject)
	assert.Equal(t, "Hi Jane, <b>saw</b> your post.", content.Body)
}

func TestGenerateUnparsableReplyIsNil(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "Sorry, I can't help with that.")

	content, err := client(srv.URL).Generate(context.Background(), "write to Jane")
	require.NoError(t, err)
	assert.Nil(t, content)
}

func TestGenerateHTTPError(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, "")

	_, err := client(srv.URL).Generate(context.Background(), "write to Jane")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGenerateMisconfigured(t *testing.T) {
	_, err := NewChatClient(config.GeneratorConfig{}).Generate(context.Background(), "x")
	assert.Error(t, err)
}

func TestParseContent(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"plain json", `{"subject":"Hi","body":"Hello Jane"}`, true},
		{"fenced json", "```json\n{\"subject\":\"Hi\",\"body\":\"Hello Jane\"}\n```", true},
		{"missing subject", `{"body":"Hello Jane"}`, false},
		{"empty markup body", `{"subject":"Hi","body":"<p> </p><style>p{}</style>"}`, false},
		{"script only body", `{"subject":"Hi","body":"<script>alert(1)</script>"}`, false},
		{"unrendered placeholder in body", `{"subject":"Hi","body":"Hello {first_name}"}`, false},
		{"unrendered placeholder in subject", `{"subject":"Hi {company}","body":"Hello Jane"}`, false},
		{"not json", "subject: Hi", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseContent(tc.raw)
			if tc.ok {
				assert.NotNil(t, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}
