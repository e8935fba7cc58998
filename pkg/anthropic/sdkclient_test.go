package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

func writeMessage(w http.ResponseWriter, id, text string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"id":   id,
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"model":       "claude-sonnet-4-5-20250929",
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":  10,
			"output_tokens": 5,
		},
	})
}

func writeError(w http.ResponseWriter, status int, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"type": "error",
		"error": map[string]any{
			"type":    kind,
			"message": "test failure",
		},
	})
}

func TestSDKClient_CreateMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		writeMessage(w, "msg_test_001", "Hello from test")
	}))
	defer ts.Close()

	client := NewClient("test-key", WithBaseURL(ts.URL))
	resp, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 1024,
		Messages:  []Message{{Role: "user", Content: "Hello"}},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "msg_test_001", resp.ID)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, "Hello from test", resp.Content[0].Text)
	assert.Equal(t, int64(10), resp.Usage.InputTokens)
}

func TestSDKClient_CreateMessage_SendsSystemAndImage(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		writeMessage(w, "msg_vision", "{}")
	}))
	defer ts.Close()

	temp := 0.2
	client := NewClient("test-key", WithBaseURL(ts.URL))
	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   512,
		System:      "You are an analyst.",
		Temperature: &temp,
		Messages: []Message{{
			Role:    "user",
			Content: "Extract metadata",
			Images:  []Image{{MediaType: "image/png", Data: []byte("png-bytes")}},
		}},
	})
	require.NoError(t, err)

	system, ok := body["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	assert.Equal(t, "You are an analyst.", system[0].(map[string]any)["text"])

	messages := body["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	img := content[0].(map[string]any)
	assert.Equal(t, "image", img["type"])
	src := img["source"].(map[string]any)
	assert.Equal(t, "base64", src["type"])
	assert.Equal(t, "image/png", src["media_type"])
	assert.Equal(t, "cG5nLWJ5dGVz", src["data"])
}

func TestSDKClient_CreateMessage_ServerErrorIsTransient(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeError(w, http.StatusInternalServerError, "api_error")
	}))
	defer ts.Close()

	client := NewClient("test-key", WithBaseURL(ts.URL))
	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 1024,
		Messages:  []Message{{Role: "user", Content: "Hello"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, 1, calls, "sdk retries must be disabled")
}

func TestSDKClient_CreateMessage_BadRequestIsFatal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusBadRequest, "invalid_request_error")
	}))
	defer ts.Close()

	client := NewClient("test-key", WithBaseURL(ts.URL))
	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 1024,
		Messages:  []Message{{Role: "user", Content: "Hello"}},
	})
	require.Error(t, err)
	assert.True(t, resilience.IsFatal(err))
}

func TestSDKClient_CreateMessage_RateLimitKeepsRetryAfter(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		writeError(w, http.StatusTooManyRequests, "rate_limit_error")
	}))
	defer ts.Close()

	client := NewClient("test-key", WithBaseURL(ts.URL))
	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 1024,
		Messages:  []Message{{Role: "user", Content: "Hello"}},
	})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, http.StatusTooManyRequests, resilience.StatusCode(err))
	assert.Equal(t, 7*time.Second, resilience.RetryAfter(err))
}

func TestSDKClient_CreateMessage_OverloadedIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, 529, "overloaded_error")
	}))
	defer ts.Close()

	client := NewClient("test-key", WithBaseURL(ts.URL), WithTimeout(5*time.Second))
	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 1024,
		Messages:  []Message{{Role: "user", Content: "Hello"}},
	})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestMessageResponse_Truncated(t *testing.T) {
	assert.True(t, (&MessageResponse{StopReason: "max_tokens"}).Truncated())
	assert.False(t, (&MessageResponse{StopReason: "end_turn"}).Truncated())
}
