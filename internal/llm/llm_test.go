package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/predator4hack/ai-shark-sub001/internal/config"
	"github.com/predator4hack/ai-shark-sub001/internal/cost"
	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
	"github.com/predator4hack/ai-shark-sub001/pkg/anthropic"
)

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 1_000_000, OutputTokens: 100_000},
	}
}

var testCfg = config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929", VisionModel: "vision", MaxTokens: 1024}

func TestClient_Complete(t *testing.T) {
	api := &mockAnthropic{}
	api.On("CreateMessage", mock.Anything, mock.MatchedBy(func(r anthropic.MessageRequest) bool {
		return r.Model == testCfg.Model &&
			r.MaxTokens == 1024 &&
			r.System == "sys" &&
			len(r.Messages) == 1 &&
			r.Messages[0].Role == "user" &&
			r.Messages[0].Content == "hello" &&
			len(r.Messages[0].Images) == 0
	})).Return(textResponse("world"), nil)

	costs := cost.NewCalculator(cost.DefaultRates())
	c := NewClient(api, testCfg, costs)
	resp, err := c.Complete(context.Background(), Request{System: "sys", Prompt: "hello", Operation: "test"})
	require.NoError(t, err)
	assert.Equal(t, "world", resp.Text)
	assert.Equal(t, int64(1_000_000), resp.InputTokens)
	assert.InDelta(t, 3.0+1.5, resp.CostUSD, 1e-9)
	lines, total := costs.Summary()
	require.Len(t, lines, 1)
	assert.Equal(t, "test", lines[0].Operation)
	assert.InDelta(t, 4.5, total, 1e-9)
	api.AssertExpectations(t)
}

func TestClient_Complete_ImagesUseVisionModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slide.PNG")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o644))

	api := &mockAnthropic{}
	api.On("CreateMessage", mock.Anything, mock.MatchedBy(func(r anthropic.MessageRequest) bool {
		imgs := r.Messages[0].Images
		return r.Model == "vision" &&
			len(imgs) == 1 &&
			imgs[0].MediaType == "image/png" &&
			string(imgs[0].Data) == "png-bytes"
	})).Return(textResponse("ok"), nil)

	c := NewClient(api, testCfg, nil)
	resp, err := c.Complete(context.Background(), Request{Prompt: "describe", Images: []Image{{Path: path}}})
	require.NoError(t, err)
	assert.Zero(t, resp.CostUSD)
	api.AssertExpectations(t)
}

func TestClient_Complete_EmptyIsTransient(t *testing.T) {
	api := &mockAnthropic{}
	api.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("  \n"), nil)

	_, err := NewClient(api, testCfg, nil).Complete(context.Background(), Request{Prompt: "x", Operation: "op"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.True(t, resilience.IsTransient(err))
}

func TestClient_Complete_APIErrorPassesThrough(t *testing.T) {
	apiErr := resilience.NewFatalError(errors.New("bad request"), 400)
	api := &mockAnthropic{}
	api.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, apiErr)

	_, err := NewClient(api, testCfg, nil).Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, resilience.IsFatal(err))
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	jpg := filepath.Join(dir, "a.jpeg")
	require.NoError(t, os.WriteFile(jpg, []byte("j"), 0o644))

	img, err := LoadImage(jpg)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MediaType)
	assert.Equal(t, []byte("j"), img.Data)

	_, err = LoadImage(filepath.Join(dir, "deck.bmp"))
	require.Error(t, err)
	assert.True(t, resilience.IsFatal(err))

	_, err = LoadImage(filepath.Join(dir, "missing.png"))
	require.Error(t, err)
	assert.True(t, resilience.IsFatal(err))
}

func TestExtractText(t *testing.T) {
	assert.Empty(t, ExtractText(nil))
	resp := &anthropic.MessageResponse{Content: []anthropic.ContentBlock{
		{Type: "text", Text: "a"},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "b"},
	}}
	assert.Equal(t, "a\nb", ExtractText(resp))
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here you go: {\"a\":1} hope it helps", `{"a":1}`},
		{"no json", "no json here", "no json here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.input))
		})
	}
}

func TestParseJSON(t *testing.T) {
	var out map[string]any
	require.NoError(t, ParseJSON("```json\n{\"sector\":\"fintech\"}\n```", &out))
	assert.Equal(t, "fintech", out["sector"])

	err := ParseJSON("not json", &out)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

type scriptedCompleter struct {
	replies []string
	calls   int
}

func (s *scriptedCompleter) Complete(_ context.Context, _ Request) (*Response, error) {
	text := s.replies[min(s.calls, len(s.replies)-1)]
	s.calls++
	return &Response{Text: text}, nil
}

func noSleepPolicy(attempts int) resilience.RetryConfig {
	p := resilience.DefaultRetryConfig()
	p.MaxAttempts = attempts
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func TestCompleteJSON_RetriesMalformedReply(t *testing.T) {
	c := &scriptedCompleter{replies: []string{"garbage", `{"ok":true}`}}
	var out struct {
		OK bool `json:"ok"`
	}
	raw, err := CompleteJSON(context.Background(), c, noSleepPolicy(3), Request{Operation: "t"}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, `{"ok":true}`, raw)
	assert.Equal(t, 2, c.calls)
}

func TestCompleteJSON_ExhaustsAttempts(t *testing.T) {
	c := &scriptedCompleter{replies: []string{"garbage"}}
	var out map[string]any
	raw, err := CompleteJSON(context.Background(), c, noSleepPolicy(3), Request{}, &out)
	require.Error(t, err)
	assert.Equal(t, "garbage", raw)
	assert.Equal(t, 3, c.calls)
}

func TestCompleteText(t *testing.T) {
	c := &scriptedCompleter{replies: []string{"hello"}}
	resp, err := CompleteText(context.Background(), c, noSleepPolicy(1), Request{})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
}
