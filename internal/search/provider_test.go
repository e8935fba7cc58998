package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/predator4hack/ai-shark-sub001/internal/cost"
	"github.com/predator4hack/ai-shark-sub001/pkg/google"
	googlemocks "github.com/predator4hack/ai-shark-sub001/pkg/google/mocks"
	"github.com/predator4hack/ai-shark-sub001/pkg/jina"
	"github.com/predator4hack/ai-shark-sub001/pkg/perplexity"
)

func TestGoogleProvider_SearchPersonInfo(t *testing.T) {
	client := googlemocks.NewMockClient(t)
	items := func(prefix string, n int) *google.SearchResponse {
		resp := &google.SearchResponse{}
		for range n {
			resp.Items = append(resp.Items, google.Item{
				Title:       prefix,
				Link:        "https://example.com/" + prefix,
				Snippet:     "snippet",
				DisplayLink: "example.com",
			})
		}
		return resp
	}
	client.On("Search", mock.Anything, `"Jane Doe" Acme`, 2).Return(items("q1", 3), nil).Once()
	client.On("Search", mock.Anything, "Jane Doe CEO Acme linkedin", 2).Return(items("q2", 1), nil).Once()
	client.On("Search", mock.Anything, "Jane Doe education experience", 2).Return(items("q3", 2), nil).Once()

	p := NewGoogleProvider(client, WithResultsPerQuery(2))
	resp, err := p.SearchPersonInfo(context.Background(), "Acme", "Jane Doe", "CEO")
	require.NoError(t, err)

	assert.Equal(t, "google", resp.Source)
	require.Len(t, resp.Results, 2+1+2)
	assert.Equal(t, "q1", resp.Results[0].Title)
	assert.Equal(t, "q2", resp.Results[2].Title)
	assert.Equal(t, "q3", resp.Results[4].Title)
	assert.Equal(t, "https://example.com/q1", resp.Results[0].URL)
	assert.Equal(t, "google", resp.Results[0].Metadata["provider"])
	assert.Equal(t, "Jane Doe education experience", resp.Results[4].Metadata["query"])
	assert.Equal(t, "example.com", resp.Results[0].Metadata["display_link"])
}

func TestGoogleProvider_DuplicatesAcrossQueriesKept(t *testing.T) {
	client := googlemocks.NewMockClient(t)
	same := &google.SearchResponse{Items: []google.Item{{Title: "Acme raises seed", Link: "https://tc.com/acme"}}}
	client.On("Search", mock.Anything, mock.Anything, 5).Return(same, nil).Times(3)

	resp, err := NewGoogleProvider(client).SearchCompany(context.Background(), "Acme")
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	for _, r := range resp.Results {
		assert.Equal(t, "https://tc.com/acme", r.URL)
	}
}

func TestGoogleProvider_ErrorAborts(t *testing.T) {
	client := googlemocks.NewMockClient(t)
	client.On("Search", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded")).Once()

	_, err := NewGoogleProvider(client).SearchPersonInfo(context.Background(), "Acme", "Jane", "CTO")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Contains(t, err.Error(), "search: google query")
}

func TestJinaProvider_Normalizes(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Q   string `json:"q"`
			Num int    `json:"num"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 5, body.Num)
		queries = append(queries, body.Q)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200,"data":[{"title":"Jane Doe - LinkedIn","url":"https://linkedin.com/in/jane","description":"CEO at Acme","content":"full"}]}`))
	}))
	defer srv.Close()

	p := NewJinaProvider(jina.NewClient("k", jina.WithSearchBaseURL(srv.URL)))
	resp, err := p.SearchPersonInfo(context.Background(), "Acme", "Jane Doe", "CEO")
	require.NoError(t, err)

	assert.Equal(t, []string{"Jane Doe CEO Acme", "Jane Doe Acme founder background"}, queries)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "CEO at Acme", resp.Results[0].Snippet)
	assert.Equal(t, "full", resp.Results[0].Content)
	assert.Equal(t, "https://linkedin.com/in/jane", resp.Results[0].URL)
}

type mockPerplexity struct {
	mock.Mock
}

func (m *mockPerplexity) ChatCompletion(ctx context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*perplexity.ChatCompletionResponse), args.Error(1)
}

func TestPerplexityProvider_AnswerThenSources(t *testing.T) {
	client := &mockPerplexity{}
	client.On("ChatCompletion", mock.Anything, mock.MatchedBy(func(r perplexity.ChatCompletionRequest) bool {
		return len(r.Messages) == 2 && r.Messages[0].Role == "system" && strings.Contains(r.Messages[1].Content, "Acme")
	})).Return(&perplexity.ChatCompletionResponse{
		Choices:   []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: "Acme builds payroll software."}}},
		Citations: []string{"https://acme.ai"},
		SearchResults: []perplexity.SearchResult{
			{Title: "Acme", URL: "https://acme.ai", Snippet: "Payroll", Date: "2025-01-01"},
		},
	}, nil)

	costs := cost.NewCalculator(cost.DefaultRates())
	p := NewPerplexityProvider(client, costs)
	resp, err := p.SearchCompany(context.Background(), "Acme")
	require.NoError(t, err)

	require.Len(t, resp.Results, 4)
	assert.Equal(t, "Perplexity answer", resp.Results[0].Title)
	assert.Equal(t, "Acme builds payroll software.", resp.Results[0].Snippet)
	assert.Equal(t, "https://acme.ai", resp.Results[0].URL)
	assert.Equal(t, "Payroll", resp.Results[1].Snippet)
	assert.Equal(t, "2025-01-01", resp.Results[1].Metadata["date"])
	client.AssertNumberOfCalls(t, "ChatCompletion", 2)

	lines, total := costs.Summary()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Calls)
	assert.InDelta(t, 0.01, total, 1e-9)
}

func TestPerplexityProvider_EmptyAnswer(t *testing.T) {
	client := &mockPerplexity{}
	client.On("ChatCompletion", mock.Anything, mock.Anything).Return(&perplexity.ChatCompletionResponse{}, nil)

	resp, err := NewPerplexityProvider(client, nil).SearchPersonInfo(context.Background(), "Acme", "Jane", "CEO")
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
}

func TestWithRateLimit_CancelledContext(t *testing.T) {
	client := googlemocks.NewMockClient(t)
	p := NewGoogleProvider(client, WithRateLimit(0.001))
	// First token is available immediately; consume it so the next wait blocks.
	require.True(t, p.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.SearchCompany(ctx, "Acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
}
