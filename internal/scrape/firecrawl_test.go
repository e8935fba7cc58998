package scrape

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
	"github.com/predator4hack/ai-shark-sub001/pkg/firecrawl"
)

type mockFirecrawlClient struct {
	mock.Mock
}

func (m *mockFirecrawlClient) Scrape(ctx context.Context, req firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*firecrawl.ScrapeResponse), args.Error(1)
}

var teamPage = "# Team\n" + strings.Repeat("Jane Doe previously led payments at a large bank. ", 5)

func TestFirecrawlAdapter_Scrape(t *testing.T) {
	client := &mockFirecrawlClient{}
	client.On("Scrape", mock.Anything, firecrawl.ScrapeRequest{URL: "https://acme.ai/team"}).
		Return(&firecrawl.ScrapeResponse{
			Success: true,
			Data: firecrawl.Document{
				Markdown: teamPage,
				Metadata: firecrawl.Metadata{Title: "Team", SourceURL: "https://acme.ai/team", StatusCode: 200},
			},
		}, nil)

	res, err := NewFirecrawlAdapter(client).Scrape(context.Background(), "https://acme.ai/team")
	require.NoError(t, err)
	assert.Equal(t, "firecrawl", res.Source)
	assert.Equal(t, "Team", res.Page.Title)
	assert.Equal(t, "https://acme.ai/team", res.Page.URL)
	assert.Equal(t, teamPage, res.Page.Markdown)
	client.AssertExpectations(t)
}

func TestFirecrawlAdapter_URLFallsBackToTarget(t *testing.T) {
	client := &mockFirecrawlClient{}
	client.On("Scrape", mock.Anything, mock.Anything).
		Return(&firecrawl.ScrapeResponse{Success: true, Data: firecrawl.Document{Markdown: teamPage}}, nil)

	res, err := NewFirecrawlAdapter(client).Scrape(context.Background(), "https://acme.ai/team")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.ai/team", res.Page.URL)
}

func TestFirecrawlAdapter_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		resp    *firecrawl.ScrapeResponse
		wantMsg string
	}{
		{"not successful", &firecrawl.ScrapeResponse{Error: "blocked"}, "blocked"},
		{"error status", &firecrawl.ScrapeResponse{Success: true, Data: firecrawl.Document{Markdown: teamPage, Metadata: firecrawl.Metadata{StatusCode: 404}}}, "status 404"},
		{"too short", &firecrawl.ScrapeResponse{Success: true, Data: firecrawl.Document{Markdown: "# Team"}}, "unreadable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockFirecrawlClient{}
			client.On("Scrape", mock.Anything, mock.Anything).Return(tt.resp, nil)

			_, err := NewFirecrawlAdapter(client).Scrape(context.Background(), "https://acme.ai")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestFirecrawlAdapter_BreakerOpens(t *testing.T) {
	client := &mockFirecrawlClient{}
	client.On("Scrape", mock.Anything, mock.Anything).Return(nil, resilience.NewTransientError(assert.AnError, 503))

	a := NewFirecrawlAdapter(client)
	assert.Equal(t, "firecrawl", a.Name())
	assert.True(t, a.Supports("https://acme.ai"))

	for range 2 {
		_, err := a.Scrape(context.Background(), "https://acme.ai")
		require.Error(t, err)
	}
	assert.False(t, a.Supports("https://acme.ai"))

	_, err := a.Scrape(context.Background(), "https://acme.ai")
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	client.AssertNumberOfCalls(t, "Scrape", 2)
}

func TestUnreadable(t *testing.T) {
	tests := []struct {
		name    string
		content string
		status  int
		want    bool
	}{
		{"good page", teamPage, 200, false},
		{"no status reported", teamPage, 0, false},
		{"server error", teamPage, 500, true},
		{"short", "hello", 200, true},
		{"challenge", "Just a moment... " + strings.Repeat("x", 200), 200, true},
		{"long page mentioning cloudflare", "cloudflare " + strings.Repeat("real text ", 120), 200, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, unreadable(tt.content, tt.status))
		})
	}
}
