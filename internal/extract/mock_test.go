package extract

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/internal/search"
	"github.com/predator4hack/ai-shark-sub001/internal/synth"
)

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) SearchAll(ctx context.Context, company, person, role string) []search.Outcome {
	return m.Called(ctx, company, person, role).Get(0).([]search.Outcome)
}

func (m *mockSearcher) SearchCompanyAll(ctx context.Context, company string) []search.Outcome {
	return m.Called(ctx, company).Get(0).([]search.Outcome)
}

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Analyze(ctx context.Context, req synth.Request) (synth.Result, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(synth.Result)
	return res, args.Error(1)
}

func (m *mockAnalyzer) AnalyzeSearch(ctx context.Context, req synth.Request, responses []model.ProviderResponse) (synth.Result, error) {
	args := m.Called(ctx, req, responses)
	res, _ := args.Get(0).(synth.Result)
	return res, args.Error(1)
}

type mockDecks struct {
	mock.Mock
}

func (m *mockDecks) Load(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}
