package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cloo-solutions/skumatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCatalogSearcher struct {
	mock.Mock
}

func (m *MockCatalogSearcher) SearchText(ctx context.Context, query, filter string, limit int) ([]domain.Match, error) {
	args := m.Called(ctx, query, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Match), args.Error(1)
}

func (m *MockCatalogSearcher) SearchHybrid(ctx context.Context, query, filter string, embedding []float32, limit int) ([]domain.Match, error) {
	args := m.Called(ctx, query, filter, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Match), args.Error(1)
}

func match(id, name string) domain.Match {
	return domain.Match{Document: domain.Document{ID: id, Name: name, Barcode: "0" + id, Unit: "EA"}}
}

func TestSearchService_TextOnly(t *testing.T) {
	repo := new(MockCatalogSearcher)
	svc := NewSearchService(repo, nil, SearchConfig{})

	deluxe := match("SKU-99", "Widget A Deluxe")
	repo.On("SearchText", mock.Anything, "widget a", "widget", DefaultSearchLimit).Return([]domain.Match{deluxe}, nil)

	results, err := svc.Search(context.Background(), []domain.LineItem{{ID: "SKU-1", ProductName: "Widget A"}})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "SKU-1", results[0].ID)
	assert.Equal(t, "Widget A", results[0].Query)
	assert.Equal(t, []domain.Match{deluxe}, results[0].Matches)
	repo.AssertNotCalled(t, "SearchHybrid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchService_HybridWhenEmbedderConfigured(t *testing.T) {
	repo := new(MockCatalogSearcher)
	embedder := new(MockEmbeddingClient)
	svc := NewSearchService(repo, embedder, SearchConfig{Limit: 3})

	embedding := []float32{0.1, 0.2}
	hit := match("P1", "Refresh Tears 15ml")
	embedder.On("GenerateEmbedding", mock.Anything, "refresh tears mat 15ml").Return(embedding, nil)
	repo.On("SearchHybrid", mock.Anything, "refresh tears mat 15ml hq", "refresh", embedding, 3).Return([]domain.Match{hit}, nil)

	results, err := svc.Search(context.Background(), []domain.LineItem{{ID: "1", ProductName: "Refresh-tears mắt 15ml HQ"}})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []domain.Match{hit}, results[0].Matches)
	repo.AssertNotCalled(t, "SearchText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchService_FallsBackToText(t *testing.T) {
	tests := []struct {
		name  string
		setup func(repo *MockCatalogSearcher, embedder *MockEmbeddingClient)
	}{
		{
			name: "embedding fails",
			setup: func(repo *MockCatalogSearcher, embedder *MockEmbeddingClient) {
				embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("quota"))
			},
		},
		{
			name: "hybrid fails",
			setup: func(repo *MockCatalogSearcher, embedder *MockEmbeddingClient) {
				embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1}, nil)
				repo.On("SearchHybrid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
			},
		},
		{
			name: "hybrid has no hits",
			setup: func(repo *MockCatalogSearcher, embedder *MockEmbeddingClient) {
				embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1}, nil)
				repo.On("SearchHybrid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]domain.Match{}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockCatalogSearcher)
			embedder := new(MockEmbeddingClient)
			tt.setup(repo, embedder)
			hit := match("SKU-99", "Widget A Deluxe")
			repo.On("SearchText", mock.Anything, "widget a", "widget", DefaultSearchLimit).Return([]domain.Match{hit}, nil)

			svc := NewSearchService(repo, embedder, SearchConfig{})
			results, err := svc.Search(context.Background(), []domain.LineItem{{ID: "1", ProductName: "Widget A"}})

			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, []domain.Match{hit}, results[0].Matches)
		})
	}
}

func TestSearchService_TextFailureGivesEmptyMatches(t *testing.T) {
	repo := new(MockCatalogSearcher)
	svc := NewSearchService(repo, nil, SearchConfig{})
	repo.On("SearchText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	results, err := svc.Search(context.Background(), []domain.LineItem{{ID: "1", ProductName: "Widget A"}})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotNil(t, results[0].Matches)
	assert.Empty(t, results[0].Matches)
}

func TestSearchService_SkipsBlankQueries(t *testing.T) {
	repo := new(MockCatalogSearcher)
	svc := NewSearchService(repo, nil, SearchConfig{})
	repo.On("SearchText", mock.Anything, "gadget", "gadget", DefaultSearchLimit).Return([]domain.Match{}, nil)

	results, err := svc.Search(context.Background(), []domain.LineItem{
		{ID: "1", ProductName: "   "},
		{ID: "2", ProductName: "Gadget"},
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "2", results[0].ID)
}

func TestSearchService_PunctuationOnlyQueryHasNoMatches(t *testing.T) {
	repo := new(MockCatalogSearcher)
	svc := NewSearchService(repo, nil, SearchConfig{})

	results, err := svc.Search(context.Background(), []domain.LineItem{{ID: "1", ProductName: "---"}})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Matches)
	repo.AssertNotCalled(t, "SearchText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchService_PreservesInputOrder(t *testing.T) {
	repo := new(MockCatalogSearcher)
	svc := NewSearchService(repo, nil, SearchConfig{Concurrency: 3})

	items := make([]domain.LineItem, 20)
	for i := range items {
		name := fmt.Sprintf("item%02d", i)
		items[i] = domain.LineItem{ID: fmt.Sprint(i), ProductName: name}
		repo.On("SearchText", mock.Anything, name, name, DefaultSearchLimit).Return([]domain.Match{match(name, name)}, nil)
	}

	results, err := svc.Search(context.Background(), items)

	require.NoError(t, err)
	require.Len(t, results, len(items))
	for i, r := range results {
		assert.Equal(t, items[i].ID, r.ID)
		assert.Equal(t, items[i].ProductName, r.Matches[0].Document.Name)
	}
}

func TestSearchService_CanceledContext(t *testing.T) {
	repo := new(MockCatalogSearcher)
	svc := NewSearchService(repo, nil, SearchConfig{})
	repo.On("SearchText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]domain.Match{}, nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Search(ctx, []domain.LineItem{{ID: "1", ProductName: "Widget"}})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchService_EmptyInput(t *testing.T) {
	svc := NewSearchService(new(MockCatalogSearcher), nil, SearchConfig{})

	results, err := svc.Search(context.Background(), nil)

	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}
