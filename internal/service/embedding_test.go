package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/skumatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingClient mocks the OpenAI client
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbeddingClient) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockEmbeddingProductRepo mocks the product repository for embedding service
type MockEmbeddingProductRepo struct {
	mock.Mock
}

func (m *MockEmbeddingProductRepo) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Product, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Product), args.Error(1)
}

func (m *MockEmbeddingProductRepo) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

func TestEmbeddingService_EmbedPending_Success(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockEmbeddingProductRepo)
	service := NewEmbeddingService(mockClient, mockRepo)

	ctx := context.Background()
	products := []*domain.Product{
		{ID: "SKU-1", Name: "Refresh-tears mắt 15ml HQ"},
		{ID: "SKU-2", Name: "Enterogermina 2 billion/5ml (20 ống/H)"},
		{ID: "SKU-3", Name: "A4", NameNormalized: "a4"},
	}
	embeddings := [][]float32{{0.1, 0.2}, {0.3, 0.4}, {0.5, 0.6}}

	mockRepo.On("ListMissingEmbeddings", ctx, 50).Return(products, nil)
	mockClient.On("GenerateEmbeddings", ctx, []string{
		"refresh tears mat 15ml",
		"enterogermina 2 billion 5ml 20 ong h",
		"a4",
	}).Return(embeddings, nil)
	mockRepo.On("UpdateEmbedding", ctx, "SKU-1", embeddings[0]).Return(nil)
	mockRepo.On("UpdateEmbedding", ctx, "SKU-2", embeddings[1]).Return(nil)
	mockRepo.On("UpdateEmbedding", ctx, "SKU-3", embeddings[2]).Return(nil)

	stored, err := service.EmbedPending(ctx, 50)

	require.NoError(t, err)
	assert.Equal(t, 3, stored)
	mockRepo.AssertExpectations(t)
	mockClient.AssertExpectations(t)
}

func TestEmbeddingService_EmbedPending_NothingPending(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockEmbeddingProductRepo)
	service := NewEmbeddingService(mockClient, mockRepo)

	ctx := context.Background()
	mockRepo.On("ListMissingEmbeddings", ctx, 10).Return([]*domain.Product{}, nil)

	stored, err := service.EmbedPending(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, 0, stored)
	mockClient.AssertNotCalled(t, "GenerateEmbeddings", mock.Anything, mock.Anything)
}

func TestEmbeddingService_EmbedPending_ClientError(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockEmbeddingProductRepo)
	service := NewEmbeddingService(mockClient, mockRepo)

	ctx := context.Background()
	mockRepo.On("ListMissingEmbeddings", ctx, 10).Return([]*domain.Product{{ID: "SKU-1", Name: "Widget deluxe"}}, nil)
	mockClient.On("GenerateEmbeddings", ctx, []string{"widget deluxe"}).Return(nil, errors.New("rate limited"))

	stored, err := service.EmbedPending(ctx, 10)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate embeddings")
	assert.Equal(t, 0, stored)
	mockRepo.AssertNotCalled(t, "UpdateEmbedding", mock.Anything, mock.Anything, mock.Anything)
}

func TestEmbeddingService_EmbedPending_UpdateError(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockEmbeddingProductRepo)
	service := NewEmbeddingService(mockClient, mockRepo)

	ctx := context.Background()
	products := []*domain.Product{{ID: "A", Name: "Widget"}, {ID: "B", Name: "Gadget"}}
	mockRepo.On("ListMissingEmbeddings", ctx, 10).Return(products, nil)
	mockClient.On("GenerateEmbeddings", ctx, mock.Anything).Return([][]float32{{1}, {2}}, nil)
	mockRepo.On("UpdateEmbedding", ctx, "A", []float32{1}).Return(nil)
	mockRepo.On("UpdateEmbedding", ctx, "B", []float32{2}).Return(errors.New("conn closed"))

	stored, err := service.EmbedPending(ctx, 10)

	assert.Error(t, err)
	assert.Equal(t, 1, stored)
}

func TestEmbeddingService_EmbedPending_ListError(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockEmbeddingProductRepo)
	service := NewEmbeddingService(mockClient, mockRepo)

	ctx := context.Background()
	mockRepo.On("ListMissingEmbeddings", ctx, 10).Return(nil, errors.New("connection refused"))

	_, err := service.EmbedPending(ctx, 10)

	assert.Error(t, err)
	mockClient.AssertNotCalled(t, "GenerateEmbeddings", mock.Anything, mock.Anything)
}
