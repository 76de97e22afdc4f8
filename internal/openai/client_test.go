package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOpenAIAPI is a mock for the OpenAI API
type MockOpenAIAPI struct {
	mock.Mock
}

func (m *MockOpenAIAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func vec(n int, seed float32) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = seed
	}
	return v
}

func TestClient_GenerateEmbedding_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, 0)

	ctx := context.Background()
	expected := vec(DefaultEmbeddingDimensions, 0.5)
	mockAPI.On("CreateEmbeddings", ctx, []string{"widget a deluxe"}).Return([][]float32{expected}, nil)

	embedding, err := client.GenerateEmbedding(ctx, "widget a deluxe")

	require.NoError(t, err)
	assert.Equal(t, expected, embedding)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClient("")

	embedding, err := client.GenerateEmbedding(context.Background(), "")

	assert.Nil(t, embedding)
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestClient_GenerateEmbedding_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, 0)

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"x"}).Return(nil, errors.New("API rate limit exceeded"))

	_, err := client.GenerateEmbedding(ctx, "x")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create embedding")
}

func TestClient_GenerateEmbedding_WrongDimensions(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, 0)

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"x"}).Return([][]float32{vec(512, 1)}, nil)

	_, err := client.GenerateEmbedding(ctx, "x")

	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestClient_GenerateEmbeddings_Batches(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, 4)

	texts := make([]string, maxBatchSize+3)
	for i := range texts {
		texts[i] = fmt.Sprintf("item %d", i)
	}
	first := make([][]float32, maxBatchSize)
	for i := range first {
		first[i] = vec(4, float32(i))
	}
	second := [][]float32{vec(4, 1000), vec(4, 1001), vec(4, 1002)}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, texts[:maxBatchSize]).Return(first, nil).Once()
	mockAPI.On("CreateEmbeddings", ctx, texts[maxBatchSize:]).Return(second, nil).Once()

	out, err := client.GenerateEmbeddings(ctx, texts)

	require.NoError(t, err)
	require.Len(t, out, len(texts))
	assert.Equal(t, float32(1), out[1][0])
	assert.Equal(t, float32(1002), out[len(out)-1][0])
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbeddings_CountMismatch(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, 4)

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"a", "b"}).Return([][]float32{vec(4, 1)}, nil)

	_, err := client.GenerateEmbeddings(ctx, []string{"a", "b"})

	assert.ErrorIs(t, err, ErrCountMismatch)
}

func TestOpenAIAdapter_OrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"first", "second"}, req.Input)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[
			{"object":"embedding","index":1,"embedding":[2,2]},
			{"object":"embedding","index":0,"embedding":[1,1]}
		],"model":"text-embedding-ada-002"}`)
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter(Config{APIKey: "test-key", BaseURL: srv.URL})

	out, err := adapter.CreateEmbeddings(context.Background(), []string{"first", "second"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {2, 2}}, out)
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	assert.NotNil(t, client)
	assert.NotNil(t, client.api)
	assert.Equal(t, DefaultEmbeddingDimensions, client.dimensions)
}
