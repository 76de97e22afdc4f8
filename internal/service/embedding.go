package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloo-solutions/skumatch/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbeddingClient embeds several texts in one call, in input order.
type BatchEmbeddingClient interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingProductRepository defines the repository interface for product embedding operations
type EmbeddingProductRepository interface {
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Product, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingService fills in catalog embeddings used by hybrid search.
type EmbeddingService struct {
	client BatchEmbeddingClient
	repo   EmbeddingProductRepository
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client BatchEmbeddingClient, repo EmbeddingProductRepository) *EmbeddingService {
	return &EmbeddingService{client: client, repo: repo}
}

// EmbedPending embeds up to batch products that have no embedding yet and
// returns how many were stored. This method is called by the background worker.
func (s *EmbeddingService) EmbedPending(ctx context.Context, batch int) (int, error) {
	products, err := s.repo.ListMissingEmbeddings(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to list products: %w", err)
	}

	if len(products) == 0 {
		return 0, nil
	}

	texts := make([]string, len(products))
	for i, p := range products {
		texts[i] = buildEmbeddingText(p)
	}

	embeddings, err := s.client.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(products) {
		return 0, fmt.Errorf("failed to generate embeddings: got %d for %d products", len(embeddings), len(products))
	}

	stored := 0
	for i, p := range products {
		if err := s.repo.UpdateEmbedding(ctx, p.ID, embeddings[i]); err != nil {
			return stored, fmt.Errorf("failed to update embedding: %w", err)
		}
		stored++
	}

	log.Printf("embedding: stored %d product embeddings", stored)
	return stored, nil
}

func buildEmbeddingText(p *domain.Product) string {
	if text := NormalizeQuery(p.Name, true); text != "" {
		return text
	}
	if p.NameNormalized != "" {
		return p.NameNormalized
	}
	return strings.TrimSpace(p.Name)
}
