package service

import (
	"context"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/skumatch/internal/domain"
)

const (
	DefaultSearchLimit       = 10
	DefaultSearchConcurrency = 4
)

// CatalogSearcher ranks catalog products against a normalized query.
// filter is an infix every candidate name must contain.
type CatalogSearcher interface {
	SearchText(ctx context.Context, query, filter string, limit int) ([]domain.Match, error)
	SearchHybrid(ctx context.Context, query, filter string, embedding []float32, limit int) ([]domain.Match, error)
}

// SearchConfig tunes the catalog search.
type SearchConfig struct {
	Limit       int
	Concurrency int
}

// SearchService matches extracted line items against the product catalog.
type SearchService struct {
	repo        CatalogSearcher
	embedder    EmbeddingClient
	limit       int
	concurrency int
}

// NewSearchService creates a SearchService. embedder may be nil, in which
// case only text ranking is used.
func NewSearchService(repo CatalogSearcher, embedder EmbeddingClient, cfg SearchConfig) *SearchService {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultSearchLimit
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultSearchConcurrency
	}
	return &SearchService{
		repo:        repo,
		embedder:    embedder,
		limit:       cfg.Limit,
		concurrency: cfg.Concurrency,
	}
}

// Search returns one result per searchable item, in input order. Items with a
// blank product name are skipped. A failing lookup yields an empty match list
// for that item rather than failing the batch.
func (s *SearchService) Search(ctx context.Context, items []domain.LineItem) ([]domain.SearchResult, error) {
	searchable := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.ProductName) == "" {
			log.Printf("search: skipping item %q with empty query", item.ID)
			continue
		}
		searchable = append(searchable, item)
	}

	results := make([]domain.SearchResult, len(searchable))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, item := range searchable {
		g.Go(func() error {
			matches := s.searchItem(gctx, item.ProductName)
			results[i] = domain.SearchResult{
				ID:      item.ID,
				Query:   item.ProductName,
				Matches: matches,
			}
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *SearchService) searchItem(ctx context.Context, query string) []domain.Match {
	text := NormalizeQuery(query, false)
	if text == "" {
		return []domain.Match{}
	}
	filter := leadingToken(text)

	if s.embedder != nil {
		embedText := NormalizeQuery(query, true)
		if embedText == "" {
			embedText = text
		}
		embedding, err := s.embedder.GenerateEmbedding(ctx, embedText)
		if err != nil {
			log.Printf("search: embedding failed for %q: %v", query, err)
		} else {
			matches, err := s.repo.SearchHybrid(ctx, text, filter, embedding, s.limit)
			if err != nil {
				log.Printf("search: hybrid search failed for %q: %v", query, err)
			} else if len(matches) > 0 {
				return matches
			}
		}
	}

	matches, err := s.repo.SearchText(ctx, text, filter, s.limit)
	if err != nil {
		log.Printf("search: text search failed for %q: %v", query, err)
		return []domain.Match{}
	}
	if matches == nil {
		matches = []domain.Match{}
	}
	return matches
}
