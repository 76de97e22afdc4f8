package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cloo-solutions/skumatch/internal/domain"
)

// ProductRepository persists catalog products.
type ProductRepository interface {
	Upsert(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Count(ctx context.Context) (int, error)
}

// CatalogService loads products into the catalog.
type CatalogService struct {
	repo     ProductRepository
	txRunner TxRunner
}

// NewCatalogService creates a CatalogService. When txRunner is set an import
// is applied in a single transaction.
func NewCatalogService(repo ProductRepository, txRunner TxRunner) *CatalogService {
	return &CatalogService{repo: repo, txRunner: txRunner}
}

// ImportResult summarizes a catalog import.
type ImportResult struct {
	Imported int
	Skipped  int
}

// Import upserts every valid product. Invalid entries are skipped and
// counted; a storage failure aborts the import.
func (s *CatalogService) Import(ctx context.Context, products []*domain.Product) (*ImportResult, error) {
	if s.txRunner == nil {
		return importProducts(ctx, s.repo, products)
	}

	var res *ImportResult
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		var err error
		res, err = importProducts(ctx, repos.Products(), products)
		return err
	})
	if err != nil {
		return &ImportResult{}, err
	}
	return res, nil
}

func importProducts(ctx context.Context, repo ProductRepository, products []*domain.Product) (*ImportResult, error) {
	res := &ImportResult{}
	now := time.Now().UTC()

	for i, p := range products {
		if err := domain.ValidateProduct(p); err != nil {
			log.Printf("catalog: skipping entry %d: %v", i, err)
			res.Skipped++
			continue
		}
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		p.NameNormalized = NormalizeQuery(p.Name, false)
		p.Embedding = nil
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if err := repo.Upsert(ctx, p); err != nil {
			return res, fmt.Errorf("failed to import product %s: %w", p.ID, err)
		}
		res.Imported++
	}

	return res, nil
}

// GetProduct returns a catalog product by id.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Count returns the number of catalog products.
func (s *CatalogService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// ParseCatalog decodes a product list. Files named *.json are read as JSON,
// everything else as YAML.
func ParseCatalog(filename string, data []byte) ([]*domain.Product, error) {
	var products []*domain.Product
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		if err := json.Unmarshal(data, &products); err != nil {
			return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &products); err != nil {
			return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
		}
	}
	return products, nil
}
