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

type MockProductRepo struct {
	mock.Mock
}

func (m *MockProductRepo) Upsert(ctx context.Context, p *domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestParseCatalog_YAML(t *testing.T) {
	data := []byte(`
- id: SKU-99
  name: Widget A Deluxe
  barcode: "012345"
  unit: EA
- id: SKU-100
  name: Gadget
`)

	products, err := ParseCatalog("catalog.yaml", data)

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "SKU-99", products[0].ID)
	assert.Equal(t, "012345", products[0].Barcode)
	assert.Equal(t, "EA", products[0].Unit)
	assert.Empty(t, products[1].Barcode)
}

func TestParseCatalog_JSON(t *testing.T) {
	products, err := ParseCatalog("catalog.JSON", []byte(`[{"id":"SKU-1","name":"Widget","barcode":"1","unit":"BOX"}]`))

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "BOX", products[0].Unit)
}

func TestParseCatalog_Invalid(t *testing.T) {
	_, err := ParseCatalog("catalog.json", []byte(`{"id":1}`))
	assert.Error(t, err)

	_, err = ParseCatalog("catalog.yml", []byte("id: [unclosed"))
	assert.Error(t, err)
}

func TestCatalogService_Import(t *testing.T) {
	repo := new(MockProductRepo)
	svc := NewCatalogService(repo, nil)

	ctx := context.Background()
	repo.On("Upsert", ctx, mock.MatchedBy(func(p *domain.Product) bool {
		return p.ID == "SKU-1" && p.NameNormalized == "nuoc muoi 0 9" && !p.CreatedAt.IsZero()
	})).Return(nil)

	res, err := svc.Import(ctx, []*domain.Product{
		{ID: " SKU-1 ", Name: "Nước muối 0,9%"},
		{ID: "", Name: "no id"},
		nil,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 2, res.Skipped)
	repo.AssertExpectations(t)
}

func TestCatalogService_Import_UsesTransaction(t *testing.T) {
	repo := new(MockProductRepo)
	txRepo := new(MockProductRepo)
	runner := &testTxRunner{repos: &testTxRepos{products: txRepo}}
	svc := NewCatalogService(repo, runner)

	ctx := context.Background()
	txRepo.On("Upsert", ctx, mock.Anything).Return(nil)

	res, err := svc.Import(ctx, []*domain.Product{{ID: "A", Name: "Widget"}})

	require.NoError(t, err)
	assert.True(t, runner.called)
	assert.Equal(t, 1, res.Imported)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestCatalogService_Import_RepoError(t *testing.T) {
	repo := new(MockProductRepo)
	svc := NewCatalogService(repo, nil)

	ctx := context.Background()
	repo.On("Upsert", ctx, mock.Anything).Return(errors.New("unique violation"))

	res, err := svc.Import(ctx, []*domain.Product{{ID: "A", Name: "Widget"}, {ID: "B", Name: "Gadget"}})

	assert.Error(t, err)
	assert.Equal(t, 0, res.Imported)
	repo.AssertNumberOfCalls(t, "Upsert", 1)
}

func TestCatalogService_Import_TransactionErrorReportsNothingImported(t *testing.T) {
	txRepo := new(MockProductRepo)
	svc := NewCatalogService(nil, &testTxRunner{repos: &testTxRepos{products: txRepo}})

	ctx := context.Background()
	txRepo.On("Upsert", ctx, mock.MatchedBy(func(p *domain.Product) bool { return p.ID == "A" })).Return(nil)
	txRepo.On("Upsert", ctx, mock.MatchedBy(func(p *domain.Product) bool { return p.ID == "B" })).Return(errors.New("deadlock"))

	res, err := svc.Import(ctx, []*domain.Product{{ID: "A", Name: "Widget"}, {ID: "B", Name: "Gadget"}})

	assert.Error(t, err)
	assert.Equal(t, 0, res.Imported)
}
