package repository

import (
	"context"
	"errors"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/skumatch/internal/domain"
)

// textMatchScale turns trigram similarity into the integer text_match score.
const textMatchScale = 1_000_000

type ProductRepository struct {
	db dbtx
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{db: pool}
}

func NewProductRepositoryWithTx(tx pgx.Tx) *ProductRepository {
	return &ProductRepository{db: tx}
}

// Upsert inserts or replaces a product. The stored embedding is kept only
// while the normalized name is unchanged.
func (r *ProductRepository) Upsert(ctx context.Context, p *domain.Product) error {
	var embedding *pgvector.Vector
	if len(p.Embedding) > 0 {
		v := pgvector.NewVector(p.Embedding)
		embedding = &v
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO products (id, name, barcode, unit, name_normalized, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   barcode = EXCLUDED.barcode,
		   unit = EXCLUDED.unit,
		   name_normalized = EXCLUDED.name_normalized,
		   embedding = CASE
		     WHEN EXCLUDED.embedding IS NOT NULL THEN EXCLUDED.embedding
		     WHEN products.name_normalized = EXCLUDED.name_normalized THEN products.embedding
		     ELSE NULL
		   END`,
		p.ID, p.Name, p.Barcode, p.Unit, p.NameNormalized, embedding, p.CreatedAt,
	)
	return err
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	var embedding *pgvector.Vector
	err := r.db.QueryRow(ctx,
		`SELECT id, name, barcode, unit, name_normalized, embedding, created_at
		 FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Barcode, &p.Unit, &p.NameNormalized, &embedding, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	if embedding != nil {
		p.Embedding = embedding.Slice()
	}
	return &p, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n)
	return n, err
}

// ListMissingEmbeddings returns the oldest products that have no embedding.
func (r *ProductRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, barcode, unit, name_normalized, created_at
		 FROM products
		 WHERE embedding IS NULL
		 ORDER BY created_at ASC, id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Barcode, &p.Unit, &p.NameNormalized, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, &p)
	}
	return products, rows.Err()
}

func (r *ProductRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// SearchText ranks products whose normalized name contains filter by trigram
// similarity to query.
func (r *ProductRepository) SearchText(ctx context.Context, query, filter string, limit int) ([]domain.Match, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, barcode, unit, similarity(name_normalized, $1) AS score
		 FROM products
		 WHERE name_normalized LIKE '%' || $2 || '%'
		 ORDER BY score DESC, name ASC
		 LIMIT $3`,
		query, filter, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []domain.Match{}
	for rows.Next() {
		var m domain.Match
		var score float64
		if err := rows.Scan(&m.Document.ID, &m.Document.Name, &m.Document.Barcode, &m.Document.Unit, &score); err != nil {
			return nil, err
		}
		m.TextMatch = textMatch(score)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// SearchHybrid ranks embedded products whose normalized name contains filter
// by trigram similarity first and cosine distance second.
func (r *ProductRepository) SearchHybrid(ctx context.Context, query, filter string, embedding []float32, limit int) ([]domain.Match, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, barcode, unit,
		        similarity(name_normalized, $1) AS score,
		        embedding <=> $3 AS distance
		 FROM products
		 WHERE name_normalized LIKE '%' || $2 || '%' AND embedding IS NOT NULL
		 ORDER BY score DESC, distance ASC
		 LIMIT $4`,
		query, filter, pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []domain.Match{}
	for rows.Next() {
		var m domain.Match
		var score, distance float64
		if err := rows.Scan(&m.Document.ID, &m.Document.Name, &m.Document.Barcode, &m.Document.Unit, &score, &distance); err != nil {
			return nil, err
		}
		m.TextMatch = textMatch(score)
		m.VectorDistance = &distance
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func textMatch(score float64) int64 {
	return int64(math.Round(score * textMatchScale))
}
