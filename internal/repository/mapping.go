package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/skumatch/internal/domain"
)

type MappingRepository struct {
	db dbtx
}

func NewMappingRepository(pool *pgxpool.Pool) *MappingRepository {
	return &MappingRepository{db: pool}
}

// Upsert stores every pair in one transaction; an existing query is
// overwritten.
func (r *MappingRepository) Upsert(ctx context.Context, mapping domain.Mapping) error {
	now := time.Now().UTC()
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, query := range mapping.Queries() {
			_, err := tx.Exec(ctx,
				`INSERT INTO mappings (query, product_name, updated_at)
				 VALUES ($1, $2, $3)
				 ON CONFLICT (query) DO UPDATE SET
				   product_name = EXCLUDED.product_name,
				   updated_at = EXCLUDED.updated_at`,
				query, mapping[query], now,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *MappingRepository) List(ctx context.Context) ([]*domain.MappingEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT query, product_name, updated_at FROM mappings ORDER BY query ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.MappingEntry
	for rows.Next() {
		var e domain.MappingEntry
		if err := rows.Scan(&e.Query, &e.ProductName, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
