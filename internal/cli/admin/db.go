package admin

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/skumatch/internal/config"
	"github.com/cloo-solutions/skumatch/internal/database"
)

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.LoadBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.PoolConfig{MaxConns: 4})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}
