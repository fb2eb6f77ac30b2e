package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	s3fm "github.com/Lkld-IO/wp-s3-file-manager"
)

// Connect opens a PostgreSQL pool for dsn, runs migrations, and returns the
// catalog. The table name must be validated by the caller. The returned
// cleanup function closes the pool.
func Connect(ctx context.Context, dsn, tableName string) (s3fm.Catalog, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err = createCatalogTable(ctx, pool, tableName); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	return &repo{pool: pool, tableName: tableName}, pool.Close, nil
}

// NewRepo wraps an existing pool. Used by tests.
func NewRepo(pool *pgxpool.Pool, tableName string) s3fm.Catalog {
	return &repo{pool: pool, tableName: tableName}
}
