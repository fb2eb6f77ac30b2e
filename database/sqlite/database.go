package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	s3fm "github.com/Lkld-IO/wp-s3-file-manager"

	_ "modernc.org/sqlite" // SQLite driver
)

// Connect opens the SQLite catalog at dsn, runs migrations, and returns the
// catalog. The table name must be validated by the caller. The returned
// cleanup function closes the connection.
func Connect(ctx context.Context, dsn, tableName string) (s3fm.Catalog, func(), error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err = createCatalogTable(ctx, db, tableName); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return &repo{db: db, tableName: tableName}, cleanup, nil
}

// NewRepo wraps an existing database handle. Used by tests.
func NewRepo(db *sql.DB, tableName string) s3fm.Catalog {
	return &repo{db: db, tableName: tableName}
}
