package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// quoteIdentifier safely quotes a PostgreSQL identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

func createCatalogTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := quoteIdentifier(tableName)
	indexStorageKey := quoteIdentifier(fmt.Sprintf("idx_%s_storage_key", tableName))

	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			file_name TEXT NOT NULL,
			storage_key TEXT NOT NULL UNIQUE,
			size BIGINT NOT NULL,
			content_type TEXT NOT NULL,
			access_token TEXT NOT NULL UNIQUE,
			auth_required BOOLEAN NOT NULL DEFAULT TRUE,
			uploaded_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)
	`, quotedTable)

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	indexSQL := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s ON %s (storage_key)
	`, indexStorageKey, quotedTable)

	if _, err := pool.Exec(ctx, indexSQL); err != nil {
		return fmt.Errorf("create index storage_key: %w", err)
	}

	return nil
}
