package database

import (
	"context"
	"fmt"
	"regexp"

	s3fm "github.com/Lkld-IO/wp-s3-file-manager"
	"github.com/Lkld-IO/wp-s3-file-manager/database/postgres"
	"github.com/Lkld-IO/wp-s3-file-manager/database/sqlite"
)

// Config holds the configuration for connecting to a catalog backend.
type Config struct {
	// Type specifies the database type: "sqlite" or "postgres"
	Type string `mapstructure:"type" validate:"required,oneof=sqlite postgres"`
	// DSN is the data source name (connection string)
	DSN string `mapstructure:"dsn" validate:"required"`
	// Table is the name of the catalog table
	Table string `mapstructure:"table" validate:"required"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric
// with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Connect establishes a connection to the configured backend, runs
// migrations, and returns the Catalog. The returned cleanup function closes
// the connection.
func Connect(ctx context.Context, cfg Config) (s3fm.Catalog, func(), error) {
	if !IsValidTableName(cfg.Table) {
		return nil, nil, fmt.Errorf("invalid catalog table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", cfg.Table)
	}

	switch cfg.Type {
	case "sqlite":
		return sqlite.Connect(ctx, cfg.DSN, cfg.Table)
	case "postgres":
		return postgres.Connect(ctx, cfg.DSN, cfg.Table)
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
