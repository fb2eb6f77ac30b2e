// Package postgres implements the catalog interface using PostgreSQL
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	s3fm "github.com/Lkld-IO/wp-s3-file-manager"
)

type repo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *repo) Insert(ctx context.Context, rec s3fm.ObjectRecord) (s3fm.ObjectRecord, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (file_name, storage_key, size, content_type, access_token, auth_required, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`, r.tableName)

	err := r.pool.QueryRow(ctx, query,
		rec.FileName, rec.StorageKey, rec.Size, rec.ContentType,
		rec.AccessToken, rec.AuthRequired, rec.UploadedBy, createdAt,
	).Scan(&rec.ID)
	if err != nil {
		return s3fm.ObjectRecord{}, fmt.Errorf("insert: %w", err)
	}

	rec.CreatedAt = createdAt
	return rec, nil
}

func (r *repo) GetByID(ctx context.Context, id int64) (s3fm.ObjectRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, file_name, storage_key, size, content_type, access_token, auth_required, uploaded_by, created_at
		FROM %s WHERE id = $1`, r.tableName)

	return scanRecord(r.pool.QueryRow(ctx, query, id), "get by id")
}

func (r *repo) GetByToken(ctx context.Context, token string) (s3fm.ObjectRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, file_name, storage_key, size, content_type, access_token, auth_required, uploaded_by, created_at
		FROM %s WHERE access_token = $1`, r.tableName)

	return scanRecord(r.pool.QueryRow(ctx, query, token), "get by token")
}

func (r *repo) ListAll(ctx context.Context) ([]s3fm.ObjectRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, file_name, storage_key, size, content_type, access_token, auth_required, uploaded_by, created_at
		FROM %s ORDER BY created_at DESC, id DESC`, r.tableName)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all: %w", err)
	}
	defer rows.Close()

	records := make([]s3fm.ObjectRecord, 0)
	for rows.Next() {
		rec, scanErr := scanRecord(rows, "list all")
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list all: rows: %w", err)
	}

	return records, nil
}

func (r *repo) ListKeys(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT storage_key FROM %s`, r.tableName) //nolint:gosec // table name is validated

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("list keys: scan: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list keys: rows: %w", err)
	}

	return keys, nil
}

func (r *repo) Delete(ctx context.Context, id int64) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tableName) //nolint:gosec // table name is validated

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *repo) DeleteByKey(ctx context.Context, key string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE storage_key = $1`, r.tableName) //nolint:gosec // table name is validated

	tag, err := r.pool.Exec(ctx, query, key)
	if err != nil {
		return false, fmt.Errorf("delete by key: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *repo) UpdateAuthFlag(ctx context.Context, id int64, required bool) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET auth_required = $1 WHERE id = $2`, r.tableName) //nolint:gosec // table name is validated

	tag, err := r.pool.Exec(ctx, query, required, id)
	if err != nil {
		return false, fmt.Errorf("update auth flag: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, opName string) (s3fm.ObjectRecord, error) {
	var rec s3fm.ObjectRecord
	var createdAt time.Time

	err := row.Scan(
		&rec.ID, &rec.FileName, &rec.StorageKey, &rec.Size, &rec.ContentType,
		&rec.AccessToken, &rec.AuthRequired, &rec.UploadedBy, &createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s3fm.ObjectRecord{}, fmt.Errorf("%s: %w", opName, s3fm.ErrNotFound)
		}
		return s3fm.ObjectRecord{}, fmt.Errorf("%s: scan: %w", opName, err)
	}

	rec.CreatedAt = createdAt.UTC()
	return rec, nil
}
