// Package sqlite implements the catalog interface using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	s3fm "github.com/Lkld-IO/wp-s3-file-manager"
)

type repo struct {
	db        *sql.DB
	tableName string
}

func (r *repo) Insert(ctx context.Context, rec s3fm.ObjectRecord) (s3fm.ObjectRecord, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (file_name, storage_key, size, content_type, access_token, auth_required, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, r.tableName)

	result, err := r.db.ExecContext(ctx, query,
		rec.FileName, rec.StorageKey, rec.Size, rec.ContentType,
		rec.AccessToken, boolToInt(rec.AuthRequired), rec.UploadedBy,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return s3fm.ObjectRecord{}, fmt.Errorf("insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return s3fm.ObjectRecord{}, fmt.Errorf("insert: last insert id: %w", err)
	}

	rec.ID = id
	rec.CreatedAt = createdAt
	return rec, nil
}

func (r *repo) GetByID(ctx context.Context, id int64) (s3fm.ObjectRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, file_name, storage_key, size, content_type, access_token, auth_required, uploaded_by, created_at
		FROM %s WHERE id = ?`, r.tableName)

	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "get by id")
}

func (r *repo) GetByToken(ctx context.Context, token string) (s3fm.ObjectRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, file_name, storage_key, size, content_type, access_token, auth_required, uploaded_by, created_at
		FROM %s WHERE access_token = ?`, r.tableName)

	return r.scanOne(r.db.QueryRowContext(ctx, query, token), "get by token")
}

func (r *repo) ListAll(ctx context.Context) ([]s3fm.ObjectRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, file_name, storage_key, size, content_type, access_token, auth_required, uploaded_by, created_at
		FROM %s ORDER BY created_at DESC, id DESC`, r.tableName)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, r.tableName) //nolint:gosec // table name is validated

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete: rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *repo) DeleteByKey(ctx context.Context, key string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE storage_key = ?`, r.tableName) //nolint:gosec // table name is validated

	result, err := r.db.ExecContext(ctx, query, key)
	if err != nil {
		return false, fmt.Errorf("delete by key: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete by key: rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *repo) UpdateAuthFlag(ctx context.Context, id int64, required bool) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET auth_required = ? WHERE id = ?`, r.tableName) //nolint:gosec // table name is validated

	result, err := r.db.ExecContext(ctx, query, boolToInt(required), id)
	if err != nil {
		return false, fmt.Errorf("update auth flag: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update auth flag: rows affected: %w", err)
	}

	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *repo) scanOne(row *sql.Row, opName string) (s3fm.ObjectRecord, error) {
	rec, err := scanRecord(row, opName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s3fm.ObjectRecord{}, fmt.Errorf("%s: %w", opName, s3fm.ErrNotFound)
		}
		return s3fm.ObjectRecord{}, err
	}
	return rec, nil
}

func scanRecord(row rowScanner, opName string) (s3fm.ObjectRecord, error) {
	var rec s3fm.ObjectRecord
	var authRequired int
	var createdAt string

	err := row.Scan(
		&rec.ID, &rec.FileName, &rec.StorageKey, &rec.Size, &rec.ContentType,
		&rec.AccessToken, &authRequired, &rec.UploadedBy, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s3fm.ObjectRecord{}, err
		}
		return s3fm.ObjectRecord{}, fmt.Errorf("%s: scan: %w", opName, err)
	}

	rec.AuthRequired = authRequired != 0

	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return s3fm.ObjectRecord{}, fmt.Errorf("%s: parse created_at: %w", opName, err)
	}

	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
