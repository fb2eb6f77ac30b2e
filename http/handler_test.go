package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3fm "github.com/Lkld-IO/wp-s3-file-manager"
	s3fmhttp "github.com/Lkld-IO/wp-s3-file-manager/http"
)

type fakeCatalog struct {
	records   []s3fm.ObjectRecord
	listErr   error
	deleteErr error
}

func (c *fakeCatalog) Insert(_ context.Context, rec s3fm.ObjectRecord) (s3fm.ObjectRecord, error) {
	rec.ID = int64(len(c.records) + 1)
	c.records = append(c.records, rec)
	return rec, nil
}

func (c *fakeCatalog) GetByID(_ context.Context, id int64) (s3fm.ObjectRecord, error) {
	for _, rec := range c.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return s3fm.ObjectRecord{}, s3fm.ErrNotFound
}

func (c *fakeCatalog) GetByToken(_ context.Context, token string) (s3fm.ObjectRecord, error) {
	for _, rec := range c.records {
		if rec.AccessToken == token {
			return rec, nil
		}
	}
	return s3fm.ObjectRecord{}, s3fm.ErrNotFound
}

func (c *fakeCatalog) ListAll(_ context.Context) ([]s3fm.ObjectRecord, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.records, nil
}

func (c *fakeCatalog) ListKeys(_ context.Context) ([]string, error) {
	keys := make([]string, 0, len(c.records))
	for _, rec := range c.records {
		keys = append(keys, rec.StorageKey)
	}
	return keys, nil
}

func (c *fakeCatalog) Delete(_ context.Context, id int64) (bool, error) {
	if c.deleteErr != nil {
		return false, c.deleteErr
	}
	for i, rec := range c.records {
		if rec.ID == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (c *fakeCatalog) DeleteByKey(_ context.Context, key string) (bool, error) {
	for i, rec := range c.records {
		if rec.StorageKey == key {
			c.records = append(c.records[:i], c.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (c *fakeCatalog) UpdateAuthFlag(_ context.Context, id int64, required bool) (bool, error) {
	for i, rec := range c.records {
		if rec.ID == id {
			c.records[i].AuthRequired = required
			return true, nil
		}
	}
	return false, nil
}

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, token string, authenticated bool) (string, error) {
	switch token {
	case "public-token":
		return "https://bucket.example.com/logo.png", nil
	case "protected-token":
		if !authenticated {
			return "", s3fm.ErrAuthRequired
		}
		return "https://bucket.example.com/report.pdf", nil
	default:
		return "", s3fm.ErrNotFound
	}
}

type fakeSyncer struct {
	summary s3fm.ReconcileSummary
	err     error
}

func (s *fakeSyncer) Reconcile(context.Context) (s3fm.ReconcileSummary, error) {
	if s.err != nil {
		return s3fm.ReconcileSummary{}, s.err
	}
	return s.summary, nil
}

type fakeStorage struct {
	deleted         []string
	deleteErr       error
	connectivityErr error
}

func (s *fakeStorage) DeleteObject(_ context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeStorage) TestConnectivity(context.Context) error {
	return s.connectivityErr
}

const adminToken = "admin-secret"

type testEnv struct {
	catalog *fakeCatalog
	syncer  *fakeSyncer
	storage *fakeStorage
	router  http.Handler
}

func newTestEnv(t *testing.T, records ...s3fm.ObjectRecord) *testEnv {
	t.Helper()

	catalog := &fakeCatalog{records: records}
	syncer := &fakeSyncer{summary: s3fm.ReconcileSummary{Added: 2, Removed: 1, RemoteObjects: 5}}
	storage := &fakeStorage{}

	config := s3fmhttp.HandlerConfig{
		AdminToken: adminToken,
		Authenticated: func(r *http.Request) bool {
			return r.Header.Get("X-Test-Authenticated") == "yes"
		},
	}

	handler := s3fmhttp.NewHandler(&config, catalog, fakeResolver{}, syncer, storage)

	return &testEnv{
		catalog: catalog,
		syncer:  syncer,
		storage: storage,
		router:  handler.Router(),
	}
}

func (e *testEnv) request(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func adminHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + adminToken}
}

func protectedRecord() s3fm.ObjectRecord {
	return s3fm.ObjectRecord{
		ID:           1,
		FileName:     "report.pdf",
		StorageKey:   "docs/report.pdf",
		AccessToken:  "protected-token",
		AuthRequired: true,
	}
}

func TestFileAccess(t *testing.T) {
	t.Parallel()

	t.Run("public token redirects", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		rec := env.request(http.MethodGet, "/f/public-token", nil, nil)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://bucket.example.com/logo.png", rec.Header().Get("Location"))
	})

	t.Run("protected token rejects anonymous callers", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		rec := env.request(http.MethodGet, "/f/protected-token", nil, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp s3fmhttp.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "auth_required", resp.Error)
	})

	t.Run("protected token redirects authenticated callers", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		rec := env.request(http.MethodGet, "/f/protected-token", nil,
			map[string]string{"X-Test-Authenticated": "yes"})

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://bucket.example.com/report.pdf", rec.Header().Get("Location"))
	})

	t.Run("unknown token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		rec := env.request(http.MethodGet, "/f/no-such-token", nil, nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdminAuth(t *testing.T) {
	t.Parallel()

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		rec := env.request(http.MethodGet, "/api/files", nil, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		rec := env.request(http.MethodGet, "/api/files", nil,
			map[string]string{"Authorization": "Bearer wrong"})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("empty configured token disables the API", func(t *testing.T) {
		t.Parallel()

		config := s3fmhttp.HandlerConfig{}
		handler := s3fmhttp.NewHandler(&config, &fakeCatalog{}, fakeResolver{}, &fakeSyncer{}, &fakeStorage{})
		router := handler.Router()

		req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
		req.Header.Set("Authorization", "Bearer ")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)

		var resp s3fmhttp.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "admin_disabled", resp.Error)
	})
}

func TestListFiles(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, protectedRecord())

	rec := env.request(http.MethodGet, "/api/files", nil, adminHeaders())

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var records []s3fm.ObjectRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "docs/report.pdf", records[0].StorageKey)
}

func TestDeleteFile(t *testing.T) {
	t.Parallel()

	t.Run("removes object then record", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, protectedRecord())

		rec := env.request(http.MethodDelete, "/api/files/1", nil, adminHeaders())

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, []string{"docs/report.pdf"}, env.storage.deleted)
		assert.Empty(t, env.catalog.records)
	})

	t.Run("object already gone still removes the record", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, protectedRecord())
		env.storage.deleteErr = &s3fm.RemoteError{Op: "delete object", StatusCode: http.StatusNotFound}

		rec := env.request(http.MethodDelete, "/api/files/1", nil, adminHeaders())

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, env.catalog.records)
	})

	t.Run("remote failure keeps the record", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, protectedRecord())
		env.storage.deleteErr = &s3fm.RemoteError{Op: "delete object", StatusCode: http.StatusForbidden}

		rec := env.request(http.MethodDelete, "/api/files/1", nil, adminHeaders())

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Len(t, env.catalog.records, 1)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		rec := env.request(http.MethodDelete, "/api/files/42", nil, adminHeaders())

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		rec := env.request(http.MethodDelete, "/api/files/abc", nil, adminHeaders())

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestToggleAuth(t *testing.T) {
	t.Parallel()

	t.Run("flips the flag", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, protectedRecord())

		body := []byte(`{"auth_required": false}`)
		rec := env.request(http.MethodPatch, "/api/files/1/auth", body, adminHeaders())

		require.Equal(t, http.StatusOK, rec.Code)

		var updated s3fm.ObjectRecord
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.False(t, updated.AuthRequired)
		assert.False(t, env.catalog.records[0].AuthRequired)
	})

	t.Run("invalid body", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, protectedRecord())

		rec := env.request(http.MethodPatch, "/api/files/1/auth", []byte("{"), adminHeaders())

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		body := []byte(`{"auth_required": true}`)
		rec := env.request(http.MethodPatch, "/api/files/42/auth", body, adminHeaders())

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("record deleted between update and fetch", func(t *testing.T) {
		t.Parallel()

		catalog := &vanishingCatalog{fakeCatalog: &fakeCatalog{records: []s3fm.ObjectRecord{protectedRecord()}}}
		config := s3fmhttp.HandlerConfig{AdminToken: adminToken}
		handler := s3fmhttp.NewHandler(&config, catalog, fakeResolver{}, &fakeSyncer{}, &fakeStorage{})
		router := handler.Router()

		req := httptest.NewRequest(http.MethodPatch, "/api/files/1/auth",
			bytes.NewReader([]byte(`{"auth_required": false}`)))
		req.Header.Set("Authorization", "Bearer "+adminToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NotContains(t, rec.Body.String(), `"id":0`)
	})
}

// vanishingCatalog simulates a concurrent delete landing right after a
// successful auth-flag update.
type vanishingCatalog struct {
	*fakeCatalog
}

func (c *vanishingCatalog) UpdateAuthFlag(ctx context.Context, id int64, required bool) (bool, error) {
	updated, err := c.fakeCatalog.UpdateAuthFlag(ctx, id, required)
	if updated {
		_, _ = c.fakeCatalog.Delete(ctx, id)
	}
	return updated, err
}

func TestSyncEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("returns the summary", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		rec := env.request(http.MethodPost, "/api/sync", nil, adminHeaders())

		require.Equal(t, http.StatusOK, rec.Code)

		var summary s3fm.ReconcileSummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
		assert.Equal(t, s3fm.ReconcileSummary{Added: 2, Removed: 1, RemoteObjects: 5}, summary)
	})

	t.Run("failure", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.syncer.err = fmt.Errorf("reconcile: %w", errors.New("listing unavailable"))

		rec := env.request(http.MethodPost, "/api/sync", nil, adminHeaders())

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "listing unavailable")
	})
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		rec := env.request(http.MethodGet, "/api/health", nil, adminHeaders())

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), `"ok"`))
	})

	t.Run("storage unconfigured", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.storage.connectivityErr = fmt.Errorf("test connectivity: %w", s3fm.ErrNotConfigured)

		rec := env.request(http.MethodGet, "/api/health", nil, adminHeaders())

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
