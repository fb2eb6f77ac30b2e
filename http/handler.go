package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	s3fm "github.com/Lkld-IO/wp-s3-file-manager"
)

// Resolver maps access tokens to redirect targets.
type Resolver interface {
	Resolve(ctx context.Context, token string, authenticated bool) (string, error)
}

// Syncer runs one reconciliation pass.
type Syncer interface {
	Reconcile(ctx context.Context) (s3fm.ReconcileSummary, error)
}

// StorageClient is the slice of the bucket client the admin API needs.
type StorageClient interface {
	DeleteObject(ctx context.Context, key string) error
	TestConnectivity(ctx context.Context) error
}

// CORSConfig configures cross-origin behavior for the admin API.
type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// HandlerConfig configures the Handler. Authenticated decides whether the
// caller of a file-access request counts as logged in; the session mechanism
// itself is owned by the embedding application. Nil means never
// authenticated.
type HandlerConfig struct {
	AdminToken    string
	CORS          CORSConfig
	Authenticated func(r *http.Request) bool
}

// Handler provides the HTTP handlers for file access and administration.
type Handler struct {
	config   HandlerConfig
	catalog  s3fm.Catalog
	resolver Resolver
	syncer   Syncer
	storage  StorageClient
}

// NewHandler creates a Handler wired to the given collaborators.
func NewHandler(config *HandlerConfig, catalog s3fm.Catalog, resolver Resolver, syncer Syncer, storage StorageClient) *Handler {
	return &Handler{
		config:   *config,
		catalog:  catalog,
		resolver: resolver,
		syncer:   syncer,
		storage:  storage,
	}
}

// Router returns the configured route tree. File access is public (token is
// the credential); the /api subtree requires the admin bearer token.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LogMiddleware(slog.Default()))

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/f/{token}", h.handleFileAccess)

	r.Route("/api", func(r chi.Router) {
		r.Use(AdminAuthMiddleware(h.config.AdminToken))
		r.Get("/files", h.handleList)
		r.Delete("/files/{id}", h.handleDelete)
		r.Patch("/files/{id}/auth", h.handleToggleAuth)
		r.Post("/sync", h.handleSync)
		r.Get("/health", h.handleHealth)
	})

	return r
}

func (h *Handler) authenticated(r *http.Request) bool {
	if h.config.Authenticated == nil {
		return false
	}
	return h.config.Authenticated(r)
}

// handleFileAccess redirects to a short-lived presigned URL. File bytes are
// never proxied through this process.
func (h *Handler) handleFileAccess(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	target, err := h.resolver.Resolve(r.Context(), token, h.authenticated(r))
	if err != nil {
		HandleError(w, err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.catalog.ListAll(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "Invalid file id")
		return
	}

	rec, err := h.catalog.GetByID(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	// Remote object first; the record is only an index over it. An object
	// already deleted out-of-band counts as success, so a stale record can
	// always be removed without waiting for reconciliation.
	err = h.storage.DeleteObject(r.Context(), rec.StorageKey)
	if err != nil && !errors.Is(err, &s3fm.RemoteError{StatusCode: http.StatusNotFound}) {
		HandleError(w, err)
		return
	}

	deleted, err := h.catalog.Delete(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}
	if !deleted {
		WriteError(w, http.StatusNotFound, "not_found", "File not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type toggleAuthRequest struct {
	AuthRequired bool `json:"auth_required"`
}

func (h *Handler) handleToggleAuth(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "Invalid file id")
		return
	}

	var body toggleAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}

	updated, err := h.catalog.UpdateAuthFlag(r.Context(), id, body.AuthRequired)
	if err != nil {
		HandleError(w, err)
		return
	}
	if !updated {
		WriteError(w, http.StatusNotFound, "not_found", "File not found")
		return
	}

	// The record may have been deleted between the update and this fetch;
	// a miss here is a 404, never a zero-valued record.
	rec, err := h.catalog.GetByID(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	summary, err := h.syncer.Reconcile(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.TestConnectivity(r.Context()); err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
