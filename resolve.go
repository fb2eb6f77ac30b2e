package s3fm

import (
	"context"
	"fmt"
)

// URLPresigner is the slice of the storage client the resolver depends on.
type URLPresigner interface {
	PresignedURL(key string, expirySeconds int) (string, error)
}

// Resolver maps opaque access tokens to short-lived redirect targets. It
// never proxies file bytes: resolution yields a presigned URL for the caller
// to redirect to, which bounds memory use regardless of file size.
type Resolver struct {
	catalog   Catalog
	presigner URLPresigner
	expiry    int
}

// NewResolver creates a Resolver. Redirect links expire after
// DefaultPresignExpiry seconds.
func NewResolver(catalog Catalog, presigner URLPresigner) *Resolver {
	return &Resolver{
		catalog:   catalog,
		presigner: presigner,
		expiry:    DefaultPresignExpiry,
	}
}

// Resolve looks up the record for token and returns a presigned redirect
// target. Unknown tokens yield ErrNotFound. Records with the auth-required
// flag set yield ErrAuthRequired unless the caller is authenticated. Any
// presigning failure is an internal error.
func (r *Resolver) Resolve(ctx context.Context, token string, authenticated bool) (string, error) {
	rec, err := r.catalog.GetByToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("resolve access token: %w", err)
	}

	if rec.AuthRequired && !authenticated {
		return "", fmt.Errorf("resolve access token: %w", ErrAuthRequired)
	}

	target, err := r.presigner.PresignedURL(rec.StorageKey, r.expiry)
	if err != nil {
		return "", fmt.Errorf("resolve access token: %w", err)
	}

	return target, nil
}
