package s3fm

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
)

// ObjectLister is the slice of the storage client the reconciler depends on.
type ObjectLister interface {
	ListObjects(ctx context.Context, prefix string, maxKeys int) ([]ListedObject, error)
}

// Reconciler diffs the bucket's object listing against the catalog,
// inserting records for objects that appeared out-of-band and removing
// records whose backing object is gone.
type Reconciler struct {
	lister  ObjectLister
	catalog Catalog
	logger  *slog.Logger
}

// NewReconciler creates a Reconciler over the given storage client and
// catalog.
func NewReconciler(lister ObjectLister, catalog Catalog, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		lister:  lister,
		catalog: catalog,
		logger:  logger,
	}
}

// Reconcile runs one pass. Removals happen before additions; the pass is not
// transactional, so a returned error means "reconciliation incomplete, safe
// to retry": each record mutation is individually atomic and a rerun
// converges. Only the first listing page is diffed (bounded by MaxListKeys),
// a known limitation for buckets beyond that size.
func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileSummary, error) {
	remote, err := r.lister.ListObjects(ctx, "", MaxListKeys)
	if err != nil {
		return ReconcileSummary{}, fmt.Errorf("reconcile: %w", err)
	}

	remoteKeys := make(map[string]ListedObject, len(remote))
	for _, obj := range remote {
		remoteKeys[obj.Key] = obj
	}

	catalogKeys, err := r.catalog.ListKeys(ctx)
	if err != nil {
		return ReconcileSummary{}, fmt.Errorf("reconcile: %w", err)
	}

	summary := ReconcileSummary{RemoteObjects: len(remote)}

	known := make(map[string]bool, len(catalogKeys))
	for _, key := range catalogKeys {
		known[key] = true
		if _, exists := remoteKeys[key]; exists {
			continue
		}

		// Object was removed out-of-band; drop the stale record.
		removed, delErr := r.catalog.DeleteByKey(ctx, key)
		if delErr != nil {
			return summary, fmt.Errorf("reconcile: remove %s: %w", key, delErr)
		}
		if removed {
			summary.Removed++
			r.logger.Info("removed orphaned catalog record", "key", key)
		}
	}

	for _, obj := range remote {
		if known[obj.Key] {
			continue
		}
		if strings.HasSuffix(obj.Key, "/") {
			// Folder marker, not a file.
			continue
		}

		name := path.Base(obj.Key)
		if name == "" || name == "." || name == "/" {
			continue
		}

		token, tokenErr := NewAccessToken()
		if tokenErr != nil {
			return summary, fmt.Errorf("reconcile: %w", tokenErr)
		}

		rec := ObjectRecord{
			FileName:     name,
			StorageKey:   obj.Key,
			Size:         obj.Size,
			ContentType:  ContentTypeForKey(obj.Key),
			AccessToken:  token,
			AuthRequired: true,
			UploadedBy:   "sync",
			CreatedAt:    obj.LastModified,
		}

		if _, insErr := r.catalog.Insert(ctx, rec); insErr != nil {
			return summary, fmt.Errorf("reconcile: add %s: %w", obj.Key, insErr)
		}
		summary.Added++
		r.logger.Info("added catalog record for remote object", "key", obj.Key, "size", obj.Size)
	}

	return summary, nil
}
