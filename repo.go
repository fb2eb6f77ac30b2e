package s3fm

import "context"

// Catalog defines the interface for the local index of known storage
// objects. Implementations must be safe for concurrent use; reconciliation
// runs and admin mutations race at record granularity with last-writer-wins
// semantics, relying on the catalog's own atomic single-record primitives.
//
// All methods accept a context for cancellation and timeout control.
type Catalog interface {
	// Insert creates a new record and returns it with its assigned id.
	// Fails if the storage key or access token collides with an existing
	// record.
	Insert(ctx context.Context, rec ObjectRecord) (ObjectRecord, error)

	// GetByID retrieves a record by its numeric id.
	// Returns ErrNotFound if no such record exists.
	GetByID(ctx context.Context, id int64) (ObjectRecord, error)

	// GetByToken retrieves a record by its opaque access token (exact
	// match). Returns ErrNotFound if no such record exists.
	GetByToken(ctx context.Context, token string) (ObjectRecord, error)

	// ListAll returns every record ordered by recency (newest first).
	ListAll(ctx context.Context) ([]ObjectRecord, error)

	// ListKeys returns the storage key of every record. Used by
	// reconciliation to diff the catalog against the bucket listing.
	ListKeys(ctx context.Context) ([]string, error)

	// Delete removes a record by id. Returns false when no record matched.
	Delete(ctx context.Context, id int64) (bool, error)

	// DeleteByKey removes the record indexed by a storage key. Returns
	// false when no record matched.
	DeleteByKey(ctx context.Context, key string) (bool, error)

	// UpdateAuthFlag flips the auth-required flag on one record. Returns
	// false when no record matched.
	UpdateAuthFlag(ctx context.Context, id int64, required bool) (bool, error)
}
