package s3fm

import (
	"time"
)

// Credentials holds everything needed to address and sign requests against
// one bucket. The value is immutable per operation: it is supplied by the
// configuration layer at composition time and passed into the client
// constructor; there is no ambient global state.
type Credentials struct {
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	Prefix    string
}

// IsConfigured reports whether all credential fields required for network
// operations are present. Operations fail fast with ErrNotConfigured when
// this is false.
func (c Credentials) IsConfigured() bool {
	return c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

// ObjectRecord is one catalog entry. The bucket object is the source of
// truth for existence; the record is an index over it. Records are created
// on upload completion or during reconciliation, mutated only to flip
// AuthRequired, and deleted when the file is removed or reconciliation
// finds the backing object gone.
type ObjectRecord struct {
	ID           int64     `json:"id"`
	FileName     string    `json:"file_name"`
	StorageKey   string    `json:"storage_key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	AccessToken  string    `json:"access_token"`
	AuthRequired bool      `json:"auth_required"`
	UploadedBy   string    `json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListedObject is one entry from a bucket LIST call. Transient: it is only
// diffed against catalog storage keys, never persisted as-is.
type ListedObject struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// PutResult is the outcome of a successful put-object or complete-multipart.
type PutResult struct {
	Key  string
	ETag string
}

// MultipartUpload identifies one in-flight multipart exchange. It lives only
// for the duration of a single chunked upload and is not persisted; an
// interrupted exchange must be aborted or it remains a billable unfinished
// upload on the remote side.
type MultipartUpload struct {
	Key      string
	UploadID string
}

// CompletedPart records the provider's ETag for one uploaded part.
type CompletedPart struct {
	PartNumber int
	ETag       string
}

// ReconcileSummary reports what a reconciliation pass changed.
type ReconcileSummary struct {
	Added         int `json:"added"`
	Removed       int `json:"removed"`
	RemoteObjects int `json:"remote_objects"`
}
