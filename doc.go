// Package s3fm implements a private file store backed by an S3-compatible
// bucket. Files are reachable only through short-lived presigned redirect
// links, and a reconciliation pass keeps the local catalog in sync with the
// bucket contents.
//
// The package talks to the bucket directly over its REST API using AWS
// Signature Version 4, with no vendor SDK. It covers exactly the operations the
// file store needs: PUT/DELETE/presign/LIST plus the full multipart upload
// lifecycle (initiate, upload parts, complete or abort).
package s3fm
