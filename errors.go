package s3fm

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNotConfigured is returned when access key, secret key, or bucket is missing
	ErrNotConfigured = errors.New("storage not configured")
	// ErrInvalidKey is returned when an object key fails sanitization
	ErrInvalidKey = errors.New("invalid object key")
	// ErrLocalSourceMissing is returned when the local file to upload does not exist
	ErrLocalSourceMissing = errors.New("local file not found")
	// ErrNotFound is returned when a catalog record is not found
	ErrNotFound = errors.New("not found")
	// ErrAuthRequired is returned when a record requires an authenticated caller
	ErrAuthRequired = errors.New("authentication required")
)

// RemoteError represents a non-success HTTP response from the storage
// provider. It carries only the status code; the raw response body is logged
// by the client and never crosses the trust boundary to callers.
type RemoteError struct {
	Op         string
	StatusCode int
}

func (e *RemoteError) Error() string {
	return e.Op + ": storage provider rejected the request (status " + strconv.Itoa(e.StatusCode) + ")"
}

// Is reports whether target matches this error.
// It matches any *RemoteError, or one with the same StatusCode when set.
func (e *RemoteError) Is(target error) bool {
	var t *RemoteError
	if !errors.As(target, &t) {
		return false
	}
	return t.StatusCode == 0 || t.StatusCode == e.StatusCode
}

// ParseError represents a success-status response whose body violated the
// provider's documented format. It is distinct from RemoteError: the request
// succeeded, the response contract did not hold.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: unexpected response format: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
