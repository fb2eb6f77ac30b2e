package s3fm

import (
	"fmt"
	"strings"
)

// MaxKeyLength is the longest object key the client will send, in bytes.
const MaxKeyLength = 1024

// SanitizeKey normalizes a raw object key and validates the result.
// It strips ".." sequences, doubled slashes, and a leading slash before
// validation, then rejects keys that are empty, exceed MaxKeyLength bytes,
// or contain characters outside [A-Za-z0-9-_/.]. Total: every input maps to
// either a sanitized key or ErrInvalidKey, never a partial result.
func SanitizeKey(raw string) (string, error) {
	key := strings.ReplaceAll(raw, "..", "")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	key = strings.TrimPrefix(key, "/")

	if key == "" {
		return "", fmt.Errorf("sanitize key: empty after normalization: %w", ErrInvalidKey)
	}

	if len(key) > MaxKeyLength {
		return "", fmt.Errorf("sanitize key: exceeds %d bytes: %w", MaxKeyLength, ErrInvalidKey)
	}

	for i := 0; i < len(key); i++ {
		if !isAllowedKeyByte(key[i]) {
			return "", fmt.Errorf("sanitize key: disallowed character %q: %w", key[i], ErrInvalidKey)
		}
	}

	return key, nil
}

func isAllowedKeyByte(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_' || c == '/' || c == '.':
		return true
	default:
		return false
	}
}
