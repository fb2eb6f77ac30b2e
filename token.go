package s3fm

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// AccessTokenLength is the length, in characters, of minted access tokens.
const AccessTokenLength = 40

// NewAccessToken mints an opaque random access token for a catalog record.
func NewAccessToken() (string, error) {
	buf := make([]byte, AccessTokenLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("mint access token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
