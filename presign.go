package s3fm

import (
	"fmt"
	"net/url"
	"strconv"
)

// DefaultPresignExpiry is the expiry, in seconds, used for file-access
// redirect links.
const DefaultPresignExpiry = 300

// PresignedURL returns a time-boxed, self-authenticating GET URL for key.
// The signature lives in the query string (X-Amz-Signature); the payload
// hash is the UNSIGNED-PAYLOAD token and only the host header is signed, so
// the receiver needs no further credential exchange. No I/O is performed.
func (c *Client) PresignedURL(key string, expirySeconds int) (string, error) {
	const op = "presign url"

	if !c.creds.IsConfigured() {
		return "", fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	fullKey, err := c.objectKey(key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if expirySeconds <= 0 {
		expirySeconds = DefaultPresignExpiry
	}

	host, uriPath := c.endpoint(fullKey)
	requestTime := c.now().UTC()
	amzDate := requestTime.Format(DateTimeFormat)
	dateStamp := requestTime.Format(DateFormat)
	scope := credentialScope(dateStamp, c.creds.Region)

	query := url.Values{}
	query.Set("X-Amz-Algorithm", SignatureAlgorithm)
	query.Set("X-Amz-Credential", c.creds.AccessKey+"/"+scope)
	query.Set("X-Amz-Date", amzDate)
	query.Set("X-Amz-Expires", strconv.Itoa(expirySeconds))
	query.Set("X-Amz-SignedHeaders", "host")

	canonicalQuery := buildCanonicalQuery(query)
	canonicalHeaders := "host:" + host + "\n"

	canonicalRequest := buildCanonicalRequest(
		"GET",
		uriEncode(uriPath, false),
		canonicalQuery,
		canonicalHeaders,
		"host",
		unsignedPayload,
	)
	stringToSign := buildStringToSign(requestTime, scope, canonicalRequest)

	signingKey := DeriveSigningKey(c.creds.SecretKey, dateStamp, c.creds.Region, signingService)
	signature := ComputeSignature(signingKey, stringToSign)

	presigned := url.URL{
		Scheme:   "https",
		Host:     host,
		Path:     uriPath,
		RawQuery: canonicalQuery + "&X-Amz-Signature=" + signature,
	}
	return presigned.String(), nil
}
