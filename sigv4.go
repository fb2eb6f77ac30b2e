package s3fm

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	SignatureAlgorithm = "AWS4-HMAC-SHA256"
	DateTimeFormat     = "20060102T150405Z"
	DateFormat         = "20060102"

	signingService  = "s3"
	unsignedPayload = "UNSIGNED-PAYLOAD"
)

// DeriveSigningKey derives the SigV4 signing key for one day/region/service
// scope: HMAC(HMAC(HMAC(HMAC("AWS4"+secret, dateStamp), region), service),
// "aws4_request"). Deterministic for a given scope, so callers may reuse the
// key across requests sharing the same scope.
func DeriveSigningKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte("aws4_request"))
}

// ComputeSignature signs stringToSign with a derived signing key and renders
// the result as lowercase hex.
func ComputeSignature(signingKey []byte, stringToSign string) string {
	return hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func credentialScope(dateStamp, region string) string {
	return dateStamp + "/" + region + "/" + signingService + "/aws4_request"
}

// buildCanonicalRequest serializes the exact whitespace-sensitive form that
// is hashed into the string-to-sign. Every field must match what actually
// goes on the wire or the provider rejects the signature.
func buildCanonicalRequest(method, canonicalURI, canonicalQuery, canonicalHeaders, signedHeaders, payloadHash string) string {
	return strings.Join([]string{
		method,
		canonicalURI,
		canonicalQuery,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")
}

func buildStringToSign(requestTime time.Time, scope, canonicalRequest string) string {
	return strings.Join([]string{
		SignatureAlgorithm,
		requestTime.Format(DateTimeFormat),
		scope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")
}

// buildCanonicalHeaders renders lowercase-name-sorted headers as
// "name:value\n" and returns the block together with the semicolon-joined
// signed header names.
func buildCanonicalHeaders(headers map[string]string) (canonical, signed string) {
	names := make([]string, 0, len(headers))
	lowered := make(map[string]string, len(headers))
	for name, value := range headers {
		lname := strings.ToLower(name)
		names = append(names, lname)
		lowered[lname] = strings.TrimSpace(value)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(":")
		b.WriteString(lowered[name])
		b.WriteString("\n")
	}
	return b.String(), strings.Join(names, ";")
}

// buildCanonicalQuery sorts parameters by key and percent-encodes both keys
// and values per RFC 3986. url.Values.Encode is not usable here: it encodes
// spaces as "+", which the provider's canonicalization rejects.
func buildCanonicalQuery(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		values := append([]string(nil), params[k]...)
		sort.Strings(values)
		for _, v := range values {
			if b.Len() > 0 {
				b.WriteString("&")
			}
			b.WriteString(uriEncode(k, true))
			b.WriteString("=")
			b.WriteString(uriEncode(v, true))
		}
	}
	return b.String()
}

// uriEncode percent-encodes per the SigV4 rules: unreserved characters
// (A-Za-z0-9, '-', '_', '.', '~') pass through, everything else becomes
// %XX with uppercase hex. Slashes are kept literal in URI paths and encoded
// in query strings.
func uriEncode(s string, encodeSlash bool) string {
	const hexDigits = "0123456789ABCDEF"

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		case c == '/' && !encodeSlash:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0xf])
		}
	}
	return b.String()
}
