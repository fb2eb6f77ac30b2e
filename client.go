package s3fm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultRegion is the provider's legacy region. Buckets in it are
	// addressed virtual-hosted style; every other region is path-style.
	DefaultRegion = "us-east-1"

	// MaxListKeys is the largest page a single LIST call may request.
	MaxListKeys = 1000

	providerHost = "s3.amazonaws.com"
)

// Recommended per-operation deadlines. The client performs no retries and
// owns no timeouts of its own; callers bound each call with a context.
const (
	MetadataTimeout = 30 * time.Second
	UploadTimeout   = 120 * time.Second
	CompleteTimeout = 60 * time.Second
)

// Client issues SigV4-signed requests against one bucket. Each operation is
// a single synchronous call (multipart operations are several sequential
// calls); transient failures surface directly as errors, leaving retry
// policy to the caller.
type Client struct {
	creds      Credentials
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for diagnostic detail on failed responses.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClock overrides the time source used for signing. Tests use this to
// produce deterministic signatures.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a client for the bucket described by creds.
func NewClient(creds Credentials, opts ...ClientOption) *Client {
	if creds.Region == "" {
		creds.Region = DefaultRegion
	}

	c := &Client{
		creds:      creds,
		httpClient: &http.Client{},
		logger:     slog.Default(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// endpoint resolves host and canonical URI path for an object key. The
// branching must be applied consistently to host, canonical URI, and request
// URL within one call: legacy-region buckets are virtual-hosted
// ({bucket}.s3.amazonaws.com, /{key}), everything else is path-style
// (s3.{region}.amazonaws.com, /{bucket}/{key}).
func (c *Client) endpoint(key string) (host, uriPath string) {
	if c.creds.Region == DefaultRegion {
		return c.creds.Bucket + "." + providerHost, "/" + key
	}
	return "s3." + c.creds.Region + "." + providerHost, "/" + c.creds.Bucket + "/" + key
}

// objectKey sanitizes key and applies the configured key prefix. Keys in
// results and in the catalog are always relative to the prefix; only the
// wire path carries it.
func (c *Client) objectKey(key string) (string, error) {
	clean, err := SanitizeKey(key)
	if err != nil {
		return "", err
	}
	if c.creds.Prefix != "" {
		clean = strings.TrimSuffix(c.creds.Prefix, "/") + "/" + clean
	}
	return clean, nil
}

// stripKeyPrefix converts a bucket-absolute key back to its prefix-relative
// form.
func (c *Client) stripKeyPrefix(key string) string {
	if c.creds.Prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, strings.TrimSuffix(c.creds.Prefix, "/")+"/")
}

// signedRequest builds one HTTP request carrying Authorization, x-amz-date,
// and x-amz-content-sha256 headers. The same timestamp is used for the
// canonical request and the emitted headers; skew between the two would
// invalidate the signature.
func (c *Client) signedRequest(ctx context.Context, method, key string, query url.Values, body io.Reader, payloadHash string) (*http.Request, error) {
	host, uriPath := c.endpoint(key)
	requestTime := c.now().UTC()
	amzDate := requestTime.Format(DateTimeFormat)
	dateStamp := requestTime.Format(DateFormat)

	headers := map[string]string{
		"host":                 host,
		"x-amz-content-sha256": payloadHash,
		"x-amz-date":           amzDate,
	}
	canonicalHeaders, signedHeaders := buildCanonicalHeaders(headers)
	canonicalQuery := buildCanonicalQuery(query)

	canonicalRequest := buildCanonicalRequest(method, uriEncode(uriPath, false), canonicalQuery, canonicalHeaders, signedHeaders, payloadHash)
	scope := credentialScope(dateStamp, c.creds.Region)
	stringToSign := buildStringToSign(requestTime, scope, canonicalRequest)

	signingKey := DeriveSigningKey(c.creds.SecretKey, dateStamp, c.creds.Region, signingService)
	signature := ComputeSignature(signingKey, stringToSign)

	requestURL := url.URL{
		Scheme:   "https",
		Host:     host,
		Path:     uriPath,
		RawQuery: canonicalQuery,
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Host = host
	req.Header.Set("x-amz-content-sha256", payloadHash)
	req.Header.Set("x-amz-date", amzDate)
	req.Header.Set("Authorization", fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		SignatureAlgorithm, c.creds.AccessKey, scope, signedHeaders, signature))

	return req, nil
}

// checkStatus consumes the response body. Non-success responses are logged
// with full status and body for operators; the returned error carries only
// the status code; raw provider error bodies never reach callers.
func (c *Client) checkStatus(op string, resp *http.Response, okStatuses ...int) ([]byte, error) {
	body, readErr := io.ReadAll(resp.Body)

	for _, ok := range okStatuses {
		if resp.StatusCode == ok {
			if readErr != nil {
				return nil, fmt.Errorf("%s: read response: %w", op, readErr)
			}
			return body, nil
		}
	}

	c.logger.Error("storage request rejected",
		"op", op,
		"status", resp.StatusCode,
		"body", string(body),
	)
	return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode}
}

func (c *Client) do(op string, req *http.Request, okStatuses ...int) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return c.checkStatus(op, resp, okStatuses...)
}

// PutObject uploads the file at localPath under key with a single signed PUT.
func (c *Client) PutObject(ctx context.Context, localPath, key, contentType string) (PutResult, error) {
	const op = "put object"

	if !c.creds.IsConfigured() {
		return PutResult{}, fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	fullKey, err := c.objectKey(key)
	if err != nil {
		return PutResult{}, fmt.Errorf("%s: %w", op, err)
	}

	file, err := os.Open(localPath) //#nosec G304 -- localPath is operator-provided input
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return PutResult{}, fmt.Errorf("%s %s: %w", op, localPath, ErrLocalSourceMissing)
		}
		return PutResult{}, fmt.Errorf("%s: open file: %w", op, err)
	}
	defer func() { _ = file.Close() }()

	payloadHash, size, err := hashFile(file)
	if err != nil {
		return PutResult{}, fmt.Errorf("%s: %w", op, err)
	}

	req, err := c.signedRequest(ctx, http.MethodPut, fullKey, nil, file, payloadHash)
	if err != nil {
		return PutResult{}, fmt.Errorf("%s: %w", op, err)
	}
	req.ContentLength = size
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PutResult{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if _, err := c.checkStatus(op, resp, http.StatusOK); err != nil {
		return PutResult{}, err
	}

	return PutResult{
		Key:  c.stripKeyPrefix(fullKey),
		ETag: strings.Trim(resp.Header.Get("ETag"), `"`),
	}, nil
}

// DeleteObject removes an object. The provider answers 204 for deletes and
// 200 in some dialects; both count as success.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	const op = "delete object"

	if !c.creds.IsConfigured() {
		return fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	fullKey, err := c.objectKey(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := c.signedRequest(ctx, http.MethodDelete, fullKey, nil, http.NoBody, sha256Hex(nil))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = c.do(op, req, http.StatusOK, http.StatusNoContent)
	return err
}

// ListObjects returns up to maxKeys objects, optionally filtered by prefix.
// Only the first page is fetched; buckets holding more than MaxListKeys
// objects are truncated (known limitation, see package docs).
func (c *Client) ListObjects(ctx context.Context, prefix string, maxKeys int) ([]ListedObject, error) {
	const op = "list objects"

	if !c.creds.IsConfigured() {
		return nil, fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	if maxKeys <= 0 || maxKeys > MaxListKeys {
		maxKeys = MaxListKeys
	}

	query := url.Values{}
	query.Set("max-keys", strconv.Itoa(maxKeys))
	listPrefix := prefix
	if c.creds.Prefix != "" {
		listPrefix = strings.TrimSuffix(c.creds.Prefix, "/") + "/" + strings.TrimPrefix(prefix, "/")
	}
	if listPrefix != "" {
		query.Set("prefix", listPrefix)
	}

	req, err := c.signedRequest(ctx, http.MethodGet, "", query, http.NoBody, sha256Hex(nil))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	body, err := c.do(op, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var result listBucketResult
	if err := xml.Unmarshal(body, &result); err != nil {
		c.logger.Error("storage response unparsable", "op", op, "body", string(body), "err", err)
		return nil, &ParseError{Op: op, Err: err}
	}

	objects := make([]ListedObject, 0, len(result.Contents))
	for _, entry := range result.Contents {
		objects = append(objects, ListedObject{
			Key:          c.stripKeyPrefix(entry.Key),
			Size:         entry.Size,
			LastModified: entry.LastModified,
			ETag:         strings.Trim(entry.ETag, `"`),
		})
	}
	return objects, nil
}

// TestConnectivity issues a minimal signed LIST to verify the credentials
// and bucket are reachable.
func (c *Client) TestConnectivity(ctx context.Context) error {
	const op = "test connectivity"

	if !c.creds.IsConfigured() {
		return fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	query := url.Values{}
	query.Set("max-keys", "1")

	req, err := c.signedRequest(ctx, http.MethodGet, "", query, http.NoBody, sha256Hex(nil))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = c.do(op, req, http.StatusOK)
	return err
}

// InitiateMultipart starts a multipart exchange and returns the provider's
// upload id. Callers must guarantee an AbortMultipart call on any failure
// path after this succeeds, or the unfinished upload keeps billing.
func (c *Client) InitiateMultipart(ctx context.Context, key, contentType string) (MultipartUpload, error) {
	const op = "initiate multipart"

	if !c.creds.IsConfigured() {
		return MultipartUpload{}, fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	fullKey, err := c.objectKey(key)
	if err != nil {
		return MultipartUpload{}, fmt.Errorf("%s: %w", op, err)
	}

	query := url.Values{}
	query.Set("uploads", "")

	req, err := c.signedRequest(ctx, http.MethodPost, fullKey, query, http.NoBody, sha256Hex(nil))
	if err != nil {
		return MultipartUpload{}, fmt.Errorf("%s: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	body, err := c.do(op, req, http.StatusOK)
	if err != nil {
		return MultipartUpload{}, err
	}

	var result initiateMultipartResult
	if err := xml.Unmarshal(body, &result); err != nil {
		c.logger.Error("storage response unparsable", "op", op, "body", string(body), "err", err)
		return MultipartUpload{}, &ParseError{Op: op, Err: err}
	}
	if result.UploadID == "" {
		c.logger.Error("storage response missing upload id", "op", op, "body", string(body))
		return MultipartUpload{}, &ParseError{Op: op, Err: errors.New("missing UploadId")}
	}

	return MultipartUpload{Key: c.stripKeyPrefix(fullKey), UploadID: result.UploadID}, nil
}

// UploadPart uploads one part of a multipart exchange. Part numbers are
// 1-based. The chunk is read twice (hash pass, then transmit), so it must
// support seeking.
func (c *Client) UploadPart(ctx context.Context, key, uploadID string, partNumber int, chunk io.ReadSeeker) (CompletedPart, error) {
	const op = "upload part"

	if chunk == nil {
		return CompletedPart{}, fmt.Errorf("%s: %w", op, ErrLocalSourceMissing)
	}

	if !c.creds.IsConfigured() {
		return CompletedPart{}, fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	fullKey, err := c.objectKey(key)
	if err != nil {
		return CompletedPart{}, fmt.Errorf("%s: %w", op, err)
	}

	payloadHash, size, err := hashFile(chunk)
	if err != nil {
		return CompletedPart{}, fmt.Errorf("%s: %w", op, err)
	}

	query := url.Values{}
	query.Set("partNumber", strconv.Itoa(partNumber))
	query.Set("uploadId", uploadID)

	req, err := c.signedRequest(ctx, http.MethodPut, fullKey, query, io.NopCloser(chunk), payloadHash)
	if err != nil {
		return CompletedPart{}, fmt.Errorf("%s: %w", op, err)
	}
	req.ContentLength = size

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CompletedPart{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if _, err := c.checkStatus(op, resp, http.StatusOK); err != nil {
		return CompletedPart{}, err
	}

	return CompletedPart{
		PartNumber: partNumber,
		ETag:       strings.Trim(resp.Header.Get("ETag"), `"`),
	}, nil
}

// CompleteMultipart finishes a multipart exchange. Parts may be given in any
// order; the completion body is always transmitted sorted ascending by part
// number, as the provider requires.
func (c *Client) CompleteMultipart(ctx context.Context, key, uploadID string, parts []CompletedPart) (PutResult, error) {
	const op = "complete multipart"

	if !c.creds.IsConfigured() {
		return PutResult{}, fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	fullKey, err := c.objectKey(key)
	if err != nil {
		return PutResult{}, fmt.Errorf("%s: %w", op, err)
	}

	sorted := append([]CompletedPart(nil), parts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })

	payload := completeMultipartRequest{}
	for _, p := range sorted {
		payload.Parts = append(payload.Parts, completePart{PartNumber: p.PartNumber, ETag: p.ETag})
	}
	body, err := xml.Marshal(payload)
	if err != nil {
		return PutResult{}, fmt.Errorf("%s: marshal body: %w", op, err)
	}

	query := url.Values{}
	query.Set("uploadId", uploadID)

	req, err := c.signedRequest(ctx, http.MethodPost, fullKey, query, bytes.NewReader(body), sha256Hex(body))
	if err != nil {
		return PutResult{}, fmt.Errorf("%s: %w", op, err)
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/xml")

	respBody, err := c.do(op, req, http.StatusOK)
	if err != nil {
		return PutResult{}, err
	}

	var result completeMultipartResult
	if err := xml.Unmarshal(respBody, &result); err != nil {
		c.logger.Error("storage response unparsable", "op", op, "body", string(respBody), "err", err)
		return PutResult{}, &ParseError{Op: op, Err: err}
	}

	return PutResult{Key: c.stripKeyPrefix(fullKey), ETag: strings.Trim(result.ETag, `"`)}, nil
}

// AbortMultipart discards an in-flight multipart exchange and its uploaded
// parts.
func (c *Client) AbortMultipart(ctx context.Context, key, uploadID string) error {
	const op = "abort multipart"

	if !c.creds.IsConfigured() {
		return fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	fullKey, err := c.objectKey(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := url.Values{}
	query.Set("uploadId", uploadID)

	req, err := c.signedRequest(ctx, http.MethodDelete, fullKey, query, http.NoBody, sha256Hex(nil))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = c.do(op, req, http.StatusOK, http.StatusNoContent)
	return err
}

// hashFile computes the SHA-256 payload hash of r and rewinds it for
// transmission.
func hashFile(r io.ReadSeeker) (hash string, size int64, err error) {
	h := sha256.New()
	size, err = io.Copy(h, r)
	if err != nil {
		return "", 0, fmt.Errorf("hash payload: %w", err)
	}
	if _, err = r.Seek(0, io.SeekStart); err != nil {
		return "", 0, fmt.Errorf("rewind payload: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

type listBucketResult struct {
	XMLName  xml.Name `xml:"ListBucketResult"`
	Contents []struct {
		Key          string    `xml:"Key"`
		LastModified time.Time `xml:"LastModified"`
		ETag         string    `xml:"ETag"`
		Size         int64     `xml:"Size"`
	} `xml:"Contents"`
}

type initiateMultipartResult struct {
	XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
	UploadID string   `xml:"UploadId"`
}

type completeMultipartResult struct {
	XMLName xml.Name `xml:"CompleteMultipartUploadResult"`
	ETag    string   `xml:"ETag"`
}

type completeMultipartRequest struct {
	XMLName xml.Name       `xml:"CompleteMultipartUpload"`
	Parts   []completePart `xml:"Part"`
}

type completePart struct {
	PartNumber int    `xml:"PartNumber"`
	ETag       string `xml:"ETag"`
}
