package main

import (
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3fm "github.com/Lkld-IO/wp-s3-file-manager"
	"github.com/Lkld-IO/wp-s3-file-manager/config"
)

// rewriteTransport redirects requests aimed at the provider's host to a local
// test server while leaving path, query, and Host header untouched.
type rewriteTransport struct {
	target *url.URL
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func newUploadTestClient(t *testing.T, handler http.HandlerFunc) *s3fm.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	serverURL, err := url.Parse(server.URL)
	require.NoError(t, err)

	creds := s3fm.Credentials{
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
		Region:    "us-east-1",
		Bucket:    "bucket",
	}

	return s3fm.NewClient(creds,
		s3fm.WithHTTPClient(&http.Client{Transport: &rewriteTransport{target: serverURL}}),
		s3fm.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// withChunkSize installs a config with the given multipart chunk size for the
// duration of one test.
func withChunkSize(t *testing.T, size int64) {
	t.Helper()

	orig := cfg
	cfg = &config.Config{Storage: config.StorageConfig{ChunkSize: size}}
	t.Cleanup(func() { cfg = orig })
}

func writeLargeFile(t *testing.T, size int64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "archive.zip")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
	return path
}

type completedUpload struct {
	XMLName xml.Name `xml:"CompleteMultipartUpload"`
	Parts   []struct {
		PartNumber int    `xml:"PartNumber"`
		ETag       string `xml:"ETag"`
	} `xml:"Part"`
}

func TestUploadMultipart_ChunksLargeFile(t *testing.T) {
	const (
		chunkSize = int64(5 * 1024 * 1024)
		fileSize  = int64(12 * 1024 * 1024)
	)
	withChunkSize(t, chunkSize)

	var (
		mu           sync.Mutex
		partNumbers  []int
		partSizes    []int64
		completeBody []byte
	)
	client := newUploadTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		switch {
		case r.Method == http.MethodPost && query.Has("uploads"):
			_, _ = w.Write([]byte(`<InitiateMultipartUploadResult><UploadId>upload-1</UploadId></InitiateMultipartUploadResult>`))
		case r.Method == http.MethodPut && query.Has("partNumber"):
			number, err := strconv.Atoi(query.Get("partNumber"))
			require.NoError(t, err)
			size, err := io.Copy(io.Discard, r.Body)
			require.NoError(t, err)

			mu.Lock()
			partNumbers = append(partNumbers, number)
			partSizes = append(partSizes, size)
			mu.Unlock()

			w.Header().Set("ETag", `"etag-part-`+query.Get("partNumber")+`"`)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && query.Get("uploadId") == "upload-1":
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)

			mu.Lock()
			completeBody = body
			mu.Unlock()

			_, _ = w.Write([]byte(`<CompleteMultipartUploadResult><ETag>"etag-final"</ETag></CompleteMultipartUploadResult>`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL)
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	path := writeLargeFile(t, fileSize)

	result, err := uploadMultipart(context.Background(), client, path, "archive.zip", "application/zip", fileSize)

	require.NoError(t, err)
	assert.Equal(t, s3fm.PutResult{Key: "archive.zip", ETag: "etag-final"}, result)

	// 12 MB at a 5 MB chunk size splits into exactly 5 MB, 5 MB, 2 MB.
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, partNumbers)
	assert.Equal(t, []int64{chunkSize, chunkSize, fileSize - 2*chunkSize}, partSizes)

	var payload completedUpload
	require.NoError(t, xml.Unmarshal(completeBody, &payload))
	require.Len(t, payload.Parts, 3)
	for i, p := range payload.Parts {
		assert.Equal(t, i+1, p.PartNumber)
		assert.Equal(t, "etag-part-"+strconv.Itoa(i+1), p.ETag)
	}
}

func TestUploadMultipart_AbortsOnPartFailure(t *testing.T) {
	const chunkSize = int64(5 * 1024 * 1024)
	withChunkSize(t, chunkSize)

	var (
		mu              sync.Mutex
		abortedUploadID string
		completed       bool
	)
	client := newUploadTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		switch {
		case r.Method == http.MethodPost && query.Has("uploads"):
			_, _ = w.Write([]byte(`<InitiateMultipartUploadResult><UploadId>upload-1</UploadId></InitiateMultipartUploadResult>`))
		case r.Method == http.MethodPut && query.Has("partNumber"):
			if query.Get("partNumber") == "2" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set("ETag", `"etag-part-1"`)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodDelete && query.Get("uploadId") != "":
			mu.Lock()
			abortedUploadID = query.Get("uploadId")
			mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && query.Get("uploadId") != "":
			mu.Lock()
			completed = true
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL)
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	path := writeLargeFile(t, 12*1024*1024)

	_, err := uploadMultipart(context.Background(), client, path, "archive.zip", "application/zip", 12*1024*1024)

	var remoteErr *s3fm.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusInternalServerError, remoteErr.StatusCode)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "upload-1", abortedUploadID, "in-flight upload must be aborted")
	assert.False(t, completed, "failed upload must never be completed")
}
