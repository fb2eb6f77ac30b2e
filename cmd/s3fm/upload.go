package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	s3fm "github.com/Lkld-IO/wp-s3-file-manager"
	"github.com/Lkld-IO/wp-s3-file-manager/database"
)

var (
	uploadContentType string
	uploadPublic      bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path> [key]",
	Short: "Upload a file to the bucket and register it in the catalog",
	Long: `Upload a file to the bucket and register it in the catalog.

Files larger than storage.chunk_size are transferred with a multipart
upload (sequential parts); anything in-flight is aborted on failure so no
unfinished upload is left billing on the remote side. The key defaults to
the file's base name.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadContentType, "content-type", "t", "", "override content-type")
	uploadCmd.Flags().BoolVar(&uploadPublic, "public", false, "allow access without authentication")

	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	localPath := args[0]
	key := filepath.Base(localPath)
	if len(args) == 2 {
		key = args[1]
	}

	contentType := uploadContentType
	if contentType == "" {
		contentType = s3fm.ContentTypeForKey(key)
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	catalog, cleanup, err := database.Connect(cmd.Context(), cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer cleanup()

	client := s3fm.NewClient(cfg.Storage.Credentials())

	var result s3fm.PutResult
	if info.Size() > cfg.Storage.ChunkSize {
		result, err = uploadMultipart(cmd.Context(), client, localPath, key, contentType, info.Size())
	} else {
		putCtx, cancel := context.WithTimeout(cmd.Context(), s3fm.UploadTimeout)
		defer cancel()
		result, err = client.PutObject(putCtx, localPath, key, contentType)
	}
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	token, err := s3fm.NewAccessToken()
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	rec, err := catalog.Insert(cmd.Context(), s3fm.ObjectRecord{
		FileName:     filepath.Base(localPath),
		StorageKey:   result.Key,
		Size:         info.Size(),
		ContentType:  contentType,
		AccessToken:  token,
		AuthRequired: !uploadPublic,
		UploadedBy:   "cli",
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("upload: register in catalog: %w", err)
	}

	fmt.Printf("uploaded %s (%d bytes, etag %s)\naccess token: %s\n",
		rec.StorageKey, rec.Size, result.ETag, rec.AccessToken)
	return nil
}

// uploadMultipart transfers one large file as sequential parts. Any failure
// after initiation triggers a best-effort abort; an abort failure is logged
// but never masks the original error.
func uploadMultipart(ctx context.Context, client *s3fm.Client, localPath, key, contentType string, size int64) (s3fm.PutResult, error) {
	file, err := os.Open(localPath) //#nosec G304 -- localPath is operator-provided input
	if err != nil {
		return s3fm.PutResult{}, err
	}
	defer func() { _ = file.Close() }()

	initCtx, cancel := context.WithTimeout(ctx, s3fm.MetadataTimeout)
	upload, err := client.InitiateMultipart(initCtx, key, contentType)
	cancel()
	if err != nil {
		return s3fm.PutResult{}, err
	}

	abort := func() {
		abortCtx, abortCancel := context.WithTimeout(context.Background(), s3fm.MetadataTimeout)
		defer abortCancel()
		if abortErr := client.AbortMultipart(abortCtx, upload.Key, upload.UploadID); abortErr != nil {
			slog.Error("failed to abort multipart upload", "key", upload.Key, "upload_id", upload.UploadID, "err", abortErr)
		}
	}

	chunkSize := cfg.Storage.ChunkSize
	var parts []s3fm.CompletedPart
	for offset, partNumber := int64(0), 1; offset < size; offset, partNumber = offset+chunkSize, partNumber+1 {
		length := min(chunkSize, size-offset)
		chunk := io.NewSectionReader(file, offset, length)

		partCtx, partCancel := context.WithTimeout(ctx, s3fm.UploadTimeout)
		part, partErr := client.UploadPart(partCtx, upload.Key, upload.UploadID, partNumber, chunk)
		partCancel()
		if partErr != nil {
			abort()
			return s3fm.PutResult{}, partErr
		}

		parts = append(parts, part)
		slog.Debug("uploaded part", "key", upload.Key, "part", partNumber, "bytes", length)
	}

	completeCtx, completeCancel := context.WithTimeout(ctx, s3fm.CompleteTimeout)
	defer completeCancel()
	result, err := client.CompleteMultipart(completeCtx, upload.Key, upload.UploadID, parts)
	if err != nil {
		abort()
		return s3fm.PutResult{}, err
	}

	return result, nil
}
