// Package export ships batches of raw scoring inputs to S3-compatible
// storage for offline analytics. When storage is not configured (empty
// bucket), the NoopUploader is used and export cycles are skipped,
// keeping the system in local-only mode.
package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/academica/forecast/internal/config"
)

// ErrNotConfigured is returned when export storage is not configured.
var ErrNotConfigured = errors.New("export storage not configured")

// Uploader uploads raw-input batch files.
type Uploader interface {
	// Upload uploads the batch file at filePath under the given object key.
	Upload(ctx context.Context, objectKey string, filePath string) error

	// Configured reports whether uploads actually go anywhere.
	Configured() bool
}

// s3Client defines the minimal minio.Client operations used by S3Uploader.
// This interface enables testing with mock implementations.
type s3Client interface {
	FPutObject(ctx context.Context, bucket, objectName, filePath string, opts interface{}) error
}

// minioClientWrapper wraps *minio.Client to satisfy the s3Client interface.
// This is necessary because minio.Client methods have concrete option types
// that differ from our simplified interface.
type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) FPutObject(ctx context.Context, bucket, objectName, filePath string, opts interface{}) error {
	putOpts := minio.PutObjectOptions{
		ContentType: "application/x-ndjson",
	}
	_, err := w.client.FPutObject(ctx, bucket, objectName, filePath, putOpts)
	return err
}

// S3Uploader uploads batch files to S3-compatible storage.
type S3Uploader struct {
	client s3Client
	bucket string
}

// Upload uploads the batch file at filePath under objectKey.
func (u *S3Uploader) Upload(ctx context.Context, objectKey string, filePath string) error {
	if err := u.client.FPutObject(ctx, u.bucket, objectKey, filePath, nil); err != nil {
		return fmt.Errorf("upload raw-input batch to S3: %w", err)
	}
	return nil
}

// Configured always reports true for a real S3 target.
func (u *S3Uploader) Configured() bool { return true }

// NoopUploader is used when export storage is not configured.
type NoopUploader struct{}

// Upload is a no-op when export storage is not configured.
func (u *NoopUploader) Upload(ctx context.Context, objectKey string, filePath string) error {
	return nil
}

// Configured reports false so the coordinator can skip cycles entirely.
func (u *NoopUploader) Configured() bool { return false }

// NewUploader creates the appropriate Uploader based on configuration.
// Returns NoopUploader when bucket is empty, S3Uploader otherwise.
func NewUploader(cfg config.ExportStorageConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return &NoopUploader{}, nil
	}

	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Uploader{
		client: &minioClientWrapper{client: client},
		bucket: cfg.Bucket,
	}, nil
}
