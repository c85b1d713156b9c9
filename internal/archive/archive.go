// Package archive copies finished video artifacts to durable storage so
// they survive the agent's local artifacts directory being cleaned up.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver uploads a local artifact and returns its remote location.
type Archiver interface {
	Archive(ctx context.Context, jobID, localPath string) (string, error)
}

// Options configure the MinIO backend.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOArchiver stores artifacts in an S3-compatible bucket, one object
// per job keyed by job id and original filename.
type MinIOArchiver struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

func NewMinIOArchiver(opts Options, logger *slog.Logger) (*MinIOArchiver, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required when the artifact backend is minio")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOArchiver{client: client, bucket: opts.Bucket, logger: logger}, nil
}

func (a *MinIOArchiver) Archive(ctx context.Context, jobID, localPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := a.ensureBucket(ctx); err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("%s/%s", jobID, filepath.Base(localPath))
	_, err := a.client.FPutObject(ctx, a.bucket, objectName, localPath,
		minio.PutObjectOptions{ContentType: "video/mp4"})
	if err != nil {
		return "", fmt.Errorf("failed to archive artifact: %w", err)
	}

	a.logger.Info("artifact archived", "job_id", jobID, "object", objectName)
	return fmt.Sprintf("s3://%s/%s", a.bucket, objectName), nil
}

func (a *MinIOArchiver) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}
