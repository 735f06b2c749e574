package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	apperrors "github.com/recapcrew/recap-engine/errors"
	"github.com/recapcrew/recap-engine/pkg/config"
)

// MinIOClient wraps transcript object storage operations
type MinIOClient struct {
	client *minio.Client
	bucket string
}

// NewMinIOClient creates a new MinIO client for the transcript bucket
func NewMinIOClient(cfg *config.StorageConfig) (*MinIOClient, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	client := &MinIOClient{
		client: minioClient,
		bucket: cfg.BucketName,
	}

	ctx := context.Background()
	if err := client.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return client, nil
}

func (m *MinIOClient) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// UploadTranscript stores an uploaded transcript and returns its object key.
func (m *MinIOClient) UploadTranscript(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return apperrors.ErrStorageFailed("upload transcript", err)
	}
	return nil
}

// UploadText stores plain text content under the given object key.
func (m *MinIOClient) UploadText(ctx context.Context, objectKey string, content string) error {
	reader := bytes.NewReader([]byte(content))
	return m.UploadTranscript(ctx, objectKey, reader, int64(len(content)), "text/plain")
}

// ExtractText reads a stored source object back as transcript text. Only
// plain-text objects are supported; anything else is a per-item skip for the
// ingestion batch.
func (m *MinIOClient) ExtractText(ctx context.Context, objectKey string) (string, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return "", apperrors.ErrStorageFailed("get transcript", err)
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		return "", apperrors.ErrStorageFailed("stat transcript", err)
	}
	if ct := stat.ContentType; ct != "" && !strings.HasPrefix(ct, "text/") {
		return "", fmt.Errorf("unsupported content type %q for object %s", ct, objectKey)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", apperrors.ErrStorageFailed("read transcript", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", fmt.Errorf("object %s is empty", objectKey)
	}
	return string(data), nil
}

// Delete removes an object from the bucket.
func (m *MinIOClient) Delete(ctx context.Context, objectKey string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return apperrors.ErrStorageFailed("delete transcript", err)
	}
	return nil
}
