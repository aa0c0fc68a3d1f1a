package publish

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vidmill/vidmill/internal/config"
)

// MinioPublisher uploads artifacts to a MinIO bucket. It serves as the
// fallback target when the primary store is unavailable.
type MinioPublisher struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

var _ Publisher = (*MinioPublisher)(nil)

// NewMinioPublisher builds a publisher for the configured endpoint.
func NewMinioPublisher(cfg config.Minio) (*MinioPublisher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &MinioPublisher{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: baseURL,
	}, nil
}

// Name identifies the publisher in logs.
func (p *MinioPublisher) Name() string {
	return "minio"
}

// Upload writes the file to the bucket and returns its public URL.
func (p *MinioPublisher) Upload(ctx context.Context, localPath, key string) (string, error) {
	_, err := p.client.FPutObject(ctx, p.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentTypeFor(localPath),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return publicURL(p.baseURL, key), nil
}
