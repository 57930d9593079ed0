package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/recruitgenius/backend/internal/utils"
)

// MinioStore talks to MinIO or any S3-compatible endpoint, including
// Supabase Storage's S3 gateway.
type MinioStore struct {
	client *minio.Client
}

func NewMinioStore(endpoint, accessKey, secretKey string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	return &MinioStore{client: client}, nil
}

func (m *MinioStore) Close() error { return nil }

func (m *MinioStore) Upload(ctx context.Context, bucket, object, contentType string, r io.Reader, size int64) (string, error) {
	if size <= 0 {
		size = -1
	}
	_, err := m.client.PutObject(ctx, bucket, object, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	base := strings.TrimRight(m.client.EndpointURL().String(), "/")
	return fmt.Sprintf("%s/%s/%s", base, bucket, object), nil
}

func (m *MinioStore) SignedGetURL(ctx context.Context, bucket, object string, ttl time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, bucket, object, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return u.String(), nil
}

func (m *MinioStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for obj := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		out = append(out, ObjectInfo{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	return out, nil
}

func (m *MinioStore) Remove(ctx context.Context, bucket, object string) error {
	if _, err := m.client.StatObject(ctx, bucket, object, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return utils.ErrNotFound
		}
		return fmt.Errorf("stat object: %w", err)
	}
	if err := m.client.RemoveObject(ctx, bucket, object, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (m *MinioStore) EnsureBucket(ctx context.Context, bucket string) (bool, error) {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return false, nil
	}
	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return false, fmt.Errorf("create bucket: %w", err)
	}
	return true, nil
}
