package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/recruitgenius/backend/internal/utils"
	"google.golang.org/api/iterator"
)

type GCSStore struct {
	client    *gcs.Client
	projectID string
}

func NewGCSStore(ctx context.Context, projectID string) (*GCSStore, error) {
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSStore{client: c, projectID: projectID}, nil
}

func (s *GCSStore) Close() error { return s.client.Close() }

// Upload writes the object without any public ACL; readers get signed URLs.
func (s *GCSStore) Upload(ctx context.Context, bucket, object, contentType string, r io.Reader, _ int64) (string, error) {
	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, object), nil
}

func (s *GCSStore) SignedGetURL(_ context.Context, bucket, object string, ttl time.Duration) (string, error) {
	return s.client.Bucket(bucket).SignedURL(object, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
}

func (s *GCSStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	it := s.client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	var out []ObjectInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ObjectInfo{Key: attrs.Name, Size: attrs.Size, LastModified: attrs.Updated})
	}
}

func (s *GCSStore) Remove(ctx context.Context, bucket, object string) error {
	err := s.client.Bucket(bucket).Object(object).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return utils.ErrNotFound
	}
	return err
}

func (s *GCSStore) EnsureBucket(ctx context.Context, bucket string) (bool, error) {
	b := s.client.Bucket(bucket)
	_, err := b.Attrs(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gcs.ErrBucketNotExist) {
		return false, err
	}
	if s.projectID == "" {
		return false, errors.New("GCS_PROJECT_ID is required to create buckets")
	}
	if err := b.Create(ctx, s.projectID, &gcs.BucketAttrs{
		UniformBucketLevelAccess: gcs.UniformBucketLevelAccess{Enabled: true},
	}); err != nil {
		return false, err
	}
	return true, nil
}
