package storage

import (
	"context"
	"fmt"

	"github.com/recruitgenius/backend/config"
)

// Open builds the object store selected by STORAGE_DRIVER.
func Open(ctx context.Context, cfg *config.App) (ObjectStore, error) {
	switch cfg.StorageDriver {
	case "gcs":
		return NewGCSStore(ctx, cfg.GCSProjectID)
	case "minio":
		return NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// EnsureBuckets creates the recordings and resumes buckets when missing.
// report is called once per bucket.
func EnsureBuckets(ctx context.Context, s ObjectStore, buckets []string, report func(bucket string, created bool)) error {
	for _, b := range buckets {
		created, err := s.EnsureBucket(ctx, b)
		if err != nil {
			return fmt.Errorf("ensure bucket %s: %w", b, err)
		}
		if report != nil {
			report(b, created)
		}
	}
	return nil
}

// Clear removes every object under prefix one by one. A failed removal does
// not stop the run; report sees each object with its error, if any.
func Clear(ctx context.Context, s ObjectStore, bucket, prefix string, report func(object string, err error)) (removed, failed int, err error) {
	objs, err := s.List(ctx, bucket, prefix)
	if err != nil {
		return 0, 0, fmt.Errorf("list %s/%s: %w", bucket, prefix, err)
	}
	for _, o := range objs {
		if ctx.Err() != nil {
			return removed, failed, ctx.Err()
		}
		rerr := s.Remove(ctx, bucket, o.Key)
		if rerr != nil {
			failed++
		} else {
			removed++
		}
		if report != nil {
			report(o.Key, rerr)
		}
	}
	return removed, failed, nil
}
