// Package storage defines the interface for object storage operations.
// Both drivers speak the S3 API, so any S3-compatible provider works
// (MinIO locally, Cloudflare R2 or AWS S3 in production).
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicuris/service/internal/config"
	"github.com/medicuris/service/internal/metrics"
)

// Storage is the interface for uploading and addressing objects.
type Storage interface {
	// Upload writes data to the store under the given key.
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// Delete removes an object identified by key.
	Delete(ctx context.Context, key string) error
	// PublicURL constructs the browser-accessible URL for a given key.
	PublicURL(key string) string
	// Bucket returns the configured bucket name.
	Bucket() string
	// Health checks that the bucket is reachable.
	Health(ctx context.Context) error
}

// Options configures a storage driver.
type Options struct {
	Endpoint       string // scheme-qualified API endpoint
	PublicEndpoint string // scheme-qualified base for public URLs
	Region         string
	AccessKey      string
	SecretKey      string
	Bucket         string
	PublicRead     bool // request the public-read canned ACL on every PUT
	EnsureBucket   bool
}

// OptionsFromConfig extracts storage options from the service configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Endpoint:       cfg.StorageEndpoint,
		PublicEndpoint: cfg.StoragePublicEndpoint,
		Region:         cfg.StorageRegion,
		AccessKey:      cfg.StorageAccessKey,
		SecretKey:      cfg.StorageSecretKey,
		Bucket:         cfg.StorageBucket,
		PublicRead:     cfg.StoragePublicRead,
		EnsureBucket:   cfg.StorageEnsureBucket,
	}
}

// New builds the driver selected by cfg.StorageDriver.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Storage, error) {
	opts := OptionsFromConfig(cfg)
	switch cfg.StorageDriver {
	case config.DriverMinio:
		return NewMinioStorage(ctx, opts, log)
	case config.DriverS3:
		return NewS3Storage(ctx, opts, log)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// publicURL joins base, bucket and key as scheme://host/bucket/key.
// The key is not escaped.
func publicURL(base, bucket, key string) string {
	return base + "/" + bucket + "/" + key
}

const aclPublicRead = "public-read"

// observe records the outcome and latency of one storage call.
func observe(operation string, start time.Time, err error) {
	metrics.StorageOperationsTotal.WithLabelValues(operation, metrics.Outcome(err)).Inc()
	metrics.StorageDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
