package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// s3API is the part of *s3.Client used by S3Storage.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Storage implements Storage with aws-sdk-go-v2 using path-style addressing.
type S3Storage struct {
	client         s3API
	bucket         string
	publicEndpoint string
	publicRead     bool
	log            zerolog.Logger
}

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// NewS3Storage builds an S3 client pointed at opts.Endpoint.
func NewS3Storage(ctx context.Context, opts Options, log zerolog.Logger) (*S3Storage, error) {
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, errors.New("STORAGE_ACCESS_KEY and STORAGE_SECRET_KEY are required for the s3 driver")
	}

	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	})

	return newS3Storage(client, opts, log), nil
}

func newS3Storage(client s3API, opts Options, log zerolog.Logger) *S3Storage {
	return &S3Storage{
		client:         client,
		bucket:         opts.Bucket,
		publicEndpoint: opts.PublicEndpoint,
		publicRead:     opts.PublicRead,
		log:            log.With().Str("component", "s3-storage").Logger(),
	}
}

// Upload issues a single PutObject for the whole body.
func (s *S3Storage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (err error) {
	defer func(start time.Time) { observe("put", start, err) }(time.Now())

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	}
	if s.publicRead {
		input.ACL = types.ObjectCannedACLPublicRead
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// Delete removes the object at key.
func (s *S3Storage) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { observe("delete", start, err) }(time.Now())

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

// PublicURL returns the browser-accessible URL for the given key.
func (s *S3Storage) PublicURL(key string) string {
	return publicURL(s.publicEndpoint, s.bucket, key)
}

// Bucket returns the bucket name.
func (s *S3Storage) Bucket() string { return s.bucket }

// Health performs a HeadBucket request.
func (s *S3Storage) Health(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("head bucket: %w", err)
	}
	return nil
}
