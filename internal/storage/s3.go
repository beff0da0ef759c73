package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"campus-notes-platform/internal/config"
)

// StoredObject is the result of an upload: a publicly fetchable URL and the
// opaque handle required to delete the object later. The handle must be kept
// alongside the URL for as long as the object is referenced.
type StoredObject struct {
	URL    string
	Handle string
}

// ObjectStorage uploads unit documents to durable storage and deletes them by
// handle. Implementations do not retry; callers decide.
type ObjectStorage interface {
	Upload(ctx context.Context, data []byte, folder, name string) (StoredObject, error)
	Delete(ctx context.Context, handle string) error
}

// StorageError wraps a storage transport failure with the operation that
// produced it, so callers can distinguish write failures (fatal for the unit)
// from delete failures (logged and tolerated).
type StorageError struct {
	Op  string // "upload" or "delete"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// S3Storage stores unit documents in an S3 bucket. The object key doubles as
// the deletion handle; the public URL is derived from bucket, region and key.
type S3Storage struct {
	client *s3.Client
	bucket string
	region string
}

func NewS3Storage(ctx context.Context, cfg *config.Config) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Storage{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.S3Bucket,
		region: cfg.AWSRegion,
	}, nil
}

// Upload stores data under folder/name and returns its URL and handle. No
// internal retry.
func (s *S3Storage) Upload(ctx context.Context, data []byte, folder, name string) (StoredObject, error) {
	key := folder + "/" + name

	uploader := manager.NewUploader(s.client)

	uploadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	_, err := uploader.Upload(uploadCtx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return StoredObject{}, &StorageError{Op: "upload", Err: err}
	}

	return StoredObject{
		URL:    fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key),
		Handle: key,
	}, nil
}

// Delete removes the object behind handle. S3 deletes are idempotent, so a
// handle that was already removed does not error.
func (s *S3Storage) Delete(ctx context.Context, handle string) error {
	delCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.client.DeleteObject(delCtx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(handle),
	})
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	return nil
}
