package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// BlobStore abstracts the object store holding resource files. The database
// row owns the lifecycle; blob operations are secondary and callers decide
// how to handle their failures.
type BlobStore interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	PresignedURL(key string, expiry time.Duration) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// S3Config holds configuration for the S3-compatible object store
type S3Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
}

// S3BlobStore implements BlobStore against any S3-compatible endpoint.
type S3BlobStore struct {
	s3Client *s3.S3
	bucket   string
}

// NewS3BlobStore creates a blob store session
func NewS3BlobStore(config S3Config) (*S3BlobStore, error) {
	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
		Endpoint:         aws.String(config.Endpoint),
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create blob store session: %w", err)
	}

	return &S3BlobStore{
		s3Client: s3.New(sess),
		bucket:   config.Bucket,
	}, nil
}

// Upload stores a resource file under key and returns the object key.
// Files stay private; reads go through presigned URLs.
func (s *S3BlobStore) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        aws.ReadSeekCloser(data),
		ACL:         aws.String("private"),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return key, nil
}

// Remove deletes a resource file from the object store.
func (s *S3BlobStore) Remove(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// PresignedURL returns a time-limited download URL for a stored file.
func (s *S3BlobStore) PresignedURL(key string, expiry time.Duration) (string, error) {
	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign url: %w", err)
	}
	return url, nil
}

// Exists checks whether a file is present in the object store.
func (s *S3BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.s3Client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, nil
	}
	return true, nil
}
