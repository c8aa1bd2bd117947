// Package storage resolves form template PDFs, either from an S3 bucket
// or from a local directory.
package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// TemplateSource fetches template PDFs by object key.
type TemplateSource interface {
	FetchTemplate(key string) ([]byte, error)
}

// S3Store serves templates from an S3 bucket. Credentials come from the
// default AWS chain (environment, shared config, instance role).
type S3Store struct {
	s3Client *s3.S3
	bucket   string
	region   string
}

// NewS3Store creates an S3-backed template store.
func NewS3Store(region, bucket string) (*S3Store, error) {
	if region == "" || bucket == "" {
		return nil, fmt.Errorf("S3 region and bucket are required")
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Store{
		s3Client: s3.New(sess),
		bucket:   bucket,
		region:   region,
	}, nil
}

// FetchTemplate downloads a template PDF from the bucket.
func (s *S3Store) FetchTemplate(key string) ([]byte, error) {
	out, err := s.s3Client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch template %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", key, err)
	}
	return data, nil
}

// UploadFilled stores a completed PDF under the given key.
func (s *S3Store) UploadFilled(key string, data []byte) error {
	_, err := s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// PresignedURL generates a presigned download URL for a stored object.
func (s *S3Store) PresignedURL(key string, expiry time.Duration) (string, error) {
	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url, nil
}

// DirStore serves templates from a local directory. Used when no bucket is
// configured and by tests.
type DirStore struct {
	dir string
}

// NewDirStore creates a directory-backed template store.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// FetchTemplate reads a template PDF from the directory. Keys may not
// escape the directory.
func (d *DirStore) FetchTemplate(key string) ([]byte, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("invalid template key: %s", key)
	}
	data, err := os.ReadFile(filepath.Join(d.dir, clean))
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", key, err)
	}
	return data, nil
}
