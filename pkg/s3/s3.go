package s3

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

type ItfS3 interface {
	UploadSnapshot(ctx context.Context, key string, data []byte, contentType string) (string, error)
	PresignUrl(key string, ttl time.Duration) (string, error)
}

type Options struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
}

type s3Client struct {
	client     *s3.S3
	uploader   *s3manager.Uploader
	bucketName string
}

func New(opts Options) (ItfS3, error) {
	if opts.BucketName == "" {
		return nil, fmt.Errorf("s3 bucket name is not configured")
	}

	sess, err := newSession(opts)
	if err != nil {
		return nil, err
	}

	return &s3Client{
		client:     s3.New(sess),
		uploader:   s3manager.NewUploader(sess),
		bucketName: opts.BucketName,
	}, nil
}

func (s *s3Client) UploadSnapshot(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	return out.Location, nil
}

func (s *s3Client) PresignUrl(key string, ttl time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})

	urlStr, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}

	return urlStr, nil
}

func newSession(opts Options) (*session.Session, error) {
	cfg := &aws.Config{
		Region: aws.String(opts.Region),
	}
	if opts.AccessKeyID != "" {
		cfg.Credentials = credentials.NewStaticCredentials(opts.AccessKeyID, opts.SecretAccessKey, "")
	}

	return session.NewSession(cfg)
}

// SnapshotKey is the object key for a violation snapshot.
func SnapshotKey(id string) string {
	return fmt.Sprintf("violations/%s.jpg", id)
}
