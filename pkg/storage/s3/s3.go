package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/williamokano/bucketview/pkg/storage"
)

const driverName = "s3"

type Session struct {
	name      string
	client    *s3.Client
	presigner *s3.PresignClient
	uploader  *manager.Uploader
}

func init() {
	storage.RegisterDriver(driverName, func(ctx context.Context, ep storage.Endpoint) (storage.Session, error) {
		return New(ctx, ep)
	})
}

// New creates a session against an S3-compatible endpoint. No request is sent;
// reachability is checked by the first call.
func New(ctx context.Context, ep storage.Endpoint) (*Session, error) {
	if ep.Host == "" {
		return nil, storage.WrapError(ep.Name, "init", fmt.Errorf("%w: endpoint is required", storage.ErrInvalidConfig))
	}

	// Build AWS config
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(ep.GetRegion()),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				ep.AccessKey,
				ep.SecretKey,
				"",
			),
		),
	)
	if err != nil {
		return nil, storage.WrapError(ep.Name, "init", err)
	}

	client := s3.NewFromConfig(awsCfg, clientOptions(ep))

	return &Session{
		name:      ep.Name,
		client:    client,
		presigner: s3.NewPresignClient(client),
		uploader:  manager.NewUploader(client),
	}, nil
}

func (s *Session) Driver() string { return driverName }

// ListBuckets returns all buckets visible to the credentials
func (s *Session) ListBuckets(ctx context.Context) ([]storage.Bucket, error) {
	out, err := s.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, storage.WrapError(s.name, "list buckets", classify(err))
	}

	buckets := make([]storage.Bucket, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		buckets = append(buckets, storage.Bucket{
			Name:         aws.ToString(b.Name),
			CreationDate: aws.ToTime(b.CreationDate),
		})
	}
	return buckets, nil
}

// ListObjectsPage fetches one ListObjectsV2 page
func (s *Session) ListObjectsPage(ctx context.Context, bucket string, maxKeys int, token string) (*storage.ObjectPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if maxKeys > 0 {
		input.MaxKeys = aws.Int32(int32(maxKeys))
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, storage.WrapError(s.name, "list", classify(err))
	}

	page := &storage.ObjectPage{
		Objects:   make([]storage.ObjectInfo, 0, len(out.Contents)),
		NextToken: aws.ToString(out.NextContinuationToken),
		Truncated: aws.ToBool(out.IsTruncated),
	}
	for _, obj := range out.Contents {
		page.Objects = append(page.Objects, storage.ObjectInfo{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         aws.ToString(obj.ETag),
		})
	}
	return page, nil
}

// PutObject uploads body through the multipart-aware upload manager
func (s *Session) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return storage.WrapError(s.name, "upload", classify(err))
	}
	return nil
}

// GetObject opens an object for streaming
func (s *Session) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, storage.WrapError(s.name, "download", classify(err))
	}
	return out.Body, nil
}

// DeleteObject removes an object from S3
func (s *Session) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return storage.WrapError(s.name, "delete", classify(err))
	}
	return nil
}

// PresignGetObject signs a GET request locally
func (s *Session) PresignGetObject(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", storage.WrapError(s.name, "presign", err)
	}
	return req.URL, nil
}

// Close is a no-op for S3
func (s *Session) Close() error {
	return nil
}

// classify maps SDK failures onto the storage sentinel errors
func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "AccessDenied", "InvalidToken", "ExpiredToken":
			return fmt.Errorf("%w: %w", storage.ErrAuthFailed, err)
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
		case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout":
			return fmt.Errorf("%w: %w", storage.ErrConnFailed, err)
		}
		return err
	}
	return storage.ClassifyTransport(err)
}
