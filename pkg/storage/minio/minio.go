package minio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/williamokano/bucketview/pkg/storage"
)

const driverName = "minio"

// Session talks to MinIO through the low-level Core API, which exposes
// ListObjectsV2 continuation tokens directly.
type Session struct {
	name string
	core *minio.Core
}

func init() {
	storage.RegisterDriver(driverName, func(ctx context.Context, ep storage.Endpoint) (storage.Session, error) {
		return New(ep)
	})
}

// New creates a MinIO session with path-style bucket lookup
func New(ep storage.Endpoint) (*Session, error) {
	if ep.Host == "" {
		return nil, storage.WrapError(ep.Name, "init", fmt.Errorf("%w: endpoint is required", storage.ErrInvalidConfig))
	}

	core, err := minio.NewCore(ep.HostPort(), &minio.Options{
		Creds:        credentials.NewStaticV4(ep.AccessKey, ep.SecretKey, ""),
		Secure:       ep.UseSSL,
		Region:       ep.GetRegion(),
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, storage.WrapError(ep.Name, "init", err)
	}

	return &Session{name: ep.Name, core: core}, nil
}

func (s *Session) Driver() string { return driverName }

func (s *Session) ListBuckets(ctx context.Context) ([]storage.Bucket, error) {
	infos, err := s.core.Client.ListBuckets(ctx)
	if err != nil {
		return nil, storage.WrapError(s.name, "list buckets", classify(err))
	}

	buckets := make([]storage.Bucket, 0, len(infos))
	for _, b := range infos {
		buckets = append(buckets, storage.Bucket{Name: b.Name, CreationDate: b.CreationDate})
	}
	return buckets, nil
}

func (s *Session) ListObjectsPage(ctx context.Context, bucket string, maxKeys int, token string) (*storage.ObjectPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := s.core.ListObjectsV2(bucket, "", "", token, "", maxKeys)
	if err != nil {
		return nil, storage.WrapError(s.name, "list", classify(err))
	}

	page := &storage.ObjectPage{
		Objects:   make([]storage.ObjectInfo, 0, len(res.Contents)),
		NextToken: res.NextContinuationToken,
		Truncated: res.IsTruncated,
	}
	for _, obj := range res.Contents {
		page.Objects = append(page.Objects, storage.ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ETag:         obj.ETag,
		})
	}
	return page, nil
}

func (s *Session) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.core.Client.PutObject(ctx, bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return storage.WrapError(s.name, "upload", classify(err))
	}
	return nil
}

func (s *Session) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	body, _, _, err := s.core.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, storage.WrapError(s.name, "download", classify(err))
	}
	return body, nil
}

func (s *Session) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := s.core.Client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return storage.WrapError(s.name, "delete", classify(err))
	}
	return nil
}

func (s *Session) PresignGetObject(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := s.core.Client.PresignedGetObject(ctx, bucket, key, ttl, nil)
	if err != nil {
		return "", storage.WrapError(s.name, "presign", err)
	}
	return u.String(), nil
}

func (s *Session) Close() error {
	return nil
}

func classify(err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "AccessDenied", "ExpiredToken":
		return fmt.Errorf("%w: %w", storage.ErrAuthFailed, err)
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	case "SlowDown", "XMinioServerNotInitialized", "InternalError", "RequestTimeout":
		return fmt.Errorf("%w: %w", storage.ErrConnFailed, err)
	}
	return storage.ClassifyTransport(err)
}
