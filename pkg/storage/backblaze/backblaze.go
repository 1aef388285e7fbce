package backblaze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kurin/blazer/b2"

	"github.com/williamokano/bucketview/pkg/storage"
)

const driverName = "b2"

// Session talks to Backblaze B2 through its native API
type Session struct {
	name   string
	client *b2.Client

	mu      sync.Mutex
	buckets map[string]*b2.Bucket
}

func init() {
	storage.RegisterDriver(driverName, func(ctx context.Context, ep storage.Endpoint) (storage.Session, error) {
		return New(ctx, ep)
	})
}

// New authorizes the application key against B2
func New(ctx context.Context, ep storage.Endpoint) (*Session, error) {
	keyID, appKey, err := credentials(ep)
	if err != nil {
		return nil, storage.WrapError(ep.Name, "init", err)
	}

	client, err := b2.NewClient(ctx, keyID, appKey)
	if err != nil {
		return nil, storage.WrapError(ep.Name, "init", classify(err))
	}

	return &Session{
		name:    ep.Name,
		client:  client,
		buckets: make(map[string]*b2.Bucket),
	}, nil
}

func (s *Session) Driver() string { return driverName }

// ListBuckets returns every bucket the key can see. B2 reports no creation date.
func (s *Session) ListBuckets(ctx context.Context) ([]storage.Bucket, error) {
	list, err := s.client.ListBuckets(ctx)
	if err != nil {
		return nil, storage.WrapError(s.name, "list buckets", classify(err))
	}

	buckets := make([]storage.Bucket, 0, len(list))
	s.mu.Lock()
	for _, b := range list {
		s.buckets[b.Name()] = b
		buckets = append(buckets, storage.Bucket{Name: b.Name()})
	}
	s.mu.Unlock()
	return buckets, nil
}

// ListObjectsPage reads file names in B2 order and resumes after the key in token.
// The B2 iterator has no start-after option, so earlier keys are skipped client side.
func (s *Session) ListObjectsPage(ctx context.Context, bucket string, maxKeys int, token string) (*storage.ObjectPage, error) {
	b, err := s.bucket(ctx, bucket)
	if err != nil {
		return nil, storage.WrapError(s.name, "list", err)
	}
	after, err := storage.DecodeCursor(token)
	if err != nil {
		return nil, storage.WrapError(s.name, "list", err)
	}
	if maxKeys <= 0 {
		maxKeys = storage.DefaultMaxKeys
	}

	var objects []storage.ObjectInfo
	iter := b.List(ctx)
	for len(objects) <= maxKeys && iter.Next() {
		obj := iter.Object()
		if obj.Name() <= after {
			continue
		}
		attrs, err := obj.Attrs(ctx)
		if err != nil {
			return nil, storage.WrapError(s.name, "list", classify(err))
		}
		objects = append(objects, storage.ObjectInfo{
			Key:          obj.Name(),
			Size:         attrs.Size,
			LastModified: attrs.UploadTimestamp,
			ETag:         attrs.SHA1,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, storage.WrapError(s.name, "list", classify(err))
	}

	return storage.PageAfter(objects, after, maxKeys), nil
}

func (s *Session) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	b, err := s.bucket(ctx, bucket)
	if err != nil {
		return storage.WrapError(s.name, "upload", err)
	}

	// Cancelling the writer's context abandons the upload instead of committing a
	// truncated file on Close
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := b.Object(key).NewWriter(wctx)
	if contentType != "" {
		w = w.WithAttrs(&b2.Attrs{ContentType: contentType})
	}
	if _, err := io.Copy(w, body); err != nil {
		cancel()
		w.Close()
		return storage.WrapError(s.name, "upload", classify(err))
	}
	if err := w.Close(); err != nil {
		return storage.WrapError(s.name, "upload", classify(err))
	}
	return nil
}

// GetObject checks the file exists before streaming, since the B2 reader only
// reports errors on its first Read.
func (s *Session) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	b, err := s.bucket(ctx, bucket)
	if err != nil {
		return nil, storage.WrapError(s.name, "download", err)
	}
	obj := b.Object(key)
	if _, err := obj.Attrs(ctx); err != nil {
		return nil, storage.WrapError(s.name, "download", classify(err))
	}
	return obj.NewReader(ctx), nil
}

// DeleteObject hides the latest version of the file. Missing files are not an error.
func (s *Session) DeleteObject(ctx context.Context, bucket, key string) error {
	b, err := s.bucket(ctx, bucket)
	if err != nil {
		return storage.WrapError(s.name, "delete", err)
	}
	if err := b.Object(key).Delete(ctx); err != nil && !b2.IsNotExist(err) {
		return storage.WrapError(s.name, "delete", classify(err))
	}
	return nil
}

// PresignGetObject asks B2 for a download token scoped to the key and appends it to
// the file URL
func (s *Session) PresignGetObject(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	b, err := s.bucket(ctx, bucket)
	if err != nil {
		return "", storage.WrapError(s.name, "presign", err)
	}
	token, err := b.AuthToken(ctx, key, tokenTTL(ttl))
	if err != nil {
		return "", storage.WrapError(s.name, "presign", classify(err))
	}
	u, err := signedURL(b.Object(key).URL(), token)
	if err != nil {
		return "", storage.WrapError(s.name, "presign", err)
	}
	return u, nil
}

// Close is a no-op; the B2 client holds no connections of its own
func (s *Session) Close() error {
	return nil
}

func (s *Session) bucket(ctx context.Context, name string) (*b2.Bucket, error) {
	s.mu.Lock()
	b, ok := s.buckets[name]
	s.mu.Unlock()
	if ok {
		return b, nil
	}

	b, err := s.client.Bucket(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("bucket %q: %w", name, classify(err))
	}

	s.mu.Lock()
	s.buckets[name] = b
	s.mu.Unlock()
	return b, nil
}

// classify maps B2 API failures onto the storage sentinels
func classify(err error) error {
	if err == nil {
		return nil
	}
	if b2.IsNotExist(err) {
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "bad_auth_token"),
		strings.Contains(msg, "expired_auth_token"):
		return fmt.Errorf("%w: %w", storage.ErrAuthFailed, err)
	case strings.Contains(msg, "service_unavailable"), strings.Contains(msg, "too_many_requests"):
		return fmt.Errorf("%w: %w", storage.ErrConnFailed, err)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %w", storage.ErrConnFailed, err)
	}
	return storage.ClassifyTransport(err)
}
