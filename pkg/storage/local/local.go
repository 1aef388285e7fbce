package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/williamokano/bucketview/pkg/storage"
)

const driverName = "local"

// Session serves buckets from directories under a root path. Each immediate
// subdirectory is a bucket and every regular file below it is an object keyed
// by its slash-separated relative path.
type Session struct {
	name     string
	basePath string
}

func init() {
	storage.RegisterDriver(driverName, func(ctx context.Context, ep storage.Endpoint) (storage.Session, error) {
		return New(ep)
	})
}

// New creates a local filesystem session rooted at ep.Host
func New(ep storage.Endpoint) (*Session, error) {
	if ep.Host == "" {
		return nil, storage.WrapError(ep.Name, "init", fmt.Errorf("%w: root directory is required", storage.ErrInvalidConfig))
	}

	// Ensure directory exists
	if err := os.MkdirAll(ep.Host, 0755); err != nil {
		return nil, storage.WrapError(ep.Name, "init", fmt.Errorf("failed to create directory: %w", err))
	}

	return &Session{
		name:     ep.Name,
		basePath: ep.Host,
	}, nil
}

func (s *Session) Driver() string { return driverName }

// ListBuckets returns the subdirectories of the root, sorted by name
func (s *Session) ListBuckets(ctx context.Context) ([]storage.Bucket, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, storage.WrapError(s.name, "list buckets", err)
	}

	var buckets []storage.Bucket
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // Skip entries we can't stat
		}
		buckets = append(buckets, storage.Bucket{
			Name:         entry.Name(),
			CreationDate: info.ModTime(),
		})
	}
	return buckets, nil
}

// ListObjectsPage lists keys in lexical order, resuming after the key encoded in token
func (s *Session) ListObjectsPage(ctx context.Context, bucket string, maxKeys int, token string) (*storage.ObjectPage, error) {
	root, err := s.bucketPath(bucket)
	if err != nil {
		return nil, storage.WrapError(s.name, "list", err)
	}
	after, err := storage.DecodeCursor(token)
	if err != nil {
		return nil, storage.WrapError(s.name, "list", err)
	}

	var objects []storage.ObjectInfo
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if key <= after {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil // Skip files we can't stat
		}
		objects = append(objects, storage.ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
			ETag:         storage.WeakETag(info.ModTime(), info.Size()),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("bucket %q: %w", bucket, storage.ErrNotFound)
		}
		return nil, storage.WrapError(s.name, "list", err)
	}

	return storage.PageAfter(objects, after, maxKeys), nil
}

// PutObject writes body to a temp file next to the destination and renames it into place
func (s *Session) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	destFullPath, err := s.objectPath(bucket, key)
	if err != nil {
		return storage.WrapError(s.name, "upload", err)
	}

	// Ensure destination directory exists
	destDir := filepath.Dir(destFullPath)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return storage.WrapError(s.name, "upload", err)
	}

	tmp, err := os.CreateTemp(destDir, ".upload-*")
	if err != nil {
		return storage.WrapError(s.name, "upload", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpPath) // Clean up partial file
		return storage.WrapError(s.name, "upload", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return storage.WrapError(s.name, "upload", err)
	}
	if err := os.Rename(tmpPath, destFullPath); err != nil {
		os.Remove(tmpPath)
		return storage.WrapError(s.name, "upload", err)
	}

	return nil
}

func (s *Session) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	fullPath, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, storage.WrapError(s.name, "download", err)
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.WrapError(s.name, "download", storage.ErrNotFound)
		}
		return nil, storage.WrapError(s.name, "download", err)
	}
	return f, nil
}

// DeleteObject removes a file. A missing file is not an error, matching S3.
func (s *Session) DeleteObject(ctx context.Context, bucket, key string) error {
	fullPath, err := s.objectPath(bucket, key)
	if err != nil {
		return storage.WrapError(s.name, "delete", err)
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return storage.WrapError(s.name, "delete", err)
	}
	return nil
}

// PresignGetObject returns a file:// URL with an expiry marker. Nothing enforces the
// expiry; local files carry no credentials to protect.
func (s *Session) PresignGetObject(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	fullPath, err := s.objectPath(bucket, key)
	if err != nil {
		return "", storage.WrapError(s.name, "presign", err)
	}
	abs, err := filepath.Abs(fullPath)
	if err != nil {
		return "", storage.WrapError(s.name, "presign", err)
	}

	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		RawQuery: url.Values{"expires": []string{strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)}}.Encode(),
	}
	return u.String(), nil
}

// Close is a no-op for local sessions
func (s *Session) Close() error {
	return nil
}

func (s *Session) bucketPath(bucket string) (string, error) {
	if err := storage.CheckBucketName(bucket); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, bucket), nil
}

func (s *Session) objectPath(bucket, key string) (string, error) {
	root, err := s.bucketPath(bucket)
	if err != nil {
		return "", err
	}
	clean, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}
