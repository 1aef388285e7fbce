package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/williamokano/bucketview/pkg/storage"
)

const (
	driverName   = "sftp"
	uploadPrefix = ".upload-"
)

// Session exposes the directories under the remote login directory as buckets,
// the same layout the local driver uses for a root path.
type Session struct {
	name   string
	conn   io.Closer
	client *sftp.Client
	root   string
}

func init() {
	storage.RegisterDriver(driverName, func(ctx context.Context, ep storage.Endpoint) (storage.Session, error) {
		return New(ctx, ep)
	})
}

// New dials the SSH server and opens an SFTP subsystem on it
func New(ctx context.Context, ep storage.Endpoint) (*Session, error) {
	if ep.Host == "" {
		return nil, storage.WrapError(ep.Name, "init", fmt.Errorf("%w: host is required", storage.ErrInvalidConfig))
	}
	cfg, err := clientConfig(ep)
	if err != nil {
		return nil, storage.WrapError(ep.Name, "init", err)
	}

	addr := address(ep)
	dialer := net.Dialer{Timeout: cfg.Timeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, storage.WrapError(ep.Name, "connect", classify(err))
	}

	// Bound the handshake; the deadline is cleared once the session is up
	_ = raw.SetDeadline(time.Now().Add(cfg.Timeout))
	c, chans, reqs, err := ssh.NewClientConn(raw, addr, cfg)
	if err != nil {
		raw.Close()
		return nil, storage.WrapError(ep.Name, "connect", classify(err))
	}
	_ = raw.SetDeadline(time.Time{})
	sshClient := ssh.NewClient(c, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, storage.WrapError(ep.Name, "connect", fmt.Errorf("failed to start sftp: %w", classify(err)))
	}

	root, err := client.Getwd()
	if err != nil {
		client.Close()
		sshClient.Close()
		return nil, storage.WrapError(ep.Name, "connect", classify(err))
	}

	s := NewWithClient(ep.Name, client, root)
	s.conn = sshClient
	return s, nil
}

// NewWithClient wraps an already connected SFTP client. Buckets live under root.
func NewWithClient(name string, client *sftp.Client, root string) *Session {
	return &Session{name: name, client: client, root: root}
}

func (s *Session) Driver() string { return driverName }

// ListBuckets returns the directories under the root, sorted by name
func (s *Session) ListBuckets(ctx context.Context) ([]storage.Bucket, error) {
	entries, err := s.client.ReadDir(s.root)
	if err != nil {
		return nil, storage.WrapError(s.name, "list buckets", classify(err))
	}

	var buckets []storage.Bucket
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		buckets = append(buckets, storage.Bucket{Name: e.Name(), CreationDate: e.ModTime()})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets, nil
}

// ListObjectsPage walks the bucket directory and cuts a page after the key in token
func (s *Session) ListObjectsPage(ctx context.Context, bucket string, maxKeys int, token string) (*storage.ObjectPage, error) {
	dir, err := s.bucketPath(bucket)
	if err != nil {
		return nil, storage.WrapError(s.name, "list", err)
	}
	after, err := storage.DecodeCursor(token)
	if err != nil {
		return nil, storage.WrapError(s.name, "list", err)
	}

	var objects []storage.ObjectInfo
	if err := s.walk(ctx, dir, "", after, &objects); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = fmt.Errorf("bucket %q: %w", bucket, storage.ErrNotFound)
		}
		return nil, storage.WrapError(s.name, "list", err)
	}
	return storage.PageAfter(objects, after, maxKeys), nil
}

func (s *Session) walk(ctx context.Context, dir, prefix, after string, out *[]storage.ObjectInfo) error {
	entries, err := s.client.ReadDir(dir)
	if err != nil {
		return classify(err)
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := prefix + e.Name()
		if e.IsDir() {
			if err := s.walk(ctx, path.Join(dir, e.Name()), key+"/", after, out); err != nil {
				return err
			}
			continue
		}
		if !e.Mode().IsRegular() || strings.HasPrefix(e.Name(), uploadPrefix) || key <= after {
			continue
		}
		*out = append(*out, storage.ObjectInfo{
			Key:          key,
			Size:         e.Size(),
			LastModified: e.ModTime(),
			ETag:         storage.WeakETag(e.ModTime(), e.Size()),
		})
	}
	return nil
}

// PutObject uploads into a temp file and renames it over the destination
func (s *Session) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	dest, err := s.objectPath(bucket, key)
	if err != nil {
		return storage.WrapError(s.name, "upload", err)
	}

	dir := path.Dir(dest)
	if err := s.client.MkdirAll(dir); err != nil {
		return storage.WrapError(s.name, "upload", classify(err))
	}

	tmp := path.Join(dir, uploadPrefix+uuid.NewString())
	f, err := s.client.Create(tmp)
	if err != nil {
		return storage.WrapError(s.name, "upload", classify(err))
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		s.client.Remove(tmp)
		return storage.WrapError(s.name, "upload", classify(err))
	}
	if err := f.Close(); err != nil {
		s.client.Remove(tmp)
		return storage.WrapError(s.name, "upload", classify(err))
	}
	if err := s.replace(tmp, dest); err != nil {
		s.client.Remove(tmp)
		return storage.WrapError(s.name, "upload", classify(err))
	}
	return nil
}

// replace renames src over dst. Servers without the posix-rename extension refuse to
// overwrite, so the destination is removed first for them.
func (s *Session) replace(src, dst string) error {
	if err := s.client.PosixRename(src, dst); err == nil {
		return nil
	}
	if err := s.client.Remove(dst); err != nil && !isNotExist(err) {
		return err
	}
	return s.client.Rename(src, dst)
}

func (s *Session) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, storage.WrapError(s.name, "download", err)
	}
	f, err := s.client.Open(p)
	if err != nil {
		return nil, storage.WrapError(s.name, "download", classify(err))
	}
	return f, nil
}

// DeleteObject removes the remote file. A missing file is not an error.
func (s *Session) DeleteObject(ctx context.Context, bucket, key string) error {
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return storage.WrapError(s.name, "delete", err)
	}
	if err := s.client.Remove(p); err != nil && !isNotExist(err) {
		return storage.WrapError(s.name, "delete", classify(err))
	}
	return nil
}

// PresignGetObject fails: SFTP has no way to hand out a credential-free link
func (s *Session) PresignGetObject(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return "", storage.WrapError(s.name, "presign",
		fmt.Errorf("%w: sftp servers cannot issue download links", storage.ErrNotSupported))
}

func (s *Session) Close() error {
	err := s.client.Close()
	if s.conn != nil {
		if cerr := s.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Session) bucketPath(bucket string) (string, error) {
	if err := storage.CheckBucketName(bucket); err != nil {
		return "", err
	}
	return path.Join(s.root, bucket), nil
}

func (s *Session) objectPath(bucket, key string) (string, error) {
	dir, err := s.bucketPath(bucket)
	if err != nil {
		return "", err
	}
	clean, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}
	return path.Join(dir, clean), nil
}

func isNotExist(err error) bool {
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	var status *sftp.StatusError
	return errors.As(err, &status) && status.FxCode() == sftp.ErrSSHFxNoSuchFile
}

// classify maps SSH and SFTP failures onto the storage sentinels
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isNotExist(err):
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	case strings.Contains(err.Error(), "unable to authenticate"):
		return fmt.Errorf("%w: %w", storage.ErrAuthFailed, err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, sftp.ErrSSHFxConnectionLost):
		return fmt.Errorf("%w: %w", storage.ErrConnFailed, err)
	}
	return storage.ClassifyTransport(err)
}
