package gateway

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/williamokano/bucketview/pkg/storage"
)

const defaultContentType = "application/octet-stream"

// Upload describes a file to store. Size may be -1 when unknown, in which case
// only the terminal progress report is made.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// PresignDownloadURL signs a time-limited GET URL. ttl <= 0 uses one hour.
func (g *Gateway) PresignDownloadURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	session, err := g.current()
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}

	url, err := session.PresignGetObject(ctx, bucket, key, ttl)
	if err != nil {
		return "", storage.NewConnectivityError("presign", bucket, key, err)
	}
	return url, nil
}

// DeleteObject removes a key. Deleting a missing key is not an error.
func (g *Gateway) DeleteObject(ctx context.Context, bucket, key string) error {
	session, err := g.current()
	if err != nil {
		return err
	}
	return g.deleteOne(ctx, session, bucket, key)
}

// DeleteObjects removes keys one at a time in order. In DeleteAbort mode the
// first failure is returned and the remaining keys are left alone; in
// DeleteContinue mode every key is attempted and the failures are combined.
func (g *Gateway) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	session, err := g.current()
	if err != nil {
		return err
	}

	logger := g.logger.With().Str("bucket", bucket).Str("mode", g.deleteMode.String()).Logger()

	var result *multierror.Error
	deleted := 0
	for _, key := range keys {
		if err := g.deleteOne(ctx, session, bucket, key); err != nil {
			if g.deleteMode == DeleteAbort {
				logger.Warn().Err(err).Str("key", key).Int("deleted", deleted).Msg("batch delete aborted")
				return err
			}
			logger.Warn().Err(err).Str("key", key).Msg("delete failed, continuing")
			result = multierror.Append(result, err)
			continue
		}
		deleted++
	}

	logger.Debug().Int("deleted", deleted).Int("requested", len(keys)).Msg("batch delete finished")
	return result.ErrorOrNil()
}

func (g *Gateway) deleteOne(ctx context.Context, session storage.Session, bucket, key string) error {
	err := g.withRetry(ctx, "delete", func() error {
		return session.DeleteObject(ctx, bucket, key)
	})
	return storage.NewConnectivityError("delete", bucket, key, err)
}

// UploadKey builds the destination key for a file uploaded at t:
// YYYY/MM/DD/<epoch-millis>_<name> in local time.
func UploadKey(t time.Time, name string) string {
	t = t.Local()
	return fmt.Sprintf("%04d/%02d/%02d/%d_%s", t.Year(), int(t.Month()), t.Day(), t.UnixMilli(), name)
}

// UploadObject stores the file under a date-prefixed key and returns that key.
// onProgress, when set, receives increasing percentages below 100 while the
// body is read and exactly one 100 after the store accepts the object.
func (g *Gateway) UploadObject(ctx context.Context, bucket string, up Upload, onProgress func(int)) (string, error) {
	session, err := g.current()
	if err != nil {
		return "", err
	}
	if up.Name == "" {
		return "", fmt.Errorf("%w: upload needs a file name", storage.ErrInvalidConfig)
	}
	if up.Body == nil {
		return "", fmt.Errorf("%w: upload needs a body", storage.ErrInvalidConfig)
	}

	key := UploadKey(g.now(), up.Name)
	contentType := up.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(up.Name))
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	body := up.Body
	if onProgress != nil && up.Size > 0 {
		body = &progressReader{r: up.Body, total: up.Size, last: -1, report: onProgress}
	}

	if err := session.PutObject(ctx, bucket, key, body, up.Size, contentType); err != nil {
		return "", storage.NewConnectivityError("upload", bucket, key, err)
	}
	if onProgress != nil {
		onProgress(100)
	}

	g.logger.Info().
		Str("bucket", bucket).
		Str("key", key).
		Str("content_type", contentType).
		Int64("size", up.Size).
		Msg("object uploaded")
	return key, nil
}

// DownloadObject copies the object body into w and returns the bytes written.
// Only opening the object is retried; a failure mid-copy is returned as is.
func (g *Gateway) DownloadObject(ctx context.Context, bucket, key string, w io.Writer) (int64, error) {
	session, err := g.current()
	if err != nil {
		return 0, err
	}

	var body io.ReadCloser
	err = g.withRetry(ctx, "download", func() error {
		var err error
		body, err = session.GetObject(ctx, bucket, key)
		return err
	})
	if err != nil {
		return 0, storage.NewConnectivityError("download", bucket, key, err)
	}
	defer body.Close()

	n, err := io.Copy(w, body)
	if err != nil {
		return n, storage.NewConnectivityError("download", bucket, key, storage.ClassifyTransport(err))
	}
	return n, nil
}

// progressReader reports read progress as a percentage capped at 99
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)

	pct := int(p.read * 100 / p.total)
	if pct > 99 {
		pct = 99
	}
	if pct > p.last {
		p.last = pct
		p.report(pct)
	}
	return n, err
}
