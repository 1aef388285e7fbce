package local

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williamokano/bucketview/pkg/storage"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(storage.Endpoint{Name: "test", Driver: driverName, Host: t.TempDir()})
	require.NoError(t, err)
	return s
}

func put(t *testing.T, s *Session, bucket, key, body string) {
	t.Helper()
	err := s.PutObject(context.Background(), bucket, key, strings.NewReader(body), int64(len(body)), "text/plain")
	require.NoError(t, err)
}

func TestSession_PutGetDelete(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()

	put(t, s, "docs", "2024/01/02/readme.txt", "hello")

	rc, err := s.GetObject(ctx, "docs", "2024/01/02/readme.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, s.DeleteObject(ctx, "docs", "2024/01/02/readme.txt"))

	_, err = s.GetObject(ctx, "docs", "2024/01/02/readme.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSession_DeleteMissingKeySucceeds(t *testing.T) {
	s := newSession(t)
	put(t, s, "docs", "a.txt", "a")

	assert.NoError(t, s.DeleteObject(context.Background(), "docs", "never-existed.txt"))
}

func TestSession_ListBuckets(t *testing.T) {
	s := newSession(t)
	put(t, s, "photos", "a.jpg", "x")
	put(t, s, "docs", "b.pdf", "y")
	require.NoError(t, os.WriteFile(filepath.Join(s.basePath, "stray.txt"), []byte("z"), 0644))

	buckets, err := s.ListBuckets(context.Background())
	require.NoError(t, err)

	var names []string
	for _, b := range buckets {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"docs", "photos"}, names)
}

func TestSession_ListObjectsPage(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()
	for _, key := range []string{"e.txt", "a.txt", "sub/c.txt", "b.txt", "d.txt"} {
		put(t, s, "bucket", key, key)
	}

	page, err := s.ListObjectsPage(ctx, "bucket", 2, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, keys(page))
	assert.True(t, page.Truncated)
	require.NotEmpty(t, page.NextToken)

	page, err = s.ListObjectsPage(ctx, "bucket", 2, page.NextToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"d.txt", "e.txt"}, keys(page))
	assert.True(t, page.Truncated)

	page, err = s.ListObjectsPage(ctx, "bucket", 2, page.NextToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"sub/c.txt"}, keys(page))
	assert.False(t, page.Truncated)
	assert.Empty(t, page.NextToken)
}

func TestSession_ListMissingBucket(t *testing.T) {
	s := newSession(t)

	_, err := s.ListObjectsPage(context.Background(), "nope", 10, "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSession_RejectsEscapingKeys(t *testing.T) {
	s := newSession(t)
	put(t, s, "bucket", "../../outside.txt", "x")

	// Dot segments are cleaned, so the object lands inside the bucket
	_, err := os.Stat(filepath.Join(s.basePath, "bucket", "outside.txt"))
	assert.NoError(t, err)

	err = s.PutObject(context.Background(), "../etc", "x", strings.NewReader("x"), 1, "")
	assert.Error(t, err)
}

func TestSession_PresignGetObject(t *testing.T) {
	s := newSession(t)
	put(t, s, "bucket", "a.txt", "x")

	raw, err := s.PresignGetObject(context.Background(), "bucket", "a.txt", time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "file", u.Scheme)
	assert.True(t, strings.HasSuffix(u.Path, "/bucket/a.txt"))
	assert.NotEmpty(t, u.Query().Get("expires"))
}

func keys(page *storage.ObjectPage) []string {
	out := make([]string, 0, len(page.Objects))
	for _, o := range page.Objects {
		out = append(out, o.Key)
	}
	return out
}
