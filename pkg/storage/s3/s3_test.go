package s3

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williamokano/bucketview/pkg/storage"
)

func newTestSession(t *testing.T, handler http.HandlerFunc) *Session {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	s, err := New(context.Background(), storage.Endpoint{
		Name:      "test",
		Host:      host,
		Port:      port,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)
	return s
}

func writeXML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` + body))
}

func TestSession_ListBuckets(t *testing.T) {
	s := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		writeXML(w, http.StatusOK, `<ListAllMyBucketsResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`+
			`<Owner><ID>owner</ID></Owner><Buckets>`+
			`<Bucket><Name>photos</Name><CreationDate>2024-01-02T03:04:05.000Z</CreationDate></Bucket>`+
			`<Bucket><Name>docs</Name><CreationDate>2024-02-03T04:05:06.000Z</CreationDate></Bucket>`+
			`</Buckets></ListAllMyBucketsResult>`)
	})

	buckets, err := s.ListBuckets(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "photos", buckets[0].Name)
	assert.Equal(t, "docs", buckets[1].Name)
	assert.True(t, buckets[0].CreationDate.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestSession_ListObjectsPage(t *testing.T) {
	s := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/photos", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("list-type"))
		assert.Equal(t, "2", q.Get("max-keys"))
		assert.Equal(t, "cursor-1", q.Get("continuation-token"))

		writeXML(w, http.StatusOK, `<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`+
			`<Name>photos</Name><KeyCount>2</KeyCount><MaxKeys>2</MaxKeys>`+
			`<IsTruncated>true</IsTruncated><NextContinuationToken>cursor-2</NextContinuationToken>`+
			`<Contents><Key>a.jpg</Key><LastModified>2024-01-01T00:00:00.000Z</LastModified><ETag>"e1"</ETag><Size>10</Size></Contents>`+
			`<Contents><Key>b.pdf</Key><LastModified>2024-01-02T00:00:00.000Z</LastModified><ETag>"e2"</ETag><Size>20</Size></Contents>`+
			`</ListBucketResult>`)
	})

	page, err := s.ListObjectsPage(context.Background(), "photos", 2, "cursor-1")
	require.NoError(t, err)
	require.Len(t, page.Objects, 2)
	assert.Equal(t, "a.jpg", page.Objects[0].Key)
	assert.Equal(t, int64(10), page.Objects[0].Size)
	assert.Equal(t, `"e1"`, page.Objects[0].ETag)
	assert.Equal(t, "b.pdf", page.Objects[1].Key)
	assert.Equal(t, "cursor-2", page.NextToken)
	assert.True(t, page.Truncated)
}

func TestSession_AccessDeniedIsAuthFailure(t *testing.T) {
	s := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		writeXML(w, http.StatusForbidden, `<Error><Code>AccessDenied</Code><Message>Access Denied.</Message></Error>`)
	})

	_, err := s.ListBuckets(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrAuthFailed)
	assert.False(t, storage.IsRetryable(err))
}

func TestSession_PresignGetObject(t *testing.T) {
	s, err := New(context.Background(), storage.Endpoint{
		Name:      "test",
		Host:      "minio.local",
		Port:      9000,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)

	raw, err := s.PresignGetObject(context.Background(), "photos", "2024/01/02/a.jpg", 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "minio.local:9000", u.Host)
	assert.Equal(t, "/photos/2024/01/02/a.jpg", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.True(t, strings.HasPrefix(u.Query().Get("X-Amz-Credential"), "minioadmin/"))
}

func TestNew_RequiresHost(t *testing.T) {
	_, err := New(context.Background(), storage.Endpoint{Name: "empty"})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrInvalidConfig)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{
			name:      "dial failure",
			err:       &net.OpError{Op: "dial", Net: "tcp", Err: assert.AnError},
			retryable: true,
		},
		{
			name:      "deadline",
			err:       context.DeadlineExceeded,
			retryable: true,
		},
		{
			name:      "canceled",
			err:       context.Canceled,
			retryable: false,
		},
		{
			name:      "plain error",
			err:       assert.AnError,
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, storage.IsRetryable(classify(tt.err)))
		})
	}
}
