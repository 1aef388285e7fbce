package storage

import (
	"context"
	"io"
	"net"
	"strconv"
	"time"
)

// Session is a live connection to an object store. It exposes the raw capabilities the
// gateway normalizes: bucket and object enumeration, object transfer, deletion and
// URL signing.
type Session interface {
	// Driver returns the driver name that built this session (s3, minio, local, b2, sftp)
	Driver() string

	// ListBuckets returns every bucket visible to the credentials, in server order
	ListBuckets(ctx context.Context) ([]Bucket, error)

	// ListObjectsPage fetches at most maxKeys objects starting at the continuation token.
	// An empty token starts from the beginning of the bucket.
	ListObjectsPage(ctx context.Context, bucket string, maxKeys int, token string) (*ObjectPage, error)

	// PutObject stores body under key. size may be -1 when unknown.
	PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error

	// GetObject opens the object for reading. The caller closes the reader.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// DeleteObject removes key. Missing keys are not an error for S3-compatible stores.
	DeleteObject(ctx context.Context, bucket, key string) error

	// PresignGetObject returns a URL granting GET access to key for ttl
	PresignGetObject(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)

	// Close releases resources (connections, idle transports)
	Close() error
}

// Bucket is a top-level namespace in the store
type Bucket struct {
	Name         string    `json:"name"`
	CreationDate time.Time `json:"creationDate"`
}

// ObjectInfo is the raw metadata of one stored object as reported by the driver
type ObjectInfo struct {
	Key          string    // Full object key
	Size         int64     // Size in bytes
	LastModified time.Time // Zero when the server omitted it
	ETag         string
}

// ObjectPage is one page of a bucket listing
type ObjectPage struct {
	Objects   []ObjectInfo
	NextToken string // Empty when there is nothing left to fetch
	Truncated bool
}

// Endpoint holds everything a driver needs to open a session
type Endpoint struct {
	Name      string `json:"name"`   // Profile label, used in logs and errors
	Driver    string `json:"driver"` // s3, minio, local, b2, sftp
	Host      string `json:"host"`   // Host name, or root directory for the local driver
	Port      int    `json:"port"`
	UseSSL    bool   `json:"use_ssl"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Region    string `json:"region"` // Defaults to DefaultRegion
}

// DefaultRegion is sent to stores that ignore regions but still require one for signing
const DefaultRegion = "us-east-1"

// URL returns the scheme://host:port base URL of the endpoint
func (e Endpoint) URL() string {
	scheme := "http"
	if e.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + e.HostPort()
}

// HostPort returns host:port, or just host when no port is set
func (e Endpoint) HostPort() string {
	if e.Port <= 0 {
		return e.Host
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// GetRegion returns the configured region or DefaultRegion
func (e Endpoint) GetRegion() string {
	if e.Region != "" {
		return e.Region
	}
	return DefaultRegion
}
