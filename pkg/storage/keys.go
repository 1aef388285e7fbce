package storage

import (
	"encoding/base64"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
)

// DefaultMaxKeys caps a listing page when the caller passes no limit
const DefaultMaxKeys = 1000

// CheckBucketName rejects names that would escape a directory-backed store
func CheckBucketName(bucket string) error {
	if bucket == "" || bucket == "." || bucket == ".." || strings.ContainsAny(bucket, `/\`) {
		return fmt.Errorf("%w: invalid bucket name %q", ErrInvalidConfig, bucket)
	}
	return nil
}

// CleanKey normalizes an object key to a relative slash path. Keys that are empty,
// end in a slash or collapse to the root are rejected.
func CleanKey(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.HasSuffix(key, "/") {
		return "", fmt.Errorf("%w: invalid object key %q", ErrInvalidConfig, key)
	}
	return strings.TrimPrefix(clean, "/"), nil
}

// EncodeCursor turns the last key of a page into an opaque continuation token
func EncodeCursor(lastKey string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(lastKey))
}

// DecodeCursor returns the key a token resumes after. The empty token starts at the
// beginning.
func DecodeCursor(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: invalid continuation token: %w", ErrInvalidConfig, err)
	}
	return string(raw), nil
}

// PageAfter sorts objects by key and cuts one page of keys strictly greater than after.
// Drivers that enumerate a whole tree use it to emulate server-side pagination.
func PageAfter(objects []ObjectInfo, after string, maxKeys int) *ObjectPage {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].Key < objects[j].Key
	})

	start := sort.Search(len(objects), func(i int) bool {
		return objects[i].Key > after
	})
	rest := objects[start:]

	page := &ObjectPage{Objects: rest}
	if len(rest) > maxKeys {
		page.Objects = rest[:maxKeys]
		page.Truncated = true
		page.NextToken = EncodeCursor(page.Objects[maxKeys-1].Key)
	}
	return page
}

// WeakETag derives an ETag from file metadata for stores that keep no content hash
func WeakETag(modTime time.Time, size int64) string {
	return fmt.Sprintf(`"%x-%x"`, modTime.UnixNano(), size)
}
