package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/williamokano/bucketview/pkg/storage"
)

// StoredObject is one listed object with its display fields derived from the key
type StoredObject struct {
	Name         string    `json:"name"`
	LastModified time.Time `json:"lastModified"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag"`
	IsImage      bool      `json:"isImage"`
	FileType     string    `json:"fileType"`
}

// ListingPage is one page of a bucket listing. Cursor is empty when the store
// returned no continuation token.
type ListingPage struct {
	Objects []StoredObject `json:"objects"`
	Cursor  string         `json:"cursor,omitempty"`
	HasMore bool           `json:"hasMore"`
}

// ListBuckets returns the buckets visible to the session in server order
func (g *Gateway) ListBuckets(ctx context.Context) ([]storage.Bucket, error) {
	session, err := g.current()
	if err != nil {
		return nil, err
	}

	var buckets []storage.Bucket
	err = g.withRetry(ctx, "list buckets", func() error {
		var err error
		buckets, err = session.ListBuckets(ctx)
		return err
	})
	if err != nil {
		return nil, storage.NewConnectivityError("list buckets", "", "", err)
	}

	out := make([]storage.Bucket, 0, len(buckets))
	for _, b := range buckets {
		if b.Name == "" {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// ListObjectsPage fetches a single page. pageSize <= 0 uses the configured
// default; an empty cursor starts from the beginning.
func (g *Gateway) ListObjectsPage(ctx context.Context, bucket string, pageSize int, cursor string) (ListingPage, error) {
	session, err := g.current()
	if err != nil {
		return ListingPage{}, err
	}
	if pageSize <= 0 {
		pageSize = g.pageSize
	}

	page, err := g.fetchPage(ctx, session, bucket, pageSize, cursor)
	if err != nil {
		return ListingPage{}, err
	}

	return ListingPage{
		Objects: g.normalize(page.Objects),
		Cursor:  page.NextToken,
		HasMore: page.Truncated,
	}, nil
}

// ListAllObjects follows continuation tokens until the listing is exhausted
func (g *Gateway) ListAllObjects(ctx context.Context, bucket string) ([]StoredObject, error) {
	session, err := g.current()
	if err != nil {
		return nil, err
	}

	logger := g.logger.With().Str("bucket", bucket).Logger()

	var (
		all   []StoredObject
		token string
		seen  = map[string]struct{}{}
		pages int
	)
	for {
		page, err := g.fetchPage(ctx, session, bucket, g.pageSize, token)
		if err != nil {
			return nil, err
		}
		pages++
		all = append(all, g.normalize(page.Objects)...)

		if page.NextToken == "" {
			break
		}
		if _, dup := seen[page.NextToken]; dup {
			return nil, storage.NewConnectivityError("list objects", bucket, "",
				fmt.Errorf("server repeated continuation token %q", page.NextToken))
		}
		seen[page.NextToken] = struct{}{}
		token = page.NextToken
	}

	logger.Debug().Int("pages", pages).Int("objects", len(all)).Msg("listed bucket")
	if all == nil {
		all = []StoredObject{}
	}
	return all, nil
}

func (g *Gateway) fetchPage(ctx context.Context, session storage.Session, bucket string, pageSize int, token string) (*storage.ObjectPage, error) {
	var page *storage.ObjectPage
	err := g.withRetry(ctx, "list objects", func() error {
		var err error
		page, err = session.ListObjectsPage(ctx, bucket, pageSize, token)
		return err
	})
	if err != nil {
		return nil, storage.NewConnectivityError("list objects", bucket, "", err)
	}
	if page == nil {
		page = &storage.ObjectPage{}
	}
	return page, nil
}

func (g *Gateway) normalize(objects []storage.ObjectInfo) []StoredObject {
	out := make([]StoredObject, 0, len(objects))
	for _, o := range objects {
		if o.Key == "" {
			continue
		}
		modified := o.LastModified
		if modified.IsZero() {
			modified = g.now()
		}
		out = append(out, StoredObject{
			Name:         o.Key,
			LastModified: modified,
			Size:         o.Size,
			ETag:         o.ETag,
			IsImage:      IsImage(o.Key),
			FileType:     FileType(o.Key),
		})
	}
	return out
}
