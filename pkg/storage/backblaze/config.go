package backblaze

import (
	"fmt"
	"net/url"
	"time"

	"github.com/williamokano/bucketview/pkg/storage"
)

// B2 caps download authorization tokens at one week
const maxTokenTTL = 7 * 24 * time.Hour

// credentials returns the application key id and key. B2 resolves its own API
// host, so the endpoint host is only used for display.
func credentials(ep storage.Endpoint) (keyID, appKey string, err error) {
	if ep.AccessKey == "" || ep.SecretKey == "" {
		return "", "", fmt.Errorf("%w: application key id and key are required", storage.ErrInvalidConfig)
	}
	return ep.AccessKey, ep.SecretKey, nil
}

// tokenTTL clamps a link lifetime to what B2 accepts
func tokenTTL(ttl time.Duration) time.Duration {
	switch {
	case ttl < time.Second:
		return time.Second
	case ttl > maxTokenTTL:
		return maxTokenTTL
	}
	return ttl
}

// signedURL appends a download authorization token to an object URL
func signedURL(objectURL, token string) (string, error) {
	u, err := url.Parse(objectURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("Authorization", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
