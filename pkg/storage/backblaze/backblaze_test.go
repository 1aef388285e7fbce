package backblaze

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williamokano/bucketview/pkg/storage"
)

func TestNew_RequiresKeys(t *testing.T) {
	tests := []struct {
		name string
		ep   storage.Endpoint
	}{
		{name: "no key id", ep: storage.Endpoint{Name: "b2", SecretKey: "k"}},
		{name: "no key", ep: storage.Endpoint{Name: "b2", AccessKey: "id"}},
		{name: "nothing", ep: storage.Endpoint{Name: "b2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.ep)
			assert.ErrorIs(t, err, storage.ErrInvalidConfig)
		})
	}
}

func TestTokenTTL(t *testing.T) {
	assert.Equal(t, time.Second, tokenTTL(0))
	assert.Equal(t, time.Hour, tokenTTL(time.Hour))
	assert.Equal(t, maxTokenTTL, tokenTTL(30*24*time.Hour))
}

func TestSignedURL(t *testing.T) {
	raw, err := signedURL("https://f001.backblazeb2.com/file/photos/2024/a b.jpg", "3_token/with+chars")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "f001.backblazeb2.com", u.Host)
	assert.Equal(t, "/file/photos/2024/a b.jpg", u.Path)
	assert.Equal(t, "3_token/with+chars", u.Query().Get("Authorization"))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil))
	assert.ErrorIs(t, classify(errors.New("401: unauthorized")), storage.ErrAuthFailed)
	assert.ErrorIs(t, classify(errors.New("503: service_unavailable")), storage.ErrConnFailed)
	assert.True(t, storage.IsRetryable(classify(errors.New("429: too_many_requests"))))

	plain := errors.New("bad_request")
	assert.Equal(t, plain, classify(plain))
}
