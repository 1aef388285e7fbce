package gateway

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/williamokano/bucketview/pkg/storage"
	"github.com/williamokano/bucketview/pkg/storage/mocks"
	"github.com/williamokano/bucketview/pkg/vault"
)

func TestGateway_TestConnection(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		probe := mocks.NewMockSession(t)
		probe.On("ListBuckets", mock.Anything).Return([]storage.Bucket{{Name: "b"}}, nil).Once()
		probe.On("Close").Return(nil).Once()

		g := New(WithFactory(factoryFor(probe)))
		assert.True(t, g.TestConnection(context.Background(), testProfile("ok")))
		assert.False(t, g.Ready(), "probe does not initialize the gateway")
	})

	t.Run("auth failure is false", func(t *testing.T) {
		probe := mocks.NewMockSession(t)
		probe.On("ListBuckets", mock.Anything).Return(nil, storage.ErrAuthFailed).Once()
		probe.On("Close").Return(nil).Once()

		g := New(WithFactory(factoryFor(probe)))
		assert.False(t, g.TestConnection(context.Background(), testProfile("denied")))
	})

	t.Run("constructor failure is false", func(t *testing.T) {
		factory := storage.NewFactoryWith(map[string]storage.DriverConstructor{
			"s3": func(ctx context.Context, ep storage.Endpoint) (storage.Session, error) {
				return nil, errors.New("dial tcp: refused")
			},
		})
		g := New(WithFactory(factory))
		assert.False(t, g.TestConnection(context.Background(), testProfile("down")))
	})

	t.Run("does not touch active session", func(t *testing.T) {
		active := mocks.NewMockSession(t)
		active.On("Driver").Return("s3")
		probe := mocks.NewMockSession(t)
		probe.On("ListBuckets", mock.Anything).Return(nil, storage.ErrConnFailed).Once()
		probe.On("Close").Return(nil).Once()

		sessions := []storage.Session{active, probe}
		factory := storage.NewFactoryWith(map[string]storage.DriverConstructor{
			"s3": func(ctx context.Context, ep storage.Endpoint) (storage.Session, error) {
				s := sessions[0]
				sessions = sessions[1:]
				return s, nil
			},
		})

		g := New(WithFactory(factory))
		require.NoError(t, g.Initialize(context.Background(), testProfile("active")))
		assert.False(t, g.TestConnection(context.Background(), testProfile("candidate")))

		p, ok := g.Profile()
		assert.True(t, ok)
		assert.Equal(t, "active", p.Name)
	})
}

func TestGateway_TestConnection_Local(t *testing.T) {
	g := New()
	p := vault.Profile{Name: "local", Driver: "local", Endpoint: t.TempDir()}
	assert.True(t, g.TestConnection(context.Background(), p))
}

func TestGateway_TestConnections(t *testing.T) {
	var inFlight, peak int32
	factory := storage.NewFactoryWith(map[string]storage.DriverConstructor{
		"s3": func(ctx context.Context, ep storage.Endpoint) (storage.Session, error) {
			session := mocks.NewMockSession(t)
			session.On("Close").Return(nil).Once()

			call := session.On("ListBuckets", mock.Anything).Once()
			call.Run(func(mock.Arguments) {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
			})
			if ep.AccessKey == "bad" {
				call.Return(nil, storage.ErrAuthFailed)
			} else {
				call.Return([]storage.Bucket{}, nil)
			}
			return session, nil
		},
	})

	profiles := make([]vault.Profile, 6)
	for i := range profiles {
		profiles[i] = testProfile(string(rune('a' + i)))
	}
	profiles[1].AccessKey = "bad"
	profiles[4].AccessKey = "bad"

	g := New(WithFactory(factory))
	results := g.TestConnections(context.Background(), profiles, 2)

	require.Len(t, results, len(profiles))
	for i, r := range results {
		assert.Equal(t, profiles[i].ID, r.ProfileID, "results keep input order")
		assert.Equal(t, profiles[i].Name, r.Name)
		wantOK := i != 1 && i != 4
		assert.Equal(t, wantOK, r.OK, r.Name)
		if wantOK {
			assert.Empty(t, r.Error)
		} else {
			assert.Contains(t, r.Error, storage.ErrAuthFailed.Error())
		}
		assert.Positive(t, r.Duration)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestGateway_TestConnections_Empty(t *testing.T) {
	g := New()
	assert.Empty(t, g.TestConnections(context.Background(), nil, 0))
}
