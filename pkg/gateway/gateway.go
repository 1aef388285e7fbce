package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/williamokano/bucketview/pkg/storage"
	"github.com/williamokano/bucketview/pkg/vault"

	// Import drivers to register them
	_ "github.com/williamokano/bucketview/pkg/storage/backblaze"
	_ "github.com/williamokano/bucketview/pkg/storage/local"
	_ "github.com/williamokano/bucketview/pkg/storage/minio"
	_ "github.com/williamokano/bucketview/pkg/storage/s3"
	_ "github.com/williamokano/bucketview/pkg/storage/sftp"
)

const (
	DefaultPageSize   = 100
	DefaultPresignTTL = time.Hour
)

// DeleteMode controls how DeleteObjects reacts to a failed key
type DeleteMode int

const (
	// DeleteAbort stops at the first failure; later keys are not attempted
	DeleteAbort DeleteMode = iota
	// DeleteContinue attempts every key and reports all failures together
	DeleteContinue
)

// ParseDeleteMode maps "abort" and "continue" to a DeleteMode
func ParseDeleteMode(s string) (DeleteMode, error) {
	switch s {
	case "", "abort":
		return DeleteAbort, nil
	case "continue":
		return DeleteContinue, nil
	}
	return DeleteAbort, fmt.Errorf("unknown delete mode %q", s)
}

func (m DeleteMode) String() string {
	if m == DeleteContinue {
		return "continue"
	}
	return "abort"
}

// Gateway owns one storage session and normalizes what it returns. A new Gateway
// is uninitialized; every data operation fails with storage.ErrNotInitialized
// until Initialize succeeds.
type Gateway struct {
	mu      sync.RWMutex
	session storage.Session
	profile vault.Profile

	factory    *storage.Factory
	logger     zerolog.Logger
	retry      storage.RetryConfig
	deleteMode DeleteMode
	pageSize   int
	now        func() time.Time
}

// Option configures a Gateway
type Option func(*Gateway)

// WithFactory replaces the global driver registry
func WithFactory(f *storage.Factory) Option {
	return func(g *Gateway) { g.factory = f }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// WithRetry sets the retry policy for idempotent calls
func WithRetry(cfg storage.RetryConfig) Option {
	return func(g *Gateway) { g.retry = cfg }
}

func WithDeleteMode(mode DeleteMode) Option {
	return func(g *Gateway) { g.deleteMode = mode }
}

// WithPageSize sets the page size used when callers pass zero
func WithPageSize(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.pageSize = n
		}
	}
}

// WithClock overrides time.Now for upload keys and missing timestamps
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New creates an uninitialized gateway
func New(opts ...Option) *Gateway {
	g := &Gateway{
		factory:  storage.NewFactory(),
		logger:   zerolog.Nop(),
		retry:    storage.DefaultRetryConfig(),
		pageSize: DefaultPageSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Initialize opens a session for the profile, replacing any previous one
func (g *Gateway) Initialize(ctx context.Context, p vault.Profile) error {
	session, err := g.open(ctx, p)
	if err != nil {
		return err
	}

	g.mu.Lock()
	old := g.session
	g.session = session
	g.profile = p
	g.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			g.logger.Warn().Err(err).Msg("failed to close previous session")
		}
	}

	g.logger.Info().
		Str("profile", p.Name).
		Str("driver", session.Driver()).
		Str("endpoint", EndpointFor(p).HostPort()).
		Msg("storage session ready")
	return nil
}

// Ready reports whether a session is open
func (g *Gateway) Ready() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.session != nil
}

// Profile returns the profile the current session was opened with
func (g *Gateway) Profile() (vault.Profile, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.profile, g.session != nil
}

// Close drops the session; the gateway is uninitialized afterwards
func (g *Gateway) Close() error {
	g.mu.Lock()
	session := g.session
	g.session = nil
	g.profile = vault.Profile{}
	g.mu.Unlock()

	if session == nil {
		return nil
	}
	return session.Close()
}

func (g *Gateway) open(ctx context.Context, p vault.Profile) (storage.Session, error) {
	session, err := g.factory.Create(ctx, EndpointFor(p))
	if err != nil {
		return nil, storage.NewConnectivityError("connect", "", "", err)
	}
	return session, nil
}

func (g *Gateway) current() (storage.Session, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil {
		return nil, storage.ErrNotInitialized
	}
	return g.session, nil
}

// withRetry runs an idempotent driver call under the gateway's retry policy
func (g *Gateway) withRetry(ctx context.Context, op string, fn func() error) error {
	cfg := g.retry
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		g.logger.Warn().Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("retrying storage call")
	}
	return storage.WithRetry(ctx, cfg, fn)
}

// EndpointFor converts a vault profile into driver connection parameters
func EndpointFor(p vault.Profile) storage.Endpoint {
	return storage.Endpoint{
		Name:      p.Name,
		Driver:    p.Driver,
		Host:      p.Endpoint,
		Port:      p.Port,
		UseSSL:    p.UseSSL,
		AccessKey: p.AccessKey,
		SecretKey: p.SecretKey,
		Region:    storage.DefaultRegion,
	}
}
