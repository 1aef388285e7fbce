package gateway

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/williamokano/bucketview/pkg/storage"
	"github.com/williamokano/bucketview/pkg/vault"
)

// DefaultProbeConcurrency bounds TestConnections when the caller passes no limit
const DefaultProbeConcurrency = 4

// ProbeResult is the outcome of checking one profile
type ProbeResult struct {
	ProfileID string
	Name      string
	OK        bool
	Duration  time.Duration
	Error     string
}

// TestConnection opens a throwaway session for p and lists its buckets. It
// neither needs nor touches the gateway's own session.
func (g *Gateway) TestConnection(ctx context.Context, p vault.Profile) bool {
	return g.probe(ctx, p) == nil
}

// TestConnections probes several profiles concurrently. Results keep the input
// order. limit <= 0 uses DefaultProbeConcurrency.
func (g *Gateway) TestConnections(ctx context.Context, profiles []vault.Profile, limit int) []ProbeResult {
	if limit <= 0 {
		limit = DefaultProbeConcurrency
	}

	results := make([]ProbeResult, len(profiles))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)

	for i, p := range profiles {
		eg.Go(func() error {
			start := time.Now()
			err := g.probe(egCtx, p)

			res := ProbeResult{
				ProfileID: p.ID,
				Name:      p.Name,
				OK:        err == nil,
				Duration:  time.Since(start),
			}
			if err != nil {
				res.Error = err.Error()
			}
			results[i] = res
			// A failed probe must not cancel the others
			return nil
		})
	}
	_ = eg.Wait()

	ok := 0
	for _, r := range results {
		if r.OK {
			ok++
		}
	}
	g.logger.Info().Int("profiles", len(profiles)).Int("reachable", ok).Msg("connection probes finished")
	return results
}

func (g *Gateway) probe(ctx context.Context, p vault.Profile) error {
	logger := g.logger.With().Str("profile", p.Name).Str("endpoint", EndpointFor(p).HostPort()).Logger()

	session, err := g.open(ctx, p)
	if err != nil {
		logger.Warn().Err(err).Msg("connection test failed")
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Debug().Err(err).Msg("failed to close probe session")
		}
	}()

	if _, err := session.ListBuckets(ctx); err != nil {
		err = storage.NewConnectivityError("list buckets", "", "", err)
		logger.Warn().Err(err).Msg("connection test failed")
		return err
	}
	logger.Debug().Msg("connection test succeeded")
	return nil
}
