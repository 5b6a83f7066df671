// Package resolver enriches bare game-id records with store display
// metadata, hitting the remote API only for cache misses.
package resolver

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/steamdash/internal/cache"
	"github.com/steamdash/internal/config"
	"github.com/steamdash/internal/domain"
)

// DetailCache is the key/value tier the resolver reads and writes.
// Satisfied by *cache.Store.
type DetailCache interface {
	GetFresh(ctx context.Context, key cache.Key, ttl time.Duration, dest any) error
	Put(ctx context.Context, key cache.Key, value any) error
}

// DetailFetcher looks up store metadata for a single app. Satisfied
// by *steam.Client.
type DetailFetcher interface {
	GetAppDetails(ctx context.Context, appID int64) (*domain.GameDetail, error)
}

// Resolver resolves display metadata for library games
type Resolver struct {
	cache   DetailCache
	fetcher DetailFetcher
	ttl     time.Duration
	workers int
	logger  *slog.Logger
}

// New creates a new detail resolver
func New(cache DetailCache, fetcher DetailFetcher, cfg *config.SyncConfig, logger *slog.Logger) *Resolver {
	return &Resolver{
		cache:   cache,
		fetcher: fetcher,
		ttl:     cfg.GameDetailTTL,
		workers: cfg.Workers,
		logger:  logger,
	}
}

// Resolve returns every input game with whatever detail fields were
// resolvable: fresh cache entries are merged without a remote call,
// the misses are fetched through the rate-limited client with bounded
// concurrency, and a failed lookup falls back to a placeholder name
// without aborting the rest of the batch. The result always has the
// same length and order as the input.
func (r *Resolver) Resolve(ctx context.Context, games []domain.Game) []domain.Game {
	out := make([]domain.Game, len(games))
	copy(out, games)

	var misses []int
	for i := range out {
		var detail domain.GameDetail
		err := r.cache.GetFresh(ctx, cache.GameDetailKey(out[i].AppID), r.ttl, &detail)
		if err != nil {
			// Cache-read failures fail open to the remote fetch.
			misses = append(misses, i)
			continue
		}
		detail.ApplyTo(&out[i])
	}

	if len(misses) == 0 {
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, i := range misses {
		i := i
		g.Go(func() error {
			r.resolveRemote(gctx, &out[i])
			return nil
		})
	}
	g.Wait()

	return out
}

func (r *Resolver) resolveRemote(ctx context.Context, game *domain.Game) {
	detail, err := r.fetcher.GetAppDetails(ctx, game.AppID)
	if err != nil {
		r.logger.Warn("failed to resolve game detail",
			"app_id", game.AppID,
			"error", err,
		)
		if game.Name == "" {
			game.Name = domain.PlaceholderName(game.AppID)
		}
		return
	}

	detail.ApplyTo(game)

	if err := r.cache.Put(ctx, cache.GameDetailKey(game.AppID), detail); err != nil {
		r.logger.Warn("failed to cache game detail",
			"app_id", game.AppID,
			"error", err,
		)
	}
}
