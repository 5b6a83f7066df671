// Package achievements joins a player's unlock state with each game's
// achievement schema and keeps the merged result in both cache tiers.
package achievements

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/steamdash/internal/cache"
	"github.com/steamdash/internal/config"
	"github.com/steamdash/internal/domain"
	"github.com/steamdash/internal/steam"
)

// KVCache is the fast key/value tier checked before any remote sync.
// Satisfied by *cache.Store.
type KVCache interface {
	GetFresh(ctx context.Context, key cache.Key, ttl time.Duration, dest any) error
	Put(ctx context.Context, key cache.Key, value any) error
}

// DocStore is the durable document tier holding full achievement
// lists. Satisfied by *store.Store.
type DocStore interface {
	GetAchievements(ctx context.Context, steamID string, appID int64) (*domain.GameAchievements, error)
	PutAchievements(ctx context.Context, steamID string, doc domain.GameAchievements) error
}

// StateFetcher provides the two remote calls joined per game.
// Satisfied by *steam.Client.
type StateFetcher interface {
	GetPlayerAchievements(ctx context.Context, steamID string, appID int64) ([]steam.PlayerAchievement, error)
	GetSchemaForGame(ctx context.Context, appID int64) ([]steam.SchemaAchievement, error)
}

// EventSink receives newly-unlocked achievements discovered during a
// sync. Satisfied by events.Publisher implementations.
type EventSink interface {
	AchievementUnlocked(ctx context.Context, steamID string, unlock domain.UnlockedAchievement)
}

// Syncer synchronizes per-game achievement state
type Syncer struct {
	kv      KVCache
	docs    DocStore
	fetcher StateFetcher
	events  EventSink
	ttl     time.Duration
	workers int
	logger  *slog.Logger
}

// New creates a new achievement syncer
func New(kv KVCache, docs DocStore, fetcher StateFetcher, events EventSink, cfg *config.SyncConfig, logger *slog.Logger) *Syncer {
	return &Syncer{
		kv:      kv,
		docs:    docs,
		fetcher: fetcher,
		events:  events,
		ttl:     cfg.AchievementsTTL,
		workers: cfg.Workers,
		logger:  logger,
	}
}

// Sync attaches an achievements list to every input game. Games with
// a fresh cached list are served without remote calls unless force is
// set; the rest go through the remote join, bounded by the worker
// pool. A failed game gets its previously cached list if one exists,
// an empty list otherwise, and never blocks its siblings. The result
// has the same length and order as the input.
func (s *Syncer) Sync(ctx context.Context, steamID string, games []domain.Game, force bool) []domain.Game {
	out := make([]domain.Game, len(games))
	copy(out, games)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range out {
		i := i
		g.Go(func() error {
			out[i].Achievements = s.syncGame(gctx, steamID, &out[i], force)
			return nil
		})
	}
	g.Wait()

	return out
}

func (s *Syncer) syncGame(ctx context.Context, steamID string, game *domain.Game, force bool) []domain.Achievement {
	key := cache.AchievementsKey(steamID, game.AppID)

	if !force {
		var cached []domain.Achievement
		if err := s.kv.GetFresh(ctx, key, s.ttl, &cached); err == nil {
			return cached
		}
	}

	// Any previously persisted list: the merge base, and the fallback
	// when the remote pass fails.
	var prior []domain.Achievement
	if doc, err := s.docs.GetAchievements(ctx, steamID, game.AppID); err == nil {
		prior = doc.Achievements
	}

	state, schema, err := s.fetchPair(ctx, steamID, game.AppID)
	if err != nil {
		s.logger.Warn("achievement sync failed",
			"steam_id", steamID,
			"app_id", game.AppID,
			"error", err,
		)
		return prior
	}

	merged := s.join(ctx, steamID, game, state, schema, prior)

	doc := domain.GameAchievements{AppID: game.AppID, Achievements: merged}
	if err := s.docs.PutAchievements(ctx, steamID, doc); err != nil {
		s.logger.Warn("failed to persist achievements",
			"app_id", game.AppID,
			"error", err,
		)
	}
	if err := s.kv.Put(ctx, key, merged); err != nil {
		s.logger.Warn("failed to cache achievements",
			"app_id", game.AppID,
			"error", err,
		)
	}

	return merged
}

// fetchPair issues the unlock-state and schema calls concurrently.
// Games without achievement support make the state call fail; that is
// reported as a single error for the game, not a crash.
func (s *Syncer) fetchPair(ctx context.Context, steamID string, appID int64) ([]steam.PlayerAchievement, []steam.SchemaAchievement, error) {
	var state []steam.PlayerAchievement
	var schema []steam.SchemaAchievement

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		state, err = s.fetcher.GetPlayerAchievements(gctx, steamID, appID)
		return err
	})
	g.Go(func() error {
		var err error
		schema, err = s.fetcher.GetSchemaForGame(gctx, appID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return state, schema, nil
}

// join builds one merged record per unlock-state entry. The
// unlocked-state list is authoritative for which achievements exist
// for this account; schema entries without a state entry are dropped.
// Prior records are overlaid so a degraded response never erases
// richer previously-known data.
func (s *Syncer) join(ctx context.Context, steamID string, game *domain.Game, state []steam.PlayerAchievement, schema []steam.SchemaAchievement, prior []domain.Achievement) []domain.Achievement {
	schemaByName := make(map[string]steam.SchemaAchievement, len(schema))
	for _, sa := range schema {
		schemaByName[sa.Name] = sa
	}
	priorByName := make(map[string]domain.Achievement, len(prior))
	for _, pa := range prior {
		priorByName[pa.APIName] = pa
	}

	merged := make([]domain.Achievement, 0, len(state))
	for _, st := range state {
		next := domain.Achievement{
			APIName:    st.APIName,
			Achieved:   st.Achieved == 1,
			UnlockTime: st.UnlockTime,
		}
		if sa, ok := schemaByName[st.APIName]; ok {
			next.DisplayName = sa.DisplayName
			next.Description = sa.Description
			next.Icon = sa.Icon
			next.IconGray = sa.IconGray
		}

		cached, hadPrior := priorByName[st.APIName]
		if hadPrior {
			next = cached.Merge(next)
		}

		if next.Achieved && (!hadPrior || !cached.Achieved) {
			s.events.AchievementUnlocked(ctx, steamID, domain.UnlockedAchievement{
				AppID:       game.AppID,
				GameName:    game.Name,
				Achievement: next,
			})
		}

		merged = append(merged, next)
	}
	return merged
}
