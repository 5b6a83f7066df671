// Package library coordinates the whole sync pipeline: owned-games
// list, detail resolution, achievement sync, cache tiers, and the
// derived aggregates exposed to the dashboard.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/steamdash/internal/cache"
	"github.com/steamdash/internal/config"
	"github.com/steamdash/internal/domain"
	"github.com/steamdash/internal/events"
	"github.com/steamdash/internal/stats"
)

// KVCache is the key/value tier. Satisfied by *cache.Store.
type KVCache interface {
	Get(ctx context.Context, key cache.Key, dest any) (time.Time, error)
	GetFresh(ctx context.Context, key cache.Key, ttl time.Duration, dest any) error
	Put(ctx context.Context, key cache.Key, value any) error
	Clear(ctx context.Context) error
}

// DocStore is the document tier. Satisfied by *store.Store.
type DocStore interface {
	PutGame(ctx context.Context, game domain.Game) error
	ClearAll(ctx context.Context) error
}

// DetailResolver enriches bare game records. Satisfied by
// *resolver.Resolver.
type DetailResolver interface {
	Resolve(ctx context.Context, games []domain.Game) []domain.Game
}

// AchievementSyncer attaches achievement lists. Satisfied by
// *achievements.Syncer.
type AchievementSyncer interface {
	Sync(ctx context.Context, steamID string, games []domain.Game, force bool) []domain.Game
}

// PlatformClient provides the identity-scoped remote calls the
// orchestrator issues itself. Satisfied by *steam.Client.
type PlatformClient interface {
	GetOwnedGames(ctx context.Context, steamID string) ([]domain.Game, error)
	GetRecentlyPlayedGames(ctx context.Context, steamID string) ([]domain.Game, error)
	GetPlayerSummary(ctx context.Context, steamID string) (*domain.Profile, error)
}

// libraryState is the in-memory model for one identity: the full
// owned list, the resolved displayed slice, and the aggregates.
type libraryState struct {
	full      []domain.Game
	displayed []domain.Game
	stats     domain.LibraryStats
}

// syncTask is the single-slot in-flight sync handle. A new sync
// cancels the previous task's context and waits for it to drain
// before touching shared state.
type syncTask struct {
	id     string
	kind   domain.SyncKind
	cancel context.CancelFunc
}

// Orchestrator is the top-level library sync coordinator
type Orchestrator struct {
	kv       KVCache
	docs     DocStore
	resolver DetailResolver
	syncer   AchievementSyncer
	platform PlatformClient
	events   events.Publisher
	cfg      *config.Config
	logger   *slog.Logger

	syncMu   sync.Mutex // serializes sync passes (single slot)
	taskMu   sync.Mutex // guards inflight
	inflight *syncTask

	stateMu sync.RWMutex
	states  map[string]*libraryState

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a new library orchestrator
func New(
	kv KVCache,
	docs DocStore,
	resolver DetailResolver,
	syncer AchievementSyncer,
	platform PlatformClient,
	publisher events.Publisher,
	cfg *config.Config,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		kv:       kv,
		docs:     docs,
		resolver: resolver,
		syncer:   syncer,
		platform: platform,
		events:   publisher,
		cfg:      cfg,
		logger:   logger,
		states:   make(map[string]*libraryState),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// begin claims the sync slot: any in-flight task is cancelled, then
// the caller waits for it to release the slot.
func (o *Orchestrator) begin(ctx context.Context, steamID string, kind domain.SyncKind) (context.Context, *syncTask) {
	o.taskMu.Lock()
	if cur := o.inflight; cur != nil {
		o.logger.Info("cancelling in-flight sync", "task_id", cur.id, "kind", cur.kind)
		cur.cancel()
	}
	o.taskMu.Unlock()

	o.syncMu.Lock()

	tctx, cancel := context.WithCancel(ctx)
	task := &syncTask{
		id:     uuid.New().String(),
		kind:   kind,
		cancel: cancel,
	}
	o.taskMu.Lock()
	o.inflight = task
	o.taskMu.Unlock()

	o.events.SyncStarted(tctx, steamID, kind)
	return tctx, task
}

func (o *Orchestrator) finish(task *syncTask) {
	o.taskMu.Lock()
	if o.inflight == task {
		o.inflight = nil
	}
	o.taskMu.Unlock()
	task.cancel()
	o.syncMu.Unlock()
}

// FreshLoad serves the library for an identity that just became
// available: the owned-games list comes from cache when fresh,
// remotely otherwise; whole-library aggregates are derived
// immediately; and the first page is resolved and synced for display.
func (o *Orchestrator) FreshLoad(ctx context.Context, steamID string) (*domain.LibraryView, error) {
	if steamID == "" {
		return nil, domain.ErrMissingIdentity
	}

	start := time.Now()
	tctx, task := o.begin(ctx, steamID, domain.SyncKindFreshLoad)
	defer o.finish(task)

	full, fromCache, err := o.loadOwned(tctx, steamID)
	if err != nil {
		return nil, err
	}

	st := &libraryState{full: full}
	st.stats = stats.Library(full)
	st.stats.MostRecent = o.pickMostRecent(tctx, steamID)

	page := o.pageOf(full, 0)
	page = o.resolver.Resolve(tctx, page)
	page = o.syncer.Sync(tctx, steamID, page, false)
	o.persistGames(tctx, page)
	st.displayed = page

	o.stateMu.Lock()
	o.states[steamID] = st
	o.stateMu.Unlock()

	report := domain.SyncReport{
		TaskID:      task.id,
		Kind:        domain.SyncKindFreshLoad,
		SteamID:     steamID,
		FromCache:   fromCache,
		GamesSynced: len(page),
		Duration:    time.Since(start),
	}
	o.events.SyncCompleted(tctx, report)

	return o.view(steamID, st, &report), nil
}

// LoadMore appends the next page from the already-fetched full list.
// No new owned-games call is issued, and games whose achievements are
// already cached are not re-synced.
func (o *Orchestrator) LoadMore(ctx context.Context, steamID string) (*domain.LibraryView, error) {
	if steamID == "" {
		return nil, domain.ErrMissingIdentity
	}

	o.stateMu.RLock()
	st, ok := o.states[steamID]
	o.stateMu.RUnlock()
	if !ok {
		return nil, domain.ErrLibraryNotFound
	}

	start := time.Now()
	tctx, task := o.begin(ctx, steamID, domain.SyncKindLoadMore)
	defer o.finish(task)

	next := o.pageOf(st.full, len(st.displayed))
	if len(next) == 0 {
		return nil, domain.ErrNoMoreGames
	}

	next = o.resolver.Resolve(tctx, next)
	next = o.syncer.Sync(tctx, steamID, next, false)
	o.persistGames(tctx, next)

	o.stateMu.Lock()
	st.displayed = appendUnique(st.displayed, next)
	o.stateMu.Unlock()

	report := domain.SyncReport{
		TaskID:      task.id,
		Kind:        domain.SyncKindLoadMore,
		SteamID:     steamID,
		GamesSynced: len(next),
		Duration:    time.Since(start),
	}
	o.events.SyncCompleted(tctx, report)

	return o.view(steamID, st, &report), nil
}

// FullResync ignores every freshness check: the owned-games list is
// re-fetched, details and achievements are re-synced for the entire
// library, and all in-memory aggregates are replaced. This is the
// only path that guarantees the displayed data matches the remote
// state.
func (o *Orchestrator) FullResync(ctx context.Context, steamID string) (*domain.LibraryView, error) {
	if steamID == "" {
		return nil, domain.ErrMissingIdentity
	}

	start := time.Now()
	tctx, task := o.begin(ctx, steamID, domain.SyncKindFullResync)
	defer o.finish(task)

	full, err := o.platform.GetOwnedGames(tctx, steamID)
	if err != nil {
		return nil, fmt.Errorf("fetching owned games: %w", err)
	}
	if err := o.kv.Put(tctx, cache.OwnedGamesKey(steamID), full); err != nil {
		o.logger.Warn("failed to cache owned games", "error", err)
	}

	full = o.resolver.Resolve(tctx, full)
	full = o.syncer.Sync(tctx, steamID, full, true)
	o.persistGames(tctx, full)

	st := &libraryState{
		full:      full,
		displayed: full,
		stats:     stats.Library(full),
	}
	st.stats.MostRecent = o.pickMostRecent(tctx, steamID)

	o.stateMu.Lock()
	o.states[steamID] = st
	o.stateMu.Unlock()

	report := domain.SyncReport{
		TaskID:      task.id,
		Kind:        domain.SyncKindFullResync,
		SteamID:     steamID,
		GamesSynced: len(full),
		Duration:    time.Since(start),
	}
	o.events.SyncCompleted(tctx, report)

	return o.view(steamID, st, &report), nil
}

// View returns the current in-memory state for an identity without
// triggering any sync.
func (o *Orchestrator) View(steamID string) (*domain.LibraryView, error) {
	if steamID == "" {
		return nil, domain.ErrMissingIdentity
	}
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	st, ok := o.states[steamID]
	if !ok {
		return nil, domain.ErrLibraryNotFound
	}
	return o.view(steamID, st, nil), nil
}

// ClearAll wipes both cache tiers and all in-memory state. There is
// no partial-clear mode.
func (o *Orchestrator) ClearAll(ctx context.Context) error {
	o.taskMu.Lock()
	if cur := o.inflight; cur != nil {
		cur.cancel()
	}
	o.taskMu.Unlock()

	o.syncMu.Lock()
	defer o.syncMu.Unlock()

	if err := o.kv.Clear(ctx); err != nil {
		return fmt.Errorf("clearing cache tier: %w", err)
	}
	if err := o.docs.ClearAll(ctx); err != nil {
		return fmt.Errorf("clearing document tier: %w", err)
	}

	o.stateMu.Lock()
	o.states = make(map[string]*libraryState)
	o.stateMu.Unlock()

	o.logger.Info("cleared all local data")
	return nil
}

// GenreDistribution returns the genre chart for the displayed set
func (o *Orchestrator) GenreDistribution(steamID string) ([]domain.GenreCount, error) {
	st, err := o.state(steamID)
	if err != nil {
		return nil, err
	}
	return stats.GenreDistribution(st.displayed), nil
}

// UnlockPatterns returns the time-of-day/day-of-week unlock chart
func (o *Orchestrator) UnlockPatterns(steamID string) (domain.UnlockPatterns, error) {
	st, err := o.state(steamID)
	if err != nil {
		return domain.UnlockPatterns{}, err
	}
	return stats.UnlockPatterns(st.displayed), nil
}

// Completion returns per-game completion ratios for the displayed set
func (o *Orchestrator) Completion(steamID string) ([]domain.GameCompletion, error) {
	st, err := o.state(steamID)
	if err != nil {
		return nil, err
	}
	return stats.Completion(st.displayed), nil
}

// RecentAchievements returns the global recent-achievements feed
func (o *Orchestrator) RecentAchievements(steamID string, limit int) ([]domain.UnlockedAchievement, error) {
	st, err := o.state(steamID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = o.cfg.Dashboard.RecentAchievements
	}
	if limit > o.cfg.Dashboard.MaxRecentLimit {
		limit = o.cfg.Dashboard.MaxRecentLimit
	}
	return stats.RecentAchievements(st.displayed, limit), nil
}

// Profile returns the player summary, cache first
func (o *Orchestrator) Profile(ctx context.Context, steamID string) (*domain.Profile, error) {
	if steamID == "" {
		return nil, domain.ErrMissingIdentity
	}

	key := cache.ProfileKey(steamID)
	var cached domain.Profile
	if err := o.kv.GetFresh(ctx, key, o.cfg.Sync.ProfileTTL, &cached); err == nil {
		return &cached, nil
	}

	profile, err := o.platform.GetPlayerSummary(ctx, steamID)
	if err != nil {
		return nil, fmt.Errorf("fetching player summary: %w", err)
	}
	if err := o.kv.Put(ctx, key, profile); err != nil {
		o.logger.Warn("failed to cache profile", "error", err)
	}
	return profile, nil
}

// loadOwned reads the owned-games list from cache when fresh and
// falls back to the remote call otherwise. A remote failure falls
// back once more to a stale cached list before giving up.
func (o *Orchestrator) loadOwned(ctx context.Context, steamID string) ([]domain.Game, bool, error) {
	key := cache.OwnedGamesKey(steamID)

	var cached []domain.Game
	if err := o.kv.GetFresh(ctx, key, o.cfg.Sync.OwnedGamesTTL, &cached); err == nil {
		return cached, true, nil
	}

	full, err := o.platform.GetOwnedGames(ctx, steamID)
	if err != nil {
		var stale []domain.Game
		if _, cerr := o.kv.Get(ctx, key, &stale); cerr == nil {
			o.logger.Warn("owned games fetch failed, serving stale cache",
				"steam_id", steamID,
				"error", err,
			)
			return stale, true, nil
		}
		return nil, false, fmt.Errorf("fetching owned games: %w", err)
	}

	if err := o.kv.Put(ctx, key, full); err != nil {
		o.logger.Warn("failed to cache owned games", "error", err)
	}
	return full, false, nil
}

// pickMostRecent picks a random entry from the recently-played list
// for display variety. Failures degrade to no pick.
func (o *Orchestrator) pickMostRecent(ctx context.Context, steamID string) *domain.Game {
	key := cache.RecentGamesKey(steamID)

	var recent []domain.Game
	if err := o.kv.GetFresh(ctx, key, o.cfg.Sync.OwnedGamesTTL, &recent); err != nil {
		var rerr error
		recent, rerr = o.platform.GetRecentlyPlayedGames(ctx, steamID)
		if rerr != nil {
			o.logger.Warn("failed to fetch recently played games", "error", rerr)
			return nil
		}
		if err := o.kv.Put(ctx, key, recent); err != nil {
			o.logger.Warn("failed to cache recently played games", "error", err)
		}
	}

	o.rngMu.Lock()
	defer o.rngMu.Unlock()
	return stats.MostRecentlyPlayed(recent, o.rng)
}

func (o *Orchestrator) persistGames(ctx context.Context, games []domain.Game) {
	for _, g := range games {
		if err := o.docs.PutGame(ctx, g); err != nil {
			o.logger.Warn("failed to persist game", "app_id", g.AppID, "error", err)
		}
	}
}

func (o *Orchestrator) pageOf(full []domain.Game, offset int) []domain.Game {
	if offset >= len(full) {
		return nil
	}
	end := offset + o.cfg.Sync.PageSize
	if end > len(full) {
		end = len(full)
	}
	page := make([]domain.Game, end-offset)
	copy(page, full[offset:end])
	return page
}

func (o *Orchestrator) state(steamID string) (*libraryState, error) {
	if steamID == "" {
		return nil, domain.ErrMissingIdentity
	}
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	st, ok := o.states[steamID]
	if !ok {
		return nil, domain.ErrLibraryNotFound
	}
	return st, nil
}

func (o *Orchestrator) view(steamID string, st *libraryState, report *domain.SyncReport) *domain.LibraryView {
	return &domain.LibraryView{
		SteamID:   steamID,
		Games:     st.displayed,
		Total:     len(st.full),
		Displayed: len(st.displayed),
		HasMore:   len(st.displayed) < len(st.full),
		Stats:     st.stats,
		Report:    report,
	}
}

// appendUnique concatenates next onto displayed, skipping any app id
// already present.
func appendUnique(displayed, next []domain.Game) []domain.Game {
	seen := make(map[int64]struct{}, len(displayed))
	for _, g := range displayed {
		seen[g.AppID] = struct{}{}
	}
	for _, g := range next {
		if _, ok := seen[g.AppID]; ok {
			continue
		}
		displayed = append(displayed, g)
		seen[g.AppID] = struct{}{}
	}
	return displayed
}
