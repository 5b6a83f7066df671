package achievements

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/steamdash/internal/cache"
	"github.com/steamdash/internal/config"
	"github.com/steamdash/internal/domain"
	"github.com/steamdash/internal/steam"
)

type fakeEntry struct {
	data []byte
	at   time.Time
}

type fakeKV struct {
	mu      sync.Mutex
	entries map[cache.Key]fakeEntry
}

func newFakeKV() *fakeKV {
	return &fakeKV{entries: make(map[cache.Key]fakeEntry)}
}

func (f *fakeKV) GetFresh(ctx context.Context, key cache.Key, ttl time.Duration, dest any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[key]
	if !ok || !cache.Fresh(e.at, ttl) {
		return domain.ErrCacheMiss
	}
	return json.Unmarshal(e.data, dest)
}

func (f *fakeKV) Put(ctx context.Context, key cache.Key, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = fakeEntry{data: data, at: time.Now()}
	return nil
}

type fakeDocs struct {
	mu   sync.Mutex
	docs map[int64]domain.GameAchievements
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{docs: make(map[int64]domain.GameAchievements)}
}

func (f *fakeDocs) GetAchievements(ctx context.Context, steamID string, appID int64) (*domain.GameAchievements, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[appID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (f *fakeDocs) PutAchievements(ctx context.Context, steamID string, doc domain.GameAchievements) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.AppID] = doc
	return nil
}

type fakeFetcher struct {
	mu         sync.Mutex
	state      map[int64][]steam.PlayerAchievement
	schema     map[int64][]steam.SchemaAchievement
	stateCalls int
	failState  map[int64]bool
}

func (f *fakeFetcher) GetPlayerAchievements(ctx context.Context, steamID string, appID int64) ([]steam.PlayerAchievement, error) {
	f.mu.Lock()
	f.stateCalls++
	f.mu.Unlock()
	if f.failState[appID] {
		return nil, domain.ErrRemoteFailure
	}
	return f.state[appID], nil
}

func (f *fakeFetcher) GetSchemaForGame(ctx context.Context, appID int64) ([]steam.SchemaAchievement, error) {
	return f.schema[appID], nil
}

type fakeEvents struct {
	mu      sync.Mutex
	unlocks []domain.UnlockedAchievement
}

func (f *fakeEvents) AchievementUnlocked(ctx context.Context, steamID string, unlock domain.UnlockedAchievement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlocks = append(f.unlocks, unlock)
}

func testSyncer(kv *fakeKV, docs *fakeDocs, fetcher *fakeFetcher, sink *fakeEvents) *Syncer {
	cfg := config.DefaultConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(kv, docs, fetcher, sink, &cfg.Sync, logger)
}

func TestSync_JoinStateWithSchema(t *testing.T) {
	fetcher := &fakeFetcher{
		state: map[int64][]steam.PlayerAchievement{
			440: {
				{APIName: "A", Achieved: 1, UnlockTime: 1700000000},
				{APIName: "B", Achieved: 0},
			},
		},
		schema: map[int64][]steam.SchemaAchievement{
			440: {
				{Name: "A", DisplayName: "Alpha", Description: "first", Icon: "a.jpg", IconGray: "ag.jpg"},
				{Name: "C", DisplayName: "Gamma"},
			},
		},
	}
	s := testSyncer(newFakeKV(), newFakeDocs(), fetcher, &fakeEvents{})

	out := s.Sync(context.Background(), "7656119", []domain.Game{{AppID: 440, Name: "TF2"}}, false)

	achs := out[0].Achievements
	if len(achs) != 2 {
		t.Fatalf("expected 2 achievements (state list is authoritative), got %d", len(achs))
	}
	if achs[0].APIName != "A" || achs[0].DisplayName != "Alpha" || !achs[0].Achieved || achs[0].UnlockTime != 1700000000 {
		t.Fatalf("unexpected joined A: %+v", achs[0])
	}
	if achs[1].APIName != "B" || achs[1].DisplayName != "" || achs[1].Achieved {
		t.Fatalf("expected B with defaulted schema fields, got %+v", achs[1])
	}
	for _, a := range achs {
		if a.APIName == "C" {
			t.Fatal("schema-only entry C must be dropped")
		}
	}
}

func TestSync_MergeNeverRegresses(t *testing.T) {
	docs := newFakeDocs()
	docs.PutAchievements(context.Background(), "7656119", domain.GameAchievements{
		AppID: 440,
		Achievements: []domain.Achievement{
			{APIName: "a1", DisplayName: "First Blood", Description: "Get a kill", Icon: "u.jpg", IconGray: "l.jpg", Achieved: true, UnlockTime: 1700000000},
		},
	})

	// Degraded pass: schema comes back empty, state still lists a1.
	fetcher := &fakeFetcher{
		state: map[int64][]steam.PlayerAchievement{
			440: {{APIName: "a1", Achieved: 1, UnlockTime: 1700000000}},
		},
		schema: map[int64][]steam.SchemaAchievement{440: nil},
	}
	s := testSyncer(newFakeKV(), docs, fetcher, &fakeEvents{})

	out := s.Sync(context.Background(), "7656119", []domain.Game{{AppID: 440}}, true)

	a := out[0].Achievements[0]
	if a.DisplayName != "First Blood" || a.Description != "Get a kill" || a.Icon != "u.jpg" {
		t.Fatalf("degraded response erased cached fields: %+v", a)
	}

	// The merged (not the bare) record must have been persisted.
	doc, err := docs.GetAchievements(context.Background(), "7656119", 440)
	if err != nil {
		t.Fatalf("expected persisted doc: %v", err)
	}
	if doc.Achievements[0].DisplayName != "First Blood" {
		t.Fatalf("persisted doc lost cached fields: %+v", doc.Achievements[0])
	}
}

func TestSync_FailurePrefersCachedList(t *testing.T) {
	docs := newFakeDocs()
	docs.PutAchievements(context.Background(), "7656119", domain.GameAchievements{
		AppID:        10,
		Achievements: []domain.Achievement{{APIName: "kept", Achieved: true}},
	})

	fetcher := &fakeFetcher{
		state: map[int64][]steam.PlayerAchievement{
			20: {{APIName: "x", Achieved: 1, UnlockTime: 1}},
		},
		schema:    map[int64][]steam.SchemaAchievement{},
		failState: map[int64]bool{10: true},
	}
	s := testSyncer(newFakeKV(), docs, fetcher, &fakeEvents{})

	out := s.Sync(context.Background(), "7656119", []domain.Game{{AppID: 10}, {AppID: 20}}, false)

	if len(out[0].Achievements) != 1 || out[0].Achievements[0].APIName != "kept" {
		t.Fatalf("expected cached list on failure, got %+v", out[0].Achievements)
	}
	if len(out[1].Achievements) != 1 || out[1].Achievements[0].APIName != "x" {
		t.Fatalf("failure must not block sibling games, got %+v", out[1].Achievements)
	}
}

func TestSync_FailureWithoutCacheYieldsEmptyList(t *testing.T) {
	fetcher := &fakeFetcher{failState: map[int64]bool{10: true}}
	s := testSyncer(newFakeKV(), newFakeDocs(), fetcher, &fakeEvents{})

	out := s.Sync(context.Background(), "7656119", []domain.Game{{AppID: 10}}, false)
	if len(out[0].Achievements) != 0 {
		t.Fatalf("expected empty list, got %+v", out[0].Achievements)
	}
}

func TestSync_FreshCacheSkipsRemote(t *testing.T) {
	kv := newFakeKV()
	kv.Put(context.Background(), cache.AchievementsKey("7656119", 440),
		[]domain.Achievement{{APIName: "cached", Achieved: true}})

	fetcher := &fakeFetcher{
		state:  map[int64][]steam.PlayerAchievement{440: {{APIName: "remote", Achieved: 1}}},
		schema: map[int64][]steam.SchemaAchievement{},
	}
	s := testSyncer(kv, newFakeDocs(), fetcher, &fakeEvents{})

	out := s.Sync(context.Background(), "7656119", []domain.Game{{AppID: 440}}, false)
	if fetcher.stateCalls != 0 {
		t.Fatalf("expected zero remote calls with fresh cache, got %d", fetcher.stateCalls)
	}
	if out[0].Achievements[0].APIName != "cached" {
		t.Fatalf("expected cached list, got %+v", out[0].Achievements)
	}

	// force bypasses the freshness check.
	out = s.Sync(context.Background(), "7656119", []domain.Game{{AppID: 440}}, true)
	if fetcher.stateCalls != 1 {
		t.Fatalf("expected remote call under force, got %d", fetcher.stateCalls)
	}
	if out[0].Achievements[0].APIName != "remote" {
		t.Fatalf("expected remote list under force, got %+v", out[0].Achievements)
	}
}

func TestSync_EmitsUnlockEventsOnlyForNewUnlocks(t *testing.T) {
	docs := newFakeDocs()
	docs.PutAchievements(context.Background(), "7656119", domain.GameAchievements{
		AppID: 440,
		Achievements: []domain.Achievement{
			{APIName: "old", Achieved: true, UnlockTime: 1600000000},
			{APIName: "new", Achieved: false},
		},
	})

	fetcher := &fakeFetcher{
		state: map[int64][]steam.PlayerAchievement{
			440: {
				{APIName: "old", Achieved: 1, UnlockTime: 1600000000},
				{APIName: "new", Achieved: 1, UnlockTime: 1700000000},
			},
		},
		schema: map[int64][]steam.SchemaAchievement{},
	}
	sink := &fakeEvents{}
	s := testSyncer(newFakeKV(), docs, fetcher, sink)

	s.Sync(context.Background(), "7656119", []domain.Game{{AppID: 440, Name: "TF2"}}, true)

	if len(sink.unlocks) != 1 {
		t.Fatalf("expected 1 unlock event, got %d", len(sink.unlocks))
	}
	if sink.unlocks[0].Achievement.APIName != "new" || sink.unlocks[0].AppID != 440 {
		t.Fatalf("unexpected unlock event: %+v", sink.unlocks[0])
	}
}
