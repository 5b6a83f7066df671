package resolver

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
)

type fakeEntry struct {
	data []byte
	at   time.Time
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[cache.Key]fakeEntry
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[cache.Key]fakeEntry)}
}

func (f *fakeCache) GetFresh(ctx context.Context, key cache.Key, ttl time.Duration, dest any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[key]
	if !ok || !cache.Fresh(e.at, ttl) {
		return domain.ErrCacheMiss
	}
	return json.Unmarshal(e.data, dest)
}

func (f *fakeCache) Put(ctx context.Context, key cache.Key, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = fakeEntry{data: data, at: time.Now()}
	return nil
}

func (f *fakeCache) age(key cache.Key, by time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[key]; ok {
		e.at = e.at.Add(-by)
		f.entries[key] = e
	}
}

type fakeFetcher struct {
	mu      sync.Mutex
	details map[int64]*domain.GameDetail
	calls   map[int64]int
}

func newFakeFetcher(details map[int64]*domain.GameDetail) *fakeFetcher {
	return &fakeFetcher{details: details, calls: make(map[int64]int)}
}

func (f *fakeFetcher) GetAppDetails(ctx context.Context, appID int64) (*domain.GameDetail, error) {
	f.mu.Lock()
	f.calls[appID]++
	f.mu.Unlock()
	d, ok := f.details[appID]
	if !ok {
		return nil, domain.ErrRemoteFailure
	}
	return d, nil
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func testResolver(kv *fakeCache, fetcher *fakeFetcher) *Resolver {
	cfg := config.DefaultConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(kv, fetcher, &cfg.Sync, logger)
}

func TestResolve_Idempotent(t *testing.T) {
	kv := newFakeCache()
	fetcher := newFakeFetcher(map[int64]*domain.GameDetail{
		10: {AppID: 10, Name: "Portal", HeaderImage: "p.jpg"},
		20: {AppID: 20, Name: "Dota 2", HeaderImage: "d.jpg"},
	})
	r := testResolver(kv, fetcher)

	games := []domain.Game{{AppID: 10}, {AppID: 20}}

	first := r.Resolve(context.Background(), games)
	if fetcher.totalCalls() != 2 {
		t.Fatalf("expected 2 remote calls on cold cache, got %d", fetcher.totalCalls())
	}

	second := r.Resolve(context.Background(), games)
	if fetcher.totalCalls() != 2 {
		t.Fatalf("expected 0 remote calls on second run, got %d", fetcher.totalCalls()-2)
	}

	for i := range first {
		if first[i].Name != second[i].Name || first[i].HeaderImage != second[i].HeaderImage {
			t.Fatalf("runs differ at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestResolve_StaleEntryRefetched(t *testing.T) {
	kv := newFakeCache()
	fetcher := newFakeFetcher(map[int64]*domain.GameDetail{
		10: {AppID: 10, Name: "Portal"},
	})
	r := testResolver(kv, fetcher)

	r.Resolve(context.Background(), []domain.Game{{AppID: 10}})
	if fetcher.totalCalls() != 1 {
		t.Fatalf("expected 1 call, got %d", fetcher.totalCalls())
	}

	kv.age(cache.GameDetailKey(10), 25*time.Hour)

	r.Resolve(context.Background(), []domain.Game{{AppID: 10}})
	if fetcher.totalCalls() != 2 {
		t.Fatalf("expected exactly one refetch for stale entry, got %d total calls", fetcher.totalCalls())
	}
}

func TestResolve_FailureUsesPlaceholderAndContinues(t *testing.T) {
	kv := newFakeCache()
	fetcher := newFakeFetcher(map[int64]*domain.GameDetail{
		20: {AppID: 20, Name: "Dota 2"},
	})
	r := testResolver(kv, fetcher)

	out := r.Resolve(context.Background(), []domain.Game{{AppID: 10}, {AppID: 20}})

	if len(out) != 2 {
		t.Fatalf("expected same length as input, got %d", len(out))
	}
	if out[0].Name != "Game ID: 10" {
		t.Fatalf("expected placeholder for failed app, got %q", out[0].Name)
	}
	if out[1].Name != "Dota 2" {
		t.Fatalf("expected sibling resolved despite failure, got %q", out[1].Name)
	}

	// A failed lookup must not be cached.
	var detail domain.GameDetail
	if err := kv.GetFresh(context.Background(), cache.GameDetailKey(10), time.Hour, &detail); err == nil {
		t.Fatal("failed lookup must not be written to cache")
	}
}

func TestResolve_PreservesOrder(t *testing.T) {
	kv := newFakeCache()
	fetcher := newFakeFetcher(map[int64]*domain.GameDetail{
		1: {AppID: 1, Name: "A"},
		2: {AppID: 2, Name: "B"},
		3: {AppID: 3, Name: "C"},
	})
	r := testResolver(kv, fetcher)

	in := []domain.Game{{AppID: 3}, {AppID: 1}, {AppID: 2}}
	out := r.Resolve(context.Background(), in)

	want := []string{"C", "A", "B"}
	for i, name := range want {
		if out[i].Name != name {
			t.Fatalf("position %d: expected %q, got %q", i, name, out[i].Name)
		}
	}
}

func TestResolve_PlaytimeFieldsUntouched(t *testing.T) {
	kv := newFakeCache()
	fetcher := newFakeFetcher(map[int64]*domain.GameDetail{
		10: {AppID: 10, Name: "Portal"},
	})
	r := testResolver(kv, fetcher)

	out := r.Resolve(context.Background(), []domain.Game{{AppID: 10, PlaytimeForever: 120, Playtime2Weeks: 5}})

	if out[0].PlaytimeForever != 120 || out[0].Playtime2Weeks != 5 {
		t.Fatalf("playtime fields must carry through resolution, got %+v", out[0])
	}
}
