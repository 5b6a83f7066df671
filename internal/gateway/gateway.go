package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/steamdash/internal/config"
)

// Gateway wraps outbound HTTP calls with a randomized inter-request
// delay to stay under the remote API's rate limit. It does not retry
// and does not inspect status codes; failure handling belongs to the
// caller. This is a best-effort client-side throttle, not a hard
// guarantee against server-side rejection.
type Gateway struct {
	client   *http.Client
	minDelay time.Duration
	maxDelay time.Duration
	logger   *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a new rate-limited gateway
func New(cfg *config.GatewayConfig, logger *slog.Logger) *Gateway {
	return &Gateway{
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		minDelay: cfg.MinDelay,
		maxDelay: cfg.MaxDelay,
		logger:   logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Do sleeps a uniformly-random duration in [minDelay, maxDelay) and
// then issues the request. The sleep is context-aware so a cancelled
// sync doesn't keep burning the delay budget.
func (g *Gateway) Do(req *http.Request) (*http.Response, error) {
	if err := g.sleep(req.Context()); err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("issuing request: %w", err)
	}
	return resp, nil
}

// Get issues a delayed GET request to the given URL
func (g *Gateway) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	return g.Do(req)
}

func (g *Gateway) sleep(ctx context.Context) error {
	delay := g.minDelay
	if span := g.maxDelay - g.minDelay; span > 0 {
		g.mu.Lock()
		delay += time.Duration(g.rng.Int63n(int64(span)))
		g.mu.Unlock()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
