package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/steamdash/internal/config"
	"github.com/steamdash/internal/domain"
)

// Store is the Redis-backed key/value cache tier. Every value is
// stored as a single JSON envelope carrying its fetch timestamp, so
// freshness checks never depend on a sibling key staying in step with
// the payload.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// envelope wraps every cached payload with its fetch timestamp
type envelope struct {
	Data      json.RawMessage `json:"data"`
	FetchedAt int64           `json:"fetched_at"`
}

// NewStore creates a new Redis cache store
func NewStore(cfg *config.RedisConfig, logger *slog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Store{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client
func (s *Store) Client() *redis.Client {
	return s.client
}

// Put stores a value under the given key with the current timestamp.
// No expiry is set on the key itself; callers decide freshness on
// read against their TTL class.
func (s *Store) Put(ctx context.Context, key Key, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling value: %w", err)
	}

	env, err := json.Marshal(envelope{Data: data, FetchedAt: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}

	if err := s.client.Set(ctx, string(key), env, 0).Err(); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

// Get reads a value into dest and returns when it was fetched. A
// missing key returns domain.ErrCacheMiss; callers treat any error as
// a miss and fail open to the remote fetch.
func (s *Store) Get(ctx context.Context, key Key, dest any) (time.Time, error) {
	raw, err := s.client.Get(ctx, string(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, domain.ErrCacheMiss
		}
		return time.Time{}, fmt.Errorf("getting %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return time.Time{}, fmt.Errorf("unmarshaling envelope: %w", err)
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return time.Time{}, fmt.Errorf("unmarshaling value: %w", err)
	}
	return time.Unix(env.FetchedAt, 0), nil
}

// GetFresh reads a value only if it was fetched within ttl. A stale
// entry reports domain.ErrCacheMiss so exactly one refetch is
// triggered for that entry's scope.
func (s *Store) GetFresh(ctx context.Context, key Key, ttl time.Duration, dest any) error {
	fetchedAt, err := s.Get(ctx, key, dest)
	if err != nil {
		return err
	}
	if !Fresh(fetchedAt, ttl) {
		return domain.ErrCacheMiss
	}
	return nil
}

// Delete removes a single key
func (s *Store) Delete(ctx context.Context, key Key) error {
	if err := s.client.Del(ctx, string(key)).Err(); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Clear wipes the whole cache namespace via SCAN. Used only by the
// explicit clear-all operation; there is no partial-clear mode.
func (s *Store) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, Namespace+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("deleting %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning namespace: %w", err)
	}
	return nil
}

// Fresh reports whether an entry fetched at fetchedAt is still inside
// its TTL window.
func Fresh(fetchedAt time.Time, ttl time.Duration) bool {
	return time.Since(fetchedAt) < ttl
}
