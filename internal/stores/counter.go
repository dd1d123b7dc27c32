// Package stores provides the counter and idempotency store contracts
// of §6.3, backed by Redis in production and by in-memory doubles in
// tests.
package stores

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// CounterStore is an atomic increment-with-expiry counter (§4.D rate
// limiter buckets, §4.E monthly quota counters).
type CounterStore interface {
	// Incr increments key by one, returning the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// SetTTL sets key's expiry if it has none (a fresh window).
	SetTTL(ctx context.Context, key string, ttl time.Duration) error
	// TTL reports the remaining time to live for key.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Get(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, key string) error
}

// RedisCounterStore implements CounterStore against a go-redis client.
type RedisCounterStore struct {
	Client *redis.Client
}

func (s *RedisCounterStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrap(err, "counter store: INCR")
	}
	return n, nil
}

func (s *RedisCounterStore) SetTTL(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := s.Client.ExpireNX(ctx, key, ttl).Result()
	if err != nil {
		return errors.Wrap(err, "counter store: EXPIRE NX")
	}
	_ = ok
	return nil
}

func (s *RedisCounterStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.Client.TTL(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrap(err, "counter store: TTL")
	}
	return d, nil
}

func (s *RedisCounterStore) Get(ctx context.Context, key string) (int64, error) {
	v, err := s.Client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "counter store: GET")
	}
	return v, nil
}

func (s *RedisCounterStore) Del(ctx context.Context, key string) error {
	if err := s.Client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "counter store: DEL")
	}
	return nil
}

// MemoryCounterStore is an in-process CounterStore for tests and
// single-instance deployments.
type MemoryCounterStore struct {
	mu      sync.Mutex
	values  map[string]int64
	expires map[string]time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{values: map[string]int64{}, expires: map[string]time.Time{}}
}

func (s *MemoryCounterStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(key)
	s.values[key]++
	return s.values[key], nil
}

func (s *MemoryCounterStore) SetTTL(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expires[key]; !ok {
		s.expires[key] = time.Now().Add(ttl)
	}
	return nil
}

func (s *MemoryCounterStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expires[key]
	if !ok {
		return -1, nil
	}
	return time.Until(exp), nil
}

func (s *MemoryCounterStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(key)
	return s.values[key], nil
}

func (s *MemoryCounterStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	delete(s.expires, key)
	return nil
}

// sweep must be called with mu held.
func (s *MemoryCounterStore) sweep(key string) {
	exp, ok := s.expires[key]
	if ok && time.Now().After(exp) {
		delete(s.values, key)
		delete(s.expires, key)
	}
}
