package stores

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// IdempotencySet records whether an Idempotency-Key has already been
// consumed by a metered billing operation (§4.G).
type IdempotencySet interface {
	// AddIfAbsent reports whether key was newly recorded (true) or had
	// already been seen (false), atomically.
	AddIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

const idempotencyKeyPrefix = "leg:idempotency:"

// RedisIdempotencySet implements IdempotencySet with SET NX.
type RedisIdempotencySet struct {
	Client *redis.Client
}

func (s *RedisIdempotencySet) AddIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.Client.SetNX(ctx, idempotencyKeyPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "idempotency set: SETNX")
	}
	return ok, nil
}

// MemoryIdempotencySet is an in-process IdempotencySet for tests.
type MemoryIdempotencySet struct {
	mu      sync.Mutex
	seen    map[string]time.Time
}

func NewMemoryIdempotencySet() *MemoryIdempotencySet {
	return &MemoryIdempotencySet{seen: map[string]time.Time{}}
}

func (s *MemoryIdempotencySet) AddIfAbsent(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exp, ok := s.seen[key]; ok {
		if time.Now().Before(exp) {
			return false, nil
		}
	}
	s.seen[key] = time.Now().Add(ttl)
	return true, nil
}
