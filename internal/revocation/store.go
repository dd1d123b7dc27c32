package revocation

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Entry is one Revocation Entry (§3): a license ID plus the metadata
// recorded when it was revoked.
type Entry struct {
	LicenseID string    `json:"license_id"`
	RevokedAt time.Time `json:"revoked_at"`
	Reason    string    `json:"reason"`
}

// Store is the authoritative revocation list the Bloom filter is a
// fast path in front of (§6.3 store contract).
type Store interface {
	IsMember(ctx context.Context, licenseID string) (bool, error)
	Add(ctx context.Context, e Entry) error
	Remove(ctx context.Context, licenseID string) error
	Enumerate(ctx context.Context) ([]string, error)
	EnumerateWithMetadata(ctx context.Context) ([]Entry, error)
	LookupMetadata(ctx context.Context, licenseID string) (Entry, bool, error)
}

const redisHashKey = "leg:revocation:entries"

// RedisStore is a Store backed by a single Redis hash: field is the
// license ID, value is the JSON-encoded Entry.
type RedisStore struct {
	Client *redis.Client
}

func (s *RedisStore) IsMember(ctx context.Context, licenseID string) (bool, error) {
	n, err := s.Client.HExists(ctx, redisHashKey, licenseID).Result()
	if err != nil {
		return false, errors.Wrap(err, "revocation store: HEXISTS")
	}
	return n, nil
}

func (s *RedisStore) Add(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "revocation store: marshal entry")
	}
	if err := s.Client.HSet(ctx, redisHashKey, e.LicenseID, data).Err(); err != nil {
		return errors.Wrap(err, "revocation store: HSET")
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, licenseID string) error {
	if err := s.Client.HDel(ctx, redisHashKey, licenseID).Err(); err != nil {
		return errors.Wrap(err, "revocation store: HDEL")
	}
	return nil
}

func (s *RedisStore) Enumerate(ctx context.Context) ([]string, error) {
	keys, err := s.Client.HKeys(ctx, redisHashKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "revocation store: HKEYS")
	}
	return keys, nil
}

func (s *RedisStore) EnumerateWithMetadata(ctx context.Context) ([]Entry, error) {
	all, err := s.Client.HGetAll(ctx, redisHashKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "revocation store: HGETALL")
	}
	entries := make([]Entry, 0, len(all))
	for _, v := range all {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, errors.Wrap(err, "revocation store: decode entry")
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *RedisStore) LookupMetadata(ctx context.Context, licenseID string) (Entry, bool, error) {
	v, err := s.Client.HGet(ctx, redisHashKey, licenseID).Result()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.Wrap(err, "revocation store: HGET")
	}
	var e Entry
	if err := json.Unmarshal([]byte(v), &e); err != nil {
		return Entry{}, false, errors.Wrap(err, "revocation store: decode entry")
	}
	return e, true, nil
}

// MemoryStore is an in-process Store used by tests and standalone
// deployments that don't run Redis.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) IsMember(_ context.Context, licenseID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[licenseID]
	return ok, nil
}

func (s *MemoryStore) Add(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.LicenseID] = e
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, licenseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, licenseID)
	return nil
}

func (s *MemoryStore) Enumerate(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) EnumerateWithMetadata(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

func (s *MemoryStore) LookupMetadata(_ context.Context, licenseID string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[licenseID]
	return e, ok, nil
}
