// Package ratelimit implements the Rate Limiter of §4.D: a fixed
// 60-second window counter per (license, pillar), ceilinged by the
// license's tier.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/seatrace-io/leg/internal/obslog"
	"github.com/seatrace-io/leg/internal/stores"
	"github.com/seatrace-io/leg/pkg/config"
	"github.com/seatrace-io/leg/pkg/license"
)

var logger = obslog.WithContext("pkg", "ratelimit")

const window = time.Minute

// Decision is the outcome of an Allow check, carrying the headers the
// gateway attaches to the response either way (§6.2).
type Decision struct {
	Admitted  bool
	Limit     int
	Remaining int
	ResetSecs int
}

// Limiter enforces the tier ceiling table of §3 against a shared
// CounterStore, keyed "ratelimit:{license_id}:{pillar}".
type Limiter struct {
	Store  stores.CounterStore
	Ceilings map[config.Tier]int
}

// New constructs a Limiter with the given tier ceiling table.
func New(store stores.CounterStore, ceilings map[config.Tier]int) *Limiter {
	return &Limiter{Store: store, Ceilings: ceilings}
}

// Allow increments the window counter for (licenseID, pillar) under
// the ceiling implied by tier, and reports whether the request may
// proceed. A zero ceiling means unlimited (PL-E, §3). Store errors
// fail open: the request is admitted and the failure logged, so a
// counter-store outage never becomes a denial-of-service surface
// (§4.D).
func (l *Limiter) Allow(ctx context.Context, licenseID string, pillar license.Pillar, tier config.Tier) (Decision, error) {
	limit := l.Ceilings[tier]
	if limit <= 0 {
		return Decision{Admitted: true, Limit: 0, Remaining: -1, ResetSecs: 0}, nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", licenseID, pillar)

	count, err := l.Store.Incr(ctx, key)
	if err != nil {
		logger.Warn("rate limit store unavailable, failing open", "key", key, "err", err)
		return Decision{Admitted: true, Limit: limit, Remaining: limit, ResetSecs: int(window.Seconds())}, nil
	}
	if count == 1 {
		if err := l.Store.SetTTL(ctx, key, window); err != nil {
			logger.Warn("rate limit TTL set failed", "key", key, "err", err)
		}
	}

	ttl, err := l.Store.TTL(ctx, key)
	if err != nil || ttl <= 0 {
		ttl = window
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Admitted:  count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetSecs: int(ttl.Seconds()),
	}, nil
}
