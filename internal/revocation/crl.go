package revocation

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/seatrace-io/leg/internal/co"
	"github.com/seatrace-io/leg/internal/metrics"
	"github.com/seatrace-io/leg/internal/obslog"
)

var logger = obslog.WithContext("pkg", "revocation")

var (
	checksTotal        = metrics.LazyLoadCounterVec("leg_revocation_checks_total", nil)
	fastPathNegatives   = metrics.LazyLoadCounterVec("leg_revocation_fast_negatives_total", nil)
	bloomPositives      = metrics.LazyLoadCounterVec("leg_revocation_bloom_positives_total", nil)
	falsePositives      = metrics.LazyLoadCounterVec("leg_revocation_false_positives_total", nil)
	rebuildsTotal       = metrics.LazyLoadCounterVec("leg_revocation_rebuilds_total", nil)
	rebuildDurationMs   = metrics.LazyLoadHistogramVec("leg_revocation_rebuild_duration_ms", nil, metrics.BucketHTTPReqs)
	membershipCount     = metrics.LazyLoadGaugeVec("leg_revocation_membership_count", nil)
)

// CRL is the Revocation Check component of §4.C: an authoritative
// Store guarded by a Bloom filter fast path, rebuilt on a schedule and
// on demand, failing open if the authoritative store is unreachable.
type CRL struct {
	store    Store
	capacity uint
	fpr      float64

	bloom atomic.Pointer[Bloom]
	stale atomic.Bool

	rebuilding atomic.Bool
	rebuiltAt  atomic.Pointer[time.Time]

	goes   co.Goes
	stopCh chan struct{}
}

// New constructs a CRL and performs a synchronous initial build.
func New(ctx context.Context, store Store, capacity uint, fpr float64) (*CRL, error) {
	c := &CRL{store: store, capacity: capacity, fpr: fpr}
	if err := c.Rebuild(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Start launches the background rebuild loop.
func (c *CRL) Start(interval time.Duration) {
	c.stopCh = make(chan struct{})
	c.goes.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.Rebuild(context.Background()); err != nil {
					logger.Warn("bloom rebuild failed", "err", err)
				}
			case <-c.stopCh:
				return
			}
		}
	})
}

// Stop halts the background rebuild loop.
func (c *CRL) Stop() {
	if c.stopCh != nil {
		close(c.stopCh)
	}
	c.goes.Wait()
}

// Rebuild reloads the full revocation set from the authoritative store
// and swaps in a fresh Bloom filter. Only one rebuild runs at a time;
// a concurrent request is a no-op (§4.C single-rebuild-in-flight guard).
func (c *CRL) Rebuild(ctx context.Context) error {
	if !c.rebuilding.CompareAndSwap(false, true) {
		return nil
	}
	defer c.rebuilding.Store(false)

	start := time.Now()
	ids, err := c.store.Enumerate(ctx)
	if err != nil {
		return err
	}

	next := NewBloom(c.capacity, c.fpr)
	for _, id := range ids {
		next.Add(id)
	}
	c.bloom.Store(next)
	c.stale.Store(false)

	now := time.Now()
	c.rebuiltAt.Store(&now)

	rebuildsTotal().Add(1)
	rebuildDurationMs().ObserveWithLabels(time.Since(start).Milliseconds(), nil)
	membershipCount().SetWithLabel(float64(len(ids)), nil)
	return nil
}

// IsRevoked reports whether licenseID is revoked, following §4.C's
// query protocol: an uninitialized or stale filter triggers a
// synchronous rebuild (a no-op if one is already in flight) before the
// probe; a negative probe is authoritative and returns immediately. A
// positive probe, or a filter that is still unavailable after the
// rebuild attempt, is confirmed against the authoritative store; if
// the store errors, the check fails open (admits) and logs, per
// §4.C's availability-over-strictness stance.
func (c *CRL) IsRevoked(ctx context.Context, licenseID string) (bool, error) {
	checksTotal().Add(1)

	b := c.bloom.Load()
	if b == nil || c.stale.Load() {
		if err := c.Rebuild(ctx); err != nil {
			logger.Warn("revocation filter rebuild failed, falling through to authoritative store", "err", err)
		}
		b = c.bloom.Load()
	}

	if b == nil {
		return c.checkAuthoritative(ctx, licenseID)
	}
	if !b.Test(licenseID) {
		fastPathNegatives().Add(1)
		return false, nil
	}

	bloomPositives().Add(1)
	return c.checkAuthoritative(ctx, licenseID)
}

func (c *CRL) checkAuthoritative(ctx context.Context, licenseID string) (bool, error) {
	member, err := c.store.IsMember(ctx, licenseID)
	if err != nil {
		logger.Warn("revocation store unavailable, failing open", "license_id", licenseID, "err", err)
		return false, nil
	}
	if !member {
		falsePositives().Add(1)
		return false, nil
	}
	return true, nil
}

// Revoke adds licenseID to the authoritative store, then marks the
// filter stale and rebuilds it synchronously: §4.C's "incremental
// additions are not supported" rules out folding the license into the
// live filter in place, which would race with concurrent IsRevoked
// probes. The rebuild publishes a freshly built filter atomically, so
// a newly revoked license is rejected without waiting for the next
// scheduled refresh.
func (c *CRL) Revoke(ctx context.Context, e Entry) error {
	if err := c.store.Add(ctx, e); err != nil {
		return err
	}
	c.stale.Store(true)
	return c.Rebuild(ctx)
}

// Unrevoke removes licenseID from the authoritative store. The Bloom
// filter cannot un-set a bit safely (shared slots may serve other
// members), so a stale positive may still occur until the next
// Rebuild; IsRevoked's authoritative-store confirmation makes this
// transient only (§4.C).
func (c *CRL) Unrevoke(ctx context.Context, licenseID string) error {
	return c.store.Remove(ctx, licenseID)
}

// Stats reports the current filter's membership count, bit-array size
// and last rebuild time for the administrative API (§6.6). The query
// counters are exported as metrics only, not through Stats.
type Stats struct {
	MembershipCount uint
	BitArraySize    uint
	LastRebuilt     *time.Time
}

// EnumerateWithMetadata lists every revoked entry from the
// authoritative store, for the administrative list endpoint (§6.6).
func (c *CRL) EnumerateWithMetadata(ctx context.Context) ([]Entry, error) {
	return c.store.EnumerateWithMetadata(ctx)
}

// LastRebuilt satisfies health.RevocationProbe.
func (c *CRL) LastRebuilt() *time.Time {
	return c.rebuiltAt.Load()
}

func (c *CRL) Stats() Stats {
	b := c.bloom.Load()
	stats := Stats{LastRebuilt: c.rebuiltAt.Load()}
	if b != nil {
		stats.MembershipCount = b.Cardinality()
		stats.BitArraySize = b.Len()
	}
	return stats
}
