// Package admission implements the Admission Controller of §4.F: a
// weighted semaphore bounding total in-flight requests, split per
// pillar into a sponsor sub-pool and a free sub-pool, restored from
// the priority-manager design in original_source's licensing module.
package admission

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/seatrace-io/leg/pkg/license"
)

// Config sizes one pillar's two sub-pools.
type Config struct {
	SponsorPermits int64
	FreePermits    int64
}

type pillarPool struct {
	sponsor *semaphore.Weighted
	free    *semaphore.Weighted
}

// Controller bounds concurrent in-flight requests per pillar. Sponsor
// traffic (a paid PL license) draws only from the sponsor pool;
// anonymous/PUL traffic draws only from the free pool, so a burst of
// free traffic cannot starve paying tenants (priority.py).
type Controller struct {
	total  *semaphore.Weighted
	pools  map[license.Pillar]*pillarPool
}

// New constructs a Controller with a global concurrency ceiling and a
// per-pillar sponsor/free split. Every pillar not given an explicit
// Config in perPillar gets defaultCfg.
func New(totalPermits int64, perPillar map[license.Pillar]Config, defaultCfg Config) *Controller {
	pillars := []license.Pillar{
		license.PillarSeaside, license.PillarDeckside, license.PillarDockside, license.PillarMarketside,
	}
	pools := make(map[license.Pillar]*pillarPool, len(pillars))
	for _, p := range pillars {
		cfg := defaultCfg
		if c, ok := perPillar[p]; ok {
			cfg = c
		}
		pools[p] = &pillarPool{
			sponsor: semaphore.NewWeighted(cfg.SponsorPermits),
			free:    semaphore.NewWeighted(cfg.FreePermits),
		}
	}
	return &Controller{
		total: semaphore.NewWeighted(totalPermits),
		pools: pools,
	}
}

// Release is returned by Acquire to release both the pillar sub-pool
// permit and the global permit, in reverse acquisition order.
type Release func()

// Acquire reserves one slot in pillar's sub-pool (sponsor if
// isSponsor, else free) and one slot in the global pool. It blocks
// until both are available or ctx is done, in which case it returns a
// nil Release and ctx.Err().
func (c *Controller) Acquire(ctx context.Context, pillar license.Pillar, isSponsor bool) (Release, error) {
	pool, ok := c.pools[pillar]
	if !ok {
		pool = &pillarPool{sponsor: semaphore.NewWeighted(1), free: semaphore.NewWeighted(1)}
	}
	sub := pool.free
	if isSponsor {
		sub = pool.sponsor
	}

	if err := sub.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := c.total.Acquire(ctx, 1); err != nil {
		sub.Release(1)
		return nil, err
	}

	return func() {
		c.total.Release(1)
		sub.Release(1)
	}, nil
}
