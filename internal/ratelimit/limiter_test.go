package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatrace-io/leg/internal/stores"
	"github.com/seatrace-io/leg/pkg/config"
	"github.com/seatrace-io/leg/pkg/license"
)

func TestLimiterAdmitsUnderCeiling(t *testing.T) {
	l := New(stores.NewMemoryCounterStore(), map[config.Tier]int{config.TierB: 2})

	d, err := l.Allow(context.Background(), "lic-1", license.PillarSeaside, config.TierB)
	require.NoError(t, err)
	assert.True(t, d.Admitted)
	assert.Equal(t, 1, d.Remaining)
}

func TestLimiterRejectsOverCeiling(t *testing.T) {
	l := New(stores.NewMemoryCounterStore(), map[config.Tier]int{config.TierB: 1})

	d, err := l.Allow(context.Background(), "lic-1", license.PillarSeaside, config.TierB)
	require.NoError(t, err)
	assert.True(t, d.Admitted)

	d, err = l.Allow(context.Background(), "lic-1", license.PillarSeaside, config.TierB)
	require.NoError(t, err)
	assert.False(t, d.Admitted)
}

func TestLimiterUnlimitedTier(t *testing.T) {
	l := New(stores.NewMemoryCounterStore(), map[config.Tier]int{config.TierE: 0})

	for i := 0; i < 5; i++ {
		d, err := l.Allow(context.Background(), "lic-1", license.PillarSeaside, config.TierE)
		require.NoError(t, err)
		assert.True(t, d.Admitted)
	}
}

func TestLimiterPillarsIndependent(t *testing.T) {
	l := New(stores.NewMemoryCounterStore(), map[config.Tier]int{config.TierB: 1})

	d1, err := l.Allow(context.Background(), "lic-1", license.PillarSeaside, config.TierB)
	require.NoError(t, err)
	assert.True(t, d1.Admitted)

	d2, err := l.Allow(context.Background(), "lic-1", license.PillarDeckside, config.TierB)
	require.NoError(t, err)
	assert.True(t, d2.Admitted, "separate pillar must have its own bucket")
}
