package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeKeyProbe struct{ t time.Time }

func (f fakeKeyProbe) LastReloaded() time.Time { return f.t }

type fakeRevocationProbe struct{ t *time.Time }

func (f fakeRevocationProbe) LastRebuilt() *time.Time { return f.t }

func TestHealthyWhenBothRecent(t *testing.T) {
	now := time.Now()
	h := New(fakeKeyProbe{t: now}, fakeRevocationProbe{t: &now}, time.Minute)

	status, err := h.Status()
	assert.NoError(t, err)
	assert.True(t, status.Healthy)
}

func TestUnhealthyWhenKeyDirectoryStale(t *testing.T) {
	stale := time.Now().Add(-time.Hour)
	now := time.Now()
	h := New(fakeKeyProbe{t: stale}, fakeRevocationProbe{t: &now}, time.Minute)

	status, err := h.Status()
	assert.NoError(t, err)
	assert.False(t, status.Healthy)
	assert.True(t, status.KeyDirectoryStale)
}

func TestUnhealthyWhenRevocationNeverBuilt(t *testing.T) {
	now := time.Now()
	h := New(fakeKeyProbe{t: now}, fakeRevocationProbe{t: nil}, time.Minute)

	status, err := h.Status()
	assert.NoError(t, err)
	assert.False(t, status.Healthy)
	assert.True(t, status.RevocationCacheStale)
}
