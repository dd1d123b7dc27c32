// Package health reports the gateway's liveness: whether the Key
// Directory and the Revocation Check's Bloom filter have refreshed
// recently, adapted from the teacher's chain-sync health check to the
// gateway's two background refresh loops.
package health

import (
	"time"
)

// Status is the health snapshot returned by the admin health endpoint.
type Status struct {
	Healthy               bool       `json:"healthy"`
	KeyDirectoryStale     bool       `json:"keyDirectoryStale"`
	RevocationCacheStale  bool       `json:"revocationCacheStale"`
	LastRevocationRebuild *time.Time `json:"lastRevocationRebuild"`
}

// KeyDirectoryProbe reports when the key directory last refreshed.
type KeyDirectoryProbe interface {
	LastReloaded() time.Time
}

// RevocationProbe reports the Bloom filter's last rebuild time.
type RevocationProbe interface {
	LastRebuilt() *time.Time
}

// Health computes Status from the two background refresh loops.
type Health struct {
	keys       KeyDirectoryProbe
	revocation RevocationProbe
	tolerance  time.Duration
}

func New(keys KeyDirectoryProbe, revocation RevocationProbe, tolerance time.Duration) *Health {
	return &Health{keys: keys, revocation: revocation, tolerance: tolerance}
}

// Status computes current liveness: stale if either background
// refresh loop hasn't completed within tolerance.
func (h *Health) Status() (*Status, error) {
	now := time.Now()
	keyStale := now.Sub(h.keys.LastReloaded()) > h.tolerance
	rebuiltAt := h.revocation.LastRebuilt()
	revStale := rebuiltAt == nil || now.Sub(*rebuiltAt) > h.tolerance

	return &Status{
		Healthy:               !keyStale && !revStale,
		KeyDirectoryStale:     keyStale,
		RevocationCacheStale:  revStale,
		LastRevocationRebuild: rebuiltAt,
	}, nil
}
