// Package config loads the gateway's runtime configuration from the
// environment via envconfig, matching the ambient configuration style
// pulled in from the kgateway reference (the teacher repo configures
// itself through CLI flags only, which cmd/leg-gateway still uses for
// listen addresses; per-request tunables belong here instead).
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Tier is a PL license tier, or the PUL pseudo-tier, used as the rate
// limiter's ceiling lookup key (§3 per-tier table).
type Tier string

const (
	TierPUL Tier = "PUL"
	TierB   Tier = "PL-B"
	TierP   Tier = "PL-P"
	TierE   Tier = "PL-E"
)

// Config is the gateway's tunable runtime configuration.
type Config struct {
	// ListenAddr is the address the gateway's public HTTP surface binds to.
	ListenAddr string `envconfig:"LEG_LISTEN_ADDR" default:"localhost:8669"`
	// AdminAddr is the address the administrative API (§6.6) binds to.
	AdminAddr string `envconfig:"LEG_ADMIN_ADDR" default:"localhost:8670"`

	// KeyRefreshInterval is how often the Key Directory reloads (§4.B).
	KeyRefreshInterval time.Duration `envconfig:"LEG_KEY_REFRESH_INTERVAL" default:"1h"`
	// DefaultKid is used to select a key when the token header omits kid.
	DefaultKid string `envconfig:"LEG_DEFAULT_KID"`
	// VerifyMinLatency is the timing-side-channel normalization floor (§4.B, P2).
	VerifyMinLatency time.Duration `envconfig:"LEG_VERIFY_MIN_LATENCY" default:"1ms"`
	// ClockSkewLeeway tolerates verifier/issuer clock drift on exp checks
	// (restored from original_source; default 0 preserves §4.B/§4.E exactly).
	ClockSkewLeeway time.Duration `envconfig:"LEG_CLOCK_SKEW_LEEWAY" default:"0s"`

	// BloomCapacity and BloomFPR parameterize the Revocation Check's
	// Bloom filter (§3, §4.C defaults).
	BloomCapacity uint          `envconfig:"LEG_BLOOM_CAPACITY" default:"100000"`
	BloomFPR      float64       `envconfig:"LEG_BLOOM_FPR" default:"0.0001"`
	BloomRefresh  time.Duration `envconfig:"LEG_BLOOM_REFRESH_INTERVAL" default:"5m"`

	// GracePeriod is the PL post-expiry grace window (§4.E), default 14 days.
	GracePeriod time.Duration `envconfig:"LEG_GRACE_PERIOD" default:"336h"`

	// StoreTimeout is loaded from the environment (§5 Timeouts); no store
	// call in the gateway applies it, so store calls run without a
	// per-call timeout.
	StoreTimeout time.Duration `envconfig:"LEG_STORE_TIMEOUT" default:"5s"`

	// AdmissionPermits is the default total concurrency bound (§4.F).
	AdmissionPermits int64 `envconfig:"LEG_ADMISSION_PERMITS" default:"200"`
	// SponsorPermitsPerPillar / FreePermitsPerPillar split the priority
	// pools restored from original_source/src/common/licensing/priority.py.
	SponsorPermitsPerPillar int64 `envconfig:"LEG_SPONSOR_PERMITS_PER_PILLAR" default:"8"`
	FreePermitsPerPillar    int64 `envconfig:"LEG_FREE_PERMITS_PER_PILLAR" default:"2"`

	// RateLimits maps a tier to its requests-per-minute-per-pillar
	// ceiling (§3). A zero value means unlimited (PL-E).
	RateLimits map[Tier]int `ignored:"true"`

	// OverageRates maps a metered resource name to its per-unit billing
	// rate, consulted only for billing.overage == "bill" (§4.E, §9 Open
	// Questions: treated as configuration, not code constants).
	OverageRates map[string]float64 `ignored:"true"`

	// IdempotencyExpiry is how long a consumed Idempotency-Key remains
	// recorded after its billing period ends (§4.G).
	IdempotencyExpiry time.Duration `envconfig:"LEG_IDEMPOTENCY_EXPIRY" default:"960h"` // 40 days
}

// DefaultRateLimits is the tier ceiling table from §3.
func DefaultRateLimits() map[Tier]int {
	return map[Tier]int{
		TierPUL: 100,
		TierB:   1000,
		TierP:   10000,
		TierE:   0, // unlimited
	}
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	c.RateLimits = DefaultRateLimits()
	c.OverageRates = map[string]float64{
		"qr_scans":    0.01,
		"tx_per_month": 0.05,
	}
	return &c, nil
}
