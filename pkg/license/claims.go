// Package license implements the License Token (LT) data model of
// §3: a sum type dispatching on the token's "typ" claim, modeled as a
// tagged interface the way the design notes (§9) direct ("model this
// as a sum type ... dispatch on the tag").
package license

import (
	"strings"
	"time"

	"github.com/seatrace-io/leg/pkg/config"
)

// Pillar is one of the gateway's logical service surfaces (GLOSSARY).
type Pillar string

const (
	PillarSeaside    Pillar = "seaside"
	PillarDeckside   Pillar = "deckside"
	PillarDockside   Pillar = "dockside"
	PillarMarketside Pillar = "marketside"
)

// OveragePolicy is the PL billing.overage enum (§3).
type OveragePolicy string

const (
	OverageBill     OveragePolicy = "bill"
	OverageThrottle OveragePolicy = "throttle"
	OverageBlock    OveragePolicy = "block"
)

// Type is the token's "typ" claim discriminator.
type Type string

const (
	TypePUL Type = "PUL"
	TypePL  Type = "PL"
)

// Header is the JWS header (§6.1).
type Header struct {
	Alg string `json:"alg"`
	Kid string `json:"kid,omitempty"`
	Typ string `json:"typ,omitempty"`
}

// Claims is the sum type: every decoded, signature-verified token
// satisfies it, and callers dispatch on Kind() the way §9 directs.
type Claims interface {
	Kind() Type
	ID() string
	Organization() string
	ExpiresAt() time.Time
}

// PulClaims is the "PUL" (public-unlimited) variant of §3.
type PulClaims struct {
	LicenseID   string    `json:"license_id" validate:"required"`
	Org         string    `json:"org"`
	Exp         time.Time `json:"-"`
	ScopeDigest string    `json:"scope_digest" validate:"required"`
}

func (c *PulClaims) Kind() Type             { return TypePUL }
func (c *PulClaims) ID() string             { return c.LicenseID }
func (c *PulClaims) Organization() string   { return c.Org }
func (c *PulClaims) ExpiresAt() time.Time   { return c.Exp }

// PlClaims is the "PL" (private-limited) variant of §3.
type PlClaims struct {
	LicenseID     string              `json:"license_id" validate:"required"`
	Org           string              `json:"org"`
	Exp           time.Time           `json:"-"`
	Tier          config.Tier         `json:"tier" validate:"required,oneof=PL-B PL-P PL-E"`
	Features      map[string]struct{} `json:"-"`
	DomainBind    map[string]struct{} `json:"-"`
	Limits        map[string]int      `json:"limits,omitempty"`
	OveragePolicy OveragePolicy       `json:"-" validate:"omitempty,oneof=bill throttle block"`
}

func (c *PlClaims) Kind() Type           { return TypePL }
func (c *PlClaims) ID() string           { return c.LicenseID }
func (c *PlClaims) Organization() string { return c.Org }
func (c *PlClaims) ExpiresAt() time.Time { return c.Exp }

// HasFeature reports whether the token's entitlement set contains the
// given feature identifier. Endpoints guard themselves with this
// predicate (§4.E: the gateway exports the capability, it does not
// gate on it directly).
func (c *PlClaims) HasFeature(feature string) bool {
	_, ok := c.Features[feature]
	return ok
}

// DomainAuthorized reports whether host is permitted by domain_bind.
// An empty bind set means no restriction. The comparison ignores case.
func (c *PlClaims) DomainAuthorized(host string) bool {
	if len(c.DomainBind) == 0 {
		return true
	}
	_, ok := c.DomainBind[strings.ToLower(host)]
	return ok
}
