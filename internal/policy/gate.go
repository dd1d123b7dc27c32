// Package policy implements the Policy Gate of §4.E: once a token is
// verified, not revoked, and within its rate limit, the gate applies
// the remaining type-specific rules before admission.
package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/seatrace-io/leg/internal/classifier"
	"github.com/seatrace-io/leg/internal/correlation"
	"github.com/seatrace-io/leg/internal/gatewayerr"
	"github.com/seatrace-io/leg/internal/stores"
	"github.com/seatrace-io/leg/pkg/license"
)

// throttleRetryAfterSecs is the fixed Retry-After a throttled overage
// reports (§4.E): 24 hours, the same cooldown regardless of resource.
const throttleRetryAfterSecs = 24 * 60 * 60

// Request is the subset of an inbound HTTP request the gate needs.
type Request struct {
	Method string
	Path   string
	Host   string
}

// Outcome carries the gate's decision plus any response headers it
// wants attached (e.g. X-Quota-Warning, §6.2).
type Outcome struct {
	Headers map[string]string
}

// Gate applies §4.E's rules, dispatching on the claim's Kind().
type Gate struct {
	Classifier        *classifier.Classifier
	GracePeriod       time.Duration
	Counters          stores.CounterStore
	Idempotency       stores.IdempotencySet
	OverageRates      map[string]float64
	IdempotencyExpiry time.Duration
	Sink              correlation.Sink
	now               func() time.Time
}

// New constructs a Gate. sink receives the billing events a "bill"
// overage policy emits (§4.E/§4.G); a nil sink silently drops them.
func New(cls *classifier.Classifier, gracePeriod time.Duration, counters stores.CounterStore, idem stores.IdempotencySet, overageRates map[string]float64, idemExpiry time.Duration, sink correlation.Sink) *Gate {
	return &Gate{
		Classifier:        cls,
		GracePeriod:       gracePeriod,
		Counters:          counters,
		Idempotency:       idem,
		OverageRates:      overageRates,
		IdempotencyExpiry: idemExpiry,
		Sink:              sink,
		now:               time.Now,
	}
}

func (g *Gate) nowFunc() time.Time {
	if g.now != nil {
		return g.now()
	}
	return time.Now()
}

// Check applies the gate to a verified, non-revoked, rate-limit-passing
// claim.
func (g *Gate) Check(ctx context.Context, req Request, claims license.Claims) (Outcome, error) {
	switch c := claims.(type) {
	case *license.PulClaims:
		return g.checkPUL(req, c)
	case *license.PlClaims:
		return g.checkPL(ctx, req, c)
	default:
		return Outcome{}, gatewayerr.Unauthorized(gatewayerr.CodeMalformed, "unrecognized claims type")
	}
}

func (g *Gate) checkPUL(req Request, c *license.PulClaims) (Outcome, error) {
	if !g.Classifier.InScope(req.Method, req.Path) {
		return Outcome{}, gatewayerr.Forbidden(gatewayerr.CodeRouteNotInScope, "route is not part of the public scope")
	}
	if c.ScopeDigest != g.Classifier.ScopeDigest() {
		return Outcome{}, gatewayerr.Unauthorized(gatewayerr.CodeScopeMismatch, "token scope digest does not match current public scope")
	}
	return Outcome{Headers: map[string]string{
		"X-License-Scope-Digest": c.ScopeDigest,
	}}, nil
}

func (g *Gate) checkPL(ctx context.Context, req Request, c *license.PlClaims) (Outcome, error) {
	headers := map[string]string{}

	graceDeadline := c.Exp.Add(g.GracePeriod)
	now := g.nowFunc()
	if now.After(graceDeadline) {
		return Outcome{}, gatewayerr.Unauthorized(gatewayerr.CodeExpiredBeyondGrace, "license expired beyond grace period")
	}
	if now.After(c.Exp) {
		headers["X-Quota-Warning"] = "license expired, operating within grace period"
	}

	if !c.DomainAuthorized(req.Host) {
		return Outcome{}, gatewayerr.Forbidden(gatewayerr.CodeDomainNotAuthorized, "request host is not in the license's domain bind set")
	}

	if err := g.enforceQuota(ctx, c, headers); err != nil {
		return Outcome{}, err
	}

	return Outcome{Headers: headers}, nil
}

// enforceQuota applies the per-resource monthly limit/overage policy
// of §4.E. Resource usage is tracked per (license, resource, month)
// so the counter resets naturally at a month boundary.
func (g *Gate) enforceQuota(ctx context.Context, c *license.PlClaims, headers map[string]string) error {
	if len(c.Limits) == 0 {
		return nil
	}
	month := g.nowFunc().Format("2006-01")
	for resource, limit := range c.Limits {
		if limit <= 0 {
			continue
		}
		key := fmt.Sprintf("quota:%s:%s:%s", c.LicenseID, resource, month)
		used, err := g.Counters.Get(ctx, key)
		if err != nil {
			continue // fail open on store errors (§4.D precedent)
		}
		if used < int64(limit) {
			continue
		}

		switch c.OveragePolicy {
		case license.OverageBlock, "":
			return gatewayerr.PaymentRequired(gatewayerr.CodePaymentRequired, fmt.Sprintf("%s quota exceeded", resource))
		case license.OverageThrottle:
			return gatewayerr.TooManyRequests(gatewayerr.CodeTooManyRequests, fmt.Sprintf("%s over quota, throttled", resource), throttleRetryAfterSecs)
		case license.OverageBill:
			overage := used - int64(limit) + 1
			g.recordOverage(ctx, c, resource, int64(limit), used+1, overage)
			headers["X-Quota-Warning"] = fmt.Sprintf("%s over quota, billing overage", resource)
		}
	}
	return nil
}

// recordOverage emits the billing event a "bill" overage policy
// requires (§4.E/§4.G): license_id, org, resource, limit, usage,
// overage quantity, per-unit rate, and computed cost, via the same
// correlation sink the pipeline's admission decisions use.
func (g *Gate) recordOverage(ctx context.Context, c *license.PlClaims, resource string, limit, usage, overageUnits int64) {
	if g.Sink == nil {
		return
	}
	rate := g.OverageRates[resource]
	g.Sink.Record(ctx, correlation.Event{
		Event:        "billing_overage",
		LicenseID:    c.LicenseID,
		Organization: c.Org,
		Outcome:      "bill",
		Resource:     resource,
		Limit:        limit,
		Usage:        usage,
		OverageUnits: overageUnits,
		RatePerUnit:  rate,
		Cost:         rate * float64(overageUnits),
	})
}

// RecordUsage increments a metered resource's monthly counter, guarded
// by an Idempotency-Key so retried requests don't double-bill (§4.G).
// It returns whether the counter was incremented and the resource's
// monthly usage count after the increment. A consumed key stays recorded
// until IdempotencyExpiry past the end of the current month.
func (g *Gate) RecordUsage(ctx context.Context, licenseID, resource, idempotencyKey string) (billed bool, usage int64, err error) {
	if idempotencyKey != "" {
		now := g.nowFunc()
		periodEnd := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
		fresh, err := g.Idempotency.AddIfAbsent(ctx, idempotencyKey, periodEnd.Sub(now)+g.IdempotencyExpiry)
		if err != nil {
			return false, 0, err
		}
		if !fresh {
			return false, 0, nil
		}
	}

	month := g.nowFunc().Format("2006-01")
	key := fmt.Sprintf("quota:%s:%s:%s", licenseID, resource, month)
	count, err := g.Counters.Incr(ctx, key)
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		_ = g.Counters.SetTTL(ctx, key, 31*24*time.Hour)
	}
	return true, count, nil
}

// OverageCost reports the cost of units of a metered resource at its
// configured per-unit billing rate (§9 Open Questions: configuration,
// not code).
func (g *Gate) OverageCost(resource string, units int64) float64 {
	return g.OverageRates[resource] * float64(units)
}
