// Package pipeline wires the six admission components into the fixed
// order of §2: Route Classifier, Token Verifier, Revocation Check,
// Rate Limiter, Policy Gate, Admission Controller. Each stage reduces
// the running Context and either admits, rejects, or passes control on
// (§9: modeled as a three-case Decision rather than a boolean).
package pipeline

import (
	stdctx "context"
	"net/http"
	"strconv"
	"time"

	"github.com/seatrace-io/leg/internal/admission"
	"github.com/seatrace-io/leg/internal/classifier"
	"github.com/seatrace-io/leg/internal/correlation"
	"github.com/seatrace-io/leg/internal/gatewayerr"
	"github.com/seatrace-io/leg/internal/keys"
	"github.com/seatrace-io/leg/internal/obslog"
	"github.com/seatrace-io/leg/internal/policy"
	"github.com/seatrace-io/leg/internal/ratelimit"
	"github.com/seatrace-io/leg/internal/revocation"
	"github.com/seatrace-io/leg/pkg/config"
	"github.com/seatrace-io/leg/pkg/license"
)

var logger = obslog.WithContext("pkg", "pipeline")

// Kind discriminates the three terminal shapes a stage can hand back
// (§9 design note: "no boolean short-circuit, a sum type of outcomes").
type Kind int

const (
	KindContinue Kind = iota
	KindAdmit
	KindReject
)

// Decision is the outcome of running the pipeline (or one stage of it).
type Decision struct {
	Kind    Kind
	Err     *gatewayerr.Error
	Context Context
	Release admission.Release
}

// Context accumulates everything later stages need, threaded through
// the fixed stage order.
type Context struct {
	CorrelationID string
	Claims        license.Claims
	Pillar        license.Pillar
	IsSponsor     bool
	Headers       map[string]string
}

// Pipeline holds the six wired components.
type Pipeline struct {
	Verifier   *keys.Verifier
	CRL        *revocation.CRL
	Limiter    *ratelimit.Limiter
	Gate       *policy.Gate
	Admission  *admission.Controller
	Classifier *classifier.Classifier
	Sink       correlation.Sink
	Tiers      map[config.Tier]int
}

// Inbound is the request data the pipeline needs, extracted by the
// HTTP transport layer so this package stays net/http-agnostic beyond
// the one response-shaping boundary below.
type Inbound struct {
	Method string
	Path   string
	Host   string
	Token  string
	Pillar license.Pillar

	// Resource and IdempotencyKey apply only to metered operations
	// (§4.G); both are empty on a non-metered request.
	Resource       string
	IdempotencyKey string
}

// Run executes the pipeline's stages in §2's fixed order. The Route
// Classifier runs first and, unlike the rest of the stages, ahead of
// the Token Verifier: a missing token is not an automatic rejection,
// only a signal that the request must resolve to a public route (§2:
// "Route Classifier → (if token present) Token Verifier → ..."). On
// KindAdmit, callers must invoke Decision.Release once the request has
// finished (it is nil otherwise).
func (p *Pipeline) Run(ctx stdctx.Context, in Inbound) Decision {
	start := time.Now()
	correlationID := correlation.New()

	if in.Token == "" {
		if !p.Classifier.InScope(in.Method, in.Path) {
			gerr := gatewayerr.Forbidden(gatewayerr.CodeRouteRequiresLicense, "route requires a license token")
			return p.reject(ctx, correlationID, in, start, gerr, "")
		}
		return p.admitUnauthenticated(ctx, correlationID, in, start)
	}

	header, claims, err := p.Verifier.Verify(ctx, in.Token)
	if err != nil {
		return p.reject(ctx, correlationID, in, start, err.(*gatewayerr.Error), "")
	}
	_ = header

	if revoked, rerr := p.CRL.IsRevoked(ctx, claims.ID()); rerr == nil && revoked {
		gerr := gatewayerr.Forbidden(gatewayerr.CodeRevoked, "license has been revoked")
		return p.reject(ctx, correlationID, in, start, gerr, claims.ID())
	}

	tier := tierOf(claims)
	rl, _ := p.Limiter.Allow(ctx, claims.ID(), in.Pillar, tier)
	if !rl.Admitted {
		gerr := gatewayerr.TooManyRequests(gatewayerr.CodeTooManyRequests, "rate limit exceeded", rl.ResetSecs)
		d := p.reject(ctx, correlationID, in, start, gerr, claims.ID())
		for k, v := range rateLimitHeaders(rl) {
			d.Context.Headers[k] = v
		}
		return d
	}

	out, gerr := p.Gate.Check(ctx, policy.Request{Method: in.Method, Path: in.Path, Host: in.Host}, claims)
	if gerr != nil {
		return p.reject(ctx, correlationID, in, start, gerr.(*gatewayerr.Error), claims.ID())
	}

	p.recordMeteredUsage(ctx, claims, in)

	isSponsor := claims.Kind() == license.TypePL
	release, aerr := p.Admission.Acquire(ctx, in.Pillar, isSponsor)
	if aerr != nil {
		gerr := gatewayerr.New(http.StatusServiceUnavailable, gatewayerr.CodeTooManyRequests, "admission pool unavailable")
		return p.reject(ctx, correlationID, in, start, gerr, claims.ID())
	}

	headers := mergeHeaders(rateLimitHeaders(rl), out.Headers)
	headers["X-Correlation-ID"] = correlationID
	headers["X-License-Type"] = string(claims.Kind())
	headers["X-License-Id"] = claims.ID()
	headers["X-License-Org"] = claims.Organization()

	p.Sink.Record(ctx, correlation.Event{
		Event: "admission", CorrelationID: correlationID, LicenseID: claims.ID(),
		Organization: claims.Organization(), Pillar: string(in.Pillar), Outcome: "admit",
		Duration: time.Since(start),
	})

	return Decision{
		Kind: KindAdmit,
		Context: Context{
			CorrelationID: correlationID, Claims: claims, Pillar: in.Pillar,
			IsSponsor: isSponsor, Headers: headers,
		},
		Release: release,
	}
}

// admitUnauthenticated admits a request to a public route with no
// token presented. The Admission Controller's concurrency bound still
// applies (§4.F bounds the call to the downstream handler regardless
// of auth); the request draws from the free sub-pool, the same as an
// authenticated PUL call.
func (p *Pipeline) admitUnauthenticated(ctx stdctx.Context, correlationID string, in Inbound, start time.Time) Decision {
	release, aerr := p.Admission.Acquire(ctx, in.Pillar, false)
	if aerr != nil {
		gerr := gatewayerr.New(http.StatusServiceUnavailable, gatewayerr.CodeTooManyRequests, "admission pool unavailable")
		return p.reject(ctx, correlationID, in, start, gerr, "")
	}

	p.Sink.Record(ctx, correlation.Event{
		Event: "admission", CorrelationID: correlationID, Pillar: string(in.Pillar), Outcome: "admit",
		Duration: time.Since(start),
	})

	return Decision{
		Kind: KindAdmit,
		Context: Context{
			CorrelationID: correlationID, Pillar: in.Pillar,
			Headers: map[string]string{"X-Correlation-ID": correlationID},
		},
		Release: release,
	}
}

// recordMeteredUsage increments the monthly counter for a metered
// resource the caller identified (§4.G). Only PL claims carry a
// limits table; a request that doesn't name a limited resource is not
// metered. Failures are logged and otherwise ignored — metering must
// not block an already-admitted request.
func (p *Pipeline) recordMeteredUsage(ctx stdctx.Context, claims license.Claims, in Inbound) {
	if in.Resource == "" {
		return
	}
	pl, ok := claims.(*license.PlClaims)
	if !ok {
		return
	}
	if limit, hasLimit := pl.Limits[in.Resource]; !hasLimit || limit <= 0 {
		return
	}
	if _, _, err := p.Gate.RecordUsage(ctx, claims.ID(), in.Resource, in.IdempotencyKey); err != nil {
		logger.Warn("record metered usage failed", "license_id", claims.ID(), "resource", in.Resource, "err", err)
	}
}

func (p *Pipeline) reject(ctx stdctx.Context, correlationID string, in Inbound, start time.Time, gerr *gatewayerr.Error, licenseID string) Decision {
	p.Sink.Record(ctx, correlation.Event{
		Event: "admission", CorrelationID: correlationID, LicenseID: licenseID,
		Pillar: string(in.Pillar), Outcome: "reject", Reason: string(gerr.Code),
		Duration: time.Since(start),
	})
	return Decision{
		Kind: KindReject,
		Err:  gerr,
		Context: Context{
			CorrelationID: correlationID,
			Headers:       map[string]string{"X-Correlation-ID": correlationID},
		},
	}
}

func tierOf(claims license.Claims) config.Tier {
	if pl, ok := claims.(*license.PlClaims); ok {
		return pl.Tier
	}
	return config.TierPUL
}

func rateLimitHeaders(d ratelimit.Decision) map[string]string {
	h := map[string]string{}
	if d.Limit > 0 {
		h["X-RateLimit-Limit"] = strconv.Itoa(d.Limit)
		h["X-RateLimit-Remaining"] = strconv.Itoa(d.Remaining)
		h["X-RateLimit-Reset"] = strconv.Itoa(d.ResetSecs)
	}
	return h
}

func mergeHeaders(maps ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
