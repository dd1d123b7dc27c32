package policy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatrace-io/leg/internal/classifier"
	"github.com/seatrace-io/leg/internal/correlation"
	"github.com/seatrace-io/leg/internal/gatewayerr"
	"github.com/seatrace-io/leg/internal/stores"
	"github.com/seatrace-io/leg/pkg/config"
	"github.com/seatrace-io/leg/pkg/license"
)

func newGate() *Gate {
	cls := classifier.New([]classifier.Route{{Method: "GET", Path: "/v1/public"}})
	return New(cls, 336*time.Hour, stores.NewMemoryCounterStore(), stores.NewMemoryIdempotencySet(), map[string]float64{"qr_scans": 0.01}, 960*time.Hour, correlation.LogSink{})
}

func TestCheckPULInScope(t *testing.T) {
	g := newGate()
	c := &license.PulClaims{LicenseID: "lic-1", ScopeDigest: g.Classifier.ScopeDigest(), Exp: time.Now().Add(time.Hour)}

	out, err := g.Check(context.Background(), Request{Method: "GET", Path: "/v1/public"}, c)
	require.NoError(t, err)
	assert.Equal(t, g.Classifier.ScopeDigest(), out.Headers["X-License-Scope-Digest"])
}

func TestCheckPULRouteNotInScope(t *testing.T) {
	g := newGate()
	c := &license.PulClaims{LicenseID: "lic-1", ScopeDigest: g.Classifier.ScopeDigest()}

	_, err := g.Check(context.Background(), Request{Method: "DELETE", Path: "/v1/private"}, c)
	require.Error(t, err)
}

func TestCheckPULScopeMismatch(t *testing.T) {
	g := newGate()
	c := &license.PulClaims{LicenseID: "lic-1", ScopeDigest: "stale-digest"}

	_, err := g.Check(context.Background(), Request{Method: "GET", Path: "/v1/public"}, c)
	require.Error(t, err)
}

func TestCheckPLWithinGracePeriod(t *testing.T) {
	g := newGate()
	c := &license.PlClaims{LicenseID: "lic-2", Tier: config.TierB, Exp: time.Now().Add(-time.Hour)}

	out, err := g.Check(context.Background(), Request{Method: "GET", Path: "/v1/anything"}, c)
	require.NoError(t, err)
	assert.Contains(t, out.Headers["X-Quota-Warning"], "grace period")
}

func TestCheckPLBeyondGracePeriod(t *testing.T) {
	g := newGate()
	c := &license.PlClaims{LicenseID: "lic-2", Tier: config.TierB, Exp: time.Now().Add(-400 * time.Hour)}

	_, err := g.Check(context.Background(), Request{Method: "GET", Path: "/v1/anything"}, c)
	require.Error(t, err)
}

func TestCheckPLDomainNotAuthorized(t *testing.T) {
	g := newGate()
	c := &license.PlClaims{
		LicenseID:  "lic-2",
		Tier:       config.TierB,
		Exp:        time.Now().Add(time.Hour),
		DomainBind: map[string]struct{}{"allowed.example.com": {}},
	}

	_, err := g.Check(context.Background(), Request{Method: "GET", Path: "/x", Host: "other.example.com"}, c)
	require.Error(t, err)
}

func TestQuotaBlockAfterLimit(t *testing.T) {
	g := newGate()
	c := &license.PlClaims{
		LicenseID:     "lic-3",
		Tier:          config.TierB,
		Exp:           time.Now().Add(time.Hour),
		Limits:        map[string]int{"qr_scans": 1},
		OveragePolicy: license.OverageBlock,
	}

	_, _, err := g.RecordUsage(context.Background(), "lic-3", "qr_scans", "idem-1")
	require.NoError(t, err)

	_, err = g.Check(context.Background(), Request{Method: "GET", Path: "/x"}, c)
	require.Error(t, err)
}

func TestQuotaThrottleRejects(t *testing.T) {
	g := newGate()
	c := &license.PlClaims{
		LicenseID:     "lic-throttle",
		Tier:          config.TierB,
		Exp:           time.Now().Add(time.Hour),
		Limits:        map[string]int{"qr_scans": 1},
		OveragePolicy: license.OverageThrottle,
	}

	_, _, err := g.RecordUsage(context.Background(), "lic-throttle", "qr_scans", "idem-throttle")
	require.NoError(t, err)

	_, err = g.Check(context.Background(), Request{Method: "GET", Path: "/x"}, c)
	require.Error(t, err)
	gerr, ok := err.(*gatewayerr.Error)
	require.True(t, ok)
	assert.Equal(t, gatewayerr.CodeTooManyRequests, gerr.Code)
	assert.Equal(t, 24*60*60, gerr.RetryAfterSeconds)
}

type capturingSink struct{ events []correlation.Event }

func (s *capturingSink) Record(_ context.Context, e correlation.Event) {
	s.events = append(s.events, e)
}

func TestQuotaBillEmitsBillingEvent(t *testing.T) {
	cls := classifier.New([]classifier.Route{{Method: "GET", Path: "/v1/public"}})
	sink := &capturingSink{}
	g := New(cls, 336*time.Hour, stores.NewMemoryCounterStore(), stores.NewMemoryIdempotencySet(), map[string]float64{"qr_scans": 0.5}, 960*time.Hour, sink)

	c := &license.PlClaims{
		LicenseID:     "lic-bill",
		Org:           "org-1",
		Tier:          config.TierB,
		Exp:           time.Now().Add(time.Hour),
		Limits:        map[string]int{"qr_scans": 1},
		OveragePolicy: license.OverageBill,
	}

	_, _, err := g.RecordUsage(context.Background(), "lic-bill", "qr_scans", "idem-bill")
	require.NoError(t, err)

	out, err := g.Check(context.Background(), Request{Method: "GET", Path: "/x"}, c)
	require.NoError(t, err)
	assert.Contains(t, out.Headers["X-Quota-Warning"], "billing overage")

	require.Len(t, sink.events, 1)
	assert.Equal(t, "lic-bill", sink.events[0].LicenseID)
	assert.Equal(t, "org-1", sink.events[0].Organization)
	assert.Equal(t, "qr_scans", sink.events[0].Resource)
	assert.EqualValues(t, 1, sink.events[0].Limit)
	assert.EqualValues(t, 1, sink.events[0].OverageUnits)
	assert.Equal(t, 0.5, sink.events[0].RatePerUnit)
	assert.Equal(t, 0.5, sink.events[0].Cost)
}

func TestRecordUsageIdempotent(t *testing.T) {
	g := newGate()

	billed1, _, err := g.RecordUsage(context.Background(), "lic-4", "qr_scans", "idem-key")
	require.NoError(t, err)
	assert.True(t, billed1)

	billed2, _, err := g.RecordUsage(context.Background(), "lic-4", "qr_scans", "idem-key")
	require.NoError(t, err)
	assert.False(t, billed2, "a repeated idempotency key must not double count")
}
