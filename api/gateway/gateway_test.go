package gateway

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatrace-io/leg/internal/admission"
	"github.com/seatrace-io/leg/internal/classifier"
	"github.com/seatrace-io/leg/internal/correlation"
	"github.com/seatrace-io/leg/internal/keys"
	"github.com/seatrace-io/leg/internal/pipeline"
	"github.com/seatrace-io/leg/internal/policy"
	"github.com/seatrace-io/leg/internal/ratelimit"
	"github.com/seatrace-io/leg/internal/revocation"
	"github.com/seatrace-io/leg/internal/stores"
	"github.com/seatrace-io/leg/pkg/config"
)

type staticKeySource struct{ entries []keys.Entry }

func (s *staticKeySource) Load(_ context.Context) ([]keys.Entry, error) { return s.entries, nil }

func sign(t *testing.T, priv ed25519.PrivateKey, kid string, claims map[string]any) string {
	t.Helper()
	hb, _ := json.Marshal(map[string]string{"alg": "EdDSA", "kid": kid})
	cb, _ := json.Marshal(claims)
	headerB64 := base64.RawURLEncoding.EncodeToString(hb)
	claimsB64 := base64.RawURLEncoding.EncodeToString(cb)
	sig := ed25519.Sign(priv, []byte(headerB64+"."+claimsB64))
	return headerB64 + "." + claimsB64 + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func TestGatewayAdmitsAndProxies(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	dir, err := keys.New(context.Background(), &staticKeySource{entries: []keys.Entry{{Kid: "k1", PublicKey: pub, Status: keys.StatusActive}}})
	require.NoError(t, err)
	verifier := keys.NewVerifier(dir, "k1", 0, 0)

	crl, err := revocation.New(context.Background(), revocation.NewMemoryStore(), 1000, 0.01)
	require.NoError(t, err)
	limiter := ratelimit.New(stores.NewMemoryCounterStore(), config.DefaultRateLimits())
	cls := classifier.New([]classifier.Route{{Method: "GET", Path: "/seaside/public"}})
	gate := policy.New(cls, 336*time.Hour, stores.NewMemoryCounterStore(), stores.NewMemoryIdempotencySet(), nil, 960*time.Hour, correlation.LogSink{})
	adm := admission.New(10, nil, admission.Config{SponsorPermits: 4, FreePermits: 4})

	p := &pipeline.Pipeline{
		Verifier: verifier, CRL: crl, Limiter: limiter, Gate: gate,
		Admission: adm, Classifier: cls, Sink: correlation.LogSink{},
	}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstream.Close()
	upstreamURL, _ := url.Parse(upstream.URL)

	handler := New(p, Config{Upstream: upstreamURL, AllowedOrigins: "*"})

	token := sign(t, priv, "k1", map[string]any{
		"typ": "PUL", "license_id": "lic-1", "exp": time.Now().Add(time.Hour).Unix(),
		"scope_digest": cls.ScopeDigest(),
	})

	req := httptest.NewRequest(http.MethodGet, "/seaside/public", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "lic-1", rr.Header().Get("X-License-Id"))
}

func TestGatewayRejectsMissingTokenOnPrivateRoute(t *testing.T) {
	dir, err := keys.New(context.Background(), &staticKeySource{})
	require.NoError(t, err)
	verifier := keys.NewVerifier(dir, "k1", 0, 0)
	crl, err := revocation.New(context.Background(), revocation.NewMemoryStore(), 1000, 0.01)
	require.NoError(t, err)
	limiter := ratelimit.New(stores.NewMemoryCounterStore(), config.DefaultRateLimits())
	cls := classifier.New(nil)
	gate := policy.New(cls, 336*time.Hour, stores.NewMemoryCounterStore(), stores.NewMemoryIdempotencySet(), nil, 960*time.Hour, correlation.LogSink{})
	adm := admission.New(10, nil, admission.Config{SponsorPermits: 4, FreePermits: 4})

	p := &pipeline.Pipeline{
		Verifier: verifier, CRL: crl, Limiter: limiter, Gate: gate,
		Admission: adm, Classifier: cls, Sink: correlation.LogSink{},
	}

	upstreamURL, _ := url.Parse("http://localhost:1")
	handler := New(p, Config{Upstream: upstreamURL, AllowedOrigins: "*"})

	req := httptest.NewRequest(http.MethodGet, "/seaside/public", nil)
	rr := httptest.NewRecorder()
	handler(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestGatewayAdmitsMissingTokenOnPublicRoute(t *testing.T) {
	dir, err := keys.New(context.Background(), &staticKeySource{})
	require.NoError(t, err)
	verifier := keys.NewVerifier(dir, "k1", 0, 0)
	crl, err := revocation.New(context.Background(), revocation.NewMemoryStore(), 1000, 0.01)
	require.NoError(t, err)
	limiter := ratelimit.New(stores.NewMemoryCounterStore(), config.DefaultRateLimits())
	cls := classifier.New([]classifier.Route{{Method: "GET", Path: "/seaside/public"}})
	gate := policy.New(cls, 336*time.Hour, stores.NewMemoryCounterStore(), stores.NewMemoryIdempotencySet(), nil, 960*time.Hour, correlation.LogSink{})
	adm := admission.New(10, nil, admission.Config{SponsorPermits: 4, FreePermits: 4})

	p := &pipeline.Pipeline{
		Verifier: verifier, CRL: crl, Limiter: limiter, Gate: gate,
		Admission: adm, Classifier: cls, Sink: correlation.LogSink{},
	}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstream.Close()
	upstreamURL, _ := url.Parse(upstream.URL)
	handler := New(p, Config{Upstream: upstreamURL, AllowedOrigins: "*"})

	req := httptest.NewRequest(http.MethodGet, "/seaside/public", nil)
	rr := httptest.NewRecorder()
	handler(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}
