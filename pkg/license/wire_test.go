package license

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

func TestSegmentsRejectsWrongShape(t *testing.T) {
	_, _, _, ok := Segments("only.two")
	assert.False(t, ok)

	_, _, _, ok = Segments("a..c")
	assert.False(t, ok)

	h, c, s, ok := Segments("a.b.c")
	require.True(t, ok)
	assert.Equal(t, "a", h)
	assert.Equal(t, "b", c)
	assert.Equal(t, "c", s)
}

func TestDecodeHeader(t *testing.T) {
	headerB64 := b64(Header{Alg: "EdDSA", Kid: "key-1", Typ: "JWT"})
	h, err := DecodeHeader(headerB64)
	require.NoError(t, err)
	assert.Equal(t, "EdDSA", h.Alg)
	assert.Equal(t, "key-1", h.Kid)
}

func TestDecodeClaimsPUL(t *testing.T) {
	claimsB64 := b64(rawClaims{
		Typ:         "PUL",
		LicenseID:   "lic-1",
		Org:         "acme",
		Exp:         time.Now().Add(time.Hour).Unix(),
		ScopeDigest: "deadbeef",
	})

	claims, err := DecodeClaims(claimsB64)
	require.NoError(t, err)

	pul, ok := claims.(*PulClaims)
	require.True(t, ok)
	assert.Equal(t, TypePUL, pul.Kind())
	assert.Equal(t, "lic-1", pul.ID())
	assert.Equal(t, "deadbeef", pul.ScopeDigest)
}

func TestDecodeClaimsPL(t *testing.T) {
	claimsB64 := b64(rawClaims{
		Typ:        "PL",
		LicenseID:  "lic-2",
		Org:        "acme",
		Tier:       "PL-B",
		Exp:        time.Now().Add(time.Hour).Unix(),
		Features:   []string{"beta"},
		DomainBind: []string{"API.Example.com"},
		Limits:     map[string]int{"qr_scans": 1000},
	})

	claims, err := DecodeClaims(claimsB64)
	require.NoError(t, err)

	pl, ok := claims.(*PlClaims)
	require.True(t, ok)
	assert.Equal(t, TypePL, pl.Kind())
	assert.True(t, pl.HasFeature("beta"))
	assert.True(t, pl.DomainAuthorized("api.example.com"), "domain_bind entries are matched case-insensitively")
	assert.False(t, pl.DomainAuthorized("other.example.com"))
}

func TestDecodeClaimsUnknownType(t *testing.T) {
	claimsB64 := b64(rawClaims{Typ: "BOGUS", LicenseID: "lic-3"})
	_, err := DecodeClaims(claimsB64)
	assert.Error(t, err)
}

func TestDecodeClaimsMissingRequiredField(t *testing.T) {
	claimsB64 := b64(rawClaims{Typ: "PUL", Org: "acme"})
	_, err := DecodeClaims(claimsB64)
	assert.Error(t, err, "missing license_id/scope_digest should fail struct validation")
}
