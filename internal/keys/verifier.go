package keys

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/seatrace-io/leg/internal/gatewayerr"
	"github.com/seatrace-io/leg/pkg/license"
)

// supportedAlgorithms are the only JWS "alg" values the gateway accepts
// (§4.B: algorithm confusion is rejected outright, not negotiated). The
// issuer's signer may label Ed25519 signatures either way; both refer
// to the same primitive, so both must verify.
var supportedAlgorithms = map[string]struct{}{
	"EdDSA":   {},
	"Ed25519": {},
}

// Verifier implements the Token Verifier of §4.B: shape validation,
// algorithm pinning, kid resolution, Ed25519 signature verification,
// hard expiry, and timing-side-channel normalization.
type Verifier struct {
	Directory        *Directory
	DefaultKid       string
	MinLatency       time.Duration
	ClockSkewLeeway  time.Duration
	now              func() time.Time
}

// NewVerifier constructs a Verifier that reads the clock with time.Now.
func NewVerifier(dir *Directory, defaultKid string, minLatency, clockSkewLeeway time.Duration) *Verifier {
	return &Verifier{
		Directory:       dir,
		DefaultKid:      defaultKid,
		MinLatency:      minLatency,
		ClockSkewLeeway: clockSkewLeeway,
		now:             time.Now,
	}
}

// Verify decodes, authenticates, and checks the expiry of a compact
// JWS token, normalizing wall-clock time across every rejection path
// so a caller timing the response cannot distinguish failure reasons
// (§4.B, P2). It never blocks the scheduler: the floor is enforced via
// a cooperative select on a timer, cancelable through ctx.
func (v *Verifier) Verify(ctx context.Context, token string) (*license.Header, license.Claims, error) {
	start := time.Now()
	header, claims, err := v.verify(token)
	v.normalize(ctx, start)
	return header, claims, err
}

func (v *Verifier) verify(token string) (*license.Header, license.Claims, error) {
	headerB64, claimsB64, sigB64, ok := license.Segments(token)
	if !ok {
		return nil, nil, gatewayerr.Unauthorized(gatewayerr.CodeMalformed, "token must have exactly 3 segments")
	}

	header, err := license.DecodeHeader(headerB64)
	if err != nil {
		return nil, nil, gatewayerr.Unauthorized(gatewayerr.CodeMalformed, "invalid header encoding")
	}
	if _, ok := supportedAlgorithms[header.Alg]; !ok {
		return nil, nil, gatewayerr.Unauthorized(gatewayerr.CodeUnsupportedAlgo, "unsupported algorithm")
	}

	sig, err := license.DecodeBase64URL(sigB64)
	if err != nil {
		return nil, nil, gatewayerr.Unauthorized(gatewayerr.CodeMalformed, "invalid signature encoding")
	}

	entry, ok := v.resolveKey(header.Kid)
	if !ok {
		return nil, nil, gatewayerr.Unauthorized(gatewayerr.CodeUnknownKid, "unknown key id")
	}

	signingInput := license.SigningInput(headerB64, claimsB64)
	if !ed25519.Verify(entry.PublicKey, signingInput, sig) {
		return nil, nil, gatewayerr.Unauthorized(gatewayerr.CodeInvalidSignature, "signature verification failed")
	}

	claims, err := license.DecodeClaims(claimsB64)
	if err != nil {
		return nil, nil, gatewayerr.Unauthorized(gatewayerr.CodeMalformed, "invalid claims")
	}

	if v.expired(claims.ExpiresAt()) {
		return nil, nil, gatewayerr.Unauthorized(gatewayerr.CodeExpired, "token expired")
	}

	return header, claims, nil
}

func (v *Verifier) expired(exp time.Time) bool {
	return v.nowFunc().After(exp.Add(v.ClockSkewLeeway))
}

func (v *Verifier) nowFunc() time.Time {
	if v.now != nil {
		return v.now()
	}
	return time.Now()
}

// resolveKey selects the verification key for kid, falling back to the
// configured default kid when the header omits one, and performing a
// single opportunistic directory reload when kid is unrecognized
// (handles in-flight key rotation, §4.B).
func (v *Verifier) resolveKey(kid string) (Entry, bool) {
	if kid == "" {
		return v.Directory.Default(v.DefaultKid)
	}
	if e, ok := v.Directory.Lookup(kid); ok {
		return e, true
	}
	if err := v.Directory.Reload(context.Background()); err == nil {
		if e, ok := v.Directory.Lookup(kid); ok {
			return e, true
		}
	}
	return Entry{}, false
}

// normalize sleeps cooperatively until MinLatency has elapsed since
// start, so every verification outcome (malformed, unsupported
// algorithm, bad signature, expired, success) takes the same minimum
// wall-clock time regardless of which check rejected it. It suspends
// via a timer channel rather than a busy loop, and is cancelable
// through ctx so shutdown is never blocked by it.
func (v *Verifier) normalize(ctx context.Context, start time.Time) {
	if v.MinLatency <= 0 {
		return
	}
	remaining := v.MinLatency - time.Since(start)
	if remaining <= 0 {
		return
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
