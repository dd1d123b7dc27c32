package license

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/seatrace-io/leg/pkg/config"
)

var validate = validator.New()

// Segments splits the compact JWS serialization (§6.1) into its three
// base64url parts. Any shape other than exactly three segments is
// Malformed (§4.B).
func Segments(token string) (header, claims, signature string, ok bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", "", "", false
	}
	if parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// SigningInput reconstructs the exact bytes that were signed:
// base64url(header) || '.' || base64url(claims).
func SigningInput(headerB64, claimsB64 string) []byte {
	return []byte(headerB64 + "." + claimsB64)
}

// DecodeBase64URL decodes an unpadded base64url segment.
func DecodeBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

// DecodeHeader decodes and parses the header segment.
func DecodeHeader(headerB64 string) (*Header, error) {
	raw, err := DecodeBase64URL(headerB64)
	if err != nil {
		return nil, err
	}
	var h Header
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	if err := dec.Decode(&h); err != nil {
		return nil, err
	}
	return &h, nil
}

// rawClaims is the wire shape of §3's claim set before it is split
// into the PUL/PL sum type.
type rawClaims struct {
	Typ         string         `json:"typ"`
	LicenseID   string         `json:"license_id"`
	Org         string         `json:"org"`
	Tier        string         `json:"tier"`
	Exp         int64          `json:"exp"`
	ScopeDigest string         `json:"scope_digest"`
	Features    []string       `json:"features"`
	DomainBind  []string       `json:"domain_bind"`
	Limits      map[string]int `json:"limits"`
	Billing     struct {
		Overage string `json:"overage"`
	} `json:"billing"`
}

// DecodeClaims decodes the claims segment and builds the sum-type
// Claims value for its "typ" discriminator.
func DecodeClaims(claimsB64 string) (Claims, error) {
	raw, err := DecodeBase64URL(claimsB64)
	if err != nil {
		return nil, err
	}
	var rc rawClaims
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rc); err != nil {
		return nil, err
	}

	exp := time.Unix(rc.Exp, 0).UTC()

	switch Type(rc.Typ) {
	case TypePUL:
		c := &PulClaims{
			LicenseID:   rc.LicenseID,
			Org:         rc.Org,
			Exp:         exp,
			ScopeDigest: rc.ScopeDigest,
		}
		if err := validate.Struct(c); err != nil {
			return nil, err
		}
		return c, nil
	case TypePL:
		c := &PlClaims{
			LicenseID:     rc.LicenseID,
			Org:           rc.Org,
			Exp:           exp,
			Tier:          config.Tier(rc.Tier),
			Features:      toSet(rc.Features),
			DomainBind:    toSet(lowercaseAll(rc.DomainBind)),
			Limits:        rc.Limits,
			OveragePolicy: OveragePolicy(rc.Billing.Overage),
		}
		if err := validate.Struct(c); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, errUnknownType(rc.Typ)
	}
}

type unknownTypeError string

func (e unknownTypeError) Error() string { return "unknown license type: " + string(e) }

func errUnknownType(typ string) error { return unknownTypeError(typ) }

func toSet(items []string) map[string]struct{} {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

func lowercaseAll(items []string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = strings.ToLower(it)
	}
	return out
}

