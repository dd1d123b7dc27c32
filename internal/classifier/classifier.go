// Package classifier implements the Route Classifier of §4.A: an
// immutable set of public "METHOD:path" route keys, built once at
// startup, plus the Public-Scope Digest (§3) PUL tokens are checked
// against.
package classifier

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Route is one publicly reachable endpoint (§4.A tags routes at
// registration time as part of the public scope).
type Route struct {
	Method string
	Path   string
}

func (r Route) key() string {
	return strings.ToUpper(r.Method) + ":" + r.Path
}

// Classifier holds the immutable set of public routes computed once
// at startup from the router's tagged route table.
type Classifier struct {
	set    map[string]struct{}
	digest string
}

// New builds a Classifier from the full set of routes tagged public.
// The set and its digest are fixed for the Classifier's lifetime: a
// route added after startup is not in scope until redeploy (§9 design
// notes: the route table is immutable process-lifetime state).
func New(routes []Route) *Classifier {
	set := make(map[string]struct{}, len(routes))
	keys := make([]string, 0, len(routes))
	for _, r := range routes {
		k := r.key()
		if _, dup := set[k]; dup {
			continue
		}
		set[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Classifier{set: set, digest: computeDigest(keys)}
}

func computeDigest(sortedKeys []string) string {
	h := sha256.New()
	for _, k := range sortedKeys {
		h.Write([]byte(k))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// InScope reports whether method+path is part of the public route set.
func (c *Classifier) InScope(method, path string) bool {
	_, ok := c.set[Route{Method: method, Path: path}.key()]
	return ok
}

// ScopeDigest is the Public-Scope Digest (§3): a content hash of the
// public route set, matched against a PUL token's scope_digest claim
// so a token signed against an older or different public surface is
// rejected rather than silently admitted (§4.E).
func (c *Classifier) ScopeDigest() string {
	return c.digest
}
