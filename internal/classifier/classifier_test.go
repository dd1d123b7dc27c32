package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInScope(t *testing.T) {
	c := New([]Route{
		{Method: "GET", Path: "/v1/catch/public"},
		{Method: "POST", Path: "/v1/catch/public"},
	})

	assert.True(t, c.InScope("GET", "/v1/catch/public"))
	assert.True(t, c.InScope("get", "/v1/catch/public"))
	assert.False(t, c.InScope("DELETE", "/v1/catch/public"))
	assert.False(t, c.InScope("GET", "/v1/private"))
}

func TestScopeDigestStableAndOrderIndependent(t *testing.T) {
	a := New([]Route{{Method: "GET", Path: "/a"}, {Method: "GET", Path: "/b"}})
	b := New([]Route{{Method: "GET", Path: "/b"}, {Method: "GET", Path: "/a"}})

	assert.Equal(t, a.ScopeDigest(), b.ScopeDigest())
}

func TestScopeDigestChangesWithRouteSet(t *testing.T) {
	a := New([]Route{{Method: "GET", Path: "/a"}})
	b := New([]Route{{Method: "GET", Path: "/a"}, {Method: "GET", Path: "/c"}})

	assert.NotEqual(t, a.ScopeDigest(), b.ScopeDigest())
}
