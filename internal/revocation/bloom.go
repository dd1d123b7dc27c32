// Package revocation implements the Revocation Check of §4.C: a
// probabilistic Bloom filter fast path in front of an authoritative
// revocation store, rebuilt on a schedule and on demand.
package revocation

import (
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
)

// Bloom is a Bloom filter over license IDs, sized for a target
// capacity and false-positive rate (§3 Bloom Filter State). Membership
// is tested with Kirsch-Mitzenmacher double hashing: two independent
// 64-bit hashes combine to synthesize k hash functions without k
// separate hash computations.
type Bloom struct {
	bits *bitset.BitSet
	m    uint
	k    uint
	n    uint // number of items added
}

// NewBloom sizes a filter for capacity items at the given false
// positive rate, using the standard optimal-parameter formulas.
func NewBloom(capacity uint, fpr float64) *Bloom {
	m := optimalM(capacity, fpr)
	k := optimalK(m, capacity)
	return &Bloom{
		bits: bitset.New(m),
		m:    m,
		k:    k,
	}
}

func optimalM(n uint, p float64) uint {
	if n == 0 {
		n = 1
	}
	m := math.Ceil(-1 * float64(n) * math.Log(p) / (math.Ln2 * math.Ln2))
	if m < 1 {
		m = 1
	}
	return uint(m)
}

func optimalK(m, n uint) uint {
	if n == 0 {
		n = 1
	}
	k := math.Round(float64(m) / float64(n) * math.Ln2)
	if k < 1 {
		k = 1
	}
	return uint(k)
}

func (b *Bloom) indexes(key string) []uint {
	h1 := xxhash.Sum64String(key)
	h2 := xxhash.Sum64String(key + "\x00salt")
	idx := make([]uint, b.k)
	for i := uint(0); i < b.k; i++ {
		combined := h1 + uint64(i)*h2
		idx[i] = uint(combined % uint64(b.m))
	}
	return idx
}

// Add marks key as (possibly) present.
func (b *Bloom) Add(key string) {
	for _, i := range b.indexes(key) {
		b.bits.Set(i)
	}
	b.n++
}

// Test reports whether key may be present. false is authoritative
// ("definitely not a member"); true requires confirmation against the
// authoritative store (§4.C).
func (b *Bloom) Test(key string) bool {
	for _, i := range b.indexes(key) {
		if !b.bits.Test(i) {
			return false
		}
	}
	return true
}

// Cardinality reports how many keys have been Added since the last rebuild.
func (b *Bloom) Cardinality() uint { return b.n }

// Len reports the filter's bit-array size.
func (b *Bloom) Len() uint { return b.m }
