package revocation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBloomNoFalseNegatives(t *testing.T) {
	b := NewBloom(1000, 0.01)
	ids := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("lic-%d", i)
		ids = append(ids, id)
		b.Add(id)
	}
	for _, id := range ids {
		assert.True(t, b.Test(id), "added key must always test positive")
	}
}

func TestBloomAbsentKeyTypicallyNegative(t *testing.T) {
	b := NewBloom(1000, 0.001)
	for i := 0; i < 50; i++ {
		b.Add(fmt.Sprintf("lic-%d", i))
	}
	assert.False(t, b.Test("definitely-absent-key"))
}
