package merger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintOf(t *testing.T) {
	assert.Equal(t, FingerprintOf("Alice", "hi"), FingerprintOf("Alice", "hi"))
	assert.NotEqual(t, FingerprintOf("Alice", "hi"), FingerprintOf("Bob", "hi"))
	// the separator keeps field boundaries apart
	assert.NotEqual(t, FingerprintOf("ab", "c"), FingerprintOf("a", "bc"))
}

func TestRing_EvictsOldest(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 4; i++ {
		assert.True(t, r.Add(FingerprintOf("a", fmt.Sprint(i))))
	}

	assert.Equal(t, 3, r.Len())
	assert.False(t, r.Contains(FingerprintOf("a", "0")))
	for i := 1; i < 4; i++ {
		assert.True(t, r.Contains(FingerprintOf("a", fmt.Sprint(i))))
	}

	// the evicted entry can be added again and pushes out the next oldest
	assert.True(t, r.Add(FingerprintOf("a", "0")))
	assert.False(t, r.Contains(FingerprintOf("a", "1")))
	assert.Equal(t, 3, r.Len())
}

func TestRing_AddDuplicate(t *testing.T) {
	r := NewRing(2)
	fp := FingerprintOf("a", "b")
	assert.True(t, r.Add(fp))
	assert.False(t, r.Add(fp))
	assert.Equal(t, 1, r.Len())
}

func TestRing_Clear(t *testing.T) {
	r := NewRing(2)
	r.Add(FingerprintOf("a", "1"))
	r.Add(FingerprintOf("a", "2"))
	r.Add(FingerprintOf("a", "3"))

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Contains(FingerprintOf("a", "3")))

	r.Add(FingerprintOf("a", "4"))
	r.Add(FingerprintOf("a", "5"))
	r.Add(FingerprintOf("a", "6"))
	assert.Equal(t, 2, r.Len())
	assert.False(t, r.Contains(FingerprintOf("a", "4")))
}

func TestNewRing_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewRing(0).Cap())
}
