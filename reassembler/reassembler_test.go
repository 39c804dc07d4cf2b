package reassembler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutOfOrderDelivery(t *testing.T) {
	r := New(100)
	r.PushSubstring([]byte("world"), 6, false)
	assert.Equal(t, 0, r.Output().BufferSize())
	r.PushSubstring([]byte("Hello "), 0, false)
	assert.Equal(t, "Hello world", string(r.Output().Read(20)))
	r.PushSubstring([]byte(""), 11, true)
	assert.True(t, r.Output().EOF())
}

func TestOverlapCoalesces(t *testing.T) {
	r := New(100)
	r.PushSubstring([]byte("abcdef"), 0, false)
	r.PushSubstring([]byte("cdefgh"), 2, false)
	assert.Equal(t, "abcdefgh", string(r.Output().Peek(20)))
	assert.Equal(t, 0, r.UnassembledBytes())
}

func TestWindowIsBoundedByCapacityMinusBuffered(t *testing.T) {
	r := New(4)
	r.PushSubstring([]byte("ab"), 2, false) // out of order, held back
	assert.Equal(t, 2, r.UnassembledBytes())
	r.PushSubstring([]byte("zzzzzzzzzz"), 4, false) // beyond window, dropped
	assert.Equal(t, 2, r.UnassembledBytes())
}

func TestContainmentOverlap(t *testing.T) {
	r := New(100)
	r.PushSubstring([]byte("abcdefghij"), 1, false) // gap at [0,1), held back
	// fully contained in the existing range; no new bytes
	r.PushSubstring([]byte("cde"), 3, false)
	assert.Equal(t, 10, r.UnassembledBytes())
}

func TestEOFWaitsForContiguousCoverage(t *testing.T) {
	r := New(100)
	r.PushSubstring([]byte("world"), 6, true) // eof index 11, but gap at [0,6)
	assert.False(t, r.Output().EOF())
	r.PushSubstring([]byte("Hello "), 0, false)
	assert.Equal(t, "Hello world", string(r.Output().Read(20)))
	assert.True(t, r.Output().EOF())
}
