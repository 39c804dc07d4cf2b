package tcpseg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapUnwrapRoundTrip(t *testing.T) {
	isn := WrappingInt32(384678)
	for _, v := range []uint64{0, 1, 100, 1 << 16, 1 << 31} {
		w := Wrap(v, isn)
		got := Unwrap(w, isn, v)
		assert.Equal(t, v, got)
	}
}

func TestWrapWrapsModulo32(t *testing.T) {
	isn := WrappingInt32(0)
	a := Wrap(5, isn)
	b := Wrap(5+(uint64(1)<<32), isn)
	assert.Equal(t, a, b)
}

func TestUnwrapPicksClosestToCheckpoint(t *testing.T) {
	isn := WrappingInt32(0)
	big := uint64(3) << 32
	n := Wrap(big+17, isn)
	got := Unwrap(n, isn, big+10)
	assert.Equal(t, big+17, got)
}
