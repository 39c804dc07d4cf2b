// Package reassembler merges out-of-order byte ranges into a ByteStream
// under a bounded reorder buffer.
package reassembler

import "iptcp-core/bytestream"

type byteRange struct {
	lo, hi uint64 // [lo, hi)
	data   []byte
}

// Reassembler merges possibly-overlapping, possibly out-of-order byte
// ranges into a single ordered output ByteStream. It keeps a sorted,
// non-overlapping, non-adjacent set of ranges in memory (the "unassembled"
// bytes) bounded by capacity - output.BufferSize().
type Reassembler struct {
	capacity int
	output   *bytestream.ByteStream

	ranges []byteRange // sorted by lo, pairwise disjoint and non-touching
	next   uint64      // absolute index of the next byte the output stream expects
	size   int         // bytes currently held in ranges (unassembled)

	haveEOF bool
	eofIdx  uint64
}

// New constructs a Reassembler that writes into a freshly-allocated output
// ByteStream of the given capacity.
func New(capacity int) *Reassembler {
	return &Reassembler{
		capacity: capacity,
		output:   bytestream.New(capacity),
	}
}

// Output returns the stream that reassembled bytes are written into.
func (r *Reassembler) Output() *bytestream.ByteStream { return r.output }

// UnassembledBytes reports how many bytes are being held in the reorder
// buffer, not yet contiguous with the front of the stream.
func (r *Reassembler) UnassembledBytes() int { return r.size }

// Empty reports whether the reassembler has flushed everything it will
// ever need to: EOF has been recorded and the stream has reached it.
func (r *Reassembler) Empty() bool { return r.haveEOF && r.eofIdx == r.next }

// PushSubstring accepts a substring of the logical byte stream starting at
// the given absolute index, possibly out of order, and flushes any newly
// contiguous prefix to the output stream. If eof is true, index+len(data)
// marks the end of the logical stream.
func (r *Reassembler) PushSubstring(data []byte, index uint64, eof bool) {
	r.assemble(data, index)
	r.flush()
	r.checkEndInput(index+uint64(len(data)), eof)
}

func (r *Reassembler) assemble(data []byte, index uint64) {
	upper := r.next + uint64(r.capacity-r.output.BufferSize())
	n := uint64(len(data))
	if n == 0 || r.next >= index+n || index >= upper {
		return
	}

	start := index
	if r.next > start {
		start = r.next
	}
	offset := start - index
	length := n - offset
	if remaining := upper - start; length > remaining {
		length = remaining
	}
	if length == 0 {
		return
	}
	hi := start + length
	payload := append([]byte(nil), data[offset:offset+length]...)

	r.insertRange(byteRange{lo: start, hi: hi, data: payload})
}

// insertRange merges the new range with any existing ranges it overlaps or
// touches, keeping r.ranges sorted, disjoint, and non-adjacent. Overlapping
// bytes keep the copy already stored (the earliest contributor) — the TCP
// invariant guarantees both peers agree on the bytes at any given stream
// offset, so either choice would be correct.
func (r *Reassembler) insertRange(nr byteRange) {
	i := 0
	for i < len(r.ranges) && r.ranges[i].hi < nr.lo {
		i++
	}
	j := i
	for j < len(r.ranges) && r.ranges[j].lo <= nr.hi {
		j++
	}

	if i == j {
		// Disjoint from every existing range: insert as its own node.
		r.size += len(nr.data)
		r.ranges = append(r.ranges, byteRange{})
		copy(r.ranges[i+1:], r.ranges[i:])
		r.ranges[i] = nr
		return
	}

	// Merge nr with r.ranges[i:j] into one contiguous range.
	lo := nr.lo
	hi := nr.hi
	for k := i; k < j; k++ {
		if r.ranges[k].lo < lo {
			lo = r.ranges[k].lo
		}
		if r.ranges[k].hi > hi {
			hi = r.ranges[k].hi
		}
	}

	merged := make([]byte, hi-lo)
	// Lay down the existing (earlier-received) bytes first, then the new
	// bytes only where they don't already have coverage, so overlaps keep
	// the earliest contributor's copy.
	for k := i; k < j; k++ {
		copy(merged[r.ranges[k].lo-lo:], r.ranges[k].data)
	}
	covered := make([]bool, hi-lo)
	for k := i; k < j; k++ {
		for p := r.ranges[k].lo; p < r.ranges[k].hi; p++ {
			covered[p-lo] = true
		}
	}
	newBytes := 0
	for p := nr.lo; p < nr.hi; p++ {
		if !covered[p-lo] {
			merged[p-lo] = nr.data[p-nr.lo]
			newBytes++
		}
	}

	for k := i; k < j; k++ {
		r.size -= len(r.ranges[k].data)
	}
	r.size += newBytes

	replacement := byteRange{lo: lo, hi: hi, data: merged}
	r.ranges = append(r.ranges[:i], append([]byteRange{replacement}, r.ranges[j:]...)...)
}

func (r *Reassembler) flush() {
	for len(r.ranges) > 0 && r.ranges[0].lo == r.next {
		front := r.ranges[0]
		r.ranges = r.ranges[1:]
		r.size -= len(front.data)
		r.output.Write(front.data)
		r.next = front.hi
	}
}

func (r *Reassembler) checkEndInput(index uint64, eof bool) {
	if eof {
		r.haveEOF = true
		r.eofIdx = index
	}
	if r.haveEOF && r.eofIdx == r.next {
		r.output.EndInput()
	}
}
