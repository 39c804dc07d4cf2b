package tcpcore

import (
	"iptcp-core/bytestream"
	"iptcp-core/reassembler"
	"iptcp-core/tcpseg"
)

// Receiver parses inbound segments, converts wire sequence numbers into the
// absolute 64-bit space, feeds payload into a reassembler, and computes the
// ackno/window to advertise back to the remote sender.
type Receiver struct {
	capacity int
	reasm    *reassembler.Reassembler

	isn    tcpseg.WrappingInt32
	ackno  uint64 // absolute; counts SYN (1), bytes, FIN (1)
	hasISN bool

	hasFin  bool
	sentFin bool
}

// NewReceiver constructs a Receiver that will buffer at most capacity bytes
// of reassembled-but-unread data.
func NewReceiver(capacity int) *Receiver {
	return &Receiver{
		capacity: capacity,
		reasm:    reassembler.New(capacity),
		ackno:    1,
	}
}

// StreamOut is the output stream a reader drains reassembled bytes from.
func (r *Receiver) StreamOut() *bytestream.ByteStream { return r.reasm.Output() }

// UnassembledBytes reports bytes held by the reassembler but not yet
// delivered to StreamOut.
func (r *Receiver) UnassembledBytes() int { return r.reasm.UnassembledBytes() }

// SegmentReceived processes one inbound segment, updating ackno/window and
// feeding any payload to the reassembler.
func (r *Receiver) SegmentReceived(seg *tcpseg.Segment) {
	if seg.SYN {
		r.isn = seg.SeqNum
		r.hasISN = true
	}
	if !r.hasISN {
		return
	}
	if seg.FIN && !r.sentFin {
		r.hasFin = true
	}

	out := r.reasm.Output()
	seqno := seg.SeqNum
	if seg.SYN {
		seqno = tcpseg.WrappingInt32(uint32(seqno) + 1)
	}
	start := tcpseg.Unwrap(seqno, r.isn, r.ackno) - 1

	before := out.BufferSize()
	r.reasm.PushSubstring(seg.Payload, start, seg.FIN)
	r.ackno += uint64(out.BufferSize() - before)

	if r.hasFin && !r.sentFin && out.InputEnded() {
		r.ackno++
		r.sentFin = true
	}
}

// Ackno returns the ackno to advertise to the peer, and whether a SYN has
// been seen yet (no ackno exists until then).
func (r *Receiver) Ackno() (tcpseg.WrappingInt32, bool) {
	if !r.hasISN {
		return 0, false
	}
	return tcpseg.Wrap(r.ackno, r.isn), true
}

// WindowSize is the capacity minus however much reassembled-but-unread data
// is currently sitting in the output stream.
func (r *Receiver) WindowSize() int {
	return r.capacity - r.reasm.Output().BufferSize()
}
