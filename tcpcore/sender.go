package tcpcore

import (
	"math/rand"

	"iptcp-core/bytestream"
	"iptcp-core/config"
	"iptcp-core/tcpseg"
)

type inFlightSegment struct {
	start uint64 // absolute seqno of the first byte/flag in this segment
	seg   tcpseg.Segment
}

// Sender carves the outgoing byte stream into segments under the peer's
// advertised window, tracks which segments are still in flight, and runs a
// retransmission timer with exponential backoff.
type Sender struct {
	isn tcpseg.WrappingInt32

	stream *bytestream.ByteStream

	segmentsOut []tcpseg.Segment
	inFlight    []inFlightSegment

	timer                     *retransmissionTimer
	consecutiveRetransmissions uint32

	nextSeqno  uint64
	seqnoAcked uint64
	windowSize uint16

	sentFin bool

	maxPayloadSize int
}

// NewSender constructs a Sender with the given config. If cfg.FixedISN is
// set, that value is used as the initial sequence number; otherwise one is
// drawn at random.
func NewSender(cfg config.TCPConfig) *Sender {
	var isn tcpseg.WrappingInt32
	if cfg.FixedISN != nil {
		isn = tcpseg.WrappingInt32(*cfg.FixedISN)
	} else {
		isn = tcpseg.WrappingInt32(rand.Uint32())
	}
	maxPayload := cfg.MaxPayloadSize
	if maxPayload <= 0 {
		maxPayload = 1452
	}
	return &Sender{
		isn:            isn,
		stream:         bytestream.New(cfg.SendCapacity),
		timer:          newRetransmissionTimer(cfg.RTTimeout),
		windowSize:     1,
		maxPayloadSize: maxPayload,
	}
}

// StreamIn is the input stream the writer pushes outgoing bytes into.
func (s *Sender) StreamIn() *bytestream.ByteStream { return s.stream }

// NextSeqnoAbsolute returns the absolute seqno of the next byte to send.
func (s *Sender) NextSeqnoAbsolute() uint64 { return s.nextSeqno }

// NextSeqno returns the wire form of NextSeqnoAbsolute.
func (s *Sender) NextSeqno() tcpseg.WrappingInt32 { return tcpseg.Wrap(s.nextSeqno, s.isn) }

// BytesInFlight is how many sequence numbers are occupied by segments sent
// but not yet acknowledged.
func (s *Sender) BytesInFlight() uint64 { return s.nextSeqno - s.seqnoAcked }

// ConsecutiveRetransmissions is the number of retransmissions in a row
// since the last new ACK.
func (s *Sender) ConsecutiveRetransmissions() uint32 { return s.consecutiveRetransmissions }

// SegmentsOut drains and returns every segment queued for transmission.
func (s *Sender) SegmentsOut() []tcpseg.Segment {
	out := s.segmentsOut
	s.segmentsOut = nil
	return out
}

// PeekSegmentsOut reports whether any segment is currently queued, without
// draining the queue.
func (s *Sender) PeekSegmentsOut() bool { return len(s.segmentsOut) > 0 }

// DiscardSegmentsOut drops every currently queued segment, used when the
// connection gives up and resets.
func (s *Sender) DiscardSegmentsOut() { s.segmentsOut = nil }

func (s *Sender) pushSegment(seg tcpseg.Segment, start uint64) {
	s.segmentsOut = append(s.segmentsOut, seg)
	s.inFlight = append(s.inFlight, inFlightSegment{start: start, seg: seg})
}

// assembleSegment builds (and if non-empty, enqueues) one segment starting
// at the given absolute seqno, returning the absolute seqno just past it.
func (s *Sender) assembleSegment(start uint64) uint64 {
	var seg tcpseg.Segment
	seg.SeqNum = tcpseg.Wrap(start, s.isn)

	maxSegSize := maxU64(1, uint64(s.windowSize)) - (start - s.seqnoAcked)

	if start == 0 {
		seg.SYN = true
		maxSegSize--
	}

	payloadSizeWithFin := minU64(maxSegSize-1, uint64(s.maxPayloadSize))
	bufSize := uint64(s.stream.BufferSize())

	if !s.sentFin && s.stream.InputEnded() && bufSize <= payloadSizeWithFin {
		seg.FIN = true
		s.sentFin = true
		maxSegSize--
	}

	maxSegSize = minU64(minU64(maxSegSize, bufSize), uint64(s.maxPayloadSize))
	seg.Payload = s.stream.Read(int(maxSegSize))

	length := uint64(seg.LengthInSequenceSpace())
	if length != 0 {
		s.pushSegment(seg, start)
	}
	return start + length
}

// FillWindow builds and enqueues as many segments as fit in the peer's
// advertised window.
func (s *Sender) FillWindow() {
	right := s.seqnoAcked + maxU64(1, uint64(s.windowSize))
	for s.nextSeqno < right {
		s.nextSeqno = s.assembleSegment(s.nextSeqno)
		if s.stream.BufferEmpty() {
			break
		}
	}

	if !s.timer.Running() && len(s.inFlight) > 0 {
		s.timer.Reset()
		s.timer.Start()
	}
}

func (s *Sender) clearInFlight() {
	for len(s.inFlight) > 0 {
		front := s.inFlight[0]
		if front.start+uint64(front.seg.LengthInSequenceSpace()) > s.seqnoAcked {
			break
		}
		s.inFlight = s.inFlight[1:]
	}
	if len(s.inFlight) == 0 {
		s.timer.Stop()
	}
}

// AckReceived processes an incoming ack number and advertised window,
// updating the acked seqno, resetting the retransmission timer on new
// progress, and trimming the in-flight buffer.
func (s *Sender) AckReceived(ackno tcpseg.WrappingInt32, window uint16) {
	abs := tcpseg.Unwrap(ackno, s.isn, s.seqnoAcked)
	if abs > s.nextSeqno {
		return
	}
	if abs > s.seqnoAcked {
		s.seqnoAcked = abs
		s.consecutiveRetransmissions = 0
		s.timer.Reset()
		s.timer.Start()
	}
	s.windowSize = window
	s.clearInFlight()
}

func (s *Sender) retransmit() {
	if s.windowSize != 0 {
		s.timer.Double()
		s.consecutiveRetransmissions++
	}
	s.timer.Start()
	if len(s.inFlight) > 0 {
		s.segmentsOut = append(s.segmentsOut, s.inFlight[0].seg)
	}
}

// Tick advances the retransmission timer by ms milliseconds, retransmitting
// the earliest in-flight segment if it has expired.
func (s *Sender) Tick(ms uint32) {
	s.timer.Tick(ms)
	if s.timer.Expired() {
		s.retransmit()
	}
}

// SendEmptySegment enqueues a zero-payload segment carrying only the
// current sequence number; it is not tracked as in-flight.
func (s *Sender) SendEmptySegment() {
	var seg tcpseg.Segment
	seg.SeqNum = tcpseg.Wrap(s.nextSeqno, s.isn)
	s.segmentsOut = append(s.segmentsOut, seg)
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
