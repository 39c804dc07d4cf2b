// Package tcpcore implements the receiver, sender, and connection state
// machine of a user-space TCP: no sockets, no I/O — callers hand in parsed
// segments and time ticks, and drain outbound segments from a queue.
package tcpcore

import (
	"iptcp-core/config"
	"iptcp-core/tcpseg"

	"github.com/sirupsen/logrus"
)

var log logrus.FieldLogger = logrus.StandardLogger()

// SetLogger overrides the package-level diagnostic logger.
func SetLogger(l logrus.FieldLogger) { log = l }

// Connection joins a Sender and a Receiver into the TCP finite-state
// machine: SYN/FIN exchange, RST handling, keep-alive replies, and
// TIME-WAIT-style lingering. There is no explicit state enum — the state is
// the conjunction of the sender/receiver stream status, matching the
// teacher's preference for direct field state over materialized enums.
type Connection struct {
	cfg config.TCPConfig

	sender   *Sender
	receiver *Receiver

	msSinceLastSegmentReceived uint32
	lingerAfterStreamsFinish  bool

	segmentsOut []tcpseg.Segment
}

// NewConnection constructs a Connection ready to either Connect (active
// open) or receive an inbound SYN (passive open).
func NewConnection(cfg config.TCPConfig) *Connection {
	return &Connection{
		cfg:                      cfg,
		sender:                   NewSender(cfg),
		receiver:                 NewReceiver(cfg.RecvCapacity),
		lingerAfterStreamsFinish: true,
	}
}

// Sender exposes the connection's sender half, for tests and accessors that
// need the underlying input stream.
func (c *Connection) Sender() *Sender { return c.sender }

// Receiver exposes the connection's receiver half.
func (c *Connection) Receiver() *Receiver { return c.receiver }

func (c *Connection) sendSegmentsWithInfo() {
	for _, seg := range c.sender.SegmentsOut() {
		if ackno, ok := c.receiver.Ackno(); ok {
			seg.ACK = true
			seg.AckNum = ackno
		}
		window := c.receiver.WindowSize()
		if window > 0xFFFF {
			window = 0xFFFF
		}
		seg.Window = uint16(window)
		c.segmentsOut = append(c.segmentsOut, seg)
	}
}

// SegmentsOut drains and returns every fully-stamped outbound segment.
func (c *Connection) SegmentsOut() []tcpseg.Segment {
	out := c.segmentsOut
	c.segmentsOut = nil
	return out
}

func (c *Connection) sendRST() {
	c.sender.SendEmptySegment()
	segs := c.sender.segmentsOut
	segs[len(segs)-1].RST = true
	c.sendSegmentsWithInfo()
}

func (c *Connection) dirtyAbort() {
	c.sender.StreamIn().SetError()
	c.receiver.StreamOut().SetError()
	c.lingerAfterStreamsFinish = false
	log.Warn("tcp connection dirty-aborted")
}

func (c *Connection) abort() { c.lingerAfterStreamsFinish = false }

// RemainingOutboundCapacity is how many more bytes Write would accept right
// now.
func (c *Connection) RemainingOutboundCapacity() int { return c.sender.StreamIn().RemainingCapacity() }

// BytesInFlight forwards to the sender.
func (c *Connection) BytesInFlight() uint64 { return c.sender.BytesInFlight() }

// UnassembledBytes forwards to the receiver.
func (c *Connection) UnassembledBytes() int { return c.receiver.UnassembledBytes() }

// TimeSinceLastSegmentReceived is milliseconds elapsed since the last
// inbound segment. SegmentReceived resets it once the peer's SYN has been
// seen; RST segments and segments arriving before that SYN leave it as is.
func (c *Connection) TimeSinceLastSegmentReceived() uint32 { return c.msSinceLastSegmentReceived }

// SegmentReceived feeds one inbound segment through the FSM: RST teardown,
// receiver update, sender ack processing, FIN/keep-alive handling, and
// finally stamping+flushing whatever the sender produced.
func (c *Connection) SegmentReceived(seg *tcpseg.Segment) {
	if seg.RST {
		c.dirtyAbort()
		return
	}

	c.receiver.SegmentReceived(seg)

	if _, ok := c.receiver.Ackno(); !ok {
		return
	}

	if seg.ACK {
		c.sender.AckReceived(seg.AckNum, seg.Window)
		c.sender.FillWindow()
	} else if seg.SYN {
		c.sender.FillWindow()
	}

	if seg.FIN {
		if !c.sender.StreamIn().EOF() {
			c.lingerAfterStreamsFinish = false
		}
	}

	ackno, _ := c.receiver.Ackno()
	segLength := seg.LengthInSequenceSpace()
	if segLength == 0 && seg.SeqNum == tcpseg.WrappingInt32(uint32(ackno)-1) {
		c.sender.SendEmptySegment()
	}

	if segLength != 0 && !c.sender.PeekSegmentsOut() {
		c.sender.SendEmptySegment()
	}

	c.sendSegmentsWithInfo()
	c.msSinceLastSegmentReceived = 0
}

// Active reports whether the connection still needs driving: it is
// lingering after both streams finished, or either stream still has
// outstanding work and neither has errored.
func (c *Connection) Active() bool {
	return c.lingerAfterStreamsFinish ||
		((c.sender.BytesInFlight() > 0 || !c.sender.StreamIn().EOF()) && !c.sender.StreamIn().Error()) ||
		(!c.receiver.StreamOut().EOF() && !c.receiver.StreamOut().Error())
}

// Write pushes data into the sender's input stream, fills the window, and
// flushes any resulting segments. It returns the number of bytes accepted.
func (c *Connection) Write(data []byte) int {
	if c.sender.StreamIn().InputEnded() {
		return 0
	}
	n := c.sender.StreamIn().Write(data)
	c.sender.FillWindow()
	c.sendSegmentsWithInfo()
	return n
}

// Tick advances time by ms milliseconds: the sender's retransmission timer,
// the retransmission-exhaustion check (RST + dirty abort), and the linger
// timeout (clean close after 10x the initial RTO of quiet).
func (c *Connection) Tick(ms uint32) {
	c.msSinceLastSegmentReceived += ms
	c.sender.Tick(ms)

	if c.sender.ConsecutiveRetransmissions() > c.cfg.MaxRetxAttempts {
		c.sender.DiscardSegmentsOut()
		c.sendRST()
		c.dirtyAbort()
	}

	if c.sender.StreamIn().EOF() && c.receiver.StreamOut().EOF() && c.lingerAfterStreamsFinish &&
		c.msSinceLastSegmentReceived >= 10*c.cfg.RTTimeout {
		c.abort()
	}

	c.sendSegmentsWithInfo()
}

// EndInputStream marks the local stream as finished writing, which will
// eventually cause the sender to emit a FIN.
func (c *Connection) EndInputStream() {
	if c.sender.StreamIn().InputEnded() {
		return
	}
	c.sender.StreamIn().EndInput()
	c.sender.FillWindow()
	c.sendSegmentsWithInfo()
}

// Connect begins an active open by filling the window, which emits the SYN.
func (c *Connection) Connect() {
	c.sender.FillWindow()
	c.sendSegmentsWithInfo()
}

// Close is the REDESIGN-flagged replacement for libsponge's destructor:
// Go has no destructors, so a host MUST call Close when it is done with a
// connection. If the connection is still active, Close sends an RST and
// dirty-aborts, matching ~TCPConnection's safety net.
func (c *Connection) Close() {
	if c.Active() {
		log.Warn("unclean shutdown of tcp connection")
		c.sendRST()
		c.dirtyAbort()
	}
}
