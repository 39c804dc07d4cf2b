package tcpseg

import (
	"net/netip"

	"github.com/google/netstack/tcpip"
	"github.com/google/netstack/tcpip/header"
)

// ParseResult mirrors the sentinel libsponge hands back from every header
// parser in this system: callers check against NoError rather than a bare
// Go error, since a malformed frame is meant to be dropped silently (spec
// §7), not propagated.
type ParseResult int

const (
	NoError ParseResult = iota
	ParseErrorTruncated
	ParseErrorBadChecksum
)

// Segment is the in-memory representation of a TCP segment: the fields the
// core protocol logic reads and writes, independent of wire encoding.
type Segment struct {
	SrcPort, DstPort uint16
	SeqNum           WrappingInt32
	AckNum           WrappingInt32
	SYN, ACK, FIN, RST bool
	Window           uint16
	Payload          []byte
}

// LengthInSequenceSpace is the number of sequence numbers this segment
// occupies: one for SYN, one per payload byte, one for FIN.
func (s *Segment) LengthInSequenceSpace() int {
	n := len(s.Payload)
	if s.SYN {
		n++
	}
	if s.FIN {
		n++
	}
	return n
}

func (s *Segment) flags() uint8 {
	var f uint8
	if s.FIN {
		f |= header.TCPFlagFin
	}
	if s.SYN {
		f |= header.TCPFlagSyn
	}
	if s.RST {
		f |= header.TCPFlagRst
	}
	if s.ACK {
		f |= header.TCPFlagAck
	}
	return f
}

// Marshal encodes the segment as a TCP header followed by its payload,
// computing the checksum over the IPv4 pseudo-header, the TCP header, and
// the payload, exactly as the teacher's course utilities did by hand.
func Marshal(s *Segment, src, dst netip.Addr) []byte {
	total := header.TCPMinimumSize + len(s.Payload)
	buf := make([]byte, total)

	fields := header.TCPFields{
		SrcPort:    s.SrcPort,
		DstPort:    s.DstPort,
		SeqNum:     uint32(s.SeqNum),
		AckNum:     uint32(s.AckNum),
		DataOffset: header.TCPMinimumSize,
		Flags:      s.flags(),
		WindowSize: s.Window,
		Checksum:   0,
	}
	hdr := header.TCP(buf[:header.TCPMinimumSize])
	hdr.Encode(&fields)
	copy(buf[header.TCPMinimumSize:], s.Payload)

	csum := pseudoHeaderChecksum(src, dst, uint16(total))
	csum = header.Checksum(buf, csum)
	hdr.SetChecksum(^csum)

	return buf
}

// Parse decodes a TCP header and payload out of buf, validating the
// checksum against the given IPv4 source/destination addresses.
func Parse(buf []byte, src, dst netip.Addr) (Segment, ParseResult) {
	if len(buf) < header.TCPMinimumSize {
		return Segment{}, ParseErrorTruncated
	}
	hdr := header.TCP(buf)
	dataOffset := int(hdr.DataOffset())
	if dataOffset < header.TCPMinimumSize || dataOffset > len(buf) {
		return Segment{}, ParseErrorTruncated
	}

	csum := pseudoHeaderChecksum(src, dst, uint16(len(buf)))
	if header.Checksum(buf, csum) != 0xffff {
		return Segment{}, ParseErrorBadChecksum
	}

	flags := hdr.Flags()
	seg := Segment{
		SrcPort: hdr.SourcePort(),
		DstPort: hdr.DestinationPort(),
		SeqNum:  WrappingInt32(hdr.SequenceNumber()),
		AckNum:  WrappingInt32(hdr.AckNumber()),
		SYN:     flags&header.TCPFlagSyn != 0,
		ACK:     flags&header.TCPFlagAck != 0,
		FIN:     flags&header.TCPFlagFin != 0,
		RST:     flags&header.TCPFlagRst != 0,
		Window:  hdr.WindowSize(),
		Payload: append([]byte(nil), buf[dataOffset:]...),
	}
	return seg, NoError
}

func pseudoHeaderChecksum(src, dst netip.Addr, totalLen uint16) uint16 {
	s4, d4 := src.As4(), dst.As4()
	return header.PseudoHeaderChecksum(
		header.TCPProtocolNumber,
		tcpip.Address(s4[:]),
		tcpip.Address(d4[:]),
		totalLen,
	)
}
