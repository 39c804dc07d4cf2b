package ipnet

import (
	"net/netip"

	ipv4header "github.com/brown-csci1680/iptcp-headers"
	"github.com/pkg/errors"
)

// Datagram is an IPv4 header plus payload. The header codec itself is the
// teacher's own dependency, not reimplemented here — spec §1 treats IPv4
// parsing/serialization as an assumed-available external collaborator.
type Datagram struct {
	Header  ipv4header.IPv4Header
	Payload []byte
}

// Marshal serializes the header and appends the payload.
func (d *Datagram) Marshal() ([]byte, error) {
	headerBytes, err := d.Header.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "marshal ipv4 header")
	}
	out := make([]byte, 0, len(headerBytes)+len(d.Payload))
	out = append(out, headerBytes...)
	out = append(out, d.Payload...)
	return out, nil
}

// ParseDatagram decodes an IPv4 header and payload out of buf.
func ParseDatagram(buf []byte) (Datagram, ParseResult) {
	hdr, err := ipv4header.ParseHeader(buf)
	if err != nil || hdr == nil {
		return Datagram{}, ParseErrorTruncated
	}
	if hdr.Len > len(buf) {
		return Datagram{}, ParseErrorTruncated
	}
	return Datagram{
		Header:  *hdr,
		Payload: append([]byte(nil), buf[hdr.Len:]...),
	}, NoError
}

// NewDatagram builds a datagram with sane defaults (version 4, 20-byte
// header, TTL as given) ready for Marshal.
func NewDatagram(src, dst netip.Addr, ttl, protocol int, payload []byte) Datagram {
	return Datagram{
		Header: ipv4header.IPv4Header{
			Version:  4,
			Len:      ipv4header.HeaderLen,
			TotalLen: ipv4header.HeaderLen + len(payload),
			TTL:      ttl,
			Protocol: protocol,
			Src:      src,
			Dst:      dst,
			Options:  []byte{},
		},
		Payload: payload,
	}
}
