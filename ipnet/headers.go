// Package ipnet provides the Ethernet/ARP/IPv4 framing this system treats
// as "assumed available" external collaborators (spec §1), plus the
// NetworkInterface that drives ARP resolution over them.
package ipnet

import (
	"encoding/binary"
	"net"
)

// EthernetAddress is a 6-byte MAC address.
type EthernetAddress [6]byte

// ZeroEthernetAddress is the "unknown" address ARP requests use to signal
// that the target's hardware address isn't known yet.
var ZeroEthernetAddress = EthernetAddress{}

// BroadcastEthernetAddress is ff:ff:ff:ff:ff:ff.
var BroadcastEthernetAddress = EthernetAddress{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func (a EthernetAddress) String() string { return net.HardwareAddr(a[:]).String() }

// EtherType names the payload carried by an Ethernet frame.
type EtherType uint16

const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeARP  EtherType = 0x0806
)

// SizeEthernetHeader is the fixed size of an Ethernet header with no VLAN
// tag.
const SizeEthernetHeader = 14

// EthernetHeader is the 14-byte dst/src/ethertype header in front of every
// frame.
type EthernetHeader struct {
	Dst, Src EthernetAddress
	Type     EtherType
}

// EthernetFrame is a header plus an opaque payload (an IPv4 datagram or an
// ARP message, serialized).
type EthernetFrame struct {
	Header  EthernetHeader
	Payload []byte
}

// Marshal encodes the frame as it would appear on the wire.
func (f *EthernetFrame) Marshal() []byte {
	buf := make([]byte, SizeEthernetHeader+len(f.Payload))
	copy(buf[0:6], f.Header.Dst[:])
	copy(buf[6:12], f.Header.Src[:])
	binary.BigEndian.PutUint16(buf[12:14], uint16(f.Header.Type))
	copy(buf[14:], f.Payload)
	return buf
}

// ParseEthernetFrame decodes a frame, returning NoError on success.
func ParseEthernetFrame(buf []byte) (EthernetFrame, ParseResult) {
	if len(buf) < SizeEthernetHeader {
		return EthernetFrame{}, ParseErrorTruncated
	}
	var f EthernetFrame
	copy(f.Header.Dst[:], buf[0:6])
	copy(f.Header.Src[:], buf[6:12])
	f.Header.Type = EtherType(binary.BigEndian.Uint16(buf[12:14]))
	f.Payload = append([]byte(nil), buf[SizeEthernetHeader:]...)
	return f, NoError
}

// ARPOpcode distinguishes ARP requests from replies.
type ARPOpcode uint16

const (
	ARPOpRequest ARPOpcode = 1
	ARPOpReply   ARPOpcode = 2
)

// SizeARPv4Message is the fixed size of an Ethernet/IPv4 ARP message.
const SizeARPv4Message = 28

// ARPMessage is an Ethernet-hardware / IPv4-protocol ARP request or reply.
type ARPMessage struct {
	Opcode       ARPOpcode
	SenderEth    EthernetAddress
	SenderIP     uint32
	TargetEth    EthernetAddress
	TargetIP     uint32
}

// Marshal encodes the ARP message per RFC 826's Ethernet/IPv4 layout:
// HTYPE=1, PTYPE=0x0800, HLEN=6, PLEN=4.
func (m *ARPMessage) Marshal() []byte {
	buf := make([]byte, SizeARPv4Message)
	binary.BigEndian.PutUint16(buf[0:2], 1)      // HTYPE: Ethernet
	binary.BigEndian.PutUint16(buf[2:4], 0x0800) // PTYPE: IPv4
	buf[4] = 6                                   // HLEN
	buf[5] = 4                                   // PLEN
	binary.BigEndian.PutUint16(buf[6:8], uint16(m.Opcode))
	copy(buf[8:14], m.SenderEth[:])
	binary.BigEndian.PutUint32(buf[14:18], m.SenderIP)
	copy(buf[18:24], m.TargetEth[:])
	binary.BigEndian.PutUint32(buf[24:28], m.TargetIP)
	return buf
}

// ParseARPMessage decodes an ARP message, rejecting anything that isn't
// Ethernet/IPv4.
func ParseARPMessage(buf []byte) (ARPMessage, ParseResult) {
	if len(buf) < SizeARPv4Message {
		return ARPMessage{}, ParseErrorTruncated
	}
	htype := binary.BigEndian.Uint16(buf[0:2])
	ptype := binary.BigEndian.Uint16(buf[2:4])
	hlen, plen := buf[4], buf[5]
	if htype != 1 || ptype != 0x0800 || hlen != 6 || plen != 4 {
		return ARPMessage{}, ParseErrorUnsupported
	}
	var m ARPMessage
	m.Opcode = ARPOpcode(binary.BigEndian.Uint16(buf[6:8]))
	copy(m.SenderEth[:], buf[8:14])
	m.SenderIP = binary.BigEndian.Uint32(buf[14:18])
	copy(m.TargetEth[:], buf[18:24])
	m.TargetIP = binary.BigEndian.Uint32(buf[24:28])
	return m, NoError
}

// ParseResult mirrors the sentinel libsponge's header parsers return
// instead of a bare Go error — a malformed frame is dropped silently
// (spec §7), not propagated up as an error value.
type ParseResult int

const (
	NoError ParseResult = iota
	ParseErrorTruncated
	ParseErrorUnsupported
	ParseErrorBadChecksum
)
