package ipnet

import (
	"net/netip"
	"time"

	"iptcp-core/config"

	"github.com/sirupsen/logrus"
)

var log logrus.FieldLogger = logrus.StandardLogger()

// SetLogger overrides the package-level diagnostic logger.
func SetLogger(l logrus.FieldLogger) { log = l }

type arpCacheEntry struct {
	eth      EthernetAddress
	learned  time.Duration
}

// NetworkInterface resolves IPv4 next-hops to Ethernet addresses via ARP,
// queuing datagrams while resolution is pending, and demultiplexes inbound
// frames into IPv4 datagrams vs. ARP housekeeping. Time only moves via
// Tick; there is no internal locking (spec §5).
type NetworkInterface struct {
	eth EthernetAddress
	ip  netip.Addr

	cfg config.NetworkInterfaceConfig

	now time.Duration

	arpCache       map[uint32]arpCacheEntry
	lastARPRequest map[uint32]time.Duration
	pending        map[uint32][]Datagram

	framesOut    []EthernetFrame
	datagramsOut []Datagram
}

// NewNetworkInterface constructs an interface with the given hardware/IP
// identity.
func NewNetworkInterface(eth EthernetAddress, ip netip.Addr, cfg config.NetworkInterfaceConfig) *NetworkInterface {
	log.WithField("ethernet", eth.String()).WithField("ip", ip.String()).Debug("network interface created")
	return &NetworkInterface{
		eth:            eth,
		ip:             ip,
		cfg:            cfg,
		arpCache:       make(map[uint32]arpCacheEntry),
		lastARPRequest: make(map[uint32]time.Duration),
		pending:        make(map[uint32][]Datagram),
	}
}

// EthernetAddress is this interface's hardware address.
func (n *NetworkInterface) EthernetAddress() EthernetAddress { return n.eth }

// IPAddress is this interface's IPv4 address.
func (n *NetworkInterface) IPAddress() netip.Addr { return n.ip }

// FramesOut drains and returns every Ethernet frame queued for
// transmission.
func (n *NetworkInterface) FramesOut() []EthernetFrame {
	out := n.framesOut
	n.framesOut = nil
	return out
}

// DatagramsOut drains and returns every IPv4 datagram received and ready
// for the router/host to process.
func (n *NetworkInterface) DatagramsOut() []Datagram {
	out := n.datagramsOut
	n.datagramsOut = nil
	return out
}

func ipv4Numeric(a netip.Addr) uint32 {
	b := a.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func numericToIPv4(n uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
}

func (n *NetworkInterface) ipFrame(dst EthernetAddress, dgram Datagram) EthernetFrame {
	payload, _ := dgram.Marshal()
	return EthernetFrame{
		Header: EthernetHeader{Dst: dst, Src: n.eth, Type: EtherTypeIPv4},
		Payload: payload,
	}
}

func (n *NetworkInterface) arpFrame(dst EthernetAddress, targetIP uint32, op ARPOpcode) EthernetFrame {
	msg := ARPMessage{
		Opcode:    op,
		SenderEth: n.eth,
		SenderIP:  ipv4Numeric(n.ip),
		TargetEth: dst,
		TargetIP:  targetIP,
	}
	hdrDst := dst
	if dst == ZeroEthernetAddress {
		hdrDst = BroadcastEthernetAddress
	}
	return EthernetFrame{
		Header:  EthernetHeader{Dst: hdrDst, Src: n.eth, Type: EtherTypeARP},
		Payload: msg.Marshal(),
	}
}

// SendDatagram sends dgram to next_hop: immediately if its Ethernet address
// is cached and unexpired, otherwise via ARP resolution. Unresolved
// datagrams queue until a matching ARP reply arrives.
func (n *NetworkInterface) SendDatagram(dgram Datagram, nextHop netip.Addr) {
	nextHopIP := ipv4Numeric(nextHop)

	if entry, ok := n.arpCache[nextHopIP]; ok && n.now-entry.learned < n.cfg.ARPCacheTTL {
		n.framesOut = append(n.framesOut, n.ipFrame(entry.eth, dgram))
		return
	}

	if last, sent := n.lastARPRequest[nextHopIP]; !sent || n.now-last >= n.cfg.ARPRequestInterval {
		n.framesOut = append(n.framesOut, n.arpFrame(ZeroEthernetAddress, nextHopIP, ARPOpRequest))
		n.lastARPRequest[nextHopIP] = n.now
		log.WithField("ip", numericToIPv4(nextHopIP).String()).Debug("sent arp request")
	}

	n.pending[nextHopIP] = append(n.pending[nextHopIP], dgram)
}

// RecvFrame processes one inbound Ethernet frame: IPv4 datagrams are
// queued for the host/router, ARP messages update the cache, flush any
// pending datagrams for the sender, and trigger a reply if we are the
// target of a request.
func (n *NetworkInterface) RecvFrame(frame EthernetFrame) {
	if frame.Header.Dst != n.eth && frame.Header.Dst != BroadcastEthernetAddress {
		return
	}

	switch frame.Header.Type {
	case EtherTypeIPv4:
		dgram, result := ParseDatagram(frame.Payload)
		if result != NoError {
			return
		}
		n.datagramsOut = append(n.datagramsOut, dgram)

	case EtherTypeARP:
		msg, result := ParseARPMessage(frame.Payload)
		if result != NoError {
			return
		}
		n.arpCache[msg.SenderIP] = arpCacheEntry{eth: msg.SenderEth, learned: n.now}

		if queued, ok := n.pending[msg.SenderIP]; ok {
			for _, dgram := range queued {
				n.framesOut = append(n.framesOut, n.ipFrame(msg.SenderEth, dgram))
			}
			delete(n.pending, msg.SenderIP)
		}

		if msg.Opcode == ARPOpRequest && msg.TargetIP == ipv4Numeric(n.ip) {
			n.framesOut = append(n.framesOut, n.arpFrame(msg.SenderEth, msg.SenderIP, ARPOpReply))
		}
	}
}

// Tick advances the interface's monotonic clock by the given duration.
// Cache/request expiry is evaluated lazily on lookup, not here.
func (n *NetworkInterface) Tick(d time.Duration) { n.now += d }
