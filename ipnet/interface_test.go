package ipnet

import (
	"net/netip"
	"testing"
	"time"

	"iptcp-core/config"

	"github.com/stretchr/testify/require"
)

func testInterfaceConfig() config.NetworkInterfaceConfig {
	return config.NetworkInterfaceConfig{ARPCacheTTL: 30 * time.Second, ARPRequestInterval: 5 * time.Second}
}

func TestSendDatagramQueuesARPRequestWhenUnresolved(t *testing.T) {
	a := NewNetworkInterface(EthernetAddress{1}, netip.MustParseAddr("10.0.0.1"), testInterfaceConfig())
	dst := netip.MustParseAddr("10.0.0.2")

	a.SendDatagram(NewDatagram(a.IPAddress(), dst, 64, 6, []byte("hi")), dst)
	frames := a.FramesOut()
	require.Len(t, frames, 1)
	require.Equal(t, EtherTypeARP, frames[0].Header.Type)
	require.Equal(t, BroadcastEthernetAddress, frames[0].Header.Dst)
}

func TestARPReplyFlushesPendingDatagram(t *testing.T) {
	a := NewNetworkInterface(EthernetAddress{1}, netip.MustParseAddr("10.0.0.1"), testInterfaceConfig())
	b := NewNetworkInterface(EthernetAddress{2}, netip.MustParseAddr("10.0.0.2"), testInterfaceConfig())

	a.SendDatagram(NewDatagram(a.IPAddress(), b.IPAddress(), 64, 6, []byte("hi")), b.IPAddress())
	request := a.FramesOut()[0]

	b.RecvFrame(request)
	reply := b.FramesOut()
	require.Len(t, reply, 1)

	a.RecvFrame(reply[0])
	flushed := a.FramesOut()
	require.Len(t, flushed, 1)
	require.Equal(t, EtherTypeIPv4, flushed[0].Header.Type)
}

func TestARPRequestSuppressedWithinInterval(t *testing.T) {
	a := NewNetworkInterface(EthernetAddress{1}, netip.MustParseAddr("10.0.0.1"), testInterfaceConfig())
	dst := netip.MustParseAddr("10.0.0.2")

	a.SendDatagram(NewDatagram(a.IPAddress(), dst, 64, 6, []byte("one")), dst)
	a.FramesOut()

	a.Tick(time.Second)
	a.SendDatagram(NewDatagram(a.IPAddress(), dst, 64, 6, []byte("two")), dst)
	require.Empty(t, a.FramesOut(), "second request suppressed within the interval")

	a.Tick(5 * time.Second)
	a.SendDatagram(NewDatagram(a.IPAddress(), dst, 64, 6, []byte("three")), dst)
	require.Len(t, a.FramesOut(), 1, "request allowed again after the interval elapses")
}

func TestCachedEntryExpiresAfterTTL(t *testing.T) {
	a := NewNetworkInterface(EthernetAddress{1}, netip.MustParseAddr("10.0.0.1"), testInterfaceConfig())
	b := NewNetworkInterface(EthernetAddress{2}, netip.MustParseAddr("10.0.0.2"), testInterfaceConfig())

	a.SendDatagram(NewDatagram(a.IPAddress(), b.IPAddress(), 64, 6, []byte("hi")), b.IPAddress())
	request := a.FramesOut()[0]
	b.RecvFrame(request)
	a.RecvFrame(b.FramesOut()[0])
	a.FramesOut()

	a.Tick(31 * time.Second)
	a.SendDatagram(NewDatagram(a.IPAddress(), b.IPAddress(), 64, 6, []byte("again")), b.IPAddress())
	frames := a.FramesOut()
	require.Len(t, frames, 1)
	require.Equal(t, EtherTypeARP, frames[0].Header.Type, "expired cache entry triggers a fresh ARP request")
}
