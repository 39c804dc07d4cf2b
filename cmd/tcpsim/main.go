// tcpsim drives the in-process TCP/IP stack end to end: two simulated
// hosts, a router between them, and a line-oriented REPL for poking at
// the connection — no sockets, no real NICs, just Tick and the frame
// queues each NetworkInterface exposes.
package main

import (
	"bufio"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"iptcp-core/config"
	"iptcp-core/ipnet"
	"iptcp-core/router"
	"iptcp-core/tcpcore"
	"iptcp-core/tcpseg"
)

const tickInterval = 10 * time.Millisecond

// wire shuttles every frame a NetworkInterface queues for transmission
// straight into its peer's receive path, modeling a point-to-point link
// with no loss or reordering.
type wire struct {
	a, b *ipnet.NetworkInterface
}

func (w *wire) pump() {
	for _, f := range w.a.FramesOut() {
		w.b.RecvFrame(f)
	}
	for _, f := range w.b.FramesOut() {
		w.a.RecvFrame(f)
	}
}

type host struct {
	name string
	iface *ipnet.NetworkInterface
	conn  *tcpcore.Connection
}

func main() {
	leftIP := netip.MustParseAddr("10.0.0.1")
	routerLeftIP := netip.MustParseAddr("10.0.0.2")
	routerRightIP := netip.MustParseAddr("10.0.1.1")
	rightIP := netip.MustParseAddr("10.0.1.2")

	ifCfg := config.DefaultNetworkInterfaceConfig()

	leftIface := ipnet.NewNetworkInterface(macFor(1), leftIP, ifCfg)
	routerLeftIface := ipnet.NewNetworkInterface(macFor(2), routerLeftIP, ifCfg)
	routerRightIface := ipnet.NewNetworkInterface(macFor(3), routerRightIP, ifCfg)
	rightIface := ipnet.NewNetworkInterface(macFor(4), rightIP, ifCfg)

	leftRightWire := wire{a: leftIface, b: routerLeftIface}
	rightLeftWire := wire{a: routerRightIface, b: rightIface}

	rt := router.New([]*ipnet.NetworkInterface{routerLeftIface, routerRightIface})
	rt.AddRoute(routerLeftIP, 24, nil, 0)
	rt.AddRoute(routerRightIP, 24, nil, 1)

	left := &host{name: "left", iface: leftIface, conn: tcpcore.NewConnection(config.DefaultTCPConfig())}
	right := &host{name: "right", iface: rightIface, conn: tcpcore.NewConnection(config.DefaultTCPConfig())}

	tick := func() {
		leftRightWire.pump()
		rightLeftWire.pump()
		rt.Route()
		left.conn.Tick(uint32(tickInterval.Milliseconds()))
		right.conn.Tick(uint32(tickInterval.Milliseconds()))
	}

	deliverSegments := func(from *host, to netip.Addr, toIface *ipnet.NetworkInterface) {
		for _, seg := range from.conn.SegmentsOut() {
			payload := tcpseg.Marshal(&seg, from.iface.IPAddress(), to)
			dgram := ipnet.NewDatagram(from.iface.IPAddress(), to, 64, 6, payload)
			from.iface.SendDatagram(dgram, nextHopFor(from.iface.IPAddress()))
		}
		_ = toIface
	}

	drainInbound := func(h *host) {
		for _, dgram := range h.iface.DatagramsOut() {
			seg, result := tcpseg.Parse(dgram.Payload, dgram.Header.Src, dgram.Header.Dst)
			if result != tcpseg.NoError {
				continue
			}
			h.conn.SegmentReceived(&seg)
		}
	}

	fmt.Println("tcpsim ready. commands: connect, write <text>, status, tick [n], quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "connect":
			left.conn.Connect()
			deliverSegments(left, rightIP, rightIface)
			fmt.Println("sent syn")

		case strings.HasPrefix(line, "write "):
			n := left.conn.Write([]byte(strings.TrimPrefix(line, "write ")))
			deliverSegments(left, rightIP, rightIface)
			fmt.Printf("queued %d bytes\n", n)

		case line == "status":
			fmt.Printf("left active=%v bytesInFlight=%d\n", left.conn.Active(), left.conn.BytesInFlight())
			fmt.Printf("right active=%v unassembled=%d\n", right.conn.Active(), right.conn.UnassembledBytes())
			out := right.conn.Receiver().StreamOut().Read(right.conn.Receiver().StreamOut().BufferSize())
			if len(out) > 0 {
				fmt.Printf("right received: %q\n", out)
			}

		case strings.HasPrefix(line, "tick"):
			n := 1
			if fields := strings.Fields(line); len(fields) == 2 {
				if parsed, err := strconv.Atoi(fields[1]); err == nil {
					n = parsed
				}
			}
			for i := 0; i < n; i++ {
				tick()
				drainInbound(right)
				deliverSegments(right, leftIP, leftIface)
				drainInbound(left)
			}
			fmt.Printf("advanced %d tick(s)\n", n)

		case line == "quit":
			left.conn.Close()
			right.conn.Close()
			return

		default:
			fmt.Println("unrecognized command")
		}
	}
}

func macFor(n byte) ipnet.EthernetAddress {
	return ipnet.EthernetAddress{0x02, 0x00, 0x00, 0x00, 0x00, n}
}

func nextHopFor(from netip.Addr) netip.Addr {
	switch from.String() {
	case "10.0.0.1":
		return netip.MustParseAddr("10.0.0.2")
	case "10.0.1.2":
		return netip.MustParseAddr("10.0.1.1")
	default:
		return from
	}
}
