// Package router implements longest-prefix-match IPv4 forwarding over a
// set of NetworkInterfaces.
package router

import (
	"net/netip"

	"iptcp-core/ipnet"

	"github.com/sirupsen/logrus"
)

var log logrus.FieldLogger = logrus.StandardLogger()

// SetLogger overrides the package-level diagnostic logger.
func SetLogger(l logrus.FieldLogger) { log = l }

type route struct {
	prefix   netip.Prefix
	nextHop  *netip.Addr
	ifaceIdx int
}

// Router forwards datagrams between a set of interfaces using a
// longest-prefix-match routing table.
type Router struct {
	interfaces []*ipnet.NetworkInterface
	routes     []route
}

// New constructs a Router over the given interfaces, in the order they
// should be indexed for AddRoute's ifaceIdx.
func New(interfaces []*ipnet.NetworkInterface) *Router {
	return &Router{interfaces: interfaces}
}

// AddRoute installs a forwarding entry for prefix/prefixLen: datagrams
// matching it forward out interfaces[ifaceIdx], to nextHop if set or
// directly to the datagram's destination otherwise (a directly-connected
// route).
func (r *Router) AddRoute(prefix netip.Addr, prefixLen int, nextHop *netip.Addr, ifaceIdx int) {
	p := netip.PrefixFrom(prefix, prefixLen).Masked()
	r.routes = append(r.routes, route{prefix: p, nextHop: nextHop, ifaceIdx: ifaceIdx})
	log.WithField("prefix", p.String()).WithField("interface", ifaceIdx).Debug("route added")
}

func (r *Router) match(dst netip.Addr) (route, bool) {
	var best route
	found := false
	for _, rt := range r.routes {
		if !rt.prefix.Contains(dst) {
			continue
		}
		if !found || rt.prefix.Bits() > best.prefix.Bits() {
			best = rt
			found = true
		}
	}
	return best, found
}

// RouteOneDatagram forwards a single datagram: decrementing its TTL and
// dropping it if that reaches zero (or it was already zero), then
// forwarding via the longest matching route, dropping silently if none
// matches.
func (r *Router) RouteOneDatagram(dgram ipnet.Datagram) {
	if dgram.Header.TTL <= 0 {
		return
	}
	dgram.Header.TTL--
	if dgram.Header.TTL <= 0 {
		return
	}

	dst := dgram.Header.Dst

	rt, found := r.match(dst)
	if !found {
		return
	}

	nextHop := dst
	if rt.nextHop != nil {
		nextHop = *rt.nextHop
	}

	if rt.ifaceIdx < 0 || rt.ifaceIdx >= len(r.interfaces) {
		return
	}
	r.interfaces[rt.ifaceIdx].SendDatagram(dgram, nextHop)
}

// Route drains every interface's inbound datagram queue through
// RouteOneDatagram.
func (r *Router) Route() {
	for _, iface := range r.interfaces {
		for _, dgram := range iface.DatagramsOut() {
			r.RouteOneDatagram(dgram)
		}
	}
}
