// Package config holds the plain option structs that replace the
// teacher's file-based lnxconfig: this system has no configuration file or
// CLI of its own (spec §6), so configuration is just Go values a host
// program constructs and passes in.
package config

import "time"

// TCPConfig bundles the knobs a TCPConnection needs, mirroring libsponge's
// TCPConfig struct.
type TCPConfig struct {
	// RecvCapacity bounds the receiver's reassembly + output stream.
	RecvCapacity int
	// SendCapacity bounds the sender's outgoing byte stream.
	SendCapacity int
	// RTTimeout is the initial retransmission timeout in milliseconds.
	RTTimeout uint32
	// MaxRetxAttempts is the number of consecutive retransmissions
	// tolerated before the connection gives up and resets.
	MaxRetxAttempts uint32
	// MaxPayloadSize bounds how many payload bytes a single outgoing
	// segment may carry.
	MaxPayloadSize int
	// FixedISN, if non-nil, pins the sender's initial sequence number
	// instead of drawing a random one. Tests use this.
	FixedISN *uint32
}

// DefaultTCPConfig returns the knobs libsponge ships as defaults.
func DefaultTCPConfig() TCPConfig {
	return TCPConfig{
		RecvCapacity:    64000,
		SendCapacity:    64000,
		RTTimeout:       1000,
		MaxRetxAttempts: 8,
		MaxPayloadSize:  1452,
	}
}

// NetworkInterfaceConfig bundles the ARP timing knobs for NetworkInterface.
type NetworkInterfaceConfig struct {
	// ARPCacheTTL is how long a learned IP->Ethernet mapping stays valid.
	ARPCacheTTL time.Duration
	// ARPRequestInterval suppresses re-requesting the same unresolved IP
	// more often than this.
	ARPRequestInterval time.Duration
}

// DefaultNetworkInterfaceConfig returns the timings spec §3 fixes.
func DefaultNetworkInterfaceConfig() NetworkInterfaceConfig {
	return NetworkInterfaceConfig{
		ARPCacheTTL:        30 * time.Second,
		ARPRequestInterval: 5 * time.Second,
	}
}
