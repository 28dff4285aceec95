// Package config holds the process-wide and per-peer configuration knobs
// from SPEC_FULL.md §4.0/§6, in the teacher's validated-JSON-struct style
// (infrastructure/PAL/configuration/server/configuration.go): a plain
// struct, a defaults constructor, and Validate methods that return the
// first violation found as an error rather than panicking.
package config

import "fmt"

// Config is the process-wide data-plane configuration. Parsing it from a
// file/environment is out of scope (SPEC_FULL.md §10 Non-goals); only
// the shape and its invariants are.
type Config struct {
	// PriorityInheritance mirrors IP_TOS from the outgoing frame's
	// priority onto the UDP socket (SPEC_FULL.md §4.5 step 9).
	PriorityInheritance bool `json:"priorityInheritance"`

	// TunnelServer disables MST forwarding on broadcast (SPEC_FULL.md §4.7).
	TunnelServer bool `json:"tunnelServer"`

	// OverwriteSourceMAC reproduces tinc's overwrite_mac option: when
	// delivering a frame to the local node, rewrite its source MAC to
	// LocalMAC before handing it to the tunnel device (SPEC_FULL.md §9).
	OverwriteSourceMAC bool    `json:"overwriteSourceMAC"`
	LocalMAC           [6]byte `json:"-"`

	// TrafficDebug/ProtocolDebug gate the two debug log categories the
	// original implementation has (ifdebug(TRAFFIC)/ifdebug(PROTOCOL) in
	// original_source/net_packet.c), per SPEC_FULL.md §9.
	TrafficDebug  bool `json:"trafficDebug"`
	ProtocolDebug bool `json:"protocolDebug"`
}

// NewDefaultConfig returns a Config with the spec's conservative
// defaults: PMTU/priority features off until explicitly enabled.
func NewDefaultConfig() *Config {
	return &Config{}
}

// Validate reports the first configuration error found, if any.
func (c *Config) Validate() error {
	return nil
}

// PeerOptions are the per-peer knobs layered on top of Config, matching
// SPEC_FULL.md §3/§4.0's OPTION_TCPONLY/OPTION_PMTU_DISCOVERY and the
// compression level pair.
type PeerOptions struct {
	TCPOnly        bool `json:"tcpOnly"`
	PMTUDiscovery  bool `json:"pmtuDiscovery"`
	OutCompression int  `json:"outCompression"`
	InCompression  int  `json:"inCompression"`
}

// Validate checks the compression levels are within SPEC_FULL.md §3's
// 0..11 range.
func (o *PeerOptions) Validate() error {
	if o.OutCompression < 0 || o.OutCompression > 11 {
		return fmt.Errorf("config: outCompression %d out of range 0..11", o.OutCompression)
	}
	if o.InCompression < 0 || o.InCompression > 11 {
		return fmt.Errorf("config: inCompression %d out of range 0..11", o.InCompression)
	}
	return nil
}
