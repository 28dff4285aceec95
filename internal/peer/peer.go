// Package peer defines the per-remote-node state container described in
// SPEC_FULL.md §3/§4.3 (C3). It deliberately has no behavior of its own;
// mutation of each field group is owned by exactly one other component
// (replay, mtu, egress), matching the teacher's plain-struct state
// containers (e.g. infrastructure/PAL/configuration/server/configuration.go)
// rather than the C original's ad-hoc node_t with mixed ownership.
package peer

import (
	"net/netip"

	"github.com/notxarb/tinc/internal/codec"
	"github.com/notxarb/tinc/internal/mtu"
	"github.com/notxarb/tinc/internal/replay"
)

// Status holds the reachability/key-negotiation bits from SPEC_FULL.md
// §3. Written by the control plane; read by the core.
type Status struct {
	Reachable     bool
	ValidKey      bool
	WaitingForKey bool
}

// TransportCarrier names the two carrier choices for a peer: relaying
// through NextHop, or sending directly. No Peer field holds one; the
// egress pipeline picks its carrier from the Via and NextHop hooks.
type TransportCarrier int

const (
	// CarrierViaNextHop routes through NextHop (the mesh relay path).
	CarrierViaNextHop TransportCarrier = iota
	// CarrierDirect sends straight to this peer.
	CarrierDirect
)

// Options are the per-peer configuration knobs from SPEC_FULL.md §4.0/§6.
type Options struct {
	TCPOnly        bool
	PMTUDiscovery  bool
	OutCompression int // 0..11, codec.Level
	InCompression  int // 0..11, codec.Level
}

// Connection is the minimal TCP meta-connection contract the egress/
// ingress pipelines need (SPEC_FULL.md §6's send_tcppacket/
// terminate_connection collaborators). The concrete connection lives in
// the control plane; the core only holds a handle.
type Connection interface {
	// Send writes frame bytes over the meta-connection. A false return
	// (not an error) signals the connection is dead, matching
	// send_tcppacket's bool return in SPEC_FULL.md §6.
	Send(frame []byte) bool
}

// Peer is the per-remote-node state container from SPEC_FULL.md §3.
type Peer struct {
	// Identity.
	Name     string
	Hostname string
	Address  netip.AddrPort

	// Status bits, written by the control plane.
	Status Status

	// Crypto handles. Inbound/outbound are separate handles because the
	// two directions may be at different epochs during a rekey.
	InCipher  *codec.Cipher
	OutCipher *codec.Cipher
	InDigest  *codec.Digest
	OutDigest *codec.Digest

	// Sequence state, owned exclusively by internal/dataplane/egress and
	// internal/replay respectively (SPEC_FULL.md §4.3).
	SentSeqno uint32
	Replay    *replay.Window

	// MTU state, owned exclusively by internal/mtu (SPEC_FULL.md §4.3).
	MTU *mtu.Prober

	// Routing hooks, read-only to the core; maintained by the routing
	// collaborator.
	NextHop    *Peer
	Via        *Peer
	Connection Connection

	// Per-peer options (SPEC_FULL.md §4.0/§6).
	Options Options
}

// New returns a Peer with fresh crypto, replay and MTU state, all
// inactive/zeroed until the control plane installs keys and the MTU
// prober runs its first round.
func New(name, hostname string) *Peer {
	return &Peer{
		Name:      name,
		Hostname:  hostname,
		InCipher:  codec.NewCipher(),
		OutCipher: codec.NewCipher(),
		InDigest:  codec.NewDigest(),
		OutDigest: codec.NewDigest(),
		Replay:    replay.NewWindow(),
		MTU:       mtu.NewProber(),
	}
}

// IsSelf reports whether this peer represents the local node — the
// SPEC_FULL.md §4.5 "if peer is the local node" branch uses identity
// comparison, not a dedicated flag, matching the original's `n == myself`.
func (p *Peer) IsSelf(self *Peer) bool {
	return p == self
}
