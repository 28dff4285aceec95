// Package dataplane wires the egress (C5), ingress (C6) and broadcast
// (C7) pipelines together behind the collaborator interfaces SPEC_FULL.md
// §6 names, mirroring the teacher's separation of application.* contracts
// from infrastructure.* implementations (e.g. application/network/routing.Router
// consumed by infrastructure/routing/*, application/tun_device.TunDevice
// consumed by infrastructure/tun_device).
package dataplane

import (
	"net/netip"

	"github.com/notxarb/tinc/internal/peer"
	"github.com/notxarb/tinc/internal/wire"
)

// DeviceIO is the tunnel device I/O collaborator (SPEC_FULL.md §6's
// read_packet/write_packet), grounded on application/tun_device.TunDevice.
type DeviceIO interface {
	ReadPacket(f *wire.Frame) error
	WritePacket(f *wire.Frame) error
}

// Router hands an authenticated, plaintext inbound frame to the routing
// collaborator (SPEC_FULL.md §6's route(peer, frame)).
type Router interface {
	Route(from *peer.Peer, f *wire.Frame)
}

// Sender is the egress pipeline as seen by the ingress pipeline: the one
// hook ingress needs to turn a received MTU probe around and send it back
// out (SPEC_FULL.md §4.4's mtu_probe_h calling send_packet), without
// ingress importing egress directly.
type Sender interface {
	Send(n *peer.Peer, f *wire.Frame) error
}

// KeyRequester asks the control plane for a session key with a peer
// (SPEC_FULL.md §6's send_req_key).
type KeyRequester interface {
	SendReqKey(p *peer.Peer)
}

// Rekeyer asks the control plane to regenerate the local key
// (SPEC_FULL.md §6's regenerate_key).
type Rekeyer interface {
	RegenerateKey()
}

// ConnectionTerminator tears down a dead TCP meta-connection
// (SPEC_FULL.md §6's terminate_connection).
type ConnectionTerminator interface {
	TerminateConnection(c peer.Connection, forced bool)
}

// NodeResolver is the peer-lookup collaborator the ingress pipeline's
// try-harder heuristic depends on (SPEC_FULL.md §4.6,
// lookup_node_udp/update_node_udp/edge iteration).
type NodeResolver interface {
	// LookupNodeUDP finds a peer whose known UDP address matches addr
	// exactly (host and port).
	LookupNodeUDP(addr netip.AddrPort) (*peer.Peer, bool)
	// UpdateNodeUDP records a newly observed address for a peer, used
	// once try-harder resolves it.
	UpdateNodeUDP(p *peer.Peer, addr netip.AddrPort)
	// EdgesSharingHost returns peers known to have an edge whose remote
	// endpoint shares host's IP, port-agnostic, in iteration order — the
	// candidate set try-harder walks.
	EdgesSharingHost(host netip.Addr) []*peer.Peer
}

// Socket is one of the process's listening UDP sockets (SPEC_FULL.md §4.5
// step 8/9): a family-specific send path with an IP_TOS knob.
type Socket interface {
	Family() int // 4 or 6, matching netip.Addr.Is4()/Is6()
	SendTo(addr netip.AddrPort, data []byte) error
	SetTOS(tos int) error
}

// Neighbor is one control-plane connection the broadcaster may forward a
// frame to (SPEC_FULL.md §4.7): the peer it connects to, whether it is
// part of the minimum spanning tree, and the connection handle itself
// (used to exclude the inbound neighbor's connection).
type Neighbor struct {
	Peer       *peer.Peer
	Connection peer.Connection
	MSTActive  bool
}
