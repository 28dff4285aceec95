// Package ingress implements the inbound half of the data plane (C6),
// grounded on original_source/net_packet.c's handle_incoming_vpn_data/
// receive_udppacket/receive_tcppacket/try_harder.
package ingress

import (
	"net/netip"

	"github.com/notxarb/tinc/internal/codec"
	"github.com/notxarb/tinc/internal/dataplane"
	"github.com/notxarb/tinc/internal/logging"
	"github.com/notxarb/tinc/internal/mtu"
	"github.com/notxarb/tinc/internal/peer"
	"github.com/notxarb/tinc/internal/wire"
)

// Pipeline is the per-mesh-instance inbound path (SPEC_FULL.md §4.6),
// owned by the same single-threaded loop as egress.Pipeline.
type Pipeline struct {
	Router   dataplane.Router
	Resolver dataplane.NodeResolver
	Rekeyer  dataplane.Rekeyer
	Sender   dataplane.Sender
	Log      logging.Logger

	cipherScratch [wire.MaxFrameSize]byte
}

// New returns a Pipeline wired to its collaborators.
func New(router dataplane.Router, resolver dataplane.NodeResolver, rekeyer dataplane.Rekeyer, sender dataplane.Sender, log logging.Logger) *Pipeline {
	return &Pipeline{
		Router:   router,
		Resolver: resolver,
		Rekeyer:  rekeyer,
		Sender:   sender,
		Log:      log,
	}
}

// OnUDPReadable handles one UDP datagram just read off a listening
// socket: data is the raw wire bytes, from is the sender's address
// (SPEC_FULL.md §4.6, handle_incoming_vpn_data). The recvfrom syscall
// itself is the caller's/socket collaborator's concern.
func (p *Pipeline) OnUDPReadable(data []byte, from netip.AddrPort) {
	n, ok := p.Resolver.LookupNodeUDP(from)
	if !ok {
		n = p.tryHarder(from, data)
		if n == nil {
			p.Log.ProtocolDebugf("received UDP packet from unknown source %s", from)
			return
		}
		p.Resolver.UpdateNodeUDP(n, from)
	}

	frame := wire.NewFrame()
	frame.SetPayload(data)
	p.receiveUDP(n, frame)
}

// tryHarder walks the peers known to have an edge whose address matches
// from's host (port-agnostic), preferring the first candidate whose MAC
// actually verifies, falling back to the first candidate seen at all if
// none does, per SPEC_FULL.md §4.6 (try_harder). Returns nil if there are
// no candidates whatsoever.
func (p *Pipeline) tryHarder(from netip.AddrPort, data []byte) *peer.Peer {
	var fallback *peer.Peer
	for _, cand := range p.Resolver.EdgesSharingHost(from.Addr()) {
		if fallback == nil {
			fallback = cand
		}
		if tryMAC(cand, data) {
			return cand
		}
	}
	return fallback
}

// tryMAC reports whether data authenticates against p's inbound digest,
// per SPEC_FULL.md §4.6 (try_mac). A peer with no active digest, or data
// too short to carry one, never matches.
func tryMAC(p *peer.Peer, data []byte) bool {
	if !p.InDigest.Active() {
		return false
	}
	if len(data) < wire.SeqnoSize+p.InDigest.Length() {
		return false
	}
	return p.InDigest.Verify(data) == nil
}

// OnTCPData handles a frame that arrived over n's TCP meta-connection
// (SPEC_FULL.md §4.6, receive_tcppacket). It carries no crypto framing of
// its own — the meta-connection is already a reliable, ordered channel —
// so it goes straight to the router. tcpOnly mirrors the connection's
// OPTION_TCPONLY bit: such frames get TCPOnlyPriority, so a later re-send
// through egress.Pipeline.Send stays on TCP; all other frames get
// priority 0 and may be re-sent over UDP.
func (p *Pipeline) OnTCPData(n *peer.Peer, data []byte, tcpOnly bool) {
	frame := wire.NewFrame()
	frame.SetPayload(data)
	if tcpOnly {
		frame.Priority = wire.TCPOnlyPriority
	} else {
		frame.Priority = 0
	}
	p.deliver(n, frame)
}

// receiveUDP authenticates, decrypts and decompresses one UDP datagram
// from n, then dispatches it to the MTU prober or the router, per
// SPEC_FULL.md §4.6 (receive_udppacket).
func (p *Pipeline) receiveUDP(n *peer.Peer, frame *wire.Frame) {
	if !n.InCipher.Active() {
		p.Log.TrafficDebugf("got packet from %s (%s) but he hasn't got our key yet", n.Name, n.Hostname)
		return
	}

	macLen := 0
	if n.InDigest.Active() {
		macLen = n.InDigest.Length()
	}
	if frame.Length < wire.SeqnoSize+macLen {
		p.Log.TrafficDebugf("got too short packet from %s (%s)", n.Name, n.Hostname)
		return
	}

	if n.InDigest.Active() {
		if err := n.InDigest.Verify(frame.Payload()); err != nil {
			p.Log.TrafficDebugf("got unauthenticated packet from %s (%s)", n.Name, n.Hostname)
			return
		}
		frame.Length -= codec.DigestSize
	}

	seq := frame.StripSeqno()

	if n.InCipher.Active() {
		opened, err := n.InCipher.Decrypt(p.cipherScratch[:0], frame.Payload(), seq)
		if err != nil {
			p.Log.TrafficDebugf("error decrypting packet from %s (%s)", n.Name, n.Hostname)
			return
		}
		frame.SetPayload(opened)
	}

	gap, rekey, err := n.Replay.Admit(seq)
	if err != nil {
		p.Log.Warnf("got late or replayed packet from %s (%s), seqno %d, last received %d", n.Name, n.Hostname, seq, n.Replay.Received())
		return
	}
	if gap > 0 {
		p.Log.Warnf("lost %d packets from %s (%s)", gap, n.Name, n.Hostname)
	}
	if rekey {
		p.Rekeyer.RegenerateKey()
	}

	if n.Options.InCompression != 0 {
		out, err := codec.Decompress(n.Options.InCompression, frame.Payload())
		if err != nil {
			p.Log.Errorf("error while uncompressing packet from %s (%s): %v", n.Name, n.Hostname, err)
			return
		}
		frame.SetPayload(out)
	}

	frame.Priority = 0

	if frame.IsEthertypeZero() {
		switch n.MTU.HandleProbe(frame.Payload(), frame.Length) {
		case mtu.ActionReply:
			p.Log.TrafficDebugf("got MTU probe length %d from %s (%s)", frame.Length, n.Name, n.Hostname)
			if err := p.Sender.Send(n, frame); err != nil {
				p.Log.Errorf("error replying to MTU probe from %s (%s): %v", n.Name, n.Hostname, err)
			}
		case mtu.ActionNone:
			p.Log.TrafficDebugf("got MTU probe length %d from %s (%s)", frame.Length, n.Name, n.Hostname)
		}
		return
	}

	p.deliver(n, frame)
}

// deliver hands an authenticated, decompressed frame to the routing
// collaborator, per SPEC_FULL.md §4.6 (receive_packet).
func (p *Pipeline) deliver(n *peer.Peer, frame *wire.Frame) {
	p.Log.TrafficDebugf("received packet of %d bytes from %s (%s)", frame.Length, n.Name, n.Hostname)
	p.Router.Route(n, frame)
}
