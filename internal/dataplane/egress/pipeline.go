// Package egress implements the outbound half of the data plane (C5),
// grounded on original_source/net_packet.c's send_packet/send_udppacket
// and on the teacher's routing.Router/TCP-UDP worker split
// (infrastructure/routing/{server_routing,client_routing}).
package egress

import (
	"net/netip"

	"github.com/notxarb/tinc/internal/codec"
	"github.com/notxarb/tinc/internal/config"
	"github.com/notxarb/tinc/internal/dataplane"
	"github.com/notxarb/tinc/internal/logging"
	"github.com/notxarb/tinc/internal/peer"
	"github.com/notxarb/tinc/internal/platform"
	"github.com/notxarb/tinc/internal/wire"
)

// Pipeline is the per-mesh-instance outbound path (SPEC_FULL.md §4.5). A
// single instance is owned by the data-plane loop and called only from
// its goroutine (SPEC_FULL.md §5); it keeps no lock because it has no
// concurrent callers.
type Pipeline struct {
	Self    *peer.Peer
	Device  dataplane.DeviceIO
	Sockets []dataplane.Socket
	Keys    dataplane.KeyRequester
	Conns   dataplane.ConnectionTerminator
	Config  *config.Config
	Log     logging.Logger

	// lastTOS/tosSet cache the most recently programmed IP_TOS value, so
	// priority inheritance (step 9) only issues a setsockopt when the
	// priority actually changes, matching the original's static `priority`
	// local retained across calls.
	lastTOS int
	tosSet  bool

	// cipherScratch is the AEAD's destination buffer, kept separate from
	// the frame's own backing array so Seal never aliases its input,
	// matching the two-buffer ping-pong in SPEC_FULL.md §4.1/§9.
	cipherScratch [wire.MaxFrameSize]byte

	// plainScratch holds a copy of the frame's original plaintext payload
	// for the duration of sendUDP, so a caller that reuses the same
	// *wire.Frame across several neighbors (broadcast.Broadcaster.Broadcast)
	// gets the untouched plaintext back on every call rather than the
	// previous neighbor's compressed/encrypted bytes.
	plainScratch [wire.MaxFrameSize]byte
}

// New returns a Pipeline with no cached TOS value.
func New(self *peer.Peer, device dataplane.DeviceIO, sockets []dataplane.Socket, keys dataplane.KeyRequester, conns dataplane.ConnectionTerminator, cfg *config.Config, log logging.Logger) *Pipeline {
	return &Pipeline{
		Self:    self,
		Device:  device,
		Sockets: sockets,
		Keys:    keys,
		Conns:   conns,
		Config:  cfg,
		Log:     log,
	}
}

// Send delivers frame to n, choosing local delivery, a TCP meta-connection
// or the UDP fast path, per SPEC_FULL.md §4.5 (send_packet).
func (p *Pipeline) Send(n *peer.Peer, frame *wire.Frame) error {
	if n.IsSelf(p.Self) {
		if p.Config.OverwriteSourceMAC && frame.Length >= 6 {
			copy(frame.Buf[:6], p.Config.LocalMAC[:])
		}
		return p.Device.WritePacket(frame)
	}

	p.Log.TrafficDebugf("sending packet of %d bytes to %s (%s)", frame.Length, n.Name, n.Hostname)

	if !n.Status.Reachable {
		p.Log.TrafficDebugf("node %s (%s) is not reachable", n.Name, n.Hostname)
		return nil
	}

	via := n.NextHop
	if frame.Priority != wire.TCPOnlyPriority && n.Via != p.Self {
		via = n.Via
	}

	if via != n {
		p.Log.TrafficDebugf("sending packet to %s via %s (%s)", n.Name, via.Name, via.Hostname)
	}

	if frame.Priority == wire.TCPOnlyPriority || p.Self.Options.TCPOnly || via.Options.TCPOnly {
		if !via.Connection.Send(frame.Payload()) {
			p.Conns.TerminateConnection(via.Connection, true)
		}
		return nil
	}

	return p.sendUDP(via, frame)
}

// sendUDP carries frame over the UDP fast path to via, falling back to via's
// TCP meta-connection whenever the session isn't ready for UDP yet, per
// SPEC_FULL.md §4.5 (send_udppacket).
func (p *Pipeline) sendUDP(via *peer.Peer, frame *wire.Frame) error {
	if !via.Status.ValidKey {
		p.Log.TrafficDebugf("no valid key known yet for %s (%s), forwarding via TCP", via.Name, via.Hostname)
		if !via.Status.WaitingForKey {
			p.Keys.SendReqKey(via)
			via.Status.WaitingForKey = true
		}
		via.NextHop.Connection.Send(frame.Payload())
		return nil
	}

	if via.Options.PMTUDiscovery && via.MTU.MinMTU == 0 && !frame.IsEthertypeZero() {
		p.Log.TrafficDebugf("no minimum MTU established yet for %s (%s), forwarding via TCP", via.Name, via.Hostname)
		via.NextHop.Connection.Send(frame.Payload())
		return nil
	}

	origLen := frame.Length
	origPriority := frame.Priority
	copy(p.plainScratch[:origLen], frame.Buf[:origLen])
	defer func() { frame.SetPayload(p.plainScratch[:origLen]) }()

	if via.Options.OutCompression != 0 {
		out, err := codec.Compress(via.Options.OutCompression, frame.Payload())
		if err != nil {
			p.Log.Errorf("error while compressing packet to %s (%s): %v", via.Name, via.Hostname, err)
			return nil
		}
		frame.SetPayload(out)
	}

	via.SentSeqno++
	seq := via.SentSeqno

	if via.OutCipher.Active() {
		sealed, err := via.OutCipher.Encrypt(p.cipherScratch[:0], frame.Payload(), seq)
		if err != nil {
			p.Log.Errorf("error while encrypting packet to %s (%s): %v", via.Name, via.Hostname, err)
			return nil
		}
		frame.SetPayload(sealed)
	}

	// The sequence number travels as a cleartext prefix ahead of the
	// ciphertext, never inside it, so a receiver can recover it and
	// derive the matching AEAD nonce before it can call Decrypt.
	frame.PrependSeqno(seq)

	if via.OutDigest.Active() {
		tagged, err := via.OutDigest.Create(frame.Payload())
		if err != nil {
			p.Log.Errorf("error while authenticating packet to %s (%s): %v", via.Name, via.Hostname, err)
			return nil
		}
		frame.SetPayload(tagged)
	}

	sock := p.chooseSocket(via.Address.Addr())
	if sock == nil {
		p.Log.Errorf("no listening socket available to reach %s (%s)", via.Name, via.Hostname)
		return nil
	}

	if p.Config.PriorityInheritance && sock.Family() == 4 && (!p.tosSet || origPriority != p.lastTOS) {
		p.lastTOS = origPriority
		p.tosSet = true
		p.Log.TrafficDebugf("setting outgoing packet priority to %d", origPriority)
		if err := sock.SetTOS(origPriority); err != nil {
			p.Log.Errorf("system call `setsockopt' failed: %v", err)
		}
	}

	if err := sock.SendTo(via.Address, frame.Payload()); err != nil {
		if platform.IsMessageTooLong(err) {
			via.MTU.TightenOnEMSGSIZE(origLen)
		} else {
			p.Log.Errorf("error sending packet to %s (%s): %v", via.Name, via.Hostname, err)
		}
	}

	return nil
}

// chooseSocket picks the listening socket whose address family matches
// addr, falling back to the first socket if none matches (SPEC_FULL.md
// §4.5 step 8: "if none is available, just use the first and hope for
// the best").
func (p *Pipeline) chooseSocket(addr netip.Addr) dataplane.Socket {
	if len(p.Sockets) == 0 {
		return nil
	}
	family := 4
	if addr.Is6() && !addr.Is4In6() {
		family = 6
	}
	for _, s := range p.Sockets {
		if s.Family() == family {
			return s
		}
	}
	return p.Sockets[0]
}
