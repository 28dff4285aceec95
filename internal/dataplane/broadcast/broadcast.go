// Package broadcast implements the mesh-wide flood (C7), grounded
// directly on original_source/net_packet.c's broadcast_packet — the
// teacher has no equivalent since it is point-to-point, not a mesh.
package broadcast

import (
	"github.com/notxarb/tinc/internal/config"
	"github.com/notxarb/tinc/internal/dataplane"
	"github.com/notxarb/tinc/internal/logging"
	"github.com/notxarb/tinc/internal/peer"
	"github.com/notxarb/tinc/internal/wire"
)

// Broadcaster floods a frame to every neighbor on the minimum spanning
// tree, per SPEC_FULL.md §4.7.
type Broadcaster struct {
	Self   *peer.Peer
	Sender dataplane.Sender
	Config *config.Config
	Log    logging.Logger
}

// New returns a Broadcaster wired to its collaborators.
func New(self *peer.Peer, sender dataplane.Sender, cfg *config.Config, log logging.Logger) *Broadcaster {
	return &Broadcaster{Self: self, Sender: sender, Config: cfg, Log: log}
}

// Broadcast delivers frame locally (unless it originated locally) and
// then floods it to every MST neighbor except the one it arrived on,
// per SPEC_FULL.md §4.7 (broadcast_packet). neighbors is supplied by the
// routing collaborator and is expected to list every active connection,
// each flagged with whether it is part of the current minimum spanning
// tree.
func (b *Broadcaster) Broadcast(from *peer.Peer, frame *wire.Frame, neighbors []dataplane.Neighbor) {
	b.Log.TrafficDebugf("broadcasting packet of %d bytes from %s (%s)", frame.Length, from.Name, from.Hostname)

	if !from.IsSelf(b.Self) {
		if err := b.Sender.Send(b.Self, frame); err != nil {
			b.Log.Errorf("error delivering broadcast packet locally: %v", err)
		}

		// In TunnelServer mode, never forward broadcasts further: the MST
		// may not be valid yet and could create loops (SPEC_FULL.md §9).
		if b.Config.TunnelServer {
			return
		}
	}

	// Never echo the broadcast straight back out over the meta-connection
	// it arrived on, matching the original's `c != from->nexthop->connection`.
	var arrivedVia peer.Connection
	if from.NextHop != nil {
		arrivedVia = from.NextHop.Connection
	}

	for _, nb := range neighbors {
		if !nb.MSTActive || nb.Connection == arrivedVia {
			continue
		}
		if err := b.Sender.Send(nb.Peer, frame); err != nil {
			b.Log.Errorf("error broadcasting packet to %s (%s): %v", nb.Peer.Name, nb.Peer.Hostname, err)
		}
	}
}
