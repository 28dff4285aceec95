package dataplane

import (
	"context"
	"net/netip"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/notxarb/tinc/internal/logging"
	"github.com/notxarb/tinc/internal/mtu"
	"github.com/notxarb/tinc/internal/peer"
	"github.com/notxarb/tinc/internal/wire"
)

// UDPListener is a listening UDP socket's receive side, kept separate
// from Socket (its send side) because the loop's reader goroutines only
// ever call ReadFrom, never SendTo/SetTOS — those belong to
// egress.Pipeline alone, per SPEC_FULL.md §5's single-writer rule.
type UDPListener interface {
	ReadFrom(buf []byte) (n int, from netip.AddrPort, err error)
}

// UDPHandler is the ingress pipeline's entry point for one received
// datagram, narrowed to what the loop needs to dispatch into it.
type UDPHandler interface {
	OnUDPReadable(data []byte, from netip.AddrPort)
}

// PeerIterator lets the loop's MTU timer find the peers it must re-probe,
// without the loop owning peer bookkeeping itself (that stays the
// control plane's job, per SPEC_FULL.md §1's Non-goals).
type PeerIterator interface {
	Peers() []*peer.Peer
}

// Loop is the single-threaded event loop SPEC_FULL.md §5 mandates: every
// ingress datagram, tunnel read and MTU timer tick is funneled through
// one designated goroutine (dispatch), so egress.Pipeline,
// ingress.Pipeline and broadcast.Broadcaster never observe concurrent
// calls and need no locking of their own. Grounded on the teacher's
// per-direction HandleTun/HandleTransport reader goroutines
// (infrastructure/routing/server_routing/routing/udp_chacha20/worker.go),
// generalized from "one worker per transport direction" to "one event
// dispatcher per mesh instance" plus N stateless reader goroutines that
// only decode bytes off the wire and hand them to the dispatcher.
type Loop struct {
	Self       *peer.Peer
	Device     DeviceIO
	Listeners  []UDPListener
	UDPHandler UDPHandler
	Router     Router
	Sender     Sender
	Peers      PeerIterator
	Log        logging.Logger

	events chan func()
}

// NewLoop returns a Loop ready to Run.
func NewLoop(self *peer.Peer, device DeviceIO, listeners []UDPListener, handler UDPHandler, router Router, sender Sender, peers PeerIterator, log logging.Logger) *Loop {
	return &Loop{
		Self:       self,
		Device:     device,
		Listeners:  listeners,
		UDPHandler: handler,
		Router:     router,
		Sender:     sender,
		Peers:      peers,
		Log:        log,
		events:     make(chan func(), 64),
	}
}

// Run starts the reader goroutines and the MTU timer, then drains events
// on the calling goroutine until ctx is done. Read errors are logged and
// the reader keeps going, so Run returns nil once every goroutine exits.
func (l *Loop) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return l.readDevice(ctx) })
	for _, listener := range l.Listeners {
		listener := listener
		g.Go(func() error { return l.readUDP(ctx, listener) })
	}
	g.Go(func() error { return l.runMTUTimer(ctx) })
	g.Go(func() error { return l.dispatch(ctx) })

	return g.Wait()
}

// post queues fn to run on the dispatcher goroutine, blocking only long
// enough to hand it off (or until ctx is done).
func (l *Loop) post(ctx context.Context, fn func()) {
	select {
	case l.events <- fn:
	case <-ctx.Done():
	}
}

func (l *Loop) dispatch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.events:
			fn()
		}
	}
}

// readDevice blocks on tunnel reads and posts each decoded frame to the
// routing collaborator via the dispatcher (SPEC_FULL.md §6's
// handle_device_data: read_packet then route(myself, packet)).
//
// The read itself happens off the dispatcher goroutine (ReadPacket may
// block indefinitely); only the handoff runs on it, so a tunnel read can
// be in flight against the kernel while the dispatcher still only ever
// processes one event at a time.
func (l *Loop) readDevice(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame := wire.NewFrame()
		if err := l.Device.ReadPacket(frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.Log.Errorf("failed to read from tunnel device: %v", err)
			continue
		}

		l.post(ctx, func() {
			l.Router.Route(l.Self, frame)
		})
	}
}

func (l *Loop) readUDP(ctx context.Context, listener UDPListener) error {
	buf := make([]byte, wire.MaxFrameSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, from, err := listener.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.Log.Errorf("receiving packet failed: %v", err)
			continue
		}

		data := append([]byte(nil), buf[:n]...)
		l.post(ctx, func() {
			l.UDPHandler.OnUDPReadable(data, from)
		})
	}
}

// runMTUTimer re-arms every peer's probe round once a second, per
// SPEC_FULL.md §4.4. NextRound/BuildProbe run on the dispatcher goroutine
// since they read/write Prober state shared with the ingress pipeline's
// HandleProbe.
func (l *Loop) runMTUTimer(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.post(ctx, l.tickMTU)
		}
	}
}

func (l *Loop) tickMTU() {
	for _, p := range l.Peers.Peers() {
		if !p.Options.PMTUDiscovery || p.MTU.Fixed() {
			continue
		}
		lens, _ := p.MTU.NextRound()
		for _, length := range lens {
			buf := make([]byte, length)
			mtu.BuildProbe(buf, length)
			probe := wire.NewFrame()
			probe.SetPayload(buf)
			probe.Priority = 0

			l.Log.TrafficDebugf("sending MTU probe length %d to %s (%s)", length, p.Name, p.Hostname)
			if err := l.Sender.Send(p, probe); err != nil {
				l.Log.Errorf("error sending MTU probe to %s (%s): %v", p.Name, p.Hostname, err)
			}
		}
	}
}
