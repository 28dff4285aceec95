// Command meshd is the mesh data-plane daemon: it owns one tunnel
// device, one listening UDP socket, and the single-threaded
// event loop (internal/dataplane) that ties the codec, replay, MTU and
// routing collaborators together (SPEC_FULL.md §5/§6). Key agreement,
// peer discovery and routing-table computation are Non-goals (SPEC_FULL.md
// §10); meshd wires every peer it's told about at startup as a direct,
// always-reachable neighbor and leaves real control-plane work to a
// future collaborator behind the same interfaces.
//
// Grounded on the teacher's cmd/ entrypoint style (flag-driven
// composition root, signal-driven shutdown via errgroup) generalized
// from a single client/server pair to an arbitrary mesh of peers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.zx2c4.com/wireguard/tun"

	"github.com/notxarb/tinc/internal/config"
	"github.com/notxarb/tinc/internal/dataplane"
	"github.com/notxarb/tinc/internal/dataplane/broadcast"
	"github.com/notxarb/tinc/internal/dataplane/egress"
	"github.com/notxarb/tinc/internal/dataplane/ingress"
	"github.com/notxarb/tinc/internal/logging"
	"github.com/notxarb/tinc/internal/meshtable"
	"github.com/notxarb/tinc/internal/peer"
	"github.com/notxarb/tinc/internal/status"
	"github.com/notxarb/tinc/internal/tundevice"
	"github.com/notxarb/tinc/internal/udpsocket"
	"github.com/notxarb/tinc/internal/wire"
	"golang.org/x/sync/errgroup"
)

// peerFlag collects repeated -peer flags of the form name@host:port.
type peerFlag struct{ specs []string }

func (p *peerFlag) String() string { return strings.Join(p.specs, ",") }
func (p *peerFlag) Set(v string) error {
	p.specs = append(p.specs, v)
	return nil
}

func main() {
	name := flag.String("name", "", "this node's name (required)")
	hostname := flag.String("hostname", "", "this node's hostname, for logging (defaults to -name)")
	tunName := flag.String("tun", "mesh0", "tunnel interface name")
	tunMTU := flag.Int("tun-mtu", 1400, "tunnel interface MTU ceiling")
	listen := flag.String("listen", "0.0.0.0:655", "UDP listen address")
	statusPath := flag.String("status", "", "path to periodically publish peer status JSON (disabled if empty)")
	pmtu := flag.Bool("pmtu-discovery", true, "enable path-MTU discovery for every configured peer")
	trafficDebug := flag.Bool("debug-traffic", false, "log per-packet traffic debug messages")
	protocolDebug := flag.Bool("debug-protocol", false, "log protocol-level debug messages")
	var peers peerFlag
	flag.Var(&peers, "peer", "a known peer as name@host:port; may be repeated")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "meshd: -name is required")
		os.Exit(2)
	}
	if *hostname == "" {
		*hostname = *name
	}

	if err := run(*name, *hostname, *tunName, *tunMTU, *listen, *statusPath, *pmtu, *trafficDebug, *protocolDebug, peers.specs); err != nil {
		fmt.Fprintf(os.Stderr, "meshd: %v\n", err)
		os.Exit(1)
	}
}

func run(name, hostname, tunName string, tunMTU int, listenAddr, statusPath string, pmtuDiscovery, trafficDebug, protocolDebug bool, peerSpecs []string) error {
	self := peer.New(name, hostname)

	cfg := config.NewDefaultConfig()
	cfg.TrafficDebug = trafficDebug
	cfg.ProtocolDebug = protocolDebug
	logger := logging.NewStdLogger(cfg.TrafficDebug, cfg.ProtocolDebug)

	table := meshtable.New()
	for _, spec := range peerSpecs {
		p, err := parsePeerSpec(spec, pmtuDiscovery, tunMTU)
		if err != nil {
			return fmt.Errorf("parsing -peer %q: %w", spec, err)
		}
		table.Add(p)
	}

	dev, err := tun.CreateTUN(tunName, tunMTU)
	if err != nil {
		return fmt.Errorf("creating tunnel device %q: %w", tunName, err)
	}
	adapter := tundevice.New(dev)
	defer adapter.Close()

	addr, err := netip.ParseAddrPort(listenAddr)
	if err != nil {
		return fmt.Errorf("parsing -listen %q: %w", listenAddr, err)
	}
	family := 4
	if addr.Addr().Is6() {
		family = 6
	}
	sock, err := udpsocket.Listen(addr, family)
	if err != nil {
		return fmt.Errorf("binding UDP listener: %w", err)
	}
	defer sock.Close()
	logger.ProtocolDebugf("listening on %s", sock.LocalAddr())

	egressPipeline := egress.New(self, adapter, []dataplane.Socket{sock}, meshtable.NoopKeyRequester{Log: logger}, meshtable.NoopConnTerminator{Log: logger}, cfg, logger)
	broadcaster := broadcast.New(self, egressPipeline, cfg, logger)
	router := &floodRouter{table: table, broadcaster: broadcaster}
	ingressPipeline := ingress.New(router, table, meshtable.NoopRekeyer{Log: logger}, egressPipeline, logger)

	loop := dataplane.NewLoop(self, adapter, []dataplane.UDPListener{sock}, ingressPipeline, router, egressPipeline, table, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(ctx) })

	if statusPath != "" {
		pub := status.NewPublisher(statusPath, self.Name, table, 2*time.Second)
		done := make(chan struct{})
		g.Go(func() error { return pub.Run(done) })
		g.Go(func() error {
			<-ctx.Done()
			close(done)
			return nil
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// floodRouter is meshd's entire routing policy: every frame received
// from the tunnel device or from another peer is treated as a broadcast
// to every known neighbor. Building a real forwarding/unicast decision
// needs the routing-table computation SPEC_FULL.md §10 excludes; this is
// the honest minimum that keeps the data plane's Router collaborator
// satisfied without pretending to solve that problem.
type floodRouter struct {
	table       *meshtable.Table
	broadcaster *broadcast.Broadcaster
}

func (r *floodRouter) Route(from *peer.Peer, f *wire.Frame) {
	neighbors := make([]dataplane.Neighbor, 0, len(r.table.Peers()))
	for _, p := range r.table.Peers() {
		neighbors = append(neighbors, dataplane.Neighbor{Peer: p, Connection: p.Connection, MSTActive: true})
	}
	r.broadcaster.Broadcast(from, f, neighbors)
}

func parsePeerSpec(spec string, pmtuDiscovery bool, tunMTU int) (*peer.Peer, error) {
	at := strings.LastIndex(spec, "@")
	if at < 0 {
		return nil, fmt.Errorf("expected name@host:port")
	}
	name, hostPort := spec[:at], spec[at+1:]
	if name == "" {
		return nil, fmt.Errorf("empty peer name")
	}
	addr, err := netip.ParseAddrPort(hostPort)
	if err != nil {
		return nil, fmt.Errorf("parsing address %q: %w", hostPort, err)
	}

	p := peer.New(name, hostPort)
	p.Address = addr
	p.NextHop = p
	p.Via = p
	p.Status.Reachable = true
	p.Options.PMTUDiscovery = pmtuDiscovery
	p.MTU.MaxMTU = tunMTU
	return p, nil
}

func init() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}
