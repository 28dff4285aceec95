package dataplane

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/notxarb/tinc/internal/logging"
	"github.com/notxarb/tinc/internal/peer"
	"github.com/notxarb/tinc/internal/wire"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*peer.Peer
}

func (s *fakeSender) Send(n *peer.Peer, f *wire.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}

type fakePeers struct {
	peers []*peer.Peer
}

func (p *fakePeers) Peers() []*peer.Peer { return p.peers }

func TestLoop_Dispatch_RunsPostedEventsSerially(t *testing.T) {
	l := NewLoop(peer.New("self", "self.example"), nil, nil, nil, nil, nil, &fakePeers{}, logging.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() { _ = l.dispatch(ctx); close(done) }()

	var order []int
	var mu sync.Mutex
	wg := sync.WaitGroup{}
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		l.post(ctx, func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 5 {
		t.Fatalf("expected 5 events processed, got %d", len(order))
	}
}

func TestLoop_TickMTU_SkipsFixedAndDisabledPeers(t *testing.T) {
	disabled := peer.New("disabled", "disabled.example")

	fixed := peer.New("fixed", "fixed.example")
	fixed.Options.PMTUDiscovery = true
	fixed.MTU.MaxMTU = 100
	fixed.MTU.MinMTU = 100
	fixed.MTU.NextRound() // converges: MinMTU >= MaxMTU

	active := peer.New("active", "active.example")
	active.Options.PMTUDiscovery = true
	active.MTU.MaxMTU = 1500
	active.MTU.MinMTU = 100

	sender := &fakeSender{}
	l := NewLoop(nil, nil, nil, nil, nil, sender, &fakePeers{peers: []*peer.Peer{disabled, fixed, active}}, logging.NewNoopLogger())

	l.tickMTU()

	if len(sender.sent) == 0 {
		t.Fatal("expected at least one probe sent to the active peer")
	}
	for _, p := range sender.sent {
		if p != active {
			t.Fatalf("expected probes only for the active peer, got a send to %v", p)
		}
	}
}

func TestLoop_ReadDevice_RoutesToSelf(t *testing.T) {
	self := peer.New("self", "self.example")
	router := &fakeLoopRouter{}

	dev := &countedDevice{limit: 1, block: make(chan struct{})}
	defer close(dev.block)
	l := NewLoop(self, dev, nil, nil, router, nil, &fakePeers{}, logging.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = l.dispatch(ctx); close(done) }()
	go func() { _ = l.readDevice(ctx) }()

	deadline := time.After(time.Second)
	for {
		router.mu.Lock()
		n := len(router.routed)
		router.mu.Unlock()
		if n >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for a routed frame")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	<-done

	router.mu.Lock()
	defer router.mu.Unlock()
	if router.routed[0] != self {
		t.Fatalf("expected the frame routed from self, got %v", router.routed[0])
	}
}

type fakeLoopRouter struct {
	mu     sync.Mutex
	routed []*peer.Peer
}

func (r *fakeLoopRouter) Route(from *peer.Peer, f *wire.Frame) {
	r.mu.Lock()
	r.routed = append(r.routed, from)
	r.mu.Unlock()
}

// countedDevice returns limit successful reads, then blocks forever
// (simulating a tunnel with nothing further to read) until ctx is done.
type countedDevice struct {
	mu    sync.Mutex
	limit int
	block chan struct{}
}

func (d *countedDevice) ReadPacket(f *wire.Frame) error {
	d.mu.Lock()
	if d.limit > 0 {
		d.limit--
		d.mu.Unlock()
		f.SetPayload([]byte("hello"))
		return nil
	}
	d.mu.Unlock()
	<-d.block
	return nil
}

func (d *countedDevice) WritePacket(f *wire.Frame) error { return nil }
