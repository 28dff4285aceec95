package status

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/notxarb/tinc/internal/peer"
)

type fakePeers struct{ peers []*peer.Peer }

func (f *fakePeers) Peers() []*peer.Peer { return f.peers }

func TestBuild_FlattensPeerFields(t *testing.T) {
	p := peer.New("a", "a.example")
	p.Status.Reachable = true
	p.Options.TCPOnly = true
	p.MTU.MaxMTU = 1500
	p.MTU.MinMTU = 1500
	p.MTU.NextRound()

	snap := Build("self", &fakePeers{peers: []*peer.Peer{p}})
	if snap.Self != "self" {
		t.Fatalf("expected self name preserved, got %q", snap.Self)
	}
	if len(snap.Peers) != 1 {
		t.Fatalf("expected one peer, got %d", len(snap.Peers))
	}
	got := snap.Peers[0]
	if got.Name != "a" || !got.Reachable || !got.TCPOnly {
		t.Fatalf("unexpected flattened status: %+v", got)
	}
}

func TestPublisherRun_WritesAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "status.json")

	p := peer.New("a", "a.example")
	pub := NewPublisher(path, "self", &fakePeers{peers: []*peer.Peer{p}}, 10*time.Millisecond)
	pub.now = func() time.Time { return time.Unix(1000, 0) }

	done := make(chan struct{})
	errCh := make(chan error, 1)
	go func() { errCh <- pub.Run(done) }()

	deadline := time.After(time.Second)
	for {
		snap, err := Read(path)
		if err == nil && len(snap.Peers) == 1 {
			if snap.TakenAt.Unix() != 1000 {
				t.Fatalf("expected stamped time, got %v", snap.TakenAt)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the status file to appear")
		case <-time.After(time.Millisecond):
		}
	}

	close(done)
	if err := <-errCh; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
