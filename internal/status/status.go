// Package status publishes a point-in-time view of peer health for
// meshctl to read, grounded on the teacher's
// infrastructure/telemetry/trafficstats package: a Snapshot value type
// plus a Collector that samples on its own ticker, generalized from byte
// counters/rates to per-peer reachability/MTU/compression state. Since
// routing-table computation and the control plane are out of scope
// (SPEC_FULL.md §10), the daemon and the viewer are decoupled through a
// small file on disk rather than an RPC channel of their own.
package status

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/notxarb/tinc/internal/peer"
)

// PeerStatus is the subset of peer.Peer a human operator cares about,
// flattened out of the crypto/replay/MTU handles those fields actually
// live in.
type PeerStatus struct {
	Name           string `json:"name"`
	Hostname       string `json:"hostname"`
	Reachable      bool   `json:"reachable"`
	ValidKey       bool   `json:"validKey"`
	WaitingForKey  bool   `json:"waitingForKey"`
	TCPOnly        bool   `json:"tcpOnly"`
	PMTUDiscovery  bool   `json:"pmtuDiscovery"`
	MTU            int    `json:"mtu"`
	MTUConverged   bool   `json:"mtuConverged"`
	OutCompression int    `json:"outCompression"`
	InCompression  int    `json:"inCompression"`
	SentSeqno      uint32 `json:"sentSeqno"`
	Received       uint32 `json:"received"`
}

// Snapshot is the full point-in-time view written to disk.
type Snapshot struct {
	TakenAt time.Time    `json:"takenAt"`
	Self    string       `json:"self"`
	Peers   []PeerStatus `json:"peers"`
}

// PeerIterator is the same narrow peer-table view internal/dataplane's
// MTU timer consumes, reused here so status doesn't need its own
// collaborator interface.
type PeerIterator interface {
	Peers() []*peer.Peer
}

// Build builds a Snapshot from live peer state, leaving TakenAt zero.
func Build(selfName string, peers PeerIterator) Snapshot {
	ps := peers.Peers()
	out := make([]PeerStatus, 0, len(ps))
	for _, p := range ps {
		out = append(out, PeerStatus{
			Name:           p.Name,
			Hostname:       p.Hostname,
			Reachable:      p.Status.Reachable,
			ValidKey:       p.Status.ValidKey,
			WaitingForKey:  p.Status.WaitingForKey,
			TCPOnly:        p.Options.TCPOnly,
			PMTUDiscovery:  p.Options.PMTUDiscovery,
			MTU:            p.MTU.MTU,
			MTUConverged:   p.MTU.Fixed(),
			OutCompression: p.Options.OutCompression,
			InCompression:  p.Options.InCompression,
			SentSeqno:      p.SentSeqno,
			Received:       p.Replay.Received(),
		})
	}
	return Snapshot{TakenAt: time.Time{}, Self: selfName, Peers: out}
}

// Publisher periodically writes a Snapshot to Path, atomically (write to
// a temp file, then rename) so meshctl never observes a half-written
// file, matching the teacher Collector's "sample on my own ticker"
// shape.
type Publisher struct {
	Path     string
	Self     string
	Peers    PeerIterator
	Interval time.Duration

	now func() time.Time
}

// NewPublisher returns a Publisher that writes to path every interval.
// now defaults to time.Now; tests override it to keep output
// deterministic.
func NewPublisher(path, self string, peers PeerIterator, interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Publisher{Path: path, Self: self, Peers: peers, Interval: interval, now: time.Now}
}

// Run writes one snapshot immediately, then one every Interval, until
// ctx's Done channel closes (passed as a plain channel so callers don't
// need to import context here).
func (p *Publisher) Run(done <-chan struct{}) error {
	if err := p.writeOnce(); err != nil {
		return err
	}
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-ticker.C:
			if err := p.writeOnce(); err != nil {
				return err
			}
		}
	}
}

func (p *Publisher) writeOnce() error {
	snap := Build(p.Self, p.Peers)
	snap.TakenAt = p.now()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.Path)
	tmp, err := os.CreateTemp(dir, ".status-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p.Path)
}

// Read loads the most recently published Snapshot from path.
func Read(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
