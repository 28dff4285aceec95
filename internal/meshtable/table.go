// Package meshtable is a minimal, statically-configured peer registry.
// Key agreement, peer authentication and routing-table computation are
// explicit Non-goals (SPEC_FULL.md §10): this package only holds the
// peers a mesh instance was told about at startup and answers the
// lookup/iteration questions the core's collaborator interfaces need,
// the way the teacher's plain-struct configuration types
// (infrastructure/PAL/configuration/server/configuration.go) hold
// validated settings without owning any protocol behavior.
package meshtable

import (
	"net/netip"
	"sync"

	"github.com/notxarb/tinc/internal/logging"
	"github.com/notxarb/tinc/internal/peer"
)

// Table is a concurrency-safe map of known peers by name, with a
// secondary index by last-observed UDP address. Reads happen both from
// the single-threaded dispatcher (dataplane.Loop's goroutine) and from
// internal/status's independent publisher goroutine, so unlike the core
// pipelines it does need its own lock.
type Table struct {
	mu      sync.Mutex
	byName  map[string]*peer.Peer
	byAddr  map[netip.AddrPort]*peer.Peer
	ordered []*peer.Peer
}

// New returns an empty Table.
func New() *Table {
	return &Table{
		byName: make(map[string]*peer.Peer),
		byAddr: make(map[netip.AddrPort]*peer.Peer),
	}
}

// Add registers p under its Name. Panics on a duplicate name: this is
// startup-time configuration wiring, not a runtime path, matching the
// teacher's fail-fast config validation style.
func (t *Table) Add(p *peer.Peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byName[p.Name]; exists {
		panic("meshtable: duplicate peer name " + p.Name)
	}
	t.byName[p.Name] = p
	t.ordered = append(t.ordered, p)
	if p.Address.IsValid() {
		t.byAddr[p.Address] = p
	}
}

// Peers implements dataplane's PeerIterator, returning peers in
// registration order.
func (t *Table) Peers() []*peer.Peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*peer.Peer, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// LookupNodeUDP implements dataplane.NodeResolver.
func (t *Table) LookupNodeUDP(addr netip.AddrPort) (*peer.Peer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.byAddr[addr]
	return p, ok
}

// UpdateNodeUDP implements dataplane.NodeResolver.
func (t *Table) UpdateNodeUDP(p *peer.Peer, addr netip.AddrPort) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.byAddr[p.Address]; ok && old == p {
		delete(t.byAddr, p.Address)
	}
	p.Address = addr
	t.byAddr[addr] = p
}

// EdgesSharingHost implements dataplane.NodeResolver's try-harder
// candidate search: every known peer whose address shares host, in
// registration order (there is no real edge graph to walk without
// routing-table computation, so every peer is its own edge).
func (t *Table) EdgesSharingHost(host netip.Addr) []*peer.Peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*peer.Peer
	for _, p := range t.ordered {
		if p.Address.Addr() == host {
			out = append(out, p)
		}
	}
	return out
}

// NoopKeyRequester and NoopRekeyer stand in for the key-agreement
// control plane (SPEC_FULL.md §10 Non-goal): they log and otherwise do
// nothing, so the core's send_req_key/regenerate_key calls have
// somewhere to go without this module implementing a handshake.
type NoopKeyRequester struct{ Log logging.Logger }

func (k NoopKeyRequester) SendReqKey(p *peer.Peer) {
	k.Log.ProtocolDebugf("key request for %s (%s) ignored: no key-agreement control plane wired", p.Name, p.Hostname)
}

type NoopRekeyer struct{ Log logging.Logger }

func (r NoopRekeyer) RegenerateKey() {
	r.Log.ProtocolDebugf("rekey threshold reached: no key-agreement control plane wired")
}

// NoopConnTerminator answers SPEC_FULL.md §6's terminate_connection for
// meta-connections this package never creates (TCP meta-connection
// establishment is part of the same out-of-scope control plane).
type NoopConnTerminator struct{ Log logging.Logger }

func (c NoopConnTerminator) TerminateConnection(conn peer.Connection, forced bool) {
	c.Log.ProtocolDebugf("terminate_connection(forced=%v) ignored: no meta-connection control plane wired", forced)
}
