// Package mtu implements the path-MTU probing state machine from
// SPEC_FULL.md §4.4 (C4).
//
// Grounded on infrastructure/network/service/mtu's frame-kind
// discrimination pattern (frame_parser.go/handler.go), generalized from
// that package's magic-header service frames down to the exact wire
// discriminator SPEC_FULL.md §4.4/§9 requires (ethertype bytes 12,13
// both zero, payload byte 0 distinguishing probe from reply), and on
// original_source/net_packet.c's send_mtu_probe_handler/mtu_probe_h
// (lines 59-113) for the probe/converge state machine itself.
//
// Prober holds no timer and spawns no goroutine: per SPEC_FULL.md §5, all
// timer scheduling belongs to the single-threaded event loop
// (internal/dataplane), which calls NextRound/HandleProbe synchronously
// and is responsible for re-arming itself 1 second later when NextRound
// says to.
package mtu

import "math/rand"

// minProbeLen is the floor the original clamps probe length to (SPEC_FULL.md §4.4).
const minProbeLen = 64

// linkHeaderLen is the zeroed link-layer header slot at the front of a probe.
const linkHeaderLen = 14

// giveUpAfterProbes: once MTUProbes reaches this with MinMTU still
// unknown, the peer never answered a single probe; stop trying.
const giveUpAfterProbes = 10

// hardStopAfterProbes: once MTUProbes reaches this, converge immediately
// regardless of MinMTU/MaxMTU, to bound how long discovery can run.
const hardStopAfterProbes = 30

// Prober is the per-peer MTU discovery state from SPEC_FULL.md §3: MTU,
// MinMTU, MaxMTU and the consecutive-rounds-without-convergence counter.
type Prober struct {
	MTU       int
	MinMTU    int
	MaxMTU    int
	MTUProbes int

	// fixed is true once convergence has permanently stopped the timer
	// for this peer (SPEC_FULL.md §4.4's "stop the timer permanently").
	fixed bool
}

// NewProber returns a prober with nothing yet discovered. MaxMTU must be
// set by the caller (to the transport's ceiling, e.g. the tunnel
// interface MTU) before the first round runs.
func NewProber() *Prober {
	return &Prober{}
}

// Fixed reports whether MTU discovery has converged and the caller
// should stop re-arming the per-peer timer.
func (p *Prober) Fixed() bool {
	return p.fixed
}

// NextRound advances the prober by one timer tick (or the first manual
// call), per SPEC_FULL.md §4.4. It returns the lengths of up to three
// probe frames to emit this round, and whether the caller should
// schedule another round 1 second from now.
//
// An empty, non-rescheduled result means discovery gave up silently
// (never got a single echoed probe after giveUpAfterProbes rounds). An
// empty result with fixed true means MTU has just converged.
func (p *Prober) NextRound() (probeLens []int, reschedule bool) {
	p.MTUProbes++

	if p.MTUProbes >= giveUpAfterProbes && p.MinMTU == 0 {
		return nil, false
	}

	for i := 0; i < 3; i++ {
		if p.MTUProbes >= hardStopAfterProbes || p.MinMTU >= p.MaxMTU {
			p.MTU = p.MinMTU
			p.fixed = true
			return probeLens, false
		}
		probeLens = append(probeLens, p.probeLength())
	}

	return probeLens, true
}

func (p *Prober) probeLength() int {
	spread := p.MaxMTU - p.MinMTU
	if spread <= 0 {
		spread = 1
	}
	length := p.MinMTU + 1 + rand.Intn(spread)
	if length < minProbeLen {
		length = minProbeLen
	}
	return length
}

// BuildProbe fills dst[:length] with a probe frame: a zeroed 14-byte
// link-layer header slot followed by random bytes, matching SPEC_FULL.md
// §4.4 and §6's probe subformat. Byte 0 is left 0 (outbound probe,
// SPEC_FULL.md §6); the caller sets it to 1 only when turning a received
// probe into a reply.
func BuildProbe(dst []byte, length int) {
	for i := 0; i < length && i < linkHeaderLen; i++ {
		dst[i] = 0
	}
	if length > linkHeaderLen {
		randomFill(dst[linkHeaderLen:length])
	}
}

func randomFill(b []byte) {
	_, _ = rand.Read(b)
}

// ProbeAction tells the caller what to do with a received probe frame.
type ProbeAction int

const (
	// ActionNone means the prober updated its own state; nothing further
	// to send.
	ActionNone ProbeAction = iota
	// ActionReply means this was an outbound probe from the peer; the
	// caller must flip byte 0 to 1 and send the frame back via the
	// normal egress path.
	ActionReply
)

// HandleProbe processes a received probe frame's payload (after
// decompression), where length is the raw post-decompress length
// (SPEC_FULL.md §4.4/§4.6). It returns what the caller must do next.
func (p *Prober) HandleProbe(payload []byte, length int) ProbeAction {
	if len(payload) == 0 {
		return ActionNone
	}
	if payload[0] == 0 {
		payload[0] = 1
		return ActionReply
	}
	if length > p.MinMTU {
		p.MinMTU = length
	}
	return ActionNone
}

// TightenOnEMSGSIZE clamps MaxMTU (and MTU) down after a UDP send fails
// with "message too long" for a frame whose pre-MAC/cipher length was
// origLen, per SPEC_FULL.md §4.4. MinMTU is lowered to the new MaxMTU if
// it now exceeds it, keeping MinMTU <= MTU <= MaxMTU.
func (p *Prober) TightenOnEMSGSIZE(origLen int) {
	if p.MaxMTU >= origLen {
		p.MaxMTU = origLen - 1
	}
	if p.MTU >= origLen {
		p.MTU = origLen - 1
	}
	if p.MinMTU > p.MaxMTU {
		p.MinMTU = p.MaxMTU
	}
}

// IsProbeFrame reports whether a decrypted/decompressed payload's
// ethertype slot (bytes 12,13) is the all-zero probe discriminator from
// SPEC_FULL.md §9.
func IsProbeFrame(payload []byte) bool {
	return len(payload) >= 14 && payload[12] == 0 && payload[13] == 0
}
