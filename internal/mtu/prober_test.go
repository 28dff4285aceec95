package mtu

import "testing"

func TestProber_GivesUpSilentlyWithoutAnyEcho(t *testing.T) {
	p := NewProber()
	p.MaxMTU = 1500

	var lastLens []int
	var lastReschedule bool
	for i := 0; i < giveUpAfterProbes; i++ {
		lastLens, lastReschedule = p.NextRound()
		if i < giveUpAfterProbes-1 && !lastReschedule {
			t.Fatalf("round %d: expected reschedule before giving up", i)
		}
	}
	if lastReschedule {
		t.Fatal("expected give-up round to not reschedule")
	}
	if len(lastLens) != 0 {
		t.Fatalf("expected no probes emitted on give-up round, got %d", len(lastLens))
	}
	if p.Fixed() {
		t.Fatal("giving up is not the same as converging: Fixed should remain false")
	}
}

func TestProber_EmitsThreeProbesPerRound(t *testing.T) {
	p := NewProber()
	p.MaxMTU = 1500
	p.MinMTU = 100

	lens, reschedule := p.NextRound()
	if !reschedule {
		t.Fatal("expected reschedule")
	}
	if len(lens) != 3 {
		t.Fatalf("expected 3 probes, got %d", len(lens))
	}
	for _, l := range lens {
		if l < minProbeLen {
			t.Fatalf("probe length %d below floor %d", l, minProbeLen)
		}
		if l < p.MinMTU || l > p.MaxMTU {
			t.Fatalf("probe length %d out of [minmtu,maxmtu] range", l)
		}
	}
}

func TestProber_HandleProbe_OutboundBecomesReply(t *testing.T) {
	p := NewProber()
	payload := make([]byte, 600)
	action := p.HandleProbe(payload, 600)
	if action != ActionReply {
		t.Fatalf("expected ActionReply for outbound probe (byte0=0), got %v", action)
	}
	if payload[0] != 1 {
		t.Fatalf("expected byte0 flipped to 1, got %d", payload[0])
	}
}

// Property 8: a probe of length exactly minmtu+1 is accepted; its reply
// raises minmtu to its length.
func TestProber_ReplyRaisesMinMTU(t *testing.T) {
	p := NewProber()
	p.MinMTU = 600
	payload := make([]byte, 601)
	payload[0] = 1 // this is a reply to one of our outbound probes
	action := p.HandleProbe(payload, 601)
	if action != ActionNone {
		t.Fatalf("expected ActionNone for a reply, got %v", action)
	}
	if p.MinMTU != 601 {
		t.Fatalf("MinMTU = %d, want 601", p.MinMTU)
	}

	// A shorter reply must not lower MinMTU.
	shorter := make([]byte, 500)
	shorter[0] = 1
	p.HandleProbe(shorter, 500)
	if p.MinMTU != 601 {
		t.Fatalf("MinMTU should not decrease, got %d", p.MinMTU)
	}
}

// Property 9: EMSGSIZE at length N sets MaxMTU <= N-1.
func TestProber_TightenOnEMSGSIZE(t *testing.T) {
	p := NewProber()
	p.MaxMTU = 1500
	p.MTU = 1500

	p.TightenOnEMSGSIZE(1400)
	if p.MaxMTU != 1399 {
		t.Fatalf("MaxMTU = %d, want 1399", p.MaxMTU)
	}
	if p.MTU != 1399 {
		t.Fatalf("MTU = %d, want 1399", p.MTU)
	}
}

func TestProber_TightenOnEMSGSIZE_NoOpWhenAlreadyLower(t *testing.T) {
	p := NewProber()
	p.MaxMTU = 1000
	p.MTU = 1000

	p.TightenOnEMSGSIZE(1400)
	if p.MaxMTU != 1000 || p.MTU != 1000 {
		t.Fatalf("expected no change, got MaxMTU=%d MTU=%d", p.MaxMTU, p.MTU)
	}
}

// S5: PMTU convergence end-to-end through the prober's own state machine.
func TestProber_ConvergesAndFixesMTU(t *testing.T) {
	p := NewProber()
	p.MaxMTU = 1500
	p.MinMTU = 0

	// The peer echoes every probe back as a reply.
	for round := 0; round < 5; round++ {
		lens, reschedule := p.NextRound()
		if p.Fixed() {
			break
		}
		if !reschedule {
			t.Fatalf("round %d: expected reschedule while still converging", round)
		}
		for _, l := range lens {
			reply := make([]byte, l)
			reply[0] = 0 // outbound probe
			if action := p.HandleProbe(reply, l); action == ActionReply {
				// the peer "echoes" it back as a reply
				echoed := make([]byte, l)
				echoed[0] = 1
				p.HandleProbe(echoed, l)
			}
		}
	}
	if p.MinMTU < 600 {
		t.Fatalf("expected MinMTU >= 600 after convergence rounds, got %d", p.MinMTU)
	}

	// Now simulate a 1400-byte EMSGSIZE.
	p.TightenOnEMSGSIZE(1400)
	if p.MaxMTU != 1399 {
		t.Fatalf("MaxMTU = %d, want 1399", p.MaxMTU)
	}

	// Run rounds until MinMTU >= MaxMTU triggers convergence.
	for round := 0; round < 10 && !p.Fixed(); round++ {
		p.NextRound()
	}
	if !p.Fixed() {
		t.Fatal("expected prober to converge once MinMTU >= MaxMTU")
	}
	if p.MTU != p.MinMTU {
		t.Fatalf("MTU = %d, want equal to MinMTU %d", p.MTU, p.MinMTU)
	}
}

func TestIsProbeFrame(t *testing.T) {
	data := make([]byte, 20)
	if !IsProbeFrame(data) {
		t.Fatal("expected all-zero ethertype to be detected as probe")
	}
	data[13] = 0x06
	if IsProbeFrame(data) {
		t.Fatal("expected non-zero ethertype to not match")
	}
}
