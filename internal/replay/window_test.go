package replay

import "testing"

// S1: ordered stream, all five accepted, no gaps.
func TestWindow_OrderedStream(t *testing.T) {
	w := NewWindow()
	for seq := uint32(1); seq <= 5; seq++ {
		gap, _, err := w.Admit(seq)
		if err != nil {
			t.Fatalf("seq %d: unexpected reject: %v", seq, err)
		}
		if gap != 0 {
			t.Fatalf("seq %d: expected no gap, got %d", seq, gap)
		}
	}
	if w.Received() != 5 {
		t.Fatalf("received = %d, want 5", w.Received())
	}
}

// S2: reorder within window, 1,2,4,5,3 — all five accepted exactly once.
func TestWindow_ReorderWithinWindow(t *testing.T) {
	w := NewWindow()
	order := []uint32{1, 2, 4, 5, 3}
	for _, seq := range order {
		_, _, err := w.Admit(seq)
		if err != nil {
			t.Fatalf("seq %d: unexpected reject: %v", seq, err)
		}
	}
	if w.Received() != 5 {
		t.Fatalf("received = %d, want 5", w.Received())
	}
}

// S3: replay — re-delivering an already-accepted seqno is rejected.
func TestWindow_Replay(t *testing.T) {
	w := NewWindow()
	for seq := uint32(1); seq <= 5; seq++ {
		if _, _, err := w.Admit(seq); err != nil {
			t.Fatalf("seq %d: unexpected reject: %v", seq, err)
		}
	}
	if _, _, err := w.Admit(3); err != ErrReplay {
		t.Fatalf("expected ErrReplay replaying seq 3, got %v", err)
	}
	if w.Received() != 5 {
		t.Fatalf("received should remain 5 after rejected replay, got %d", w.Received())
	}
}

// Property 10: seqno exactly at R+W triggers a full reset; R-W is rejected.
func TestWindow_BitmapResetAtWindowEdge(t *testing.T) {
	w := NewWindow()
	if _, _, err := w.Admit(1000); err != nil {
		t.Fatalf("seed admit: %v", err)
	}
	r := w.Received()

	gap, _, err := w.Admit(r + windowBits)
	if err != nil {
		t.Fatalf("R+W should be accepted with full reset, got error: %v", err)
	}
	if gap != int(windowBits)-1 {
		t.Fatalf("gap = %d, want %d", gap, int(windowBits)-1)
	}
	if w.Received() != r+windowBits {
		t.Fatalf("received = %d, want %d", w.Received(), r+windowBits)
	}

	// R-W relative to the *new* R must be rejected as too old.
	newR := w.Received()
	if _, _, err := w.Admit(newR - windowBits); err != ErrReplay {
		t.Fatalf("expected ErrReplay for seq at R-W, got %v", err)
	}
}

// A packet that arrives within the window but was never marked pending
// (never skipped over) must be rejected, not silently accepted.
func TestWindow_RejectsSeqnoNeverSeenAsGap(t *testing.T) {
	w := NewWindow()
	for _, seq := range []uint32{1, 2, 3} {
		if _, _, err := w.Admit(seq); err != nil {
			t.Fatalf("seq %d: %v", seq, err)
		}
	}
	// seq 2 was delivered and cleared; redelivering it must be rejected.
	if _, _, err := w.Admit(2); err != ErrReplay {
		t.Fatalf("expected ErrReplay for already-cleared seq 2, got %v", err)
	}
}

func TestWindow_GapLogging(t *testing.T) {
	w := NewWindow()
	if _, _, err := w.Admit(1); err != nil {
		t.Fatalf("seq 1: %v", err)
	}
	gap, _, err := w.Admit(5)
	if err != nil {
		t.Fatalf("seq 5: %v", err)
	}
	if gap != 3 {
		t.Fatalf("gap = %d, want 3 (seqnos 2,3,4 skipped)", gap)
	}
	// The skipped seqnos must now be deliverable out of order.
	for _, seq := range []uint32{2, 3, 4} {
		if _, _, err := w.Admit(seq); err != nil {
			t.Fatalf("seq %d should be accepted as a late arrival: %v", seq, err)
		}
	}
}

func TestWindow_RekeyThreshold(t *testing.T) {
	w := NewWindow()
	_, rekey, err := w.Admit(1)
	if err != nil {
		t.Fatalf("seq 1: %v", err)
	}
	if rekey {
		t.Fatal("should not request rekey at seq 1")
	}
	_, rekey, err = w.Admit(MaxSeqno + 1)
	if err != nil {
		t.Fatalf("admit past threshold: %v", err)
	}
	if !rekey {
		t.Fatal("expected rekey signal once received seqno exceeds MaxSeqno")
	}
}

// Invariant 1, property-style: a fixed mix of in-order, reordered and
// duplicate deliveries must never accept the same seqno twice nor ever
// move R backwards.
func TestWindow_NeverDoubleAcceptsOrRegressesR(t *testing.T) {
	w := NewWindow()
	accepted := map[uint32]bool{}
	deliveries := []uint32{1, 2, 3, 5, 4, 3, 6, 2, 7, 8, 8, 9}
	for _, seq := range deliveries {
		prevR := w.Received()
		_, _, err := w.Admit(seq)
		if err == nil {
			if accepted[seq] {
				t.Fatalf("seq %d accepted twice", seq)
			}
			accepted[seq] = true
		}
		if w.Received() < prevR {
			t.Fatalf("R regressed from %d to %d", prevR, w.Received())
		}
	}
}
