// Package wire defines the on-the-wire frame layout shared by the codec,
// replay window, MTU prober and the egress/ingress pipelines.
package wire

import "encoding/binary"

// MaxFrameSize bounds a Frame's capacity: largest pre-compression payload
// plus the 4-byte sequence number plus the largest MAC plus cipher block
// padding. 65535 comfortably covers Ethernet jumbo frames and every
// digest/cipher overhead this package uses.
const MaxFrameSize = 65535

// SeqnoSize is the width of the sequence-number slot at the front of the
// datagram. The seqno travels in cleartext ahead of the ciphertext.
const SeqnoSize = 4

// TCPOnlyPriority is the sentinel the caller sets on Frame.Priority to
// demand the TCP meta-connection instead of UDP.
const TCPOnlyPriority = -1

// Frame is a fixed-capacity buffer carrying one link-layer datagram
// through the pipeline, along with the transient length and priority the
// spec requires. Buf is sized to MaxFrameSize and reused across stages;
// Length marks how many leading bytes are currently valid.
type Frame struct {
	Buf      [MaxFrameSize]byte
	Length   int
	Priority int
}

// NewFrame returns a zeroed frame ready for reuse.
func NewFrame() *Frame {
	return &Frame{}
}

// Payload returns the currently valid bytes of the frame.
func (f *Frame) Payload() []byte {
	return f.Buf[:f.Length]
}

// SetPayload copies data into the frame buffer and sets Length. It does
// not touch Priority; the spec's "clear frame.priority" step happens
// explicitly in the ingress pipeline, not implicitly here.
func (f *Frame) SetPayload(data []byte) {
	f.Length = copy(f.Buf[:], data)
}

// PrependSeqno writes seq in network byte order into the first SeqnoSize
// bytes ahead of the current payload, shifting the payload right and
// extending Length by SeqnoSize. Used by the egress pipeline after
// compression and encryption, before the MAC is appended.
func (f *Frame) PrependSeqno(seq uint32) {
	copy(f.Buf[SeqnoSize:SeqnoSize+f.Length], f.Buf[:f.Length])
	binary.BigEndian.PutUint32(f.Buf[:SeqnoSize], seq)
	f.Length += SeqnoSize
}

// StripSeqno reads the leading 4-byte sequence number and removes it from
// the front of the payload, returning the decoded value. The caller must
// have already verified Length >= SeqnoSize.
func (f *Frame) StripSeqno() uint32 {
	seq := binary.BigEndian.Uint32(f.Buf[:SeqnoSize])
	copy(f.Buf[:f.Length-SeqnoSize], f.Buf[SeqnoSize:f.Length])
	f.Length -= SeqnoSize
	return seq
}

// IsEthertypeZero reports whether bytes 12 and 13 of the payload (the
// Ethernet ethertype slot) are both zero — the exact predicate tinc uses
// to distinguish an MTU probe from ordinary link-layer traffic. No real
// Ethernet frame carries ethertype 0x0000, so this is safe to rely on for
// interop (SPEC_FULL.md §9 "Probe vs data discriminator").
func (f *Frame) IsEthertypeZero() bool {
	if f.Length < 14 {
		return false
	}
	return f.Buf[12] == 0 && f.Buf[13] == 0
}
