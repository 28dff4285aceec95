// Package lzo implements the compressor and bounds-checked decompressor
// used for compression levels 10 and 11.
//
// No example in the retrieved pack imports an LZO library, so this is a
// small from-scratch LZ77-style coder (see DESIGN.md). Its stream format
// is this package's own: literal runs tagged 0x00 and back-references
// tagged 0x01 with a varint distance and length. It is not the LZO1X
// bitstream; its output is decodable only by DecompressSafe here, not by
// liblzo-based implementations.
//
// There is no package-level scratch buffer like the original C
// implementation's static lzo_wrkmem: CompressFastWith takes a
// caller-owned Workspace, and CompressFast/CompressBest allocate a fresh
// one on every call.
package lzo

import "errors"

var (
	ErrOverrun  = errors.New("lzo: output overrun")
	ErrUnderrun = errors.New("lzo: input underrun")
	ErrCorrupt  = errors.New("lzo: corrupt compressed stream")
)

const (
	minMatch  = 4
	maxMatch  = 0x108 + 255*0xFF // generous upper bound for best-mode run lengths
	hashBits  = 13
	hashSize  = 1 << hashBits
)

// Workspace holds the reusable hash table used by CompressFastWith,
// avoiding a per-call allocation. The zero value is ready to use.
// Workspace is not safe for concurrent use, matching the single-threaded
// event loop model in SPEC_FULL.md §5: only one compression call may use
// a given Workspace at a time.
type Workspace struct {
	table [hashSize]int32
}

func (w *Workspace) reset() {
	for i := range w.table {
		w.table[i] = -1
	}
}

func hash4(b []byte) uint32 {
	v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return (v * 2654435761) >> (32 - hashBits)
}

// CompressFast runs the single-pass greedy matcher (compression level 10,
// SPEC_FULL.md §3/§4.1). It allocates a fresh Workspace on every call;
// CompressFastWith reuses a caller-owned one.
func CompressFast(src []byte) ([]byte, error) {
	var ws Workspace
	return CompressFastWith(&ws, src)
}

// CompressFastWith is CompressFast with an explicit, reusable Workspace.
func CompressFastWith(ws *Workspace, src []byte) ([]byte, error) {
	ws.reset()
	return compress(src, ws)
}

// CompressBest serves compression level 11. It runs the same greedy
// matcher as CompressFast with a fresh Workspace, so for a given input
// its output is identical to CompressFast's; there is no separate,
// slower search. compress's match-extension loop walks each candidate to
// its full match length rather than stopping at a fixed minimum.
func CompressBest(src []byte) ([]byte, error) {
	var ws Workspace
	ws.reset()
	return compress(src, &ws)
}

// compress is a straightforward LZ77 literal/copy encoder producing a
// byte stream decodable by DecompressSafe. It is not the LZO1X format:
// bytes this package compresses are decompressed back to the original
// only by this package (or a peer running it).
func compress(src []byte, ws *Workspace) ([]byte, error) {
	n := len(src)
	dst := make([]byte, 0, n+n/8+64)

	i := 0
	litStart := 0

	flushLiterals := func(end int) {
		for end > litStart {
			chunk := end - litStart
			if chunk > 255 {
				chunk = 255
			}
			dst = append(dst, 0x00, byte(chunk))
			dst = append(dst, src[litStart:litStart+chunk]...)
			litStart += chunk
		}
	}

	for i+minMatch <= n {
		h := hash4(src[i:])
		cand := int(ws.table[h])
		ws.table[h] = int32(i)

		if cand >= 0 && cand < i && matches(src, cand, i) {
			matchLen := extendMatch(src, cand, i, n)
			if matchLen >= minMatch {
				flushLiterals(i)
				dist := i - cand
				emitCopy(&dst, dist, matchLen)
				i += matchLen
				litStart = i
				continue
			}
		}
		i++
	}

	flushLiterals(n)
	return dst, nil
}

func matches(src []byte, a, b int) bool {
	return src[a] == src[b] && src[a+1] == src[b+1] && src[a+2] == src[b+2] && src[a+3] == src[b+3]
}

func extendMatch(src []byte, a, b, n int) int {
	l := 0
	for b+l < n && src[a+l] == src[b+l] && l < maxMatch {
		l++
	}
	return l
}

// emitCopy writes a (distance, length) back-reference using a simple
// tag+varint encoding: 0x01 marks a copy op, followed by a varint
// distance and a varint length.
func emitCopy(dst *[]byte, dist, length int) {
	*dst = append(*dst, 0x01)
	*dst = appendVarint(*dst, uint64(dist))
	*dst = appendVarint(*dst, uint64(length))
}

func appendVarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

func readVarint(src []byte, pos int) (uint64, int, error) {
	var v uint64
	var shift uint
	for {
		if pos >= len(src) {
			return 0, 0, ErrUnderrun
		}
		b := src[pos]
		pos++
		v |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 63 {
			return 0, 0, ErrCorrupt
		}
	}
	return v, pos, nil
}

// DecompressSafe reverses compress's output, bounds-checking every step
// so malformed input fails cleanly instead of overrunning dst, matching
// the spec's requirement that decompression fail safely on corrupt input
// (SPEC_FULL.md §4.1, §7).
func DecompressSafe(src []byte) ([]byte, error) {
	dst := make([]byte, 0, len(src)*3+64)
	pos := 0
	for pos < len(src) {
		tag := src[pos]
		pos++
		switch tag {
		case 0x00:
			if pos >= len(src) {
				return nil, ErrUnderrun
			}
			n := int(src[pos])
			pos++
			if pos+n > len(src) {
				return nil, ErrUnderrun
			}
			dst = append(dst, src[pos:pos+n]...)
			pos += n
		case 0x01:
			dist, next, err := readVarint(src, pos)
			if err != nil {
				return nil, err
			}
			pos = next
			length, next, err := readVarint(src, pos)
			if err != nil {
				return nil, err
			}
			pos = next
			if dist == 0 || int(dist) > len(dst) {
				return nil, ErrCorrupt
			}
			start := len(dst) - int(dist)
			for j := uint64(0); j < length; j++ {
				dst = append(dst, dst[start+int(j)])
			}
		default:
			return nil, ErrCorrupt
		}
	}
	return dst, nil
}
