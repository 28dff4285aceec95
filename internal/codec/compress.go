package codec

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/notxarb/tinc/internal/codec/lzo"
	"github.com/notxarb/tinc/internal/wire"
)

// Level encodes the compression algorithm/strength for one direction of a
// peer: 0 disables compression, 1..9 selects zlib at that level, 10 is
// LZO fast (single-pass), 11 is LZO best, per SPEC_FULL.md §3.
type Level int

const (
	LevelOff     Level = 0
	LevelZlibMin Level = 1
	LevelZlibMax Level = 9
	LevelLZOFast Level = 10
	LevelLZOBest Level = 11
)

// ValidLevel reports whether level is one SPEC_FULL.md §3 recognizes.
func ValidLevel(level int) bool {
	return level >= int(LevelOff) && level <= int(LevelLZOBest)
}

// Compress compresses src at the given level, per SPEC_FULL.md §4.1.
// level 1..9 uses zlib at that level (stdlib compress/zlib: no pack
// example replaces it, so this stays on the standard library, recorded
// in DESIGN.md); level 10 uses lzo.CompressFast and level 11 uses
// lzo.CompressBest, which share one matcher and this module's own stream
// format (not LZO1X, see package lzo). Output exceeding wire.MaxFrameSize is
// treated as a compression error, per SPEC_FULL.md §9 Open Question (c).
func Compress(level int, src []byte) ([]byte, error) {
	switch {
	case level >= int(LevelZlibMin) && level <= int(LevelZlibMax):
		return compressZlib(level, src)
	case level == int(LevelLZOFast):
		out, err := lzo.CompressFast(src)
		if err != nil {
			return nil, ErrCompress
		}
		return checkSize(out, ErrCompress)
	case level == int(LevelLZOBest):
		out, err := lzo.CompressBest(src)
		if err != nil {
			return nil, ErrCompress
		}
		return checkSize(out, ErrCompress)
	default:
		return nil, ErrUnsupportedLevel
	}
}

// Decompress reverses Compress for the same level, per SPEC_FULL.md
// §4.1: level > 9 uses LZO safe decompression, 1..9 uses zlib inflate.
func Decompress(level int, src []byte) ([]byte, error) {
	switch {
	case level > int(LevelZlibMax) && level <= int(LevelLZOBest):
		out, err := lzo.DecompressSafe(src)
		if err != nil {
			return nil, ErrDecompress
		}
		return checkSize(out, ErrDecompress)
	case level >= int(LevelZlibMin) && level <= int(LevelZlibMax):
		return decompressZlib(src)
	default:
		return nil, ErrUnsupportedLevel
	}
}

func compressZlib(level int, src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, ErrCompress
	}
	if _, err := w.Write(src); err != nil {
		return nil, ErrCompress
	}
	if err := w.Close(); err != nil {
		return nil, ErrCompress
	}
	return checkSize(buf.Bytes(), ErrCompress)
}

func decompressZlib(src []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, ErrDecompress
	}
	defer func() { _ = r.Close() }()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrDecompress
	}
	return checkSize(out, ErrDecompress)
}

func checkSize(out []byte, onOversize error) ([]byte, error) {
	if len(out) > wire.MaxFrameSize {
		return nil, onOversize
	}
	return out, nil
}
