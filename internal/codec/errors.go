package codec

import "errors"

var (
	// ErrCompress is returned when a compressor fails or its output would
	// exceed wire.MaxFrameSize (SPEC_FULL.md §9 Open Question (c)).
	ErrCompress = errors.New("codec: compression failed")
	// ErrDecompress is returned on malformed compressed input.
	ErrDecompress = errors.New("codec: decompression failed")
	// ErrMAC is returned when MAC/AEAD-tag verification fails.
	ErrMAC = errors.New("codec: authentication failed")
	// ErrShortPacket is returned when a packet is too short to contain a
	// sequence number and a MAC of the configured length.
	ErrShortPacket = errors.New("codec: packet too short")
	// ErrCipherInactive is returned when Encrypt/Decrypt is called on a
	// Cipher that has no key installed yet.
	ErrCipherInactive = errors.New("codec: cipher has no key installed")
	// ErrUnsupportedLevel is returned by Compress/Decompress for levels
	// outside 1..11; level 0 (compression off) has no algorithm either.
	ErrUnsupportedLevel = errors.New("codec: unsupported compression level")
)
