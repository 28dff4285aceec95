package codec

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
)

// DigestSize is the length of the MAC this digest appends.
const DigestSize = sha256.Size

// Digest computes/verifies a MAC over (seqno||payload), independent of
// whichever cipher is installed, mirroring tinc's separate digest_create/
// digest_verify step (distinct from cipher_encrypt/cipher_decrypt) in
// original_source/net_packet.c. Grounded on application/hmac.go's HMAC
// contract, generalized from a single-purpose interface to an
// installable-key handle with the same active/inactive lifecycle as
// Cipher.
type Digest struct {
	key []byte
}

// NewDigest returns an inactive digest with no key installed.
func NewDigest() *Digest {
	return &Digest{}
}

// Active reports whether a key has been installed.
func (d *Digest) Active() bool {
	return d.key != nil
}

// SetKey installs the HMAC key, activating the digest.
func (d *Digest) SetKey(key []byte) {
	d.key = append([]byte(nil), key...)
}

// Clear deactivates the digest.
func (d *Digest) Clear() {
	d.key = nil
}

// Length returns the MAC length this digest produces.
func (d *Digest) Length() int {
	return DigestSize
}

// Create computes the MAC over data and appends it, returning the
// extended slice.
func (d *Digest) Create(data []byte) ([]byte, error) {
	if !d.Active() {
		return nil, fmt.Errorf("codec: digest has no key installed")
	}
	mac := hmac.New(sha256.New, d.key)
	mac.Write(data)
	return mac.Sum(data), nil
}

// Verify checks that the trailing DigestSize bytes of data are a valid
// MAC over the leading bytes. Comparison is constant-time to avoid
// leaking timing information, per SPEC_FULL.md §4.1.
func (d *Digest) Verify(data []byte) error {
	if !d.Active() {
		return fmt.Errorf("codec: digest has no key installed")
	}
	if len(data) < DigestSize {
		return ErrShortPacket
	}
	body, tag := data[:len(data)-DigestSize], data[len(data)-DigestSize:]
	mac := hmac.New(sha256.New, d.key)
	mac.Write(body)
	expected := mac.Sum(nil)
	if !hmac.Equal(expected, tag) {
		return ErrMAC
	}
	return nil
}
