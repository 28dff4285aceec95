package codec

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher wraps a symmetric AEAD and tracks whether a key has been
// installed, matching the peer's "inactive vs active with a key" cipher
// handle from SPEC_FULL.md §3. There is no separate IV on the wire: the
// nonce is derived from the packet sequence number, so the cipher context
// alone carries what would otherwise be an explicit IV (SPEC_FULL.md §6).
// The sequence number itself still travels as a cleartext prefix ahead of
// the ciphertext (wire.Frame.PrependSeqno/StripSeqno) so a receiver can
// recover it and derive the matching nonce before calling Decrypt — it is
// never part of the sealed plaintext.
//
// Grounded on infrastructure/cryptography/chacha20/aead_builder.go's
// DefaultAEADBuilder, generalized from a handshake-derived key pair to a
// single installable key per direction.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher returns an inactive cipher with no key installed.
func NewCipher() *Cipher {
	return &Cipher{}
}

// Active reports whether a key has been installed.
func (c *Cipher) Active() bool {
	return c.aead != nil
}

// SetKey installs a new 32-byte ChaCha20-Poly1305 key, activating the
// cipher.
func (c *Cipher) SetKey(key []byte) error {
	if len(key) != chacha20poly1305.KeySize {
		return fmt.Errorf("codec: invalid key size %d, want %d", len(key), chacha20poly1305.KeySize)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return fmt.Errorf("codec: new AEAD: %w", err)
	}
	c.aead = aead
	return nil
}

// Clear deactivates the cipher, dropping the installed key.
func (c *Cipher) Clear() {
	c.aead = nil
}

func nonceFromSeqno(seq uint32) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint32(nonce[chacha20poly1305.NonceSize-4:], seq)
	return nonce
}

// Encrypt seals the (already compressed) payload, appending the
// authentication tag. seq is the sequence number the caller will prepend
// to the ciphertext in cleartext afterwards (the egress pipeline's
// PrependSeqno step) and is never included in plaintext itself. Returns
// the sealed slice, which aliases dst's backing array when it has enough
// capacity.
func (c *Cipher) Encrypt(dst, plaintext []byte, seq uint32) ([]byte, error) {
	if !c.Active() {
		return nil, ErrCipherInactive
	}
	nonce := nonceFromSeqno(seq)
	return c.aead.Seal(dst[:0], nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext (payload||tag), verifying the authentication
// tag. seq must be the sequence number the caller already stripped off
// the cleartext prefix (wire.Frame.StripSeqno). Returns the opened
// plaintext.
func (c *Cipher) Decrypt(dst, ciphertext []byte, seq uint32) ([]byte, error) {
	if !c.Active() {
		return nil, ErrCipherInactive
	}
	nonce := nonceFromSeqno(seq)
	out, err := c.aead.Open(dst[:0], nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMAC, err)
	}
	return out, nil
}

// Overhead returns the number of bytes Encrypt appends beyond plaintext
// length (the AEAD tag), used by callers sizing scratch buffers.
func (c *Cipher) Overhead() int {
	if !c.Active() {
		return 0
	}
	return c.aead.Overhead()
}
