package codec

import (
	"bytes"
	"testing"
)

func TestCompressDecompress_RoundTrip_AllLevels(t *testing.T) {
	payload := bytes.Repeat([]byte("ethernet-frame-payload"), 50)
	for _, level := range []int{1, 5, 9, 10, 11} {
		compressed, err := Compress(level, payload)
		if err != nil {
			t.Fatalf("level %d: Compress: %v", level, err)
		}
		out, err := Decompress(level, compressed)
		if err != nil {
			t.Fatalf("level %d: Decompress: %v", level, err)
		}
		if !bytes.Equal(out, payload) {
			t.Fatalf("level %d: round trip mismatch", level)
		}
	}
}

func TestCompress_RejectsUnsupportedLevel(t *testing.T) {
	if _, err := Compress(0, []byte("x")); err != ErrUnsupportedLevel {
		t.Fatalf("level 0 should be unsupported by Compress, got %v", err)
	}
	if _, err := Compress(12, []byte("x")); err != ErrUnsupportedLevel {
		t.Fatalf("level 12 should be unsupported, got %v", err)
	}
}

func TestCipher_EncryptDecrypt_RoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	send := NewCipher()
	recv := NewCipher()
	if err := send.SetKey(key); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if err := recv.SetKey(key); err != nil {
		t.Fatalf("SetKey: %v", err)
	}

	plaintext := []byte("seqno-prefixed-payload")
	sealed, err := send.Encrypt(nil, plaintext, 7)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	opened, err := recv.Decrypt(nil, sealed, 7)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("decrypt mismatch: got %q want %q", opened, plaintext)
	}

	if _, err := recv.Decrypt(nil, sealed, 8); err == nil {
		t.Fatalf("expected auth failure with wrong seqno-derived nonce")
	}
}

func TestCipher_InactiveRejectsUse(t *testing.T) {
	c := NewCipher()
	if c.Active() {
		t.Fatal("new cipher should be inactive")
	}
	if _, err := c.Encrypt(nil, []byte("x"), 1); err != ErrCipherInactive {
		t.Fatalf("expected ErrCipherInactive, got %v", err)
	}
}

func TestDigest_CreateVerify_RoundTrip(t *testing.T) {
	d := NewDigest()
	d.SetKey([]byte("shared-secret"))

	data := []byte("seqno||payload")
	withMAC, err := d.Create(append([]byte(nil), data...))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := d.Verify(withMAC); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	withMAC[0] ^= 0xFF
	if err := d.Verify(withMAC); err != ErrMAC {
		t.Fatalf("expected ErrMAC for tampered data, got %v", err)
	}
}

func TestDigest_InactiveRejectsUse(t *testing.T) {
	d := NewDigest()
	if d.Active() {
		t.Fatal("new digest should be inactive")
	}
	if _, err := d.Create([]byte("x")); err == nil {
		t.Fatal("expected error creating MAC with no key")
	}
}
