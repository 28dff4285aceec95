package lzo

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestCompressFast_RoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		[]byte("the quick brown fox jumps over the lazy dog the quick brown fox"),
		bytes.Repeat([]byte{0xAB, 0xCD}, 500),
	}
	for _, c := range cases {
		compressed, err := CompressFast(c)
		if err != nil {
			t.Fatalf("CompressFast: %v", err)
		}
		out, err := DecompressSafe(compressed)
		if err != nil {
			t.Fatalf("DecompressSafe: %v", err)
		}
		if !bytes.Equal(out, c) {
			t.Fatalf("round trip mismatch: got %q, want %q", out, c)
		}
	}
}

func TestCompressBest_RoundTrip(t *testing.T) {
	src := bytes.Repeat([]byte("mesh-vpn-payload-"), 200)
	compressed, err := CompressBest(src)
	if err != nil {
		t.Fatalf("CompressBest: %v", err)
	}
	out, err := DecompressSafe(compressed)
	if err != nil {
		t.Fatalf("DecompressSafe: %v", err)
	}
	if !bytes.Equal(out, src) {
		t.Fatal("round trip mismatch")
	}
}

func TestCompressFast_RandomData_RoundTrips(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		n := r.Intn(2000)
		src := make([]byte, n)
		_, _ = r.Read(src)
		compressed, err := CompressFast(src)
		if err != nil {
			t.Fatalf("CompressFast: %v", err)
		}
		out, err := DecompressSafe(compressed)
		if err != nil {
			t.Fatalf("DecompressSafe: %v", err)
		}
		if !bytes.Equal(out, src) {
			t.Fatalf("round trip mismatch for size %d", n)
		}
	}
}

func TestDecompressSafe_RejectsCorruptInput(t *testing.T) {
	cases := [][]byte{
		{0x01},             // copy op with no varints
		{0x01, 0x00, 0x05}, // dist=0 is invalid
		{0xFF},             // unknown tag
		{0x00, 0x05, 'a'},  // literal length 5 but only 1 byte available
	}
	for _, c := range cases {
		if _, err := DecompressSafe(c); err == nil {
			t.Fatalf("expected error decompressing %v", c)
		}
	}
}

func TestCompressFastWith_ReusesWorkspace(t *testing.T) {
	var ws Workspace
	a, err := CompressFastWith(&ws, []byte("hello world hello world"))
	if err != nil {
		t.Fatalf("compress 1: %v", err)
	}
	b, err := CompressFastWith(&ws, []byte("goodbye world goodbye world"))
	if err != nil {
		t.Fatalf("compress 2: %v", err)
	}
	outA, err := DecompressSafe(a)
	if err != nil || string(outA) != "hello world hello world" {
		t.Fatalf("decompress a: %q err=%v", outA, err)
	}
	outB, err := DecompressSafe(b)
	if err != nil || string(outB) != "goodbye world goodbye world" {
		t.Fatalf("decompress b: %q err=%v", outB, err)
	}
}
