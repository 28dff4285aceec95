package config

import "testing"

func TestPeerOptions_Validate(t *testing.T) {
	valid := PeerOptions{OutCompression: 11, InCompression: 0}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error for valid options: %v", err)
	}

	cases := []PeerOptions{
		{OutCompression: -1},
		{OutCompression: 12},
		{InCompression: -1},
		{InCompression: 12},
	}
	for _, c := range cases {
		if err := c.Validate(); err == nil {
			t.Fatalf("expected error for %+v", c)
		}
	}
}

func TestNewDefaultConfig(t *testing.T) {
	c := NewDefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}
