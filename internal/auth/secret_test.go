// ABOUTME: Unit tests for hashing, comparison and encoding primitives
// ABOUTME: Covers hex digests, constant-time equality and base64url round-trips

package auth

import (
	"bytes"
	"testing"
)

func TestHashSecret(t *testing.T) {
	// SHA-256("hello") reference digest.
	got := HashSecret("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("HashSecret(hello) = %q, want %q", got, want)
	}

	if HashSecret("") == "" {
		t.Error("HashSecret(\"\") should still produce a digest")
	}

	if HashSecret("a") == HashSecret("b") {
		t.Error("distinct inputs must produce distinct digests")
	}
}

func TestConstantTimeEqual(t *testing.T) {
	digest := HashSecret("secret")

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"equal digests", digest, HashSecret("secret"), true},
		{"different digests", digest, HashSecret("other"), false},
		{"different lengths", digest, digest[:32], false},
		{"malformed left", "not-hex!", digest, false},
		{"malformed right", digest, "zz", false},
		{"both empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConstantTimeEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("ConstantTimeEqual(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNewOpaqueToken(t *testing.T) {
	a, err := NewOpaqueToken()
	if err != nil {
		t.Fatalf("NewOpaqueToken() error = %v", err)
	}
	if len(a) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(a))
	}

	b, err := NewOpaqueToken()
	if err != nil {
		t.Fatalf("NewOpaqueToken() error = %v", err)
	}
	if a == b {
		t.Error("two tokens should never collide")
	}
}

func TestBase64URLRoundTrip(t *testing.T) {
	// Inputs covering every length mod 4 residue of the encoded form,
	// plus bytes that differ between std and url alphabets.
	inputs := [][]byte{
		{},
		{0x00},
		{0xff, 0xfe},
		{0xfb, 0xff, 0xbf},
		[]byte("four"),
		{0xfb, 0xef, 0xff, 0xde, 0x01},
		[]byte("a longer input with spaces and ünïcode"),
	}

	for _, in := range inputs {
		encoded := Base64URLEncode(in)
		for _, c := range encoded {
			if c == '+' || c == '/' || c == '=' {
				t.Errorf("encoded form %q contains non-url character %q", encoded, c)
			}
		}
		decoded, err := Base64URLDecode(encoded)
		if err != nil {
			t.Fatalf("Base64URLDecode(%q) error = %v", encoded, err)
		}
		if !bytes.Equal(decoded, in) {
			t.Errorf("round trip of %v = %v", in, decoded)
		}
	}
}

func TestBase64URLDecodePadded(t *testing.T) {
	// Decoding tolerates padded input from other producers.
	decoded, err := Base64URLDecode("aGk=")
	if err != nil {
		t.Fatalf("Base64URLDecode(padded) error = %v", err)
	}
	if string(decoded) != "hi" {
		t.Errorf("decoded = %q, want %q", decoded, "hi")
	}
}
