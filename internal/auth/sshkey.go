// ABOUTME: SSH key credential verifier for the legacy admin login mode
// ABOUTME: Derives the public key from a supplied private key and matches it

package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// SSHKeyVerifier authorizes a login when the public key derived from the
// supplied private key matches the configured authorized key.
type SSHKeyVerifier struct {
	authorized string // normalized "<type> <base64>" form
}

// NewSSHKeyVerifier creates a verifier for the configured authorized public
// key (OpenSSH "type base64 [comment]" format).
func NewSSHKeyVerifier(authorizedKey string) (*SSHKeyVerifier, error) {
	normalized, err := normalizePublicKey(authorizedKey)
	if err != nil {
		return nil, fmt.Errorf("invalid authorized key: %w", err)
	}
	return &SSHKeyVerifier{authorized: normalized}, nil
}

// Verify reports whether the key blob authorizes the admin. The blob is
// normally a PEM/OpenSSH private key whose public half is derived; as a last
// resort the blob is treated as an already-public key. Verification never
// returns an error past this boundary: every failure resolves to false.
func (v *SSHKeyVerifier) Verify(keyBlob string) bool {
	derived, ok := derivePublicKey(keyBlob)
	if !ok {
		return false
	}
	return derived == v.authorized
}

// derivePublicKey resolves a key blob to the normalized public key form.
func derivePublicKey(keyBlob string) (string, bool) {
	keyBlob = strings.TrimSpace(keyBlob)
	if keyBlob == "" {
		return "", false
	}

	if signer, err := ssh.ParsePrivateKey([]byte(keyBlob)); err == nil {
		return marshalNormalized(signer.PublicKey()), true
	}

	// Fall back to treating the input as an already-public key.
	if normalized, err := normalizePublicKey(keyBlob); err == nil {
		return normalized, true
	}

	return "", false
}

// normalizePublicKey parses an authorized-key string and re-renders it as
// "<type> <base64>", discarding comments and surrounding whitespace.
func normalizePublicKey(raw string) (string, error) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(strings.TrimSpace(raw)))
	if err != nil {
		return "", err
	}
	return marshalNormalized(pub), nil
}

func marshalNormalized(pub ssh.PublicKey) string {
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub)))
}
