package verification

import "math/rand/v2"

const fingerprintAlphabet = "0123456789abcdef"

// NewFingerprint returns 32 random lowercase hex characters. It is a tracking
// token for the provider, not a secret.
func NewFingerprint() string {
	b := make([]byte, 32)
	for i := range b {
		b[i] = fingerprintAlphabet[rand.IntN(len(fingerprintAlphabet))]
	}
	return string(b)
}
