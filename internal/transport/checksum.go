package transport

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/moderately-ai/moderately-go/internal/apierror"
)

// checksumVerifier accumulates downloaded bytes and compares the final
// digest against an expected hex hash.
type checksumVerifier struct {
	hash     hash.Hash
	expected string
}

func newChecksumVerifier(expected string) *checksumVerifier {
	return &checksumVerifier{hash: sha256.New(), expected: expected}
}

func (v *checksumVerifier) Write(p []byte) (int, error) {
	return v.hash.Write(p)
}

// Verify returns ErrChecksumMismatch when the accumulated digest differs
// from the expected one. Safe on a nil verifier.
func (v *checksumVerifier) Verify() error {
	if v == nil {
		return nil
	}

	actual := hex.EncodeToString(v.hash.Sum(nil))
	if actual != v.expected {
		return fmt.Errorf("%w: expected %s, got %s", apierror.ErrChecksumMismatch, v.expected, actual)
	}

	return nil
}
