package internal

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// NewTokenID returns a fresh identifier suitable for the jti claim of a
// minted coupon. Collisions are not a correctness concern because the
// redemption key is the sequence number, but a unique jti keeps audit
// trails and external log correlation unambiguous.
func NewTokenID() string {
	return uuid.NewString()
}

// NewSigningSecret returns n bytes of cryptographically secure random
// material, intended for ephemeral HS256 secrets in tests and examples.
func NewSigningSecret(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("internal: secret length must be positive, got %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("internal: read random material: %w", err)
	}
	return buf, nil
}
