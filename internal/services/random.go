package services

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const opaqueTokenBytes = 32

// newOpaqueToken returns an unguessable URL-safe token for refresh sessions
// and password-reset handoffs.
func newOpaqueToken() (string, error) {
	b := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// generateNumericCode returns a zero-padded numeric code of the given width.
// Collisions across users are fine: codes are always looked up by owner, never
// by code alone.
func generateNumericCode(digits int) (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < digits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
