package common

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// randReader is swapped in tests.
var randReader io.Reader = rand.Reader

// MakeRandHexString returns size random bytes hex-encoded, so the result is
// twice as long. Used for refresh tokens and sign-in states.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}
