package utils

import (
	"crypto/rand"
	"encoding/hex"
)

const resetTokenBytes = 32

// NewResetToken returns 256 bits of randomness, hex encoded.
func NewResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
