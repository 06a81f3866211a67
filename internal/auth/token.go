package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const tokenBytes = 32 // 256 bits

// NewToken returns a hex-encoded random token. Used for both session
// identifiers and anti-forgery tokens.
func NewToken() (string, error) {
	randomBytes := make([]byte, tokenBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}

// VerifyToken checks a submitted anti-forgery token against the session's
// current token. Exact match; an empty expected token never matches.
func VerifyToken(expected, submitted string) bool {
	return expected != "" && expected == submitted
}
