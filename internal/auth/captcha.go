package auth

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Captcha is an arithmetic challenge: two small random operands and their
// expected sum. The question text is rendered into the login form; the
// answer stays server-side in the session.
type Captcha struct {
	Question string
	Answer   int
}

// NewCaptcha generates a fresh challenge with operands in [1,9].
func NewCaptcha() (Captcha, error) {
	a, err := cryptoRandIntn(9)
	if err != nil {
		return Captcha{}, fmt.Errorf("failed to generate captcha operand: %w", err)
	}
	b, err := cryptoRandIntn(9)
	if err != nil {
		return Captcha{}, fmt.Errorf("failed to generate captcha operand: %w", err)
	}
	a, b = a+1, b+1

	return Captcha{
		Question: fmt.Sprintf("What is %d + %d?", a, b),
		Answer:   a + b,
	}, nil
}

// cryptoRandIntn returns a secure random number between 0 and max (exclusive)
// Uses crypto/rand instead of math/rand for security-sensitive operations
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return 0, err
	}

	randomValue := binary.BigEndian.Uint64(randomBytes)
	return int(randomValue % uint64(max)), nil
}
