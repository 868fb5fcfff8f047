package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// DefaultDigits matches the 6-digit email code the login flow sends.
	DefaultDigits = 6

	minDigits = 4
	maxDigits = 10
)

// Generator produces fixed-length decimal codes with a non-zero leading
// digit, uniformly distributed over [10^(n-1), 10^n - 1].
type Generator struct {
	digits int
}

// NewGenerator returns a Generator for codes of the given length.
// Lengths outside [4..10] fall back to DefaultDigits.
func NewGenerator(digits int) Generator {
	if digits < minDigits || digits > maxDigits {
		digits = DefaultDigits
	}
	return Generator{digits: digits}
}

// Digits reports the configured code length.
func (g Generator) Digits() int {
	if g.digits == 0 {
		return DefaultDigits
	}
	return g.digits
}

// Generate returns a new random code. crypto/rand.Int draws uniformly over
// the range, so no digit position carries modulo bias.
func (g Generator) Generate() (string, error) {
	n := g.Digits()

	low := pow10(n - 1)
	span := low * 9 // size of [10^(n-1), 10^n - 1]

	v, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", fmt.Errorf("otp: generate: %w", err)
	}

	return fmt.Sprintf("%0*d", n, v.Int64()+low), nil
}

func pow10(n int) int64 {
	out := int64(1)
	for i := 0; i < n; i++ {
		out *= 10
	}
	return out
}
