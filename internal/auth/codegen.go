package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	digits = "0123456789"
	// No lowercase: backup codes are normalized to upper case on entry.
	alphanumerics = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NumericCode returns a random code of length n drawn from the digits 0-9.
// Each position is sampled independently with crypto/rand, so leading zeros
// are as likely as any other digit.
func NumericCode(n int) (string, error) {
	return randomString(n, digits)
}

// AlphanumericCode returns a random upper-case alphanumeric code of length n
func AlphanumericCode(n int) (string, error) {
	return randomString(n, alphanumerics)
}

func randomString(n int, charset string) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(charset)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random code: %w", err)
		}
		out[i] = charset[idx.Int64()]
	}
	return string(out), nil
}
