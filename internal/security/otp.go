package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const otpDigits = 6

var otpMax = big.NewInt(1_000_000)

// NewOtp returns a 6-digit code, uniformly drawn from crypto/rand.
// Leading zeros are kept: codes are compared as strings.
func NewOtp() (string, error) {
	n, err := rand.Int(rand.Reader, otpMax)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}
