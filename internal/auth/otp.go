package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

const (
	otpMin    = 100000
	otpMax    = 999999
	otpExpiry = 10 * time.Minute
)

var otpSpan = big.NewInt(otpMax - otpMin + 1)

// generateOTPCode returns a uniformly random 6-digit code in [100000, 999999].
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

func constantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
