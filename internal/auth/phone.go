package auth

import (
	"strings"

	"github.com/ShivpalBellway/DevBhakti/internal/apperr"
)

const defaultCountryCode = "91"

// NormalizePhone converts user input to E.164. Ten-digit numbers get the Indian country code;
// an eleven-digit number with a trunk 0 drops it first.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) == 11 && digits[0] == '0' {
		digits = digits[1:]
	}
	if len(digits) < 10 || len(digits) > 15 {
		return "", apperr.Validation("Invalid phone number")
	}
	if len(digits) == 10 {
		digits = defaultCountryCode + digits
	}
	return "+" + digits, nil
}
