package domain

import (
	"math/rand/v2"
	"strings"
)

// DefaultCompletionCodeDigits is the standard length of a completion code.
const DefaultCompletionCodeDigits = 6

// GenerateCompletionCode produces a numeric one-time completion code of the
// given length. The code binds a technician's "work done" claim to customer
// confirmation; it is a short-lived proof of presence, not a credential, so
// math/rand is sufficient.
func GenerateCompletionCode(digits int) string {
	if digits < 4 {
		digits = DefaultCompletionCodeDigits
	}

	var sb strings.Builder
	sb.Grow(digits)
	for i := 0; i < digits; i++ {
		sb.WriteByte(byte('0' + rand.IntN(10)))
	}
	return sb.String()
}
