package utils

import (
	"strings"
)

var ocrConfusions = strings.NewReplacer("O", "0", "I", "1", "S", "5")

// NormalizePlate uppercases s and keeps only A-Z and 0-9.
func NormalizePlate(s string) string {
	s = strings.ToUpper(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// CorrectOCRConfusions replaces letters commonly misread for digits.
// Each substitution applies once to the input, never to another's output.
func CorrectOCRConfusions(s string) string {
	return ocrConfusions.Replace(s)
}
