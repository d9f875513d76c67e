package common

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
)

var emailShape = regexp.MustCompile(`.+@.+\..+`)

// NormalizeEmail trims and lowercases an address before lookups and inserts.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LooksLikeEmail is a shape check only, not RFC 5322 validation.
func LooksLikeEmail(email string) bool {
	return emailShape.MatchString(email)
}

// MakeRandHexString returns size random bytes encoded as hex (2*size chars).
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray zeroes b in place. Nil is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
