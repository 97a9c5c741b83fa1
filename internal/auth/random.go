package auth

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// passwordAlphabet mixes cases, digits and symbols so generated
// passwords survive common complexity rules.
const passwordAlphabet = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"!@#$%&*-_"

// RandomPassword returns a cryptographically random password of length
// n.  Used for password recovery and for the unusable placeholder on
// external-provider accounts.
func RandomPassword(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(passwordAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

// NormalizeEmail lower-cases and trims an email address.  Every lookup
// and unique constraint works on the normalized form, so exactly one
// identity can exist per address regardless of the casing clients send.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
