// Package utils provides utility functions for the application.
package utils

import (
	"crypto/rand"
	"math/big"
)

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

const referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateReferralCode returns a random uppercase alphanumeric code of ReferralCodeLength characters.
func GenerateReferralCode() (string, error) {
	buf := make([]byte, ReferralCodeLength)
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = referralCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
