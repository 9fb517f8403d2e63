package economy

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	referralCodePrefix = "KC"
	referralCodeLength = 6
	// Ambiguous characters (I, O, 0, 1) are excluded
	referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// NewReferralCode generates a share code of the form "KC" followed by
// six characters from an unambiguous alphabet.
func NewReferralCode() (string, error) {
	code := make([]byte, referralCodeLength)
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		code[i] = referralCodeAlphabet[n.Int64()]
	}
	return referralCodePrefix + string(code), nil
}
