package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// UpdateTokenLength is the length of password-reset, email-update and
// account-deletion token strings.
const UpdateTokenLength = 120

// NewUpdateToken generates a cryptographically random 120-character
// alphanumeric token for the reset/update/delete flows.
func NewUpdateToken() (string, error) {
	return randomString(UpdateTokenLength)
}

// NewConfirmationToken generates a cryptographically random 128-character
// hex token used for email confirmation after registration.
func NewConfirmationToken() (string, error) {
	b := make([]byte, 64)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate confirmation token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}
