package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// HashCallbackToken produces the bcrypt digest stored in configuration for
// the automation callback shared token.
func HashCallbackToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyCallbackToken checks a presented callback token against the stored
// digest. An empty digest disables callback auth entirely, which is only
// acceptable in development.
func VerifyCallbackToken(hash, token string) bool {
	if hash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}
