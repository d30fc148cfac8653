// Package authn resolves an inbound request to a Principal and manages
// the credentials/session state behind it (§4.7). Grounded on
// core/pkg/auth/middleware.go (bearer parsing, fail-closed-without-
// validator), core/pkg/identity/token.go (TokenManager shape, here
// generalized to opaque tokens instead of signed JWTs for sessions), and
// core/pkg/credentials/store.go (bcrypt-based password storage).
package authn

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPassword bcrypt-hashes a raw password for storage. Raw passwords
// never appear in logs or error messages (§4.7).
func HashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword performs a constant-time comparison of raw against the
// stored bcrypt hash (bcrypt.CompareHashAndPassword is constant-time by
// construction).
func VerifyPassword(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}
