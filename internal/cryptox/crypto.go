// Package cryptox holds the password hashing primitives used by the account
// service. Passwords are never stored; only an argon2id verifier and the salt
// it was derived with.
package cryptox

import (
	"crypto/subtle"

	"golang.org/x/crypto/argon2"

	"github.com/akarpov87/ideaforge/internal/common"
)

const saltSize = 32

// NewSalt returns a fresh random salt for a new account.
func NewSalt() []byte {
	return common.GenerateRandByteArray(saltSize)
}

// MakeVerifier derives the stored verifier from a password and salt using
// argon2id. The parameters follow the RFC 9106 low-memory recommendation.
func MakeVerifier(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// CheckPassword reports whether the password matches the stored verifier.
// The comparison is constant-time.
func CheckPassword(password, salt, verifier []byte) bool {
	candidate := MakeVerifier(password, salt)
	return subtle.ConstantTimeCompare(candidate, verifier) == 1
}
