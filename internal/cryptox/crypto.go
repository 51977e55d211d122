// Package cryptox derives and checks password verifiers. Plain passwords are
// never stored: a user record keeps a random salt and the verifier only.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of the per-user random salt.
const SaltSize = 16

// DeriveKey stretches password with argon2id.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier hashes a derived key into the value kept in the user record.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// NewVerifier returns the verifier for password under salt.
func NewVerifier(password []byte, salt []byte) []byte {
	return MakeVerifier(DeriveKey(password, salt))
}

// CheckPassword reports whether password matches verifier under salt.
// The comparison runs in constant time.
func CheckPassword(password []byte, salt []byte, verifier []byte) bool {
	candidate := NewVerifier(password, salt)
	return subtle.ConstantTimeCompare(candidate, verifier) == 1
}
