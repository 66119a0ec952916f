// Package cryptox holds the cryptographic primitives of GophMail: the salted
// password hash used by the credential verifier and the authenticated cipher
// used for message payloads.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

// Password hashing parameters. Changing any of them invalidates every stored
// credential.
const (
	PasswordIterations = 100000
	PasswordSaltSize   = 32
	PasswordKeySize    = 32
)

// HashPassword derives a PBKDF2-HMAC-SHA256 key from password and a fresh
// random salt.
func HashPassword(password []byte) (salt, hash []byte) {
	salt = common.GenerateRandByteArray(PasswordSaltSize)
	return salt, derivePasswordKey(password, salt)
}

// VerifyPassword reports whether password matches the stored salt/hash pair.
// The comparison runs in constant time.
func VerifyPassword(salt, hash, password []byte) bool {
	if len(salt) == 0 || len(hash) == 0 {
		return false
	}
	candidate := derivePasswordKey(password, salt)
	defer common.WipeByteArray(candidate)
	return subtle.ConstantTimeCompare(hash, candidate) == 1
}

func derivePasswordKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, PasswordIterations, PasswordKeySize, sha256.New)
}
