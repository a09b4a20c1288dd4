// Package auth holds the password hashing and session token primitives.
// Passwords are never stored in plaintext; we persist a combined salt+hash
// blob and re-derive on verification.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

// ErrInvalidHash indicates that a stored password blob is malformed.
var ErrInvalidHash = errors.New("the stored password blob is not in the correct format")

// PBKDF2-SHA256 parameters. Fixed for the lifetime of a deployment: the salt
// length doubles as the decode offset of stored blobs.
const (
	saltLength = 16
	keyLength  = 32
	iterations = 10000
)

// HashPassword derives a key from the password with a fresh random salt and
// returns base64(salt || hash) for storage. Two calls with the same password
// produce different blobs.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)

	combined := make([]byte, 0, saltLength+keyLength)
	combined = append(combined, salt...)
	combined = append(combined, hash...)
	return base64.RawStdEncoding.EncodeToString(combined), nil
}

// VerifyPassword re-derives the hash using the stored salt and compares the
// full derived key against the stored one. Any mismatch means the password is
// wrong; malformed blobs return ErrInvalidHash.
func VerifyPassword(password, stored string) (bool, error) {
	combined, err := base64.RawStdEncoding.Strict().DecodeString(stored)
	if err != nil {
		return false, ErrInvalidHash
	}
	if len(combined) != saltLength+keyLength {
		return false, ErrInvalidHash
	}

	salt := combined[:saltLength]
	hash := combined[saltLength:]

	derived := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)
	return subtle.ConstantTimeCompare(hash, derived) == 1, nil
}
