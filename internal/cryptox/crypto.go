// Package cryptox wraps argon2id for the two places passwords are handled:
// the backend stores PHC-encoded password hashes, and the field client keeps
// a local verifier so an officer can sign in while offline.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dropsync/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

var ErrMalformedHash = errors.New("malformed password hash")

// DeriveKey stretches password with salt using argon2id.
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// MakeVerifier turns a derived key into a value that can be stored and
// compared without revealing the key.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// CheckVerifier derives a key from password and salt and compares its
// verifier with want in constant time.
func CheckVerifier(password, salt, want []byte) bool {
	key := DeriveKey(password, salt)
	defer common.WipeByteArray(key)
	return subtle.ConstantTimeCompare(MakeVerifier(key), want) == 1
}

// HashPassword returns a PHC string: $argon2id$v=19$m=...,t=...,p=...$salt$hash
func HashPassword(password []byte) (string, error) {
	salt := common.GenerateRandByteArray(saltLen)
	if salt == nil {
		return "", errors.New("random source failed")
	}
	key := DeriveKey(password, salt)
	enc := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		enc.EncodeToString(salt), enc.EncodeToString(key)), nil
}

// VerifyPassword reports whether password matches a hash from HashPassword.
func VerifyPassword(password []byte, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrMalformedHash
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, ErrMalformedHash
	}

	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(parts[4])
	if err != nil {
		return false, ErrMalformedHash
	}
	want, err := enc.DecodeString(parts[5])
	if err != nil {
		return false, ErrMalformedHash
	}

	got := argon2.IDKey(password, salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
