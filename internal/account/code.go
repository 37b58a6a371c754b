package account

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// codeBytes is the entropy behind a verification code: 3 random bytes render
// as 6 uppercase hex characters, short enough to retype from an email.
const codeBytes = 3

// generateCode mints a verification code. Reset tokens and OTPs share the
// same generator; only the storage field differs. The plaintext goes to the
// account holder by email, only the hash is ever persisted.
func generateCode() (plain, hash string, err error) {
	var b [codeBytes]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", "", err
	}
	plain = strings.ToUpper(hex.EncodeToString(b[:]))
	return plain, hashCode(plain), nil
}

// hashCode derives the stored form of a verification code.
func hashCode(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
