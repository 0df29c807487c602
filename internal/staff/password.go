package staff

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
)

// MinPasswordLength applies to new and changed passwords, in characters.
const MinPasswordLength = 8

// Argon2id parameters for staff credentials.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

var errPasswordTooShort = errors.New("password too short")

// newCredential hashes password into a fresh salted credential. Passwords
// shorter than MinPasswordLength are refused here so no caller can store one.
func newCredential(password string) (*Credential, error) {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, errPasswordTooShort
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	return &Credential{
		PasswordHash: base64.StdEncoding.EncodeToString(deriveKey(password, salt)),
		Salt:         base64.StdEncoding.EncodeToString(salt),
	}, nil
}

// Matches reports whether password is the one c was created from.
func (c *Credential) Matches(password string) (bool, error) {
	salt, err := base64.StdEncoding.DecodeString(c.Salt)
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}
	hash, err := base64.StdEncoding.DecodeString(c.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}
	return subtle.ConstantTimeCompare(hash, deriveKey(password, salt)) == 1, nil
}

func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}
