// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/scrypt"
)

// scrypt parameters. N, r and p follow the x/crypto recommendation for interactive logins.
const (
	scryptN       = 1 << 15
	scryptR       = 8
	scryptP       = 1
	scryptSaltLen = 16 // random bytes, hex-encoded into the credential
	scryptKeyLen  = 32
)

// credentialSeparator splits the salt from the digest in a stored credential.
const credentialSeparator = "."

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code(CodeEmptyPassword).Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted credential for the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the stored credential.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on a malformed credential.
	Verify(password, credential string) (bool, error)
}

// ScryptHasher implements PasswordHasher with scrypt. Credentials are
// encoded as "<hex salt>.<hex digest>".
type ScryptHasher struct {
	n int
}

// ScryptOption configures a ScryptHasher.
type ScryptOption func(*ScryptHasher)

// WithScryptCost overrides the scrypt CPU/memory cost. It must be a power of two
// greater than one. Intended for tests; production code uses the default.
func WithScryptCost(n int) ScryptOption {
	return func(h *ScryptHasher) {
		h.n = n
	}
}

// NewScryptHasher creates a new ScryptHasher.
func NewScryptHasher(opts ...ScryptOption) *ScryptHasher {
	h := &ScryptHasher{n: scryptN}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash produces a scrypt credential for the password with a fresh random salt.
func (h *ScryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	saltBytes := make([]byte, scryptSaltLen)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}
	salt := hex.EncodeToString(saltBytes)

	digest, err := h.derive(password, salt)
	if err != nil {
		return "", err
	}

	return salt + credentialSeparator + hex.EncodeToString(digest), nil
}

// Verify recomputes the digest with the stored salt and compares in constant time.
func (h *ScryptHasher) Verify(password, credential string) (bool, error) {
	salt, encoded, found := strings.Cut(credential, credentialSeparator)
	if !found {
		return false, ErrMalformedCredential("missing separator")
	}
	if salt == "" {
		return false, ErrMalformedCredential("empty salt")
	}

	expected, err := hex.DecodeString(encoded)
	if err != nil {
		return false, ErrMalformedCredential("digest is not hex")
	}
	if len(expected) != scryptKeyLen {
		return false, ErrMalformedCredential("digest has wrong length")
	}

	computed, err := h.derive(password, salt)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func (h *ScryptHasher) derive(password, salt string) ([]byte, error) {
	digest, err := scrypt.Key([]byte(password), []byte(salt), h.n, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, oops.Code("AUTH_KDF_FAILED").With("n", h.n).Wrap(err)
	}
	return digest, nil
}

var _ PasswordHasher = (*ScryptHasher)(nil)
