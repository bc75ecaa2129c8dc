// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned by repositories when the email unique index rejects a write.
var ErrEmailTaken = errors.New("email already in use")

// Error codes for authentication failures.
const (
	CodeDuplicateEmail      = "AUTH_DUPLICATE_EMAIL"
	CodeUserNotFound        = "AUTH_USER_NOT_FOUND"
	CodeInvalidCredentials  = "AUTH_INVALID_CREDENTIALS"
	CodeMalformedCredential = "AUTH_MALFORMED_CREDENTIAL"
	CodeEmptyPassword       = "AUTH_EMPTY_PASSWORD"
	CodeInvalidInput        = "AUTH_INVALID_INPUT"
	CodeSessionInvalid      = "SESSION_INVALID"
	CodeSessionExpired      = "SESSION_EXPIRED"
)

// ErrDuplicateEmail creates an error for a signup or update whose email is in use.
func ErrDuplicateEmail(email string) error {
	return oops.Code(CodeDuplicateEmail).
		With("email", email).
		Errorf("email in use")
}

// ErrUserNotFound creates an error for a lookup that matched no user.
func ErrUserNotFound(key string, value any) error {
	return oops.Code(CodeUserNotFound).
		With(key, value).
		Errorf("user not found")
}

// ErrInvalidCredentials creates an error for a password that did not verify.
func ErrInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("bad password")
}

// ErrMalformedCredential creates an error for a stored credential that cannot be parsed.
func ErrMalformedCredential(reason string) error {
	return oops.Code(CodeMalformedCredential).
		With("reason", reason).
		Errorf("stored credential is malformed: %s", reason)
}

// ErrInvalidInput creates an error for caller-supplied data that fails validation.
func ErrInvalidInput(cause error) error {
	return oops.Code(CodeInvalidInput).Wrap(cause)
}
